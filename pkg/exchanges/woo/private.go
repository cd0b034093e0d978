package woo

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// FetchBalance retrieves the account holdings snapshot.
func (e *Exchange) FetchBalance(ctx context.Context, params interfaces.Params) (*interfaces.Balances, error) {
	envelope, err := e.fetch(ctx, http.MethodGet, "v3/balances", "private", params)
	if err != nil {
		return nil, err
	}
	payload, _ := common.GetMap(envelope, "data")
	if payload == nil {
		payload = envelope
	}
	balances := &interfaces.Balances{
		Assets: make(map[string]interfaces.Balance),
		Info:   payload,
	}
	for _, row := range envelopeRows(payload, "holding") {
		id, _ := common.GetString(row, "token")
		if id == "" {
			continue
		}
		total := common.GetDecimal(row, "holding")
		used := common.GetDecimal(row, "frozen")
		balances.Assets[e.currencies.Code(id)] = interfaces.Balance{
			Free:  interfaces.Sub(total, used),
			Used:  used,
			Total: total,
		}
		if updated := timestampMS(row, "updated_time"); updated > balances.Timestamp {
			balances.Timestamp = updated
			balances.Datetime = common.ISO8601(updated)
		}
	}
	return balances, nil
}

// CreateOrder places an order.
//
// Market buys are sized in quote currency via order_amount: the value comes
// from params["cost"], or amount * price when a reference price is given.
// The placement response echoes only ids and the accepted sizing, so the
// returned order is filled from the request parameters.
//
// Recognized params: cost, clientOrderId, postOnly, timeInForce (IOC, FOK).
func (e *Exchange) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price interfaces.Number, params interfaces.Params) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	wooType := strings.ToUpper(orderType)
	timeInForce := ""
	postOnly := false
	if v, ok := params.Bool("postOnly"); ok && v {
		wooType = "POST_ONLY"
		postOnly = true
	} else if tif, ok := params.String("timeInForce"); ok && orderType == interfaces.OrderTypeLimit {
		wooType = strings.ToUpper(tif)
		timeInForce = wooType
	}
	request := interfaces.Params{
		"symbol":     market.ID,
		"order_type": wooType,
		"side":       strings.ToUpper(side),
	}
	isMarketBuy := orderType == interfaces.OrderTypeMarket && side == interfaces.SideBuy
	if isMarketBuy {
		cost := params.Number("cost")
		if !cost.Valid {
			cost = interfaces.Mul(amount, price)
		}
		if !cost.Valid {
			return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "",
				"market buy orders require params[\"cost\"] or both amount and price", "")
		}
		request["order_amount"] = cost
	} else {
		request["order_quantity"] = amount
		if orderType == interfaces.OrderTypeLimit {
			request["order_price"] = price
		}
	}
	if clientOrderID, ok := params.String("clientOrderId"); ok {
		request["client_order_id"] = clientOrderID
	}
	rest := params.Omit("cost", "clientOrderId", "postOnly", "timeInForce")
	envelope, err := e.fetch(ctx, http.MethodPost, "v1/order", "private", request.Extend(rest))
	if err != nil {
		return nil, err
	}
	id, _ := common.GetString(envelope, "order_id")
	clientOrderID, _ := common.GetString(envelope, "client_order_id")
	now := time.Now().UnixMilli()
	order := &interfaces.Order{
		ID:            id,
		ClientOrderID: clientOrderID,
		Timestamp:     now,
		Datetime:      common.ISO8601(now),
		Symbol:        market.Symbol,
		Type:          orderType,
		Side:          side,
		Status:        interfaces.OrderStatusOpen,
		TimeInForce:   timeInForce,
		PostOnly:      postOnly,
		Info:          envelope,
	}
	if isMarketBuy {
		order.Cost = common.GetDecimal(envelope, "order_amount")
		if !order.Cost.Valid {
			order.Cost = request.Number("order_amount")
		}
	} else {
		order.Amount = common.GetDecimal(envelope, "order_quantity")
		if !order.Amount.Valid {
			order.Amount = amount
		}
		if orderType == interfaces.OrderTypeLimit {
			order.Price = common.GetDecimal(envelope, "order_price")
			if !order.Price.Valid {
				order.Price = price
			}
		}
	}
	return order, nil
}

// CancelOrder cancels one order by id. The response carries only an
// acknowledgement status, so the returned order is filled from the request.
func (e *Exchange) CancelOrder(ctx context.Context, id, symbol string, params interfaces.Params) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	envelope, err := e.fetch(ctx, http.MethodDelete, "v1/order", "private", params.Extend(interfaces.Params{
		"order_id": id,
		"symbol":   market.ID,
	}))
	if err != nil {
		return nil, err
	}
	return &interfaces.Order{
		ID:     id,
		Symbol: market.Symbol,
		Status: interfaces.OrderStatusCanceling,
		Info:   envelope,
	}, nil
}

// CancelAllOrders cancels every open order for a symbol in one call. The
// venue acknowledges without listing the affected orders, so the result is
// empty on success.
func (e *Exchange) CancelAllOrders(ctx context.Context, symbol string, params interfaces.Params) ([]*interfaces.Order, error) {
	request := interfaces.Params{}
	if symbol != "" {
		market, err := e.market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		request["symbol"] = market.ID
	}
	if _, err := e.fetch(ctx, http.MethodDelete, "v1/orders", "private", request.Extend(params)); err != nil {
		return nil, err
	}
	return []*interfaces.Order{}, nil
}

// FetchOrder retrieves one order by id. The payload is the order record
// itself, not a wrapped row list.
func (e *Exchange) FetchOrder(ctx context.Context, id, symbol string) (*interfaces.Order, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/order/"+id, "private", nil)
	if err != nil {
		return nil, err
	}
	return e.parseOrder(envelope, nil), nil
}

func (e *Exchange) fetchOrderList(ctx context.Context, status, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	params := interfaces.Params{}
	var market *interfaces.Market
	if symbol != "" {
		m, err := e.market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		market = m
		params["symbol"] = m.ID
	}
	if status != "" {
		params["status"] = status
	}
	if since > 0 {
		params["start_t"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["size"] = strconv.Itoa(limit)
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/orders", "private", params)
	if err != nil {
		return nil, err
	}
	rows := envelopeRows(envelope, "rows")
	orders := make([]*interfaces.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, e.parseOrder(row, market))
	}
	return orders, nil
}

// FetchOrders retrieves order history.
func (e *Exchange) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "", symbol, since, limit)
}

// FetchOpenOrders retrieves currently open orders.
func (e *Exchange) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "INCOMPLETE", symbol, since, limit)
}

// FetchClosedOrders retrieves completed orders.
func (e *Exchange) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "COMPLETED", symbol, since, limit)
}

// orderStatuses maps venue order states onto the unified vocabulary. Unmapped
// states pass through unchanged.
var orderStatuses = map[string]string{
	"NEW":             interfaces.OrderStatusOpen,
	"PARTIAL_FILLED":  interfaces.OrderStatusOpen,
	"INCOMPLETE":      interfaces.OrderStatusOpen,
	"FILLED":          interfaces.OrderStatusClosed,
	"COMPLETED":       interfaces.OrderStatusClosed,
	"CANCELLED":       interfaces.OrderStatusCanceled,
	"CANCEL_SENT":     interfaces.OrderStatusCanceling,
	"CANCEL_ALL_SENT": interfaces.OrderStatusCanceling,
	"REJECTED":        interfaces.OrderStatusRejected,
}

// parseOrder normalizes one order record. POST_ONLY, IOC and FOK order types
// collapse into limit plus the PostOnly flag or TimeInForce. Market buys
// sized in quote currency keep Amount absent, with the quote quantity under
// Cost.
func (e *Exchange) parseOrder(m map[string]any, market *interfaces.Market) *interfaces.Order {
	id, _ := common.GetString(m, "order_id")
	clientOrderID, _ := common.GetString(m, "client_order_id")
	symbolID, _ := common.GetString(m, "symbol")
	side, _ := common.GetString(m, "side")
	state, _ := common.GetString(m, "status")
	wooType, _ := common.GetString(m, "type", "order_type")
	timestamp := timestampMS(m, "created_time")

	orderType := strings.ToLower(wooType)
	timeInForce := ""
	postOnly := false
	switch wooType {
	case "POST_ONLY":
		orderType = interfaces.OrderTypeLimit
		postOnly = true
	case "IOC", "FOK":
		orderType = interfaces.OrderTypeLimit
		timeInForce = wooType
	}
	status := orderStatuses[state]
	if status == "" {
		status = state
	}

	price := common.GetDecimal(m, "price", "order_price")
	amount := common.GetDecimal(m, "quantity", "order_quantity")
	quoteAmount := common.GetDecimal(m, "amount", "order_amount")
	filled := common.GetDecimal(m, "executed", "total_executed_quantity")
	average := common.GetDecimal(m, "average_executed_price")

	order := &interfaces.Order{
		ID:            id,
		ClientOrderID: clientOrderID,
		Timestamp:     timestamp,
		Datetime:      common.ISO8601(timestamp),
		Symbol:        e.parseSymbolID(symbolID, market),
		Type:          orderType,
		Side:          strings.ToLower(side),
		Price:         price,
		Filled:        filled,
		Average:       average,
		Status:        status,
		TimeInForce:   timeInForce,
		PostOnly:      postOnly,
		Info:          m,
	}
	if orderType == interfaces.OrderTypeMarket && order.Side == interfaces.SideBuy && !amount.Valid {
		order.Cost = quoteAmount
	} else {
		order.Amount = amount
		order.Remaining = interfaces.Sub(amount, filled)
		order.Cost = interfaces.Mul(average, filled)
	}
	if feeCost := common.GetDecimal(m, "total_fee"); feeCost.Valid {
		feeAsset, _ := common.GetString(m, "fee_asset")
		order.Fee = &interfaces.Fee{
			Currency: e.currencies.Code(feeAsset),
			Cost:     feeCost,
		}
	}
	return order
}

// FetchMyTrades retrieves the account's own executions.
func (e *Exchange) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Trade, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	params := interfaces.Params{}
	var market *interfaces.Market
	if symbol != "" {
		m, err := e.market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		market = m
		params["symbol"] = m.ID
	}
	if since > 0 {
		params["start_t"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["size"] = strconv.Itoa(limit)
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/client/trades", "private", params)
	if err != nil {
		return nil, err
	}
	rows := envelopeRows(envelope, "rows")
	trades := make([]*interfaces.Trade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, e.parseMyTrade(row, market))
	}
	return trades, nil
}

// parseMyTrade normalizes one private execution. is_maker arrives as a 0/1
// integer and fixes the account's role.
func (e *Exchange) parseMyTrade(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "id")
	orderID, _ := common.GetString(m, "order_id")
	symbolID, _ := common.GetString(m, "symbol")
	side, _ := common.GetString(m, "side")
	timestamp := timestampMS(m, "executed_timestamp")
	price := common.GetDecimal(m, "executed_price")
	amount := common.GetDecimal(m, "executed_quantity")

	role := ""
	if isMaker, ok := common.GetInt(m, "is_maker"); ok {
		role = interfaces.RoleTaker
		if isMaker != 0 {
			role = interfaces.RoleMaker
		}
	}
	trade := &interfaces.Trade{
		ID:           id,
		OrderID:      orderID,
		Symbol:       e.parseSymbolID(symbolID, market),
		Timestamp:    timestamp,
		Datetime:     common.ISO8601(timestamp),
		Side:         strings.ToLower(side),
		TakerOrMaker: role,
		Price:        price,
		Amount:       amount,
		Cost:         interfaces.Mul(price, amount),
		Info:         m,
	}
	if feeCost := common.GetDecimal(m, "fee"); feeCost.Valid {
		feeAsset, _ := common.GetString(m, "fee_asset")
		trade.Fee = &interfaces.Fee{
			Currency: e.currencies.Code(feeAsset),
			Cost:     feeCost,
		}
	}
	return trade
}

// FetchDepositAddress retrieves a deposit destination for a currency.
// params["network"] is forwarded when the asset lives on several chains.
func (e *Exchange) FetchDepositAddress(ctx context.Context, code string, params interfaces.Params) (*interfaces.DepositAddress, error) {
	if code == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "currency code is required", "")
	}
	request := interfaces.Params{"token": code}
	network, _ := params.String("network")
	if network != "" {
		request["network"] = network
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/asset/deposit", "private", request)
	if err != nil {
		return nil, err
	}
	address, _ := common.GetString(envelope, "address")
	tag, _ := common.GetString(envelope, "extra")
	return &interfaces.DepositAddress{
		Currency: code,
		Address:  address,
		Tag:      tag,
		Network:  network,
		Info:     envelope,
	}, nil
}

// transactionStatuses maps asset history states onto the unified vocabulary.
var transactionStatuses = map[string]string{
	"NEW":        interfaces.TransactionPending,
	"CONFIRMING": interfaces.TransactionPending,
	"PROCESSING": interfaces.TransactionPending,
	"COMPLETED":  interfaces.TransactionOK,
	"CANCELED":   interfaces.TransactionCanceled,
	"FAILED":     interfaces.TransactionFailed,
}

// fetchTransactions queries the unified asset history endpoint, scoped by
// token_side to deposits or withdrawals.
func (e *Exchange) fetchTransactions(ctx context.Context, side, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	params := interfaces.Params{
		"type":       "BALANCE",
		"token_side": side,
	}
	if code != "" {
		params["balance_token"] = code
	}
	if since > 0 {
		params["start_t"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["pageSize"] = strconv.Itoa(limit)
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/asset/history", "private", params)
	if err != nil {
		return nil, err
	}
	rows := envelopeRows(envelope, "rows")
	transactions := make([]*interfaces.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, e.parseTransaction(row))
	}
	return transactions, nil
}

// FetchDeposits retrieves deposit history.
func (e *Exchange) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "DEPOSIT", code, since, limit)
}

// FetchWithdrawals retrieves withdrawal history.
func (e *Exchange) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "WITHDRAW", code, since, limit)
}

// parseTransaction normalizes one asset history record. Both kinds share one
// record shape; token_side names the direction.
func (e *Exchange) parseTransaction(m map[string]any) *interfaces.Transaction {
	id, _ := common.GetString(m, "id")
	token, _ := common.GetString(m, "token")
	txID, _ := common.GetString(m, "tx_id")
	tag, _ := common.GetString(m, "extra")
	state, _ := common.GetString(m, "status")
	tokenSide, _ := common.GetString(m, "token_side")
	timestamp := timestampMS(m, "created_time")
	updated := timestampMS(m, "updated_time")

	kind := "deposit"
	if tokenSide == "WITHDRAW" {
		kind = "withdrawal"
	}
	status, ok := transactionStatuses[state]
	if !ok {
		status = interfaces.TransactionPending
	}
	tx := &interfaces.Transaction{
		ID:        id,
		TxID:      txID,
		Currency:  e.currencies.Code(token),
		Amount:    common.GetDecimal(m, "amount"),
		Type:      kind,
		Status:    status,
		Tag:       tag,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Updated:   updated,
		Info:      m,
	}
	if feeCost := common.GetDecimal(m, "fee_amount"); feeCost.Valid {
		feeToken, _ := common.GetString(m, "fee_token")
		tx.Fee = &interfaces.Fee{
			Currency: e.currencies.Code(feeToken),
			Cost:     feeCost,
		}
	}
	return tx
}

// Withdraw requests an on-chain withdrawal. The response carries only the
// request id, so the returned transaction is filled from the request
// parameters.
func (e *Exchange) Withdraw(ctx context.Context, code string, amount interfaces.Number, address, tag string, params interfaces.Params) (*interfaces.Transaction, error) {
	if code == "" || address == "" || !amount.Valid {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code, amount and address are required", "")
	}
	request := interfaces.Params{
		"token":   code,
		"address": address,
		"amount":  amount,
	}
	if tag != "" {
		request["extra"] = tag
	}
	envelope, err := e.fetch(ctx, http.MethodPost, "v1/asset/withdraw", "private", request.Extend(params))
	if err != nil {
		return nil, err
	}
	id, _ := common.GetString(envelope, "withdraw_id")
	now := time.Now().UnixMilli()
	return &interfaces.Transaction{
		ID:        id,
		Currency:  code,
		Amount:    amount,
		Type:      "withdrawal",
		Status:    interfaces.TransactionPending,
		Address:   address,
		AddressTo: address,
		Tag:       tag,
		TagTo:     tag,
		Timestamp: now,
		Datetime:  common.ISO8601(now),
		Info:      envelope,
	}, nil
}

// Transfer moves funds between the main account and a sub-account.
// fromAccount and toAccount are the venue's application ids. The response
// carries only the transfer id, so the result is filled from the request
// parameters.
func (e *Exchange) Transfer(ctx context.Context, code string, amount interfaces.Number, fromAccount, toAccount string, params interfaces.Params) (*interfaces.Transfer, error) {
	if code == "" || !amount.Valid || fromAccount == "" || toAccount == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code, amount and both accounts are required", "")
	}
	request := interfaces.Params{
		"token":               code,
		"amount":              amount,
		"from_application_id": fromAccount,
		"to_application_id":   toAccount,
	}
	envelope, err := e.fetch(ctx, http.MethodPost, "v1/asset/main_sub_transfer", "private", request.Extend(params))
	if err != nil {
		return nil, err
	}
	id, _ := common.GetString(envelope, "id")
	now := time.Now().UnixMilli()
	return &interfaces.Transfer{
		ID:          id,
		Currency:    code,
		Amount:      amount,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Status:      interfaces.TransactionPending,
		Timestamp:   now,
		Datetime:    common.ISO8601(now),
		Info:        envelope,
	}, nil
}
