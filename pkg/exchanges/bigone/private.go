package bigone

import (
	"context"
	"net/http"
	"strings"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// accountsByType maps unified account-type strings onto the venue's account
// identifiers for transfers.
var accountsByType = map[string]string{
	"spot":     "SPOT",
	"funding":  "FUND",
	"fund":     "FUND",
	"swap":     "CONTRACT",
	"contract": "CONTRACT",
}

// FetchBalance retrieves the account funds snapshot.
//
//	GET /viewer/accounts
//	{"code":0,"data":[{"asset_symbol":"BTC","balance":"1.5","locked_balance":"0.5"}]}
func (e *Exchange) FetchBalance(ctx context.Context, params interfaces.Params) (*interfaces.Balances, error) {
	data, err := e.fetch(ctx, http.MethodGet, "accounts", "private", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "accounts is not a list", "")
	}
	balances := &interfaces.Balances{
		Assets: make(map[string]interfaces.Balance, len(rows)),
		Info:   map[string]any{"data": data},
	}
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		asset, _ := common.GetString(m, "asset_symbol")
		total := common.GetDecimal(m, "balance")
		used := common.GetDecimal(m, "locked_balance")
		balances.Assets[e.currencies.Code(asset)] = interfaces.Balance{
			Free:  interfaces.Sub(total, used),
			Used:  used,
			Total: total,
		}
	}
	return balances, nil
}

// CreateOrder places an order.
//
//	POST /viewer/orders
//
// Market buys are sized in quote currency: amount stays unset and the quote
// cost travels in the amount field, taken from params["cost"] or derived as
// amount*price when a price was supplied.
func (e *Exchange) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price interfaces.Number, params interfaces.Params) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	vendorSide := "BID"
	if side == interfaces.SideSell {
		vendorSide = "ASK"
	}
	request := interfaces.Params{
		"asset_pair_name": market.ID,
		"side":            vendorSide,
		"type":            strings.ToUpper(orderType),
	}
	if orderType == interfaces.OrderTypeMarket && side == interfaces.SideBuy {
		cost := params.Number("cost")
		if !cost.Valid {
			cost = interfaces.Mul(amount, price)
		}
		if !cost.Valid {
			return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "",
				"market buy orders require params[\"cost\"] or both amount and price", "")
		}
		request["amount"] = cost.Decimal
	} else {
		if !amount.Valid {
			return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "amount is required", "")
		}
		request["amount"] = amount.Decimal
	}
	if orderType == interfaces.OrderTypeLimit {
		if !price.Valid {
			return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "limit orders require a price", "")
		}
		request["price"] = price.Decimal
	}
	if trigger := params.Number("triggerPrice"); trigger.Valid {
		request["stop_price"] = trigger.Decimal
		// The venue infers the trigger direction from the operator.
		if side == interfaces.SideBuy {
			request["operator"] = "GTE"
		} else {
			request["operator"] = "LTE"
		}
	}
	if postOnly, ok := params.Bool("postOnly"); ok && postOnly {
		request["post_only"] = true
	}
	if clientOrderID, ok := params.String("clientOrderId"); ok {
		request["client_order_id"] = clientOrderID
	}
	rest := params.Omit("cost", "triggerPrice", "postOnly", "clientOrderId")
	data, err := e.fetch(ctx, http.MethodPost, "orders", "private", request.Extend(rest))
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "order is not an object", "")
	}
	return e.parseOrder(m, market), nil
}

// CancelOrder cancels one order.
//
//	POST /viewer/orders/{id}/cancel
func (e *Exchange) CancelOrder(ctx context.Context, id, symbol string, params interfaces.Params) (*interfaces.Order, error) {
	if id == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "order id is required", "")
	}
	data, err := e.fetch(ctx, http.MethodPost, "orders/"+id+"/cancel", "private", params)
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "order is not an object", "")
	}
	return e.parseOrder(m, nil), nil
}

// CancelAllOrders cancels every open order, optionally scoped to a symbol.
//
//	POST /viewer/orders/cancel
//	{"code":0,"data":{"cancelled":[58272370,58272371],"failed":[]}}
func (e *Exchange) CancelAllOrders(ctx context.Context, symbol string, params interfaces.Params) ([]*interfaces.Order, error) {
	request := interfaces.Params{}
	if symbol != "" {
		market, err := e.market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		request["asset_pair_name"] = market.ID
	}
	data, err := e.fetch(ctx, http.MethodPost, "orders/cancel", "private", request.Extend(params))
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "cancel result is not an object", "")
	}
	ids, _ := common.GetList(m, "cancelled")
	orders := make([]*interfaces.Order, 0, len(ids))
	for _, raw := range ids {
		id, ok := common.GetString(map[string]any{"id": raw}, "id")
		if !ok {
			continue
		}
		orders = append(orders, &interfaces.Order{
			ID:     id,
			Symbol: symbol,
			Status: interfaces.OrderStatusCanceled,
			Info:   m,
		})
	}
	return orders, nil
}

// FetchOrder retrieves one order by id.
//
//	GET /viewer/orders/{id}
func (e *Exchange) FetchOrder(ctx context.Context, id, symbol string) (*interfaces.Order, error) {
	if id == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "order id is required", "")
	}
	data, err := e.fetch(ctx, http.MethodGet, "orders/"+id, "private", nil)
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "order is not an object", "")
	}
	return e.parseOrder(m, nil), nil
}

// FetchOrders retrieves order history for a symbol. The venue scopes order
// listings by asset_pair_name, so symbol is required here even though other
// adapters accept an empty one; an empty symbol fails with
// ErrArgumentsRequired before any network call.
//
//	GET /viewer/orders?asset_pair_name=BTC-USDT
func (e *Exchange) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrdersByState(ctx, symbol, "", since, limit)
}

// FetchOpenOrders retrieves currently open orders. symbol is required, as
// with FetchOrders.
func (e *Exchange) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrdersByState(ctx, symbol, "PENDING", since, limit)
}

// FetchClosedOrders retrieves filled orders. symbol is required, as with
// FetchOrders.
func (e *Exchange) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrdersByState(ctx, symbol, "FILLED", since, limit)
}

func (e *Exchange) fetchOrdersByState(ctx context.Context, symbol, state string, since int64, limit int) ([]*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{"asset_pair_name": market.ID}
	if state != "" {
		params["state"] = state
	}
	if limit > 0 {
		params["limit"] = limit
	}
	data, err := e.fetch(ctx, http.MethodGet, "orders", "private", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "orders is not a list", "")
	}
	orders := make([]*interfaces.Order, 0, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		order := e.parseOrder(m, market)
		if since > 0 && order.Timestamp > 0 && order.Timestamp < since {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// FetchMyTrades retrieves the account's own executions.
//
//	GET /viewer/trades?asset_pair_name=BTC-USDT
func (e *Exchange) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Trade, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{"asset_pair_name": market.ID}
	if limit > 0 {
		params["limit"] = limit
	}
	data, err := e.fetch(ctx, http.MethodGet, "trades", "private", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "trades is not a list", "")
	}
	trades := make([]*interfaces.Trade, 0, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		trade := e.parseTrade(m, market)
		if since > 0 && trade.Timestamp > 0 && trade.Timestamp < since {
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// orderStatuses maps vendor order states onto the unified vocabulary.
// Unmapped states pass through unchanged.
var orderStatuses = map[string]string{
	"PENDING":   interfaces.OrderStatusOpen,
	"OPENING":   interfaces.OrderStatusOpen,
	"FILLED":    interfaces.OrderStatusClosed,
	"CANCELLED": interfaces.OrderStatusCanceled,
	"CANCELED":  interfaces.OrderStatusCanceled,
	"REJECTED":  interfaces.OrderStatusRejected,
}

func parseOrderStatus(state string) string {
	if status, ok := orderStatuses[state]; ok {
		return status
	}
	return state
}

// parseOrder maps one vendor order onto the unified shape.
//
// For MARKET/BID orders the vendor's amount field carries the quote cost, not
// the base quantity, so Amount stays absent and Cost takes it instead.
func (e *Exchange) parseOrder(m map[string]any, market *interfaces.Market) *interfaces.Order {
	id, _ := common.GetString(m, "id")
	clientOrderID, _ := common.GetString(m, "client_order_id")
	marketID, _ := common.GetString(m, "asset_pair_name")
	resolved := e.markets.SafeMarket(marketID, market, "-")
	timestamp := common.GetTimestampISO(m, "created_at", "inserted_at")
	updated := common.GetTimestampISO(m, "updated_at")

	vendorSide, _ := common.GetString(m, "side")
	side := interfaces.SideBuy
	if vendorSide == "ASK" {
		side = interfaces.SideSell
	}
	vendorType, _ := common.GetString(m, "type")
	orderType := strings.ToLower(vendorType)
	state, _ := common.GetString(m, "state")

	price := common.GetDecimal(m, "price")
	amount := common.GetDecimal(m, "amount")
	filled := common.GetDecimal(m, "filled_amount")
	average := common.GetDecimal(m, "avg_deal_price")

	order := &interfaces.Order{
		ID:            id,
		ClientOrderID: clientOrderID,
		Timestamp:     timestamp,
		Datetime:      common.ISO8601(timestamp),
		LastTradeTime: updated,
		Symbol:        resolved.Symbol,
		Type:          orderType,
		Side:          side,
		Price:         price,
		TriggerPrice:  common.GetDecimal(m, "stop_price", "trigger_price"),
		Filled:        filled,
		Average:       average,
		Status:        parseOrderStatus(state),
		Info:          m,
	}
	if postOnly, ok := common.GetBool(m, "post_only"); ok {
		order.PostOnly = postOnly
	}
	if orderType == interfaces.OrderTypeMarket && side == interfaces.SideBuy {
		order.Cost = amount
	} else {
		order.Amount = amount
		order.Remaining = interfaces.Sub(amount, filled)
		order.Cost = interfaces.Mul(average, filled)
	}
	return order
}

// FetchDepositAddress retrieves a deposit destination.
//
//	GET /viewer/assets/{symbol}/address
//	{"code":0,"data":[{"chain":"Bitcoin","value":"1Pc...","memo":""}]}
func (e *Exchange) FetchDepositAddress(ctx context.Context, code string, params interfaces.Params) (*interfaces.DepositAddress, error) {
	if code == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "currency code is required", "")
	}
	data, err := e.fetch(ctx, http.MethodGet, "assets/"+code+"/address", "private", nil)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok || len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "no deposit address returned", "")
	}
	network, _ := params.String("network")
	var chosen map[string]any
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		if chosen == nil {
			chosen = m
		}
		chain, _ := common.GetString(m, "chain")
		if network != "" && strings.EqualFold(chain, network) {
			chosen = m
			break
		}
	}
	if chosen == nil {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "no deposit address returned", "")
	}
	address, _ := common.GetString(chosen, "value")
	tag, _ := common.GetString(chosen, "memo")
	chain, _ := common.GetString(chosen, "chain")
	return &interfaces.DepositAddress{
		Currency: code,
		Address:  address,
		Tag:      tag,
		Network:  chain,
		Info:     chosen,
	}, nil
}

// FetchDeposits retrieves deposit history.
//
//	GET /viewer/deposits
func (e *Exchange) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "deposits", code, since, limit)
}

// FetchWithdrawals retrieves withdrawal history.
//
//	GET /viewer/withdrawals
func (e *Exchange) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "withdrawals", code, since, limit)
}

func (e *Exchange) fetchTransactions(ctx context.Context, path, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	params := interfaces.Params{}
	if code != "" {
		params["asset_symbol"] = code
	}
	if limit > 0 {
		params["limit"] = limit
	}
	data, err := e.fetch(ctx, http.MethodGet, path, "private", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", path+" is not a list", "")
	}
	transactions := make([]*interfaces.Transaction, 0, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		tx := e.parseTransaction(m)
		if since > 0 && tx.Timestamp > 0 && tx.Timestamp < since {
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

// transactionStatuses maps vendor transaction states onto the unified
// vocabulary.
//
// The vendor docs describe WITHHOLD both as "has been confirmed" and "has not
// been confirmed" in different tables; the mapping below follows observed
// payloads, where WITHHOLD funds are already credited.
var transactionStatuses = map[string]string{
	"WITHHOLD":    interfaces.TransactionOK,
	"UNCONFIRMED": interfaces.TransactionPending,
	"CONFIRMED":   interfaces.TransactionOK,
	"COMPLETED":   interfaces.TransactionOK,
	"PENDING":     interfaces.TransactionPending,
	"CANCELLED":   interfaces.TransactionCanceled,
	"FAILED":      interfaces.TransactionFailed,
}

func parseTransactionStatus(state string) string {
	if status, ok := transactionStatuses[state]; ok {
		return status
	}
	return state
}

// parseTransaction maps one deposit or withdrawal record.
//
// The payloads carry no explicit direction flag; only withdrawal records
// include a customer_id field, so the type is inferred from its presence.
// TODO: switch to the kind field if the venue ever adds one to both shapes.
func (e *Exchange) parseTransaction(m map[string]any) *interfaces.Transaction {
	id, _ := common.GetString(m, "id")
	asset, _ := common.GetString(m, "asset_symbol")
	txid, _ := common.GetString(m, "txid")
	state, _ := common.GetString(m, "state")
	timestamp := common.GetTimestampISO(m, "inserted_at", "created_at")
	updated := common.GetTimestampISO(m, "updated_at")

	txType := "deposit"
	if _, isWithdrawal := common.GetString(m, "customer_id"); isWithdrawal {
		txType = "withdrawal"
	}
	internal, _ := common.GetBool(m, "is_internal")

	address, _ := common.GetString(m, "target_address")
	tag, _ := common.GetString(m, "memo")
	tx := &interfaces.Transaction{
		ID:        id,
		TxID:      txid,
		Currency:  e.currencies.Code(asset),
		Amount:    common.GetDecimal(m, "amount"),
		Type:      txType,
		Status:    parseTransactionStatus(state),
		Internal:  internal,
		Address:   address,
		Tag:       tag,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Updated:   updated,
		Info:      m,
	}
	if fee := common.GetDecimal(m, "fee", "withdrawal_fee"); fee.Valid {
		tx.Fee = &interfaces.Fee{Currency: tx.Currency, Cost: fee}
	}
	return tx
}

// Withdraw requests an on-chain withdrawal.
//
//	POST /viewer/withdrawals
func (e *Exchange) Withdraw(ctx context.Context, code string, amount interfaces.Number, address, tag string, params interfaces.Params) (*interfaces.Transaction, error) {
	if code == "" || address == "" || !amount.Valid {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code, amount and address are required", "")
	}
	request := interfaces.Params{
		"symbol":         code,
		"target_address": address,
		"amount":         amount.Decimal,
	}
	if tag != "" {
		request["memo"] = tag
	}
	if network, ok := params.String("network"); ok {
		request["gateway_name"] = network
	}
	data, err := e.fetch(ctx, http.MethodPost, "withdrawals", "private", request.Extend(params.Omit("network")))
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "withdrawal is not an object", "")
	}
	return e.parseTransaction(m), nil
}

// Transfer moves funds between the venue's internal accounts.
//
//	POST /viewer/transfer
//
// The venue acknowledges with a bare success code and no body, so the
// returned transfer is filled from the request parameters.
func (e *Exchange) Transfer(ctx context.Context, code string, amount interfaces.Number, fromAccount, toAccount string, params interfaces.Params) (*interfaces.Transfer, error) {
	if code == "" || !amount.Valid {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code and amount are required", "")
	}
	from, ok := accountsByType[fromAccount]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadRequest, "", "unknown fromAccount "+fromAccount, "")
	}
	to, ok := accountsByType[toAccount]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadRequest, "", "unknown toAccount "+toAccount, "")
	}
	request := interfaces.Params{
		"symbol": code,
		"amount": amount.Decimal,
		"from":   from,
		"to":     to,
	}
	data, err := e.fetch(ctx, http.MethodPost, "transfer", "private", request.Extend(params))
	if err != nil {
		return nil, err
	}
	transfer := &interfaces.Transfer{
		Currency:    code,
		Amount:      amount,
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Status:      interfaces.TransactionOK,
	}
	if m, ok := common.AsMap(data); ok {
		transfer.Info = m
		if id, ok := common.GetString(m, "id"); ok {
			transfer.ID = id
		}
	}
	return transfer, nil
}
