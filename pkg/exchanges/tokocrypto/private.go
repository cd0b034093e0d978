package tokocrypto

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// The venue encodes sides and order types numerically.
var sideIDs = map[string]string{
	interfaces.SideBuy:  "0",
	interfaces.SideSell: "1",
}

var sidesByID = map[string]string{
	"0": interfaces.SideBuy,
	"1": interfaces.SideSell,
}

var orderTypeIDs = map[string]string{
	interfaces.OrderTypeLimit:  "1",
	interfaces.OrderTypeMarket: "2",
}

var orderTypesByID = map[string]string{
	"1": interfaces.OrderTypeLimit,
	"2": interfaces.OrderTypeMarket,
	"3": interfaces.OrderTypeLimit,  // stop loss limit
	"4": interfaces.OrderTypeMarket, // stop loss
	"5": interfaces.OrderTypeLimit,  // take profit limit
	"6": interfaces.OrderTypeMarket, // take profit
}

// FetchBalance retrieves the spot account snapshot.
func (e *Exchange) FetchBalance(ctx context.Context, params interfaces.Params) (*interfaces.Balances, error) {
	data, err := e.fetch(ctx, http.MethodGet, "open/v1/account/spot", "private", params)
	if err != nil {
		return nil, err
	}
	payload, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected an account object", "")
	}
	balances := &interfaces.Balances{
		Assets: make(map[string]interfaces.Balance),
		Info:   payload,
	}
	rows, _ := common.GetList(payload, "accountAssets")
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		id, _ := common.GetString(m, "asset")
		if id == "" {
			continue
		}
		free := common.GetDecimal(m, "free")
		used := common.GetDecimal(m, "locked")
		balances.Assets[e.currencies.Code(id)] = interfaces.Balance{
			Free:  free,
			Used:  used,
			Total: interfaces.Add(free, used),
		}
	}
	return balances, nil
}

// CreateOrder places an order.
//
// Market buys are sized in quote currency: the amount is taken from
// params["cost"], or derived as amount * price when a reference price is
// given, and sent as quoteOrderQty. A client order id is generated when
// params["clientOrderId"] is absent, because the venue requires one to
// deduplicate requests.
func (e *Exchange) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price interfaces.Number, params interfaces.Params) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	sideID, ok := sideIDs[side]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrInvalidOrder, "", "unknown side "+side, "")
	}
	typeID, ok := orderTypeIDs[orderType]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrInvalidOrder, "", "unknown order type "+orderType, "")
	}
	clientOrderID, ok := params.String("clientOrderId")
	if !ok {
		clientOrderID = uuid.NewString()
	}
	request := interfaces.Params{
		"symbol":   market.ID,
		"side":     sideID,
		"type":     typeID,
		"clientId": clientOrderID,
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
		request["quoteOrderQty"] = cost
	} else {
		request["quantity"] = amount
		if orderType == interfaces.OrderTypeLimit {
			request["price"] = price
		}
	}
	rest := params.Omit("cost", "clientOrderId")
	data, err := e.fetch(ctx, http.MethodPost, "open/v1/orders", "private", request.Extend(rest))
	if err != nil {
		return nil, err
	}
	placed, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected an order object", "")
	}
	order := e.parseOrder(placed, market)
	if order.ClientOrderID == "" {
		order.ClientOrderID = clientOrderID
	}
	if order.Status == "" {
		order.Status = interfaces.OrderStatusOpen
	}
	return order, nil
}

// CancelOrder cancels one order by id.
func (e *Exchange) CancelOrder(ctx context.Context, id, symbol string, params interfaces.Params) (*interfaces.Order, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodPost, "open/v1/orders/cancel", "private", params.Extend(interfaces.Params{
		"orderId": id,
	}))
	if err != nil {
		return nil, err
	}
	canceled, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected an order object", "")
	}
	order := e.parseOrder(canceled, nil)
	if order.Status == "" {
		order.Status = interfaces.OrderStatusCanceling
	}
	return order, nil
}

// CancelAllOrders cancels every open order, optionally scoped to a symbol.
// The venue has no cancel-all endpoint, so open orders are listed first and
// canceled one by one; a mid-loop failure returns the cancellations that
// already went through alongside the error.
func (e *Exchange) CancelAllOrders(ctx context.Context, symbol string, params interfaces.Params) ([]*interfaces.Order, error) {
	open, err := e.FetchOpenOrders(ctx, symbol, 0, 0)
	if err != nil {
		return nil, err
	}
	canceled := make([]*interfaces.Order, 0, len(open))
	for _, order := range open {
		result, err := e.CancelOrder(ctx, order.ID, order.Symbol, nil)
		if err != nil {
			return canceled, err
		}
		canceled = append(canceled, result)
	}
	return canceled, nil
}

// FetchOrder retrieves one order by id.
func (e *Exchange) FetchOrder(ctx context.Context, id, symbol string) (*interfaces.Order, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "open/v1/orders/detail", "private", interfaces.Params{
		"orderId": id,
	})
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected an order object", "")
	}
	return e.parseOrder(m, nil), nil
}

// fetchOrderList queries the order list endpoint. kind selects open ("1") or
// completed ("2") orders; empty means both.
func (e *Exchange) fetchOrderList(ctx context.Context, kind, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
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
	if kind != "" {
		params["type"] = kind
	}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "open/v1/orders", "private", params)
	if err != nil {
		return nil, err
	}
	payload, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected an order list object", "")
	}
	rows, _ := common.GetList(payload, "list")
	orders := make([]*interfaces.Order, 0, len(rows))
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		orders = append(orders, e.parseOrder(m, market))
	}
	return orders, nil
}

// FetchOrders retrieves order history.
func (e *Exchange) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "", symbol, since, limit)
}

// FetchOpenOrders retrieves currently open orders.
func (e *Exchange) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "1", symbol, since, limit)
}

// FetchClosedOrders retrieves completed orders.
func (e *Exchange) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "2", symbol, since, limit)
}

// orderStatuses maps the venue's numeric order states onto the unified
// vocabulary. Unmapped states pass through unchanged.
var orderStatuses = map[string]string{
	"0": interfaces.OrderStatusOpen, // new
	"1": interfaces.OrderStatusOpen, // partially filled
	"2": interfaces.OrderStatusClosed,
	"3": interfaces.OrderStatusCanceling,
	"4": interfaces.OrderStatusCanceled,
	"5": interfaces.OrderStatusRejected,
	"6": interfaces.OrderStatusExpired,
}

// parseOrder normalizes one order record. Market buys sized in quote currency
// report no base amount; the quote quantity stays under Cost and Amount is
// left absent.
func (e *Exchange) parseOrder(m map[string]any, market *interfaces.Market) *interfaces.Order {
	id, _ := common.GetString(m, "orderId")
	clientOrderID, _ := common.GetString(m, "clientId")
	symbolID, _ := common.GetString(m, "symbol")
	sideID, _ := common.GetString(m, "side")
	typeID, _ := common.GetString(m, "type")
	state, _ := common.GetString(m, "status")
	timestamp := common.GetTimestampMS(m, "createTime")

	orderType := orderTypesByID[typeID]
	if orderType == "" {
		orderType = typeID
	}
	status := orderStatuses[state]
	if status == "" {
		status = state
	}
	price := common.GetDecimal(m, "price")
	amount := common.GetDecimal(m, "origQty")
	filled := common.GetDecimal(m, "executedQty")
	cost := common.GetDecimal(m, "executedQuoteQty", "cummulativeQuoteQty")
	average := interfaces.Number{}
	if cost.Valid && filled.Valid && !filled.Decimal.IsZero() {
		average = interfaces.NumberFrom(cost.Decimal.Div(filled.Decimal))
	}

	order := &interfaces.Order{
		ID:            id,
		ClientOrderID: clientOrderID,
		Timestamp:     timestamp,
		Datetime:      common.ISO8601(timestamp),
		Symbol:        e.markets.SafeSymbol(symbolID, market, "_"),
		Type:          orderType,
		Side:          sidesByID[sideID],
		Price:         price,
		TriggerPrice:  common.GetDecimal(m, "stopPrice"),
		Filled:        filled,
		Cost:          cost,
		Average:       average,
		Status:        status,
		Info:          m,
	}
	if orderType == interfaces.OrderTypeMarket && order.Side == interfaces.SideBuy && !amount.Valid {
		order.Cost = common.GetDecimal(m, "origQuoteQty", "executedQuoteQty", "cummulativeQuoteQty")
	} else {
		order.Amount = amount
		order.Remaining = interfaces.Sub(amount, filled)
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
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "open/v1/orders/trades", "private", params)
	if err != nil {
		return nil, err
	}
	payload, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a trade list object", "")
	}
	rows, _ := common.GetList(payload, "list")
	trades := make([]*interfaces.Trade, 0, len(rows))
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		trades = append(trades, e.parseMyTrade(m, market))
	}
	return trades, nil
}

// parseMyTrade normalizes one private execution. isBuyer fixes the account's
// side, isMaker its role.
func (e *Exchange) parseMyTrade(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "tradeId")
	orderID, _ := common.GetString(m, "orderId")
	symbolID, _ := common.GetString(m, "symbol")
	timestamp := common.GetTimestampMS(m, "time")
	price := common.GetDecimal(m, "price")
	amount := common.GetDecimal(m, "qty")

	side := ""
	if isBuyer, ok := common.GetBool(m, "isBuyer"); ok {
		side = interfaces.SideSell
		if isBuyer {
			side = interfaces.SideBuy
		}
	}
	role := ""
	if isMaker, ok := common.GetBool(m, "isMaker"); ok {
		role = interfaces.RoleTaker
		if isMaker {
			role = interfaces.RoleMaker
		}
	}
	trade := &interfaces.Trade{
		ID:           id,
		OrderID:      orderID,
		Symbol:       e.markets.SafeSymbol(symbolID, market, "_"),
		Timestamp:    timestamp,
		Datetime:     common.ISO8601(timestamp),
		Side:         side,
		TakerOrMaker: role,
		Price:        price,
		Amount:       amount,
		Cost:         interfaces.Mul(price, amount),
		Info:         m,
	}
	if feeCost := common.GetDecimal(m, "commission"); feeCost.Valid {
		feeAsset, _ := common.GetString(m, "commissionAsset")
		trade.Fee = &interfaces.Fee{
			Currency: e.currencies.Code(feeAsset),
			Cost:     feeCost,
		}
	}
	return trade
}

// FetchDepositAddress retrieves a deposit destination for a currency.
// params["network"] selects the chain.
func (e *Exchange) FetchDepositAddress(ctx context.Context, code string, params interfaces.Params) (*interfaces.DepositAddress, error) {
	if code == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "currency code is required", "")
	}
	request := interfaces.Params{"asset": code}
	if network, ok := params.String("network"); ok {
		request["network"] = network
	}
	data, err := e.fetch(ctx, http.MethodGet, "open/v1/deposit/address", "private", request)
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected an address object", "")
	}
	address, _ := common.GetString(m, "address")
	tag, _ := common.GetString(m, "addressTag")
	network, _ := common.GetString(m, "network")
	return &interfaces.DepositAddress{
		Currency: code,
		Address:  address,
		Tag:      tag,
		Network:  network,
		Info:     m,
	}, nil
}

var depositStatuses = map[string]string{
	"0": interfaces.TransactionPending,
	"1": interfaces.TransactionOK,
}

var withdrawalStatuses = map[string]string{
	"0": interfaces.TransactionPending, // email sent
	"1": interfaces.TransactionCanceled,
	"2": interfaces.TransactionPending, // awaiting approval
	"3": interfaces.TransactionFailed,  // rejected
	"4": interfaces.TransactionPending, // processing
	"5": interfaces.TransactionFailed,
	"6": interfaces.TransactionOK,
}

func (e *Exchange) fetchTransactions(ctx context.Context, path, kind, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	params := interfaces.Params{}
	if code != "" {
		params["asset"] = code
	}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, path, "private", params)
	if err != nil {
		return nil, err
	}
	payload, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a transaction list object", "")
	}
	rows, _ := common.GetList(payload, "list")
	transactions := make([]*interfaces.Transaction, 0, len(rows))
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		transactions = append(transactions, e.parseTransaction(m, kind))
	}
	return transactions, nil
}

// FetchDeposits retrieves deposit history.
func (e *Exchange) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "open/v1/deposits", "deposit", code, since, limit)
}

// FetchWithdrawals retrieves withdrawal history.
func (e *Exchange) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "open/v1/withdraws", "withdrawal", code, since, limit)
}

// parseTransaction normalizes a deposit or withdrawal record. The two kinds
// use disjoint numeric status vocabularies.
func (e *Exchange) parseTransaction(m map[string]any, kind string) *interfaces.Transaction {
	id, _ := common.GetString(m, "id")
	asset, _ := common.GetString(m, "asset")
	network, _ := common.GetString(m, "network")
	txID, _ := common.GetString(m, "txId")
	address, _ := common.GetString(m, "address")
	tag, _ := common.GetString(m, "addressTag")
	state, _ := common.GetString(m, "status")
	timestamp := common.GetTimestampMS(m, "createTime", "insertTime", "applyTime")

	statuses := depositStatuses
	if kind == "withdrawal" {
		statuses = withdrawalStatuses
	}
	status, ok := statuses[state]
	if !ok {
		status = interfaces.TransactionPending
	}
	tx := &interfaces.Transaction{
		ID:        id,
		TxID:      txID,
		Currency:  e.currencies.Code(asset),
		Network:   network,
		Amount:    common.GetDecimal(m, "amount"),
		Type:      kind,
		Status:    status,
		Address:   address,
		AddressTo: address,
		Tag:       tag,
		TagTo:     tag,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Info:      m,
	}
	if feeCost := common.GetDecimal(m, "fee", "transactionFee"); feeCost.Valid {
		tx.Fee = &interfaces.Fee{Currency: tx.Currency, Cost: feeCost}
	}
	return tx
}

// Withdraw requests an on-chain withdrawal. params["network"] selects the
// chain when the asset has several.
func (e *Exchange) Withdraw(ctx context.Context, code string, amount interfaces.Number, address, tag string, params interfaces.Params) (*interfaces.Transaction, error) {
	if code == "" || address == "" || !amount.Valid {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code, amount and address are required", "")
	}
	request := interfaces.Params{
		"asset":    code,
		"amount":   amount,
		"address":  address,
		"clientId": uuid.NewString(),
	}
	if tag != "" {
		request["addressTag"] = tag
	}
	if network, ok := params.String("network"); ok {
		request["network"] = network
	}
	rest := params.Omit("network")
	data, err := e.fetch(ctx, http.MethodPost, "open/v1/withdraws/apply", "private", request.Extend(rest))
	if err != nil {
		return nil, err
	}
	accepted, _ := common.AsMap(data)
	id, _ := common.GetString(accepted, "withdrawId", "id")
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
		Info:      accepted,
	}, nil
}

// Transfer is not supported: the venue exposes a single spot account.
func (e *Exchange) Transfer(ctx context.Context, code string, amount interfaces.Number, fromAccount, toAccount string, params interfaces.Params) (*interfaces.Transfer, error) {
	return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "transfer is not supported", "")
}
