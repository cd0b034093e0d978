package okcoin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// accountsByType maps unified account types onto the venue's numeric account
// ids used by the transfer endpoint.
var accountsByType = map[string]string{
	"funding": "6",
	"fund":    "6",
	"spot":    "18",
	"trading": "18",
}

var accountsByID = map[string]string{
	"6":  "funding",
	"18": "spot",
}

// FetchBalance retrieves the trading account snapshot.
func (e *Exchange) FetchBalance(ctx context.Context, params interfaces.Params) (*interfaces.Balances, error) {
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/account/balance", "private", params)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	balances := &interfaces.Balances{
		Assets: make(map[string]interfaces.Balance),
	}
	if len(rows) == 0 {
		return balances, nil
	}
	account := rows[0]
	balances.Timestamp = common.GetTimestampMS(account, "uTime")
	balances.Datetime = common.ISO8601(balances.Timestamp)
	balances.Info = account
	details, _ := common.GetList(account, "details")
	for _, raw := range details {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		id, _ := common.GetString(m, "ccy")
		if id == "" {
			continue
		}
		free := common.GetDecimal(m, "availBal", "availEq")
		used := common.GetDecimal(m, "frozenBal")
		total := common.GetDecimal(m, "cashBal", "eq")
		if !total.Valid {
			total = interfaces.Add(free, used)
		}
		balances.Assets[e.currencies.Code(id)] = interfaces.Balance{
			Free:  free,
			Used:  used,
			Total: total,
		}
	}
	return balances, nil
}

// CreateOrder places an order.
//
// Market buys are sized in quote currency on this venue: Amount is taken from
// params["cost"], or derived as amount * price when a reference price is
// given. The venue's tgtCcy switch is pinned to quote_ccy so the sizing rule
// is deterministic.
//
// Recognized params: cost, clientOrderId, postOnly, timeInForce (IOC, FOK).
func (e *Exchange) CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price interfaces.Number, params interfaces.Params) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	request := interfaces.Params{
		"instId": market.ID,
		"tdMode": "cash",
		"side":   side,
	}
	ordType := orderType
	if tif, ok := params.String("timeInForce"); ok && orderType == interfaces.OrderTypeLimit {
		ordType = strings.ToLower(tif)
	}
	if postOnly, ok := params.Bool("postOnly"); ok && postOnly {
		ordType = "post_only"
	}
	request["ordType"] = ordType
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
		request["sz"] = cost
		request["tgtCcy"] = "quote_ccy"
	} else {
		request["sz"] = amount
		if orderType == interfaces.OrderTypeLimit {
			request["px"] = price
		}
	}
	if clientOrderID, ok := params.String("clientOrderId"); ok {
		request["clOrdId"] = clientOrderID
	}
	rest := params.Omit("cost", "clientOrderId", "postOnly", "timeInForce")
	data, err := e.fetch(ctx, http.MethodPost, "api/v5/trade/order", "private", request.Extend(rest))
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "empty order payload", "")
	}
	placed := rows[0]
	id, _ := common.GetString(placed, "ordId")
	clientOrderID, _ := common.GetString(placed, "clOrdId")
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
		Info:          placed,
	}
	if isMarketBuy {
		order.Cost = request.Number("sz")
	} else {
		order.Amount = amount
		if orderType == interfaces.OrderTypeLimit {
			order.Price = price
		}
	}
	return order, nil
}

// CancelOrder cancels one order by id, or by params["clientOrderId"].
func (e *Exchange) CancelOrder(ctx context.Context, id, symbol string, params interfaces.Params) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	request := interfaces.Params{"instId": market.ID}
	if clientOrderID, ok := params.String("clientOrderId"); ok {
		request["clOrdId"] = clientOrderID
	} else {
		request["ordId"] = id
	}
	data, err := e.fetch(ctx, http.MethodPost, "api/v5/trade/cancel-order", "private", request)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "empty cancel payload", "")
	}
	canceled := rows[0]
	orderID, _ := common.GetString(canceled, "ordId")
	return &interfaces.Order{
		ID:     orderID,
		Symbol: market.Symbol,
		Status: interfaces.OrderStatusCanceling,
		Info:   canceled,
	}, nil
}

// CancelAllOrders cancels every open order, optionally scoped to a symbol.
// The venue has no single cancel-all endpoint, so open orders are listed first
// and canceled one by one; a mid-loop failure returns the cancellations that
// already went through alongside the error.
func (e *Exchange) CancelAllOrders(ctx context.Context, symbol string, params interfaces.Params) ([]*interfaces.Order, error) {
	open, err := e.FetchOpenOrders(ctx, symbol, 0, 0)
	if err != nil {
		return nil, err
	}
	canceled := make([]*interfaces.Order, 0, len(open))
	for _, order := range open {
		instID := order.Symbol
		if market, err := e.markets.BySymbol(exchangeID, order.Symbol); err == nil {
			instID = market.ID
		}
		data, err := e.fetch(ctx, http.MethodPost, "api/v5/trade/cancel-order", "private", interfaces.Params{
			"instId": instID,
			"ordId":  order.ID,
		})
		if err != nil {
			return canceled, err
		}
		rows, err := dataList(data)
		if err != nil {
			return canceled, err
		}
		for _, row := range rows {
			id, _ := common.GetString(row, "ordId")
			canceled = append(canceled, &interfaces.Order{
				ID:     id,
				Symbol: order.Symbol,
				Status: interfaces.OrderStatusCanceling,
				Info:   row,
			})
		}
	}
	return canceled, nil
}

// FetchOrder retrieves one order by id.
func (e *Exchange) FetchOrder(ctx context.Context, id, symbol string) (*interfaces.Order, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/trade/order", "private", interfaces.Params{
		"instId": market.ID,
		"ordId":  id,
	})
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrOrderNotFound, "", "order "+id+" not found", "")
	}
	return e.parseOrder(rows[0], market), nil
}

func (e *Exchange) fetchOrderList(ctx context.Context, path, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	params := interfaces.Params{"instType": "SPOT"}
	var market *interfaces.Market
	if symbol != "" {
		m, err := e.market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		market = m
		params["instId"] = m.ID
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if since > 0 {
		params["begin"] = strconv.FormatInt(since, 10)
	}
	data, err := e.fetch(ctx, http.MethodGet, path, "private", params)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	orders := make([]*interfaces.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, e.parseOrder(row, market))
	}
	return orders, nil
}

// FetchOrders retrieves the full order history.
func (e *Exchange) FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "api/v5/trade/orders-history-archive", symbol, since, limit)
}

// FetchOpenOrders retrieves currently open orders.
func (e *Exchange) FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "api/v5/trade/orders-pending", symbol, since, limit)
}

// FetchClosedOrders retrieves recently completed orders.
func (e *Exchange) FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Order, error) {
	return e.fetchOrderList(ctx, "api/v5/trade/orders-history", symbol, since, limit)
}

// orderStatuses maps venue order states onto the unified vocabulary. Unmapped
// states pass through unchanged.
var orderStatuses = map[string]string{
	"live":             interfaces.OrderStatusOpen,
	"partially_filled": interfaces.OrderStatusOpen,
	"filled":           interfaces.OrderStatusClosed,
	"canceled":         interfaces.OrderStatusCanceled,
	"mmp_canceled":     interfaces.OrderStatusCanceled,
}

func parseOrderStatus(raw string) string {
	if unified, ok := orderStatuses[raw]; ok {
		return unified
	}
	return raw
}

// parseOrder normalizes one order record. The venue's post_only/ioc/fok order
// types are collapsed into limit plus the PostOnly flag or TimeInForce.
// Market buys sized in quote currency keep Amount absent, with the quote
// quantity under Cost.
func (e *Exchange) parseOrder(m map[string]any, market *interfaces.Market) *interfaces.Order {
	id, _ := common.GetString(m, "ordId")
	clientOrderID, _ := common.GetString(m, "clOrdId")
	instID, _ := common.GetString(m, "instId")
	side, _ := common.GetString(m, "side")
	state, _ := common.GetString(m, "state")
	ordType, _ := common.GetString(m, "ordType")
	timestamp := common.GetTimestampMS(m, "cTime")
	updated := common.GetTimestampMS(m, "uTime")

	orderType := ordType
	timeInForce := ""
	postOnly := false
	switch ordType {
	case "post_only":
		orderType = interfaces.OrderTypeLimit
		postOnly = true
	case "ioc":
		orderType = interfaces.OrderTypeLimit
		timeInForce = "IOC"
	case "fok":
		orderType = interfaces.OrderTypeLimit
		timeInForce = "FOK"
	}

	price := common.GetDecimal(m, "px")
	size := common.GetDecimal(m, "sz")
	filled := common.GetDecimal(m, "accFillSz")
	average := common.GetDecimal(m, "avgPx")

	order := &interfaces.Order{
		ID:            id,
		ClientOrderID: clientOrderID,
		Timestamp:     timestamp,
		Datetime:      common.ISO8601(timestamp),
		LastTradeTime: updated,
		Symbol:        e.markets.SafeSymbol(instID, market, "-"),
		Type:          orderType,
		Side:          side,
		Price:         price,
		TriggerPrice:  common.GetDecimal(m, "slTriggerPx", "tpTriggerPx"),
		Filled:        filled,
		Average:       average,
		Status:        parseOrderStatus(state),
		TimeInForce:   timeInForce,
		PostOnly:      postOnly,
		Info:          m,
	}
	tgtCcy, _ := common.GetString(m, "tgtCcy")
	if orderType == interfaces.OrderTypeMarket && side == interfaces.SideBuy && tgtCcy == "quote_ccy" {
		order.Cost = size
	} else {
		order.Amount = size
		order.Remaining = interfaces.Sub(size, filled)
		order.Cost = interfaces.Mul(average, filled)
	}
	if feeCost := common.GetDecimal(m, "fee"); feeCost.Valid {
		feeCcy, _ := common.GetString(m, "feeCcy")
		// Fees are reported as negative deltas against the account.
		order.Fee = &interfaces.Fee{
			Currency: e.currencies.Code(feeCcy),
			Cost:     interfaces.NumberFrom(feeCost.Decimal.Neg()),
		}
	}
	return order
}

// FetchMyTrades retrieves the account's own executions.
func (e *Exchange) FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Trade, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	params := interfaces.Params{"instType": "SPOT"}
	var market *interfaces.Market
	if symbol != "" {
		m, err := e.market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		market = m
		params["instId"] = m.ID
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if since > 0 {
		params["begin"] = strconv.FormatInt(since, 10)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/trade/fills", "private", params)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	trades := make([]*interfaces.Trade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, e.parseFill(row, market))
	}
	return trades, nil
}

// parseFill normalizes one private execution. The venue states the account's
// role directly: execType T for taker, M for maker.
func (e *Exchange) parseFill(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "tradeId")
	orderID, _ := common.GetString(m, "ordId")
	instID, _ := common.GetString(m, "instId")
	side, _ := common.GetString(m, "side")
	execType, _ := common.GetString(m, "execType")
	timestamp := common.GetTimestampMS(m, "ts")
	price := common.GetDecimal(m, "fillPx", "px")
	amount := common.GetDecimal(m, "fillSz", "sz")

	role := ""
	switch execType {
	case "T":
		role = interfaces.RoleTaker
	case "M":
		role = interfaces.RoleMaker
	}
	trade := &interfaces.Trade{
		ID:           id,
		OrderID:      orderID,
		Symbol:       e.markets.SafeSymbol(instID, market, "-"),
		Timestamp:    timestamp,
		Datetime:     common.ISO8601(timestamp),
		Side:         side,
		TakerOrMaker: role,
		Price:        price,
		Amount:       amount,
		Cost:         interfaces.Mul(price, amount),
		Info:         m,
	}
	if feeCost := common.GetDecimal(m, "fee"); feeCost.Valid {
		feeCcy, _ := common.GetString(m, "feeCcy")
		trade.Fee = &interfaces.Fee{
			Currency: e.currencies.Code(feeCcy),
			Cost:     interfaces.NumberFrom(feeCost.Decimal.Neg()),
		}
	}
	return trade
}

// FetchDepositAddress retrieves a deposit destination for a currency.
// params["network"] selects the chain; otherwise the venue's preferred address
// wins, then the first one.
func (e *Exchange) FetchDepositAddress(ctx context.Context, code string, params interfaces.Params) (*interfaces.DepositAddress, error) {
	if code == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "currency code is required", "")
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/asset/deposit-address", "private", interfaces.Params{
		"ccy": code,
	})
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "no deposit address for "+code, "")
	}
	wanted, _ := params.String("network")
	selected := rows[0]
	for _, row := range rows {
		chain, _ := common.GetString(row, "chain")
		if wanted != "" {
			if _, suffix, found := strings.Cut(chain, "-"); found && strings.EqualFold(suffix, wanted) {
				selected = row
				break
			}
			continue
		}
		if preferred, ok := common.GetBool(row, "selected"); ok && preferred {
			selected = row
			break
		}
	}
	address, _ := common.GetString(selected, "addr")
	tag, _ := common.GetString(selected, "tag", "memo", "pmtId")
	chain, _ := common.GetString(selected, "chain")
	network := chain
	if _, suffix, found := strings.Cut(chain, "-"); found {
		network = suffix
	}
	return &interfaces.DepositAddress{
		Currency: code,
		Address:  address,
		Tag:      tag,
		Network:  network,
		Info:     selected,
	}, nil
}

func (e *Exchange) fetchTransactions(ctx context.Context, path, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	params := interfaces.Params{}
	if code != "" {
		params["ccy"] = code
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if since > 0 {
		params["before"] = strconv.FormatInt(since-1, 10)
	}
	data, err := e.fetch(ctx, http.MethodGet, path, "private", params)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	transactions := make([]*interfaces.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, e.parseTransaction(row))
	}
	return transactions, nil
}

// FetchDeposits retrieves deposit history.
func (e *Exchange) FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "api/v5/asset/deposit-history", code, since, limit)
}

// FetchWithdrawals retrieves withdrawal history.
func (e *Exchange) FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]*interfaces.Transaction, error) {
	return e.fetchTransactions(ctx, "api/v5/asset/withdrawal-history", code, since, limit)
}

// Deposit and withdrawal records use disjoint numeric state vocabularies.
var depositStatuses = map[string]string{
	"0": interfaces.TransactionPending, // waiting for confirmation
	"1": interfaces.TransactionPending, // credited, not withdrawable yet
	"2": interfaces.TransactionOK,
}

var withdrawalStatuses = map[string]string{
	"-3": interfaces.TransactionPending, // canceling
	"-2": interfaces.TransactionCanceled,
	"-1": interfaces.TransactionFailed,
	"0":  interfaces.TransactionPending,
	"1":  interfaces.TransactionPending, // broadcasting
	"2":  interfaces.TransactionOK,
}

// parseTransaction normalizes a deposit or withdrawal record. The two record
// shapes share most fields; the transaction type is inferred from which id
// field is present, since only withdrawals carry wdId.
func (e *Exchange) parseTransaction(m map[string]any) *interfaces.Transaction {
	kind := "deposit"
	id, hasWdID := common.GetString(m, "wdId")
	if hasWdID {
		kind = "withdrawal"
	} else {
		id, _ = common.GetString(m, "depId")
	}
	ccy, _ := common.GetString(m, "ccy")
	chain, _ := common.GetString(m, "chain")
	network := chain
	if _, suffix, found := strings.Cut(chain, "-"); found {
		network = suffix
	}
	state, _ := common.GetString(m, "state")
	statuses := depositStatuses
	if kind == "withdrawal" {
		statuses = withdrawalStatuses
	}
	status, ok := statuses[state]
	if !ok {
		status = interfaces.TransactionPending
	}
	txID, _ := common.GetString(m, "txId")
	from, _ := common.GetString(m, "from")
	to, _ := common.GetString(m, "to")
	timestamp := common.GetTimestampMS(m, "ts")
	tx := &interfaces.Transaction{
		ID:          id,
		TxID:        txID,
		Currency:    e.currencies.Code(ccy),
		Network:     network,
		Amount:      common.GetDecimal(m, "amt"),
		Type:        kind,
		Status:      status,
		Address:     to,
		AddressFrom: from,
		AddressTo:   to,
		Timestamp:   timestamp,
		Datetime:    common.ISO8601(timestamp),
		Info:        m,
	}
	if feeCost := common.GetDecimal(m, "fee"); feeCost.Valid {
		tx.Fee = &interfaces.Fee{Currency: tx.Currency, Cost: feeCost}
	}
	return tx
}

// Withdraw requests an on-chain withdrawal. The venue requires the network fee
// with the request; pass it as params["fee"], and the chain as
// params["network"] when the asset has several.
func (e *Exchange) Withdraw(ctx context.Context, code string, amount interfaces.Number, address, tag string, params interfaces.Params) (*interfaces.Transaction, error) {
	if code == "" || address == "" || !amount.Valid {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code, amount and address are required", "")
	}
	toAddr := address
	if tag != "" {
		toAddr = address + ":" + tag
	}
	request := interfaces.Params{
		"ccy":    code,
		"amt":    amount,
		"dest":   "4", // on-chain
		"toAddr": toAddr,
	}
	if fee := params.Number("fee"); fee.Valid {
		request["fee"] = fee
	}
	if network, ok := params.String("network"); ok {
		request["chain"] = code + "-" + network
	}
	rest := params.Omit("fee", "network")
	data, err := e.fetch(ctx, http.MethodPost, "api/v5/asset/withdrawal", "private", request.Extend(rest))
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "empty withdrawal payload", "")
	}
	accepted := rows[0]
	id, _ := common.GetString(accepted, "wdId")
	now := time.Now().UnixMilli()
	return &interfaces.Transaction{
		ID:        id,
		Currency:  code,
		Amount:    common.GetDecimal(accepted, "amt"),
		Type:      "withdrawal",
		Status:    interfaces.TransactionPending,
		Address:   address,
		AddressTo: address,
		Tag:       tag,
		Timestamp: now,
		Datetime:  common.ISO8601(now),
		Info:      accepted,
	}, nil
}

// Transfer moves funds between the funding and spot accounts.
func (e *Exchange) Transfer(ctx context.Context, code string, amount interfaces.Number, fromAccount, toAccount string, params interfaces.Params) (*interfaces.Transfer, error) {
	if code == "" || !amount.Valid {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "code and amount are required", "")
	}
	from, ok := accountsByType[fromAccount]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadRequest, "", "unknown account type "+fromAccount, "")
	}
	to, ok := accountsByType[toAccount]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadRequest, "", "unknown account type "+toAccount, "")
	}
	request := interfaces.Params{
		"ccy":  code,
		"amt":  amount,
		"from": from,
		"to":   to,
		"type": "0", // within the same account owner
	}
	data, err := e.fetch(ctx, http.MethodPost, "api/v5/asset/transfer", "private", request.Extend(params))
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "empty transfer payload", "")
	}
	moved := rows[0]
	id, _ := common.GetString(moved, "transId")
	fromID, _ := common.GetString(moved, "from")
	toID, _ := common.GetString(moved, "to")
	now := time.Now().UnixMilli()
	transfer := &interfaces.Transfer{
		ID:          id,
		Currency:    code,
		Amount:      common.GetDecimal(moved, "amt"),
		FromAccount: fromAccount,
		ToAccount:   toAccount,
		Status:      interfaces.TransactionOK,
		Timestamp:   now,
		Datetime:    common.ISO8601(now),
		Info:        moved,
	}
	if unified, ok := accountsByID[fromID]; ok {
		transfer.FromAccount = unified
	}
	if unified, ok := accountsByID[toID]; ok {
		transfer.ToAccount = unified
	}
	return transfer, nil
}
