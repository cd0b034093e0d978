package okcoin

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// FetchMarkets retrieves the spot instruments table.
func (e *Exchange) FetchMarkets(ctx context.Context) ([]*interfaces.Market, error) {
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/public/instruments", "public", interfaces.Params{
		"instType": "SPOT",
	})
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	markets := make([]*interfaces.Market, 0, len(rows))
	for _, row := range rows {
		markets = append(markets, e.parseMarket(row))
	}
	return markets, nil
}

// parseMarket normalizes one instrument record. Precision is a tick size:
// lotSz bounds amounts, tickSz bounds prices.
func (e *Exchange) parseMarket(m map[string]any) *interfaces.Market {
	id, _ := common.GetString(m, "instId")
	baseID, _ := common.GetString(m, "baseCcy")
	quoteID, _ := common.GetString(m, "quoteCcy")
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	state, _ := common.GetString(m, "state")
	return &interfaces.Market{
		ID:      id,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    interfaces.MarketTypeSpot,
		Spot:    true,
		Active:  state == "live",
		Precision: interfaces.MarketPrecision{
			Amount: common.GetDecimal(m, "lotSz"),
			Price:  common.GetDecimal(m, "tickSz"),
		},
		Limits: interfaces.MarketLimits{
			Amount: interfaces.MinMax{
				Min: common.GetDecimal(m, "minSz"),
				Max: common.GetDecimal(m, "maxLmtSz"),
			},
		},
		Info: m,
	}
}

// FetchCurrencies retrieves the asset catalog. The endpoint is private on this
// venue: it reports per-chain capability rows which are folded into one
// Currency per asset.
func (e *Exchange) FetchCurrencies(ctx context.Context) (map[string]*interfaces.Currency, error) {
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/asset/currencies", "private", nil)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	currencies := make(map[string]*interfaces.Currency)
	for _, row := range rows {
		id, _ := common.GetString(row, "ccy")
		if id == "" {
			continue
		}
		code := strings.ToUpper(id)
		currency, ok := currencies[code]
		if !ok {
			name, _ := common.GetString(row, "name")
			currency = &interfaces.Currency{
				ID:       id,
				Code:     code,
				Name:     name,
				Networks: make(map[string]interfaces.CurrencyNetwork),
				Info:     row,
			}
			currencies[code] = currency
		}
		network := e.parseNetwork(row)
		currency.Networks[network.Network] = network
		if network.Deposit != nil && *network.Deposit {
			currency.Deposit = network.Deposit
		}
		if network.Withdraw != nil && *network.Withdraw {
			currency.Withdraw = network.Withdraw
		}
		currency.Active = currency.Active || network.Active
		if !currency.Limits.Withdrawal.Min.Valid {
			currency.Limits.Withdrawal.Min = network.Limits.Withdrawal.Min
		}
		if !currency.Fee.Valid {
			currency.Fee = network.Fee
		}
	}
	return currencies, nil
}

// parseNetwork normalizes one per-chain capability row. Chain names arrive as
// "CCY-Network"; the network code is the part after the dash.
func (e *Exchange) parseNetwork(m map[string]any) interfaces.CurrencyNetwork {
	chain, _ := common.GetString(m, "chain")
	networkCode := chain
	if _, suffix, found := strings.Cut(chain, "-"); found {
		networkCode = suffix
	}
	canDep, hasDep := common.GetBool(m, "canDep")
	canWd, hasWd := common.GetBool(m, "canWd")
	network := interfaces.CurrencyNetwork{
		ID:      chain,
		Network: networkCode,
		Active:  canDep || canWd,
		Fee:     common.GetDecimal(m, "minFee"),
	}
	if hasDep {
		network.Deposit = &canDep
	}
	if hasWd {
		network.Withdraw = &canWd
	}
	network.Limits.Withdrawal.Min = common.GetDecimal(m, "minWd")
	network.Limits.Withdrawal.Max = common.GetDecimal(m, "maxWd")
	network.Info = m
	return network
}

// FetchTicker retrieves a statistics snapshot for one symbol.
func (e *Exchange) FetchTicker(ctx context.Context, symbol string) (*interfaces.Ticker, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/market/ticker", "public", interfaces.Params{
		"instId": market.ID,
	})
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "empty ticker payload", "")
	}
	return e.parseTicker(rows[0], market), nil
}

// FetchTickers retrieves snapshots for the given symbols, or for every spot
// market when symbols is empty.
func (e *Exchange) FetchTickers(ctx context.Context, symbols []string) (map[string]*interfaces.Ticker, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/market/tickers", "public", interfaces.Params{
		"instType": "SPOT",
	})
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	tickers := make(map[string]*interfaces.Ticker)
	for _, row := range rows {
		ticker := e.parseTicker(row, nil)
		if len(wanted) > 0 && !wanted[ticker.Symbol] {
			continue
		}
		tickers[ticker.Symbol] = ticker
	}
	return tickers, nil
}

func (e *Exchange) parseTicker(m map[string]any, market *interfaces.Market) *interfaces.Ticker {
	id, _ := common.GetString(m, "instId")
	timestamp := common.GetTimestampMS(m, "ts")
	last := common.GetDecimal(m, "last")
	return &interfaces.Ticker{
		Symbol:      e.markets.SafeSymbol(id, market, "-"),
		Timestamp:   timestamp,
		Datetime:    common.ISO8601(timestamp),
		High:        common.GetDecimal(m, "high24h"),
		Low:         common.GetDecimal(m, "low24h"),
		Bid:         common.GetDecimal(m, "bidPx"),
		BidVolume:   common.GetDecimal(m, "bidSz"),
		Ask:         common.GetDecimal(m, "askPx"),
		AskVolume:   common.GetDecimal(m, "askSz"),
		Open:        common.GetDecimal(m, "open24h"),
		Close:       last,
		Last:        last,
		BaseVolume:  common.GetDecimal(m, "vol24h"),
		QuoteVolume: common.GetDecimal(m, "volCcy24h"),
		Info:        m,
	}
}

// FetchOrderBook retrieves the resting orders for a market. Levels arrive as
// ["price", "size", ...] string arrays.
func (e *Exchange) FetchOrderBook(ctx context.Context, symbol string, limit int) (*interfaces.OrderBook, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{"instId": market.ID}
	if limit > 0 {
		params["sz"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/market/books", "public", params)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "empty order book payload", "")
	}
	book := rows[0]
	timestamp := common.GetTimestampMS(book, "ts")
	return &interfaces.OrderBook{
		Symbol:    market.Symbol,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Bids:      parseBookSide(book, "bids"),
		Asks:      parseBookSide(book, "asks"),
	}, nil
}

func parseBookSide(book map[string]any, key string) []interfaces.BookLevel {
	rows, _ := common.GetList(book, key)
	side := make([]interfaces.BookLevel, 0, len(rows))
	for _, raw := range rows {
		row, ok := common.AsList(raw)
		if !ok || len(row) < 2 {
			continue
		}
		side = append(side, interfaces.BookLevel{
			Price:  common.RowDecimal(row, 0),
			Amount: common.RowDecimal(row, 1),
		})
	}
	return side
}

// FetchTrades retrieves recent public trades, newest first from the venue,
// returned in venue order.
func (e *Exchange) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Trade, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{"instId": market.ID}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/market/trades", "public", params)
	if err != nil {
		return nil, err
	}
	rows, err := dataList(data)
	if err != nil {
		return nil, err
	}
	trades := make([]*interfaces.Trade, 0, len(rows))
	for _, row := range rows {
		trade := e.parsePublicTrade(row, market)
		if since > 0 && trade.Timestamp < since {
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// parsePublicTrade normalizes an anonymous market trade. The side field is the
// taker's side; the caller's role is unknowable here, so TakerOrMaker stays
// empty.
func (e *Exchange) parsePublicTrade(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "tradeId")
	instID, _ := common.GetString(m, "instId")
	side, _ := common.GetString(m, "side")
	timestamp := common.GetTimestampMS(m, "ts")
	price := common.GetDecimal(m, "px")
	amount := common.GetDecimal(m, "sz")
	return &interfaces.Trade{
		ID:        id,
		Symbol:    e.markets.SafeSymbol(instID, market, "-"),
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Side:      side,
		Price:     price,
		Amount:    amount,
		Cost:      interfaces.Mul(price, amount),
		Info:      m,
	}
}

// FetchOHLCV retrieves candles. The venue serves them newest first as
// [ts, open, high, low, close, volume, ...] string arrays; the result is
// reversed into ascending time order.
func (e *Exchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]*interfaces.OHLCV, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bar, ok := e.Describe().Timeframes[timeframe]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "unsupported timeframe "+timeframe, "")
	}
	params := interfaces.Params{
		"instId": market.ID,
		"bar":    bar,
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if since > 0 {
		// The before cursor returns records strictly newer than its value.
		params["before"] = strconv.FormatInt(since-1, 10)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v5/market/candles", "public", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a candle list", "")
	}
	candles := make([]*interfaces.OHLCV, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row, ok := common.AsList(rows[i])
		if !ok || len(row) < 6 {
			continue
		}
		candles = append(candles, &interfaces.OHLCV{
			Timestamp: common.RowInt(row, 0),
			Open:      common.RowFloat(row, 1),
			High:      common.RowFloat(row, 2),
			Low:       common.RowFloat(row, 3),
			Close:     common.RowFloat(row, 4),
			Volume:    common.RowFloat(row, 5),
		})
	}
	return candles, nil
}
