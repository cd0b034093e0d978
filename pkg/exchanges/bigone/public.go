package bigone

import (
	"context"
	"net/http"
	"strings"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// FetchMarkets retrieves the asset pair catalog.
//
//	GET /asset_pairs
//	{"code":0,"data":[{"id":"...","name":"BTC-USDT","quote_scale":2,"base_scale":6,
//	  "min_quote_value":"5","base_asset":{"id":"...","symbol":"BTC","name":"Bitcoin"},
//	  "quote_asset":{"id":"...","symbol":"USDT","name":"Tether"}}]}
func (e *Exchange) FetchMarkets(ctx context.Context) ([]*interfaces.Market, error) {
	data, err := e.fetch(ctx, http.MethodGet, "asset_pairs", "public", nil)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "asset_pairs is not a list", "")
	}
	markets := make([]*interfaces.Market, 0, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		markets = append(markets, parseMarket(m))
	}
	return markets, nil
}

// parseMarket maps one vendor asset pair onto the unified market shape.
// BigONE reports precision as decimal places (base_scale / quote_scale).
func parseMarket(m map[string]any) *interfaces.Market {
	id, _ := common.GetString(m, "name", "asset_pair_name")
	baseAsset, _ := common.GetMap(m, "base_asset")
	quoteAsset, _ := common.GetMap(m, "quote_asset")
	baseID, _ := common.GetString(baseAsset, "symbol")
	quoteID, _ := common.GetString(quoteAsset, "symbol")
	if baseID == "" || quoteID == "" {
		if parts := strings.Split(id, "-"); len(parts) == 2 {
			baseID, quoteID = parts[0], parts[1]
		}
	}
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	market := &interfaces.Market{
		ID:      id,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    interfaces.MarketTypeSpot,
		Spot:    true,
		Active:  true,
		Precision: interfaces.MarketPrecision{
			Amount: common.GetDecimal(m, "base_scale"),
			Price:  common.GetDecimal(m, "quote_scale"),
		},
		Info: m,
	}
	market.Limits.Cost.Min = common.GetDecimal(m, "min_quote_value")
	market.Limits.Cost.Max = common.GetDecimal(m, "max_quote_value")
	return market
}

// FetchCurrencies retrieves the asset catalog from the uc sub-API, including
// per-network deposit/withdrawal capabilities.
func (e *Exchange) FetchCurrencies(ctx context.Context) (map[string]*interfaces.Currency, error) {
	data, err := e.fetch(ctx, http.MethodGet, "assets", "uc", nil)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "assets is not a list", "")
	}
	currencies := make(map[string]*interfaces.Currency, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		c := parseCurrency(m)
		currencies[c.Code] = c
	}
	return currencies, nil
}

func parseCurrency(m map[string]any) *interfaces.Currency {
	id, _ := common.GetString(m, "symbol")
	name, _ := common.GetString(m, "name")
	deposit, hasDeposit := common.GetBool(m, "is_deposit_enabled")
	withdraw, hasWithdraw := common.GetBool(m, "is_withdrawal_enabled")
	c := &interfaces.Currency{
		ID:        id,
		Code:      strings.ToUpper(id),
		Name:      name,
		Type:      "crypto",
		Fee:       common.GetDecimal(m, "withdrawal_fee"),
		Precision: common.GetDecimal(m, "scale"),
		Networks:  map[string]interfaces.CurrencyNetwork{},
		Info:      m,
	}
	if hasDeposit {
		c.Deposit = &deposit
	}
	if hasWithdraw {
		c.Withdraw = &withdraw
	}
	c.Active = deposit || withdraw
	gateways, _ := common.GetList(m, "binding_gateways")
	for _, g := range gateways {
		gm, ok := common.AsMap(g)
		if !ok {
			continue
		}
		networkID, _ := common.GetString(gm, "gateway_name", "guid")
		network := strings.ToUpper(networkID)
		netDeposit, hasNetDeposit := common.GetBool(gm, "is_deposit_enabled")
		netWithdraw, hasNetWithdraw := common.GetBool(gm, "is_withdrawal_enabled")
		entry := interfaces.CurrencyNetwork{
			ID:        networkID,
			Network:   network,
			Active:    netDeposit || netWithdraw,
			Fee:       common.GetDecimal(gm, "withdrawal_fee"),
			Precision: common.GetDecimal(gm, "scale"),
			Info:      gm,
		}
		if hasNetDeposit {
			entry.Deposit = &netDeposit
		}
		if hasNetWithdraw {
			entry.Withdraw = &netWithdraw
		}
		entry.Limits.Withdrawal.Min = common.GetDecimal(gm, "min_withdrawal_amount")
		entry.Limits.Deposit.Min = common.GetDecimal(gm, "min_deposit_amount")
		c.Networks[network] = entry
	}
	return c
}

// FetchTicker retrieves a statistics snapshot for one symbol.
//
//	GET /asset_pairs/{name}/ticker
func (e *Exchange) FetchTicker(ctx context.Context, symbol string) (*interfaces.Ticker, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "asset_pairs/"+market.ID+"/ticker", "public", nil)
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "ticker is not an object", "")
	}
	return e.parseTicker(m, market), nil
}

// FetchTickers retrieves snapshots for the given symbols, or every market
// when symbols is empty.
//
//	GET /asset_pairs/tickers?pair_names=BTC-USDT,ETH-USDT
func (e *Exchange) FetchTickers(ctx context.Context, symbols []string) (map[string]*interfaces.Ticker, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	params := interfaces.Params{}
	if len(symbols) > 0 {
		ids := make([]string, 0, len(symbols))
		for _, symbol := range symbols {
			market, err := e.markets.BySymbol(exchangeID, symbol)
			if err != nil {
				return nil, err
			}
			ids = append(ids, market.ID)
		}
		params["pair_names"] = strings.Join(ids, ",")
	}
	data, err := e.fetch(ctx, http.MethodGet, "asset_pairs/tickers", "public", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "tickers is not a list", "")
	}
	tickers := make(map[string]*interfaces.Ticker, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		ticker := e.parseTicker(m, nil)
		tickers[ticker.Symbol] = ticker
	}
	return tickers, nil
}

// parseTicker maps one vendor snapshot onto the unified ticker. Bid and ask
// arrive as nested {price, quantity} objects.
func (e *Exchange) parseTicker(m map[string]any, market *interfaces.Market) *interfaces.Ticker {
	id, _ := common.GetString(m, "asset_pair_name")
	last := common.GetDecimal(m, "close")
	ticker := &interfaces.Ticker{
		Symbol:     e.markets.SafeSymbol(id, market, "-"),
		High:       common.GetDecimal(m, "high"),
		Low:        common.GetDecimal(m, "low"),
		Open:       common.GetDecimal(m, "open"),
		Close:      last,
		Last:       last,
		Change:     common.GetDecimal(m, "daily_change"),
		BaseVolume: common.GetDecimal(m, "volume"),
		Info:       m,
	}
	if bid, ok := common.GetMap(m, "bid"); ok {
		ticker.Bid = common.GetDecimal(bid, "price")
		ticker.BidVolume = common.GetDecimal(bid, "quantity")
	}
	if ask, ok := common.GetMap(m, "ask"); ok {
		ticker.Ask = common.GetDecimal(ask, "price")
		ticker.AskVolume = common.GetDecimal(ask, "quantity")
	}
	return ticker
}

// FetchOrderBook retrieves the resting orders for a market.
//
//	GET /asset_pairs/{name}/depth?limit=50
func (e *Exchange) FetchOrderBook(ctx context.Context, symbol string, limit int) (*interfaces.OrderBook, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{}
	if limit > 0 {
		params["limit"] = limit
	}
	data, err := e.fetch(ctx, http.MethodGet, "asset_pairs/"+market.ID+"/depth", "public", params)
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "depth is not an object", "")
	}
	book := &interfaces.OrderBook{
		Symbol: market.Symbol,
		Bids:   parseBookSide(m, "bids"),
		Asks:   parseBookSide(m, "asks"),
	}
	return book, nil
}

// parseBookSide normalizes one side of the book. An absent or empty side
// yields an empty slice, never nil-versus-error ambiguity for callers.
func parseBookSide(m map[string]any, key string) []interfaces.BookLevel {
	rows, _ := common.GetList(m, key)
	side := make([]interfaces.BookLevel, 0, len(rows))
	for _, row := range rows {
		level, ok := common.AsMap(row)
		if !ok {
			continue
		}
		side = append(side, interfaces.BookLevel{
			Price:  common.GetDecimal(level, "price"),
			Amount: common.GetDecimal(level, "quantity"),
		})
	}
	return side
}

// FetchTrades retrieves recent public trades.
//
//	GET /asset_pairs/{name}/trades
func (e *Exchange) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Trade, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{}
	if limit > 0 {
		params["limit"] = limit
	}
	data, err := e.fetch(ctx, http.MethodGet, "asset_pairs/"+market.ID+"/trades", "public", params)
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

// parseTrade maps one vendor trade onto the unified shape, for both public
// trades and the account's own executions.
//
// The venue reports taker_side, the side of the order that crossed the book,
// not the calling account's side. For public trades the two are conflated by
// definition. For own trades the role is derived by comparing the taker side
// against the known order side; when neither maker_order_id nor
// taker_order_id identifies our order (self-trades match both) the role stays
// empty rather than guessed.
func (e *Exchange) parseTrade(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "id")
	marketID, _ := common.GetString(m, "asset_pair_name")
	resolved := e.markets.SafeMarket(marketID, market, "-")
	timestamp := common.GetTimestampISO(m, "created_at", "inserted_at")

	takerSide, _ := common.GetString(m, "taker_side", "side")
	side := ""
	switch takerSide {
	case "BID":
		side = interfaces.SideBuy
	case "ASK":
		side = interfaces.SideSell
	}

	price := common.GetDecimal(m, "price")
	amount := common.GetDecimal(m, "amount", "quantity")
	cost := common.GetDecimal(m, "cost")
	if !cost.Valid {
		cost = interfaces.Mul(price, amount)
	}

	trade := &interfaces.Trade{
		ID:        id,
		Symbol:    resolved.Symbol,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Side:      side,
		Price:     price,
		Amount:    amount,
		Cost:      cost,
		Info:      m,
	}

	makerOrderID, hasMaker := common.GetString(m, "maker_order_id")
	takerOrderID, hasTaker := common.GetString(m, "taker_order_id")
	myOrderID, hasMine := common.GetString(m, "order_id")
	if hasMine && (hasMaker || hasTaker) {
		switch {
		case hasMaker && myOrderID == makerOrderID && hasTaker && myOrderID == takerOrderID:
			// Self-trade: both sides are ours, the role is genuinely undefined.
		case hasMaker && myOrderID == makerOrderID:
			trade.TakerOrMaker = interfaces.RoleMaker
			trade.OrderID = makerOrderID
		case hasTaker && myOrderID == takerOrderID:
			trade.TakerOrMaker = interfaces.RoleTaker
			trade.OrderID = takerOrderID
		}
	}

	makerFee := common.GetDecimal(m, "maker_fee")
	takerFee := common.GetDecimal(m, "taker_fee")
	feeCurrency := resolved.Base
	if side == interfaces.SideSell {
		feeCurrency = resolved.Quote
	}
	switch {
	case makerFee.Valid && takerFee.Valid:
		// Both counterparty fees reported; keep the pair instead of picking one.
		trade.Fees = []interfaces.Fee{
			{Currency: feeCurrency, Cost: makerFee},
			{Currency: feeCurrency, Cost: takerFee},
		}
	case makerFee.Valid:
		trade.Fee = &interfaces.Fee{Currency: feeCurrency, Cost: makerFee}
	case takerFee.Valid:
		trade.Fee = &interfaces.Fee{Currency: feeCurrency, Cost: takerFee}
	}
	return trade
}

// FetchOHLCV retrieves candles.
//
//	GET /asset_pairs/{name}/candles?period=min1&limit=100
//	candle: {"close":"1.5","high":"2","low":"0.5","open":"1","volume":"10",
//	         "time":"2020-01-01T00:00:00Z"}
func (e *Exchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]*interfaces.OHLCV, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	period, ok := e.Describe().Timeframes[timeframe]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "unsupported timeframe "+timeframe, "")
	}
	params := interfaces.Params{"period": period}
	if limit > 0 {
		params["limit"] = limit
	}
	data, err := e.fetch(ctx, http.MethodGet, "asset_pairs/"+market.ID+"/candles", "public", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "candles is not a list", "")
	}
	candles := make([]*interfaces.OHLCV, 0, len(rows))
	for _, row := range rows {
		m, ok := common.AsMap(row)
		if !ok {
			continue
		}
		candle := parseOHLCV(m)
		if since > 0 && candle.Timestamp < since {
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// parseOHLCV converts one vendor candle. The venue reports the candle time as
// an ISO datetime and prices as strings; the unified candle is numeric.
func parseOHLCV(m map[string]any) *interfaces.OHLCV {
	open, _ := common.GetFloat(m, "open")
	high, _ := common.GetFloat(m, "high")
	low, _ := common.GetFloat(m, "low")
	closePrice, _ := common.GetFloat(m, "close")
	volume, _ := common.GetFloat(m, "volume")
	return &interfaces.OHLCV{
		Timestamp: common.GetTimestampISO(m, "time"),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
}
