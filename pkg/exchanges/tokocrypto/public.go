package tokocrypto

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
)

// FetchMarkets retrieves the tradable pairs from the venue host.
func (e *Exchange) FetchMarkets(ctx context.Context) ([]*interfaces.Market, error) {
	data, err := e.fetch(ctx, http.MethodGet, "open/v1/common/symbols", "open", nil)
	if err != nil {
		return nil, err
	}
	payload, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a symbols object", "")
	}
	rows, _ := common.GetList(payload, "list")
	markets := make([]*interfaces.Market, 0, len(rows))
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		markets = append(markets, e.parseMarket(m))
	}
	return markets, nil
}

// parseMarket normalizes one pair record. Precision arrives as decimal
// places; order bounds live in Binance-style filter objects keyed by
// filterType.
func (e *Exchange) parseMarket(m map[string]any) *interfaces.Market {
	id, _ := common.GetString(m, "symbol")
	baseID, _ := common.GetString(m, "baseAsset")
	quoteID, _ := common.GetString(m, "quoteAsset")
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	canTrade, hasTrade := common.GetBool(m, "canTrade")
	market := &interfaces.Market{
		ID:      id,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    interfaces.MarketTypeSpot,
		Spot:    true,
		Active:  !hasTrade || canTrade,
		Precision: interfaces.MarketPrecision{
			Amount: common.GetDecimal(m, "basePrecision"),
			Price:  common.GetDecimal(m, "quotePrecision"),
		},
		Info: m,
	}
	filters, _ := common.GetList(m, "filters")
	for _, raw := range filters {
		filter, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		filterType, _ := common.GetString(filter, "filterType")
		switch filterType {
		case "PRICE_FILTER":
			market.Limits.Price.Min = common.GetDecimal(filter, "minPrice")
			market.Limits.Price.Max = common.GetDecimal(filter, "maxPrice")
			if tick := common.GetDecimal(filter, "tickSize"); tick.Valid {
				// The tick size filter is authoritative over the
				// coarse decimal-place field.
				market.Precision.Price = tick
			}
		case "LOT_SIZE":
			market.Limits.Amount.Min = common.GetDecimal(filter, "minQty")
			market.Limits.Amount.Max = common.GetDecimal(filter, "maxQty")
			if step := common.GetDecimal(filter, "stepSize"); step.Valid {
				market.Precision.Amount = step
			}
		case "MIN_NOTIONAL":
			market.Limits.Cost.Min = common.GetDecimal(filter, "minNotional")
		}
	}
	return market
}

// FetchTicker retrieves a 24h statistics snapshot from the market data host.
func (e *Exchange) FetchTicker(ctx context.Context, symbol string) (*interfaces.Ticker, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v3/ticker/24hr", "binance", interfaces.Params{
		"symbol": binanceID(market),
	})
	if err != nil {
		return nil, err
	}
	m, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a ticker object", "")
	}
	return e.parseTicker(m, market), nil
}

// FetchTickers retrieves snapshots for the given symbols, or for every market
// when symbols is empty. The market data host keys records by its own
// spelling of the id, so the loaded table is indexed by that spelling first.
func (e *Exchange) FetchTickers(ctx context.Context, symbols []string) (map[string]*interfaces.Ticker, error) {
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v3/ticker/24hr", "binance", nil)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a ticker list", "")
	}
	byBinanceID := make(map[string]*interfaces.Market)
	for _, market := range e.markets.All() {
		byBinanceID[binanceID(market)] = market
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	tickers := make(map[string]*interfaces.Ticker)
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		id, _ := common.GetString(m, "symbol")
		market, listed := byBinanceID[id]
		if !listed {
			continue
		}
		if len(wanted) > 0 && !wanted[market.Symbol] {
			continue
		}
		tickers[market.Symbol] = e.parseTicker(m, market)
	}
	return tickers, nil
}

func (e *Exchange) parseTicker(m map[string]any, market *interfaces.Market) *interfaces.Ticker {
	timestamp := common.GetTimestampMS(m, "closeTime")
	last := common.GetDecimal(m, "lastPrice")
	return &interfaces.Ticker{
		Symbol:        market.Symbol,
		Timestamp:     timestamp,
		Datetime:      common.ISO8601(timestamp),
		High:          common.GetDecimal(m, "highPrice"),
		Low:           common.GetDecimal(m, "lowPrice"),
		Bid:           common.GetDecimal(m, "bidPrice"),
		BidVolume:     common.GetDecimal(m, "bidQty"),
		Ask:           common.GetDecimal(m, "askPrice"),
		AskVolume:     common.GetDecimal(m, "askQty"),
		VWAP:          common.GetDecimal(m, "weightedAvgPrice"),
		Open:          common.GetDecimal(m, "openPrice"),
		Close:         last,
		Last:          last,
		PreviousClose: common.GetDecimal(m, "prevClosePrice"),
		Change:        common.GetDecimal(m, "priceChange"),
		Percentage:    common.GetDecimal(m, "priceChangePercent"),
		BaseVolume:    common.GetDecimal(m, "volume"),
		QuoteVolume:   common.GetDecimal(m, "quoteVolume"),
		Info:          m,
	}
}

// FetchOrderBook retrieves the resting orders for a market.
func (e *Exchange) FetchOrderBook(ctx context.Context, symbol string, limit int) (*interfaces.OrderBook, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{"symbol": binanceID(market)}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v3/depth", "binance", params)
	if err != nil {
		return nil, err
	}
	book, ok := common.AsMap(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a depth object", "")
	}
	nonce, _ := common.GetInt(book, "lastUpdateId")
	return &interfaces.OrderBook{
		Symbol: market.Symbol,
		Nonce:  nonce,
		Bids:   parseBookSide(book, "bids"),
		Asks:   parseBookSide(book, "asks"),
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

// FetchTrades retrieves recent public trades.
func (e *Exchange) FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]*interfaces.Trade, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{"symbol": binanceID(market)}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v3/trades", "binance", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a trade list", "")
	}
	trades := make([]*interfaces.Trade, 0, len(rows))
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		trade := e.parsePublicTrade(m, market)
		if since > 0 && trade.Timestamp < since {
			continue
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// parsePublicTrade normalizes an anonymous market trade. The host reports
// whether the buyer was the resting order, which fixes the taker's side.
func (e *Exchange) parsePublicTrade(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "id")
	timestamp := common.GetTimestampMS(m, "time")
	price := common.GetDecimal(m, "price")
	amount := common.GetDecimal(m, "qty")
	side := ""
	if buyerMaker, ok := common.GetBool(m, "isBuyerMaker"); ok {
		side = interfaces.SideBuy
		if buyerMaker {
			side = interfaces.SideSell
		}
	}
	return &interfaces.Trade{
		ID:        id,
		Symbol:    market.Symbol,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Side:      side,
		Price:     price,
		Amount:    amount,
		Cost:      interfaces.Mul(price, amount),
		Info:      m,
	}
}

// FetchOHLCV retrieves candles as [openTime, open, high, low, close, volume,
// ...] rows in ascending time order.
func (e *Exchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]*interfaces.OHLCV, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	interval, ok := e.Describe().Timeframes[timeframe]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "unsupported timeframe "+timeframe, "")
	}
	params := interfaces.Params{
		"symbol":   binanceID(market),
		"interval": interval,
	}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	data, err := e.fetch(ctx, http.MethodGet, "api/v3/klines", "binance", params)
	if err != nil {
		return nil, err
	}
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a kline list", "")
	}
	candles := make([]*interfaces.OHLCV, 0, len(rows))
	for _, raw := range rows {
		row, ok := common.AsList(raw)
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
