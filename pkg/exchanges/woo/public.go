package woo

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/logging"
)

// FetchMarkets retrieves the tradable instruments. The exchange info and the
// token catalog are independent endpoints, so both are fetched concurrently
// and merged: token decimals fill in precision the info rows do not carry.
func (e *Exchange) FetchMarkets(ctx context.Context) ([]*interfaces.Market, error) {
	var (
		infoRows  []map[string]any
		tokenRows []map[string]any
		infoErr   error
		tokenErr  error
		done      = make(chan struct{}, 2)
	)
	go func() {
		defer func() { done <- struct{}{} }()
		envelope, err := e.fetch(ctx, http.MethodGet, "v1/public/info", "public", nil)
		if err != nil {
			infoErr = err
			return
		}
		infoRows = envelopeRows(envelope, "rows")
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		envelope, err := e.fetch(ctx, http.MethodGet, "v1/public/token", "public", nil)
		if err != nil {
			tokenErr = err
			return
		}
		tokenRows = envelopeRows(envelope, "rows")
	}()
	<-done
	<-done
	if infoErr != nil {
		return nil, infoErr
	}
	if tokenErr != nil {
		// Token decimals only refine precision; markets remain usable.
		e.logger.Warn("woo token catalog unavailable", logging.Error(tokenErr))
	}
	decimals := make(map[string]interfaces.Number, len(tokenRows))
	for _, row := range tokenRows {
		token, _ := common.GetString(row, "token")
		if token == "" {
			continue
		}
		decimals[strings.ToUpper(token)] = common.GetDecimal(row, "decimals")
	}
	markets := make([]*interfaces.Market, 0, len(infoRows))
	for _, row := range infoRows {
		market := e.parseMarket(row)
		if !market.Precision.Amount.Valid {
			market.Precision.Amount = decimals[market.Base]
		}
		markets = append(markets, market)
	}
	return markets, nil
}

// parseMarket normalizes one instrument record. Ids follow SPOT_BASE_QUOTE;
// precision is a tick size.
func (e *Exchange) parseMarket(m map[string]any) *interfaces.Market {
	id, _ := common.GetString(m, "symbol")
	parts := strings.Split(id, "_")
	base, quote := "", ""
	if len(parts) == 3 {
		base = strings.ToUpper(parts[1])
		quote = strings.ToUpper(parts[2])
	}
	symbol := id
	if base != "" {
		symbol = base + "/" + quote
	}
	trading, hasTrading := common.GetBool(m, "is_trading")
	return &interfaces.Market{
		ID:      id,
		Symbol:  symbol,
		Base:    base,
		Quote:   quote,
		BaseID:  base,
		QuoteID: quote,
		Type:    interfaces.MarketTypeSpot,
		Spot:    true,
		Active:  !hasTrading || trading,
		Precision: interfaces.MarketPrecision{
			Amount: common.GetDecimal(m, "base_tick"),
			Price:  common.GetDecimal(m, "quote_tick"),
		},
		Limits: interfaces.MarketLimits{
			Amount: interfaces.MinMax{
				Min: common.GetDecimal(m, "base_min"),
				Max: common.GetDecimal(m, "base_max"),
			},
			Price: interfaces.MinMax{
				Min: common.GetDecimal(m, "quote_min"),
				Max: common.GetDecimal(m, "quote_max"),
			},
			Cost: interfaces.MinMax{
				Min: common.GetDecimal(m, "min_notional"),
			},
		},
		Info: m,
	}
}

// FetchCurrencies retrieves the asset catalog. Token identity and per-network
// capability live on two endpoints, fetched concurrently and folded together.
func (e *Exchange) FetchCurrencies(ctx context.Context) (map[string]*interfaces.Currency, error) {
	var (
		tokenRows   []map[string]any
		networkRows []map[string]any
		tokenErr    error
		networkErr  error
		done        = make(chan struct{}, 2)
	)
	go func() {
		defer func() { done <- struct{}{} }()
		envelope, err := e.fetch(ctx, http.MethodGet, "v1/public/token", "public", nil)
		if err != nil {
			tokenErr = err
			return
		}
		tokenRows = envelopeRows(envelope, "rows")
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		envelope, err := e.fetch(ctx, http.MethodGet, "v1/public/token_network", "public", nil)
		if err != nil {
			networkErr = err
			return
		}
		networkRows = envelopeRows(envelope, "rows")
	}()
	<-done
	<-done
	if tokenErr != nil {
		return nil, tokenErr
	}
	if networkErr != nil {
		return nil, networkErr
	}
	currencies := make(map[string]*interfaces.Currency, len(tokenRows))
	for _, row := range tokenRows {
		id, _ := common.GetString(row, "token")
		if id == "" {
			continue
		}
		name, _ := common.GetString(row, "fullname")
		code := strings.ToUpper(id)
		currencies[code] = &interfaces.Currency{
			ID:        id,
			Code:      code,
			Name:      name,
			Precision: common.GetDecimal(row, "decimals"),
			Networks:  make(map[string]interfaces.CurrencyNetwork),
			Info:      row,
		}
	}
	for _, row := range networkRows {
		token, _ := common.GetString(row, "token")
		currency, ok := currencies[strings.ToUpper(token)]
		if !ok {
			continue
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
		if !currency.Fee.Valid {
			currency.Fee = network.Fee
		}
		if !currency.Limits.Withdrawal.Min.Valid {
			currency.Limits.Withdrawal.Min = network.Limits.Withdrawal.Min
		}
	}
	return currencies, nil
}

// parseNetwork normalizes one per-chain capability row. allow_deposit and
// allow_withdraw arrive as 0/1 integers.
func (e *Exchange) parseNetwork(m map[string]any) interfaces.CurrencyNetwork {
	protocol, _ := common.GetString(m, "protocol")
	name, _ := common.GetString(m, "network")
	if name == "" {
		name = protocol
	}
	depositFlag, hasDep := common.GetInt(m, "allow_deposit")
	withdrawFlag, hasWd := common.GetInt(m, "allow_withdraw")
	network := interfaces.CurrencyNetwork{
		ID:      protocol,
		Network: name,
		Fee:     common.GetDecimal(m, "withdrawal_fee"),
	}
	if hasDep {
		canDep := depositFlag != 0
		network.Deposit = &canDep
	}
	if hasWd {
		canWd := withdrawFlag != 0
		network.Withdraw = &canWd
	}
	network.Active = (network.Deposit != nil && *network.Deposit) || (network.Withdraw != nil && *network.Withdraw)
	network.Limits.Withdrawal.Min = common.GetDecimal(m, "minimum_withdrawal")
	network.Info = m
	return network
}

// FetchTicker is not supported: the venue serves no public ticker endpoint.
func (e *Exchange) FetchTicker(ctx context.Context, symbol string) (*interfaces.Ticker, error) {
	return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "fetchTicker is not supported", "")
}

// FetchTickers is not supported: the venue serves no public ticker endpoint.
func (e *Exchange) FetchTickers(ctx context.Context, symbols []string) (map[string]*interfaces.Ticker, error) {
	return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "fetchTickers is not supported", "")
}

// FetchOrderBook retrieves the resting orders for a market. The endpoint is
// private on this venue.
func (e *Exchange) FetchOrderBook(ctx context.Context, symbol string, limit int) (*interfaces.OrderBook, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	params := interfaces.Params{}
	if limit > 0 {
		params["max_level"] = strconv.Itoa(limit)
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/orderbook/"+market.ID, "private", params)
	if err != nil {
		return nil, err
	}
	timestamp := common.GetTimestampMS(envelope, "timestamp")
	return &interfaces.OrderBook{
		Symbol:    market.Symbol,
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Bids:      parseBookSide(envelope, "bids"),
		Asks:      parseBookSide(envelope, "asks"),
	}, nil
}

func parseBookSide(envelope map[string]any, key string) []interfaces.BookLevel {
	rows, _ := common.GetList(envelope, key)
	side := make([]interfaces.BookLevel, 0, len(rows))
	for _, raw := range rows {
		m, ok := common.AsMap(raw)
		if !ok {
			continue
		}
		side = append(side, interfaces.BookLevel{
			Price:  common.GetDecimal(m, "price"),
			Amount: common.GetDecimal(m, "quantity"),
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
	params := interfaces.Params{"symbol": market.ID}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/public/market_trades", "public", params)
	if err != nil {
		return nil, err
	}
	rows := envelopeRows(envelope, "rows")
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

// parsePublicTrade normalizes an anonymous market trade. The side field is
// the taker's side; the record has no order ids, so TakerOrMaker stays empty.
func (e *Exchange) parsePublicTrade(m map[string]any, market *interfaces.Market) *interfaces.Trade {
	id, _ := common.GetString(m, "id")
	symbolID, _ := common.GetString(m, "symbol")
	side, _ := common.GetString(m, "side")
	timestamp := timestampMS(m, "executed_timestamp")
	price := common.GetDecimal(m, "executed_price")
	amount := common.GetDecimal(m, "executed_quantity")
	return &interfaces.Trade{
		ID:        id,
		Symbol:    e.parseSymbolID(symbolID, market),
		Timestamp: timestamp,
		Datetime:  common.ISO8601(timestamp),
		Side:      strings.ToLower(side),
		Price:     price,
		Amount:    amount,
		Cost:      interfaces.Mul(price, amount),
		Info:      m,
	}
}

// FetchOHLCV retrieves candles. Rows arrive newest first and are reversed
// into ascending time order.
func (e *Exchange) FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]*interfaces.OHLCV, error) {
	market, err := e.market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	kind, ok := e.Describe().Timeframes[timeframe]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "unsupported timeframe "+timeframe, "")
	}
	params := interfaces.Params{
		"symbol": market.ID,
		"type":   kind,
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	envelope, err := e.fetch(ctx, http.MethodGet, "v1/public/kline", "public", params)
	if err != nil {
		return nil, err
	}
	rows := envelopeRows(envelope, "rows")
	candles := make([]*interfaces.OHLCV, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		candle := &interfaces.OHLCV{
			Timestamp: common.GetTimestampMS(row, "start_timestamp"),
		}
		candle.Open, _ = common.GetFloat(row, "open")
		candle.High, _ = common.GetFloat(row, "high")
		candle.Low, _ = common.GetFloat(row, "low")
		candle.Close, _ = common.GetFloat(row, "close")
		candle.Volume, _ = common.GetFloat(row, "volume")
		if since > 0 && candle.Timestamp < since {
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}
