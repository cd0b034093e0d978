// Package exchangeadapters provides per-exchange REST API adapters behind one
// unified data model for cryptocurrency venues.
//
// Each adapter under pkg/exchanges translates a vendor HTTP API (BigONE,
// OKCoin, Tokocrypto, WOO X) into the shared types defined in
// pkg/exchanges/interfaces: Market, Currency, Ticker, OrderBook, Trade,
// Order, OHLCV, Balance, Transaction, Transfer and DepositAddress. Every
// adapter is built from the same four parts:
//
//   - a capability descriptor (Describe) declaring which unified operations
//     the venue supports, its timeframe vocabulary and fee schedule
//   - a request signer implementing the venue's authentication scheme
//     (JWT bearer, HMAC headers or signed query strings)
//   - response normalizers mapping vendor payloads onto the unified types
//   - an error classifier mapping vendor codes and messages onto the shared
//     error kinds
//
// # Errors
//
// Adapters never surface vendor error codes directly. Every failure is
// wrapped in an *interfaces.APIError which unwraps to one of the shared
// sentinel kinds, so callers switch venues without switching error handling:
//
//	_, err := adapter.CreateOrder(ctx, "BTC/USDT", "limit", "buy", amount, price, nil)
//	switch {
//	case errors.Is(err, interfaces.ErrInsufficientFunds):
//	    // top up or reduce size
//	case errors.Is(err, interfaces.ErrInvalidOrder):
//	    // violates the venue's order constraints
//	case errors.Is(err, interfaces.ErrRateLimitExceeded):
//	    // back off and retry
//	}
//
// The raw vendor body is preserved on the APIError for diagnostics.
//
// # Numbers
//
// All prices, amounts and fees are interfaces.Number, an optional arbitrary
// precision decimal. An absent value is distinguishable from an explicit
// zero, and arithmetic on absent values stays absent instead of silently
// producing zeros.
//
// # Usage
//
// Construct an adapter with options, then call unified operations:
//
//	options := interfaces.NewExchangeOptions().WithCredentials("key", "secret")
//	adapter := bigone.New(options)
//
//	markets, err := adapter.LoadMarkets(ctx, false)
//	if err != nil {
//	    log.Fatalf("load markets: %v", err)
//	}
//
//	ticker, err := adapter.FetchTicker(ctx, "BTC/USDT")
//	if err != nil {
//	    log.Fatalf("fetch ticker: %v", err)
//	}
//	fmt.Println(ticker.Last.Decimal.String())
//
// Symbols are always unified BASE/QUOTE strings; adapters resolve them to
// vendor ids through the loaded market table. Venue-specific parameters pass
// through the params bag on each call and never leak into the unified types.
package exchangeadapters
