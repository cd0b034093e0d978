// Package woo implements the WOO X exchange adapter.
//
// WOO X wraps REST responses in a {success, rows|data} envelope with a
// boolean success flag instead of a code sentinel. Private endpoints sign the
// sorted url-encoded parameter string joined with the millisecond timestamp
// by a pipe, hex HMAC-SHA256, sent via the x-api-key / x-api-signature /
// x-api-timestamp headers. Market ids follow the SPOT_BASE_QUOTE convention
// and most venue timestamps are fractional seconds.
//
// The venue serves no public ticker endpoint, so FetchTicker and FetchTickers
// report ErrNotSupported.
package woo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/logging"
	"github.com/veiloq/exchange-adapters/pkg/ratelimit"
)

const exchangeID = "woo"

// Exchange is the WOO X adapter. Construct with New; safe for concurrent use.
type Exchange struct {
	options    *interfaces.ExchangeOptions
	http       common.HTTPClient
	logger     logging.Logger
	nonce      *interfaces.NonceSource
	markets    *interfaces.MarketRegistry
	currencies *interfaces.CurrencyRegistry
	loadMu     sync.Mutex
}

// New creates a WOO X adapter with the given options.
func New(options *interfaces.ExchangeOptions) *Exchange {
	if options == nil {
		options = interfaces.NewExchangeOptions()
	}
	logger := logging.NewLogger()
	if options.LogLevel == "debug" {
		logger.SetLevel(logging.DEBUG)
	}
	e := &Exchange{
		options:    options,
		logger:     logger.WithFields(logging.String("exchange", exchangeID)),
		nonce:      interfaces.NewNonceSource(time.Millisecond),
		markets:    interfaces.NewMarketRegistry(),
		currencies: interfaces.NewCurrencyRegistry(),
	}
	e.nonce.SetOffset(options.ClockSkew)
	e.http = common.NewHTTPClient(&common.ClientConfig{
		Timeout: options.HTTPTimeout,
		RateLimit: ratelimit.Rate{
			Limit:    options.MaxRequestsPerSecond,
			Interval: time.Second,
		},
		MaxRetries: 1,
		RetryDelay: time.Second,
		Logger:     e.logger,
	})
	return e
}

// Describe returns the static capability descriptor.
func (e *Exchange) Describe() interfaces.Description {
	return interfaces.Description{
		ID:        exchangeID,
		Name:      "WOO X",
		Countries: []string{"KY"},
		Version:   "v1",
		URLs: interfaces.URLs{
			API: map[string]string{
				"rest": "https://api.woo.org",
			},
			WWW:  "https://woo.org",
			Docs: "https://docs.woo.org",
		},
		Has: map[string]bool{
			"fetchMarkets":        true,
			"fetchCurrencies":     true,
			"fetchTicker":         false,
			"fetchTickers":        false,
			"fetchOrderBook":      true,
			"fetchTrades":         true,
			"fetchOHLCV":          true,
			"fetchBalance":        true,
			"createOrder":         true,
			"cancelOrder":         true,
			"cancelAllOrders":     true,
			"fetchOrder":          true,
			"fetchOrders":         true,
			"fetchOpenOrders":     true,
			"fetchClosedOrders":   true,
			"fetchMyTrades":       true,
			"fetchDepositAddress": true,
			"fetchDeposits":       true,
			"fetchWithdrawals":    true,
			"withdraw":            true,
			"transfer":            true,
		},
		Timeframes: map[string]string{
			"1m":  "1m",
			"5m":  "5m",
			"15m": "15m",
			"30m": "30m",
			"1h":  "1h",
			"4h":  "4h",
			"12h": "12h",
			"1d":  "1d",
			"1w":  "1w",
			"1M":  "1mon",
		},
		Fees: interfaces.TradingFees{
			Maker:      interfaces.NumberFromString("0.0002"),
			Taker:      interfaces.NumberFromString("0.0005"),
			Percentage: true,
			TierBased:  true,
		},
		RequiredCredentials: interfaces.RequiredCredentials{
			APIKey: true,
			Secret: true,
		},
		RateLimit: 100 * time.Millisecond,
	}
}

// errorTable maps WOO X error codes and messages onto the unified kinds.
var errorTable = interfaces.ErrorTable{
	Exact: map[string]error{
		"-1000": interfaces.ErrExchangeError,
		"-1001": interfaces.ErrAuthentication, // invalid signature
		"-1002": interfaces.ErrAuthentication, // unauthorized
		"-1003": interfaces.ErrRateLimitExceeded,
		"-1004": interfaces.ErrBadRequest, // unknown parameter
		"-1005": interfaces.ErrBadRequest, // parameter required
		"-1006": interfaces.ErrBadRequest,
		"-1007": interfaces.ErrBadRequest,
		"-1008": interfaces.ErrInvalidOrder, // quantity too high
		"-1009": interfaces.ErrBadSymbol,
		"-1011": interfaces.ErrExchangeError,
		"-1012": interfaces.ErrBadRequest,
		"-1101": interfaces.ErrInsufficientFunds, // transaction exceeds allowed margin
		"-1102": interfaces.ErrInvalidOrder,      // below minimal notional
		"-1103": interfaces.ErrInvalidOrder,      // price filter
		"-1104": interfaces.ErrInvalidOrder,      // size filter
		"-1105": interfaces.ErrInvalidOrder,      // price range
	},
	Broad: []interfaces.Substring{
		{Match: "symbol must not be blank", Kind: interfaces.ErrBadRequest},
		{Match: "The token is not supported", Kind: interfaces.ErrBadRequest},
		{Match: "Insufficient", Kind: interfaces.ErrInsufficientFunds},
		{Match: "order not found", Kind: interfaces.ErrOrderNotFound},
		{Match: "Rate limit exceed", Kind: interfaces.ErrRateLimitExceeded},
	},
}

// sign builds a transport-ready request.
//
// Private calls sign "k1=v1&k2=v2|timestamp" with the parameters in sorted
// key order and the timestamp in milliseconds, hex HMAC-SHA256 over the
// secret. GET and DELETE keep the parameter string as the query; POST sends
// it as a form body. The same signed string must be used verbatim in both
// places or the venue rejects the signature.
func (e *Exchange) sign(path, api, method string, params interfaces.Params) (*interfaces.Request, error) {
	desc := e.Describe()
	base := desc.URLs.API["rest"]
	if e.options.RestURL != "" {
		base = e.options.RestURL
	}
	req := &interfaces.Request{
		URL:     base + "/" + path,
		Method:  method,
		Headers: http.Header{},
	}
	encoded := params.URLValues().Encode()
	if api != "private" {
		if encoded != "" {
			req.URL += "?" + encoded
		}
		return req, nil
	}
	if err := e.options.CheckRequiredCredentials(exchangeID, desc.RequiredCredentials); err != nil {
		return nil, err
	}
	timestamp := strconv.FormatInt(e.nonce.Next(), 10)
	mac := hmac.New(sha256.New, []byte(e.options.APISecret))
	mac.Write([]byte(encoded + "|" + timestamp))
	req.Headers.Set("x-api-key", e.options.APIKey)
	req.Headers.Set("x-api-signature", hex.EncodeToString(mac.Sum(nil)))
	req.Headers.Set("x-api-timestamp", timestamp)
	if method == http.MethodGet || method == http.MethodDelete {
		if encoded != "" {
			req.URL += "?" + encoded
		}
	} else {
		req.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Body = encoded
	}
	return req, nil
}

// fetch signs, executes and error-checks one call, returning the decoded
// envelope for the caller to unwrap.
func (e *Exchange) fetch(ctx context.Context, method, path, api string, params interfaces.Params) (map[string]any, error) {
	signed, err := e.sign(path, api, method, params)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, signed.Method, signed.URL, strings.NewReader(signed.Body))
	if err != nil {
		return nil, fmt.Errorf("building woo request: %w", err)
	}
	httpReq.Header = signed.Headers
	resp, err := e.http.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading woo response: %w", err)
	}
	e.logger.Debug("woo response",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
	)
	return e.handleResponse(resp.StatusCode, body)
}

// handleResponse applies the error protocol. The venue signals failure with
// success == false plus a numeric code, not a code sentinel on every
// response.
func (e *Exchange) handleResponse(status int, body []byte) (map[string]any, error) {
	if status == http.StatusServiceUnavailable {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrExchangeNotAvailable, strconv.Itoa(status), "", string(body))
	}
	decoded, err := common.DecodeJSON(body)
	if err != nil {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, strconv.Itoa(status), err.Error(), string(body))
	}
	envelope, ok := common.AsMap(decoded)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, strconv.Itoa(status), "expected a response object", string(body))
	}
	if success, ok := common.GetBool(envelope, "success"); ok && !success {
		code, _ := common.GetString(envelope, "code")
		message, _ := common.GetString(envelope, "message", "msg")
		return nil, errorTable.Classify(exchangeID, code, message, string(body))
	}
	return envelope, nil
}

// envelopeRows extracts the envelope's row list.
func envelopeRows(envelope map[string]any, keys ...string) []map[string]any {
	rows, _ := common.GetList(envelope, keys...)
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if m, ok := common.AsMap(row); ok {
			out = append(out, m)
		}
	}
	return out
}

// timestampMS reads a venue timestamp, which arrives either as fractional
// seconds ("1611235117.774") or as plain milliseconds, and returns epoch
// milliseconds.
func timestampMS(m map[string]any, keys ...string) int64 {
	f, ok := common.GetFloat(m, keys...)
	if !ok || f == 0 {
		return 0
	}
	// Millisecond epochs are 13 digits; second epochs fit in 11.
	if f < 1e12 {
		return int64(f * 1000)
	}
	return int64(f)
}

// parseSymbolID maps a SPOT_BASE_QUOTE venue id onto the unified symbol.
func (e *Exchange) parseSymbolID(id string, market *interfaces.Market) string {
	if market != nil {
		return market.Symbol
	}
	if m, ok := e.markets.ByID(id); ok {
		return m.Symbol
	}
	parts := strings.Split(id, "_")
	if len(parts) == 3 {
		return strings.ToUpper(parts[1]) + "/" + strings.ToUpper(parts[2])
	}
	return id
}

// LoadMarkets fetches and caches the markets and currencies tables.
func (e *Exchange) LoadMarkets(ctx context.Context, reload bool) ([]*interfaces.Market, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if e.markets.Loaded() && !reload {
		return e.markets.All(), nil
	}
	markets, err := e.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}
	if currencies, err := e.FetchCurrencies(ctx); err == nil {
		e.currencies.Store(currencies)
	} else {
		e.logger.Warn("woo currencies unavailable", logging.Error(err))
	}
	e.markets.Store(markets)
	return markets, nil
}

func (e *Exchange) market(ctx context.Context, symbol string) (*interfaces.Market, error) {
	if symbol == "" {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrArgumentsRequired, "", "symbol is required", "")
	}
	if _, err := e.LoadMarkets(ctx, false); err != nil {
		return nil, err
	}
	return e.markets.BySymbol(exchangeID, symbol)
}

var _ interfaces.Exchange = (*Exchange)(nil)
