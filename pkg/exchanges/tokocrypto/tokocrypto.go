// Package tokocrypto implements the Tokocrypto exchange adapter.
//
// Tokocrypto is a Binance broker platform: account and order endpoints live
// under /open/v1 on the venue's own host with a {code, msg, data} envelope
// where code 0 means success, while public market data is served from the
// Binance API as bare payloads. Market ids differ between the two hosts
// (BTC_USDT on the venue, BTCUSDT on Binance).
//
// Private endpoints sign the url-encoded parameter string, including a
// millisecond timestamp and a recvWindow validity bound, with hex
// HMAC-SHA256; the key travels in the X-MBX-APIKEY header. Precision is
// expressed in decimal places.
package tokocrypto

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

const exchangeID = "tokocrypto"

// Exchange is the Tokocrypto adapter. Construct with New; safe for concurrent
// use.
type Exchange struct {
	options    *interfaces.ExchangeOptions
	http       common.HTTPClient
	logger     logging.Logger
	nonce      *interfaces.NonceSource
	markets    *interfaces.MarketRegistry
	currencies *interfaces.CurrencyRegistry
	loadMu     sync.Mutex
}

// New creates a Tokocrypto adapter with the given options.
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
		Name:      "Tokocrypto",
		Countries: []string{"ID"},
		Version:   "v1",
		URLs: interfaces.URLs{
			API: map[string]string{
				"open":    "https://www.tokocrypto.com",
				"binance": "https://api.binance.com",
			},
			WWW:  "https://www.tokocrypto.com",
			Docs: "https://www.tokocrypto.com/apidocs",
		},
		Has: map[string]bool{
			"fetchMarkets":        true,
			"fetchCurrencies":     false,
			"fetchTicker":         true,
			"fetchTickers":        true,
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
			"transfer":            false,
		},
		Timeframes: map[string]string{
			"1m":  "1m",
			"3m":  "3m",
			"5m":  "5m",
			"15m": "15m",
			"30m": "30m",
			"1h":  "1h",
			"2h":  "2h",
			"4h":  "4h",
			"6h":  "6h",
			"8h":  "8h",
			"12h": "12h",
			"1d":  "1d",
			"3d":  "3d",
			"1w":  "1w",
			"1M":  "1M",
		},
		Fees: interfaces.TradingFees{
			Maker:      interfaces.NumberFromString("0.001"),
			Taker:      interfaces.NumberFromString("0.001"),
			Percentage: true,
			TierBased:  false,
		},
		RequiredCredentials: interfaces.RequiredCredentials{
			APIKey: true,
			Secret: true,
		},
		RateLimit: 100 * time.Millisecond,
	}
}

// errorTable maps venue and Binance error codes onto the unified kinds. The
// broker envelope reuses Binance's negative code space for pass-through
// failures.
var errorTable = interfaces.ErrorTable{
	Exact: map[string]error{
		"-1003": interfaces.ErrRateLimitExceeded,
		"-1013": interfaces.ErrInvalidOrder, // filter failure
		"-1021": interfaces.ErrBadRequest,   // timestamp outside recvWindow
		"-1022": interfaces.ErrAuthentication,
		"-1100": interfaces.ErrBadRequest, // illegal characters in parameter
		"-1102": interfaces.ErrBadRequest, // mandatory parameter missing
		"-1121": interfaces.ErrBadSymbol,
		"-2010": interfaces.ErrInsufficientFunds,
		"-2011": interfaces.ErrOrderNotFound, // cancel rejected, unknown order
		"-2013": interfaces.ErrOrderNotFound,
		"-2014": interfaces.ErrAuthentication, // bad API key format
		"-2015": interfaces.ErrAuthentication, // invalid key, IP or permissions
		"3203":  interfaces.ErrInsufficientFunds,
		"3210":  interfaces.ErrInvalidOrder, // order amount below minimum
		"3219":  interfaces.ErrOrderNotFound,
		"3445":  interfaces.ErrBadSymbol,
	},
	Broad: []interfaces.Substring{
		{Match: "insufficient", Kind: interfaces.ErrInsufficientFunds},
		{Match: "Signature for this request is not valid", Kind: interfaces.ErrAuthentication},
		{Match: "Order does not exist", Kind: interfaces.ErrOrderNotFound},
		{Match: "Too many requests", Kind: interfaces.ErrRateLimitExceeded},
		{Match: "System abnormality", Kind: interfaces.ErrExchangeError},
	},
}

// sign builds a transport-ready request.
//
// The binance sub-API is anonymous query-string access. Private venue calls
// append timestamp and recvWindow to the parameters, sign the url-encoded
// string with hex HMAC-SHA256 and append the signature; GET keeps the signed
// string as the query, POST sends it as a form body. The key travels in the
// X-MBX-APIKEY header.
func (e *Exchange) sign(path, api, method string, params interfaces.Params) (*interfaces.Request, error) {
	desc := e.Describe()
	base, ok := desc.URLs.API[api]
	if !ok && api == "private" {
		base = desc.URLs.API["open"]
	} else if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "unknown sub-API "+api, "")
	}
	if e.options.RestURL != "" && api == "binance" {
		base = e.options.RestURL
	}
	req := &interfaces.Request{
		URL:     base + "/" + path,
		Method:  method,
		Headers: http.Header{},
	}
	if api != "private" {
		if len(params) > 0 {
			req.URL += "?" + params.URLValues().Encode()
		}
		return req, nil
	}
	if err := e.options.CheckRequiredCredentials(exchangeID, desc.RequiredCredentials); err != nil {
		return nil, err
	}
	signed := params.Extend(interfaces.Params{
		"timestamp":  strconv.FormatInt(e.nonce.Next(), 10),
		"recvWindow": strconv.FormatInt(e.options.RecvWindow.Milliseconds(), 10),
	})
	encoded := signed.URLValues().Encode()
	mac := hmac.New(sha256.New, []byte(e.options.APISecret))
	mac.Write([]byte(encoded))
	encoded += "&signature=" + hex.EncodeToString(mac.Sum(nil))
	req.Headers.Set("X-MBX-APIKEY", e.options.APIKey)
	if method == http.MethodGet {
		req.URL += "?" + encoded
	} else {
		req.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Body = encoded
	}
	return req, nil
}

// fetch signs, executes and error-checks one call.
func (e *Exchange) fetch(ctx context.Context, method, path, api string, params interfaces.Params) (any, error) {
	signed, err := e.sign(path, api, method, params)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, signed.Method, signed.URL, strings.NewReader(signed.Body))
	if err != nil {
		return nil, fmt.Errorf("building tokocrypto request: %w", err)
	}
	httpReq.Header = signed.Headers
	resp, err := e.http.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tokocrypto response: %w", err)
	}
	e.logger.Debug("tokocrypto response",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
	)
	return e.handleResponse(resp.StatusCode, body)
}

// handleResponse unwraps the broker envelope when present. Binance market
// data arrives bare (arrays or objects with no code field) and passes through
// untouched.
func (e *Exchange) handleResponse(status int, body []byte) (any, error) {
	if status == http.StatusServiceUnavailable {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrExchangeNotAvailable, strconv.Itoa(status), "", string(body))
	}
	decoded, err := common.DecodeJSON(body)
	if err != nil {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, strconv.Itoa(status), err.Error(), string(body))
	}
	envelope, ok := common.AsMap(decoded)
	if !ok {
		return decoded, nil
	}
	code, hasCode := common.GetString(envelope, "code")
	if hasCode && code != "0" && code != "200" {
		message, _ := common.GetString(envelope, "msg", "message")
		return nil, errorTable.Classify(exchangeID, code, message, string(body))
	}
	if data, ok := envelope["data"]; ok {
		return data, nil
	}
	return decoded, nil
}

// LoadMarkets fetches and caches the markets table. The venue exposes no
// public asset catalog, so the currency registry stays empty and codes fall
// back to uppercased vendor ids.
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
	e.markets.Store(markets)
	return markets, nil
}

// FetchCurrencies is not supported: the venue has no asset catalog endpoint.
func (e *Exchange) FetchCurrencies(ctx context.Context) (map[string]*interfaces.Currency, error) {
	return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "fetchCurrencies is not supported", "")
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

// binanceID maps a venue market id (BTC_USDT) onto the Binance spelling
// (BTCUSDT) used by the market data host.
func binanceID(market *interfaces.Market) string {
	return strings.ReplaceAll(market.ID, "_", "")
}

var _ interfaces.Exchange = (*Exchange)(nil)
