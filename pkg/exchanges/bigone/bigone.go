// Package bigone implements the BigONE exchange adapter.
//
// BigONE wraps every REST response in a {code, message, data} envelope where
// code "0" means success. Private endpoints authenticate with an HS256 JWT
// bearer token carrying the API key and a nanosecond nonce. Precision is
// expressed in decimal places.
package bigone

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/logging"
	"github.com/veiloq/exchange-adapters/pkg/ratelimit"
)

const exchangeID = "bigone"

// Exchange is the BigONE adapter. The zero value is not usable; construct it
// with New. Safe for concurrent use.
type Exchange struct {
	options    *interfaces.ExchangeOptions
	http       common.HTTPClient
	logger     logging.Logger
	nonce      *interfaces.NonceSource
	markets    *interfaces.MarketRegistry
	currencies *interfaces.CurrencyRegistry
	loadMu     sync.Mutex
}

// New creates a BigONE adapter with the given options.
//
// Example:
//
//	adapter := bigone.New(interfaces.NewExchangeOptions().WithCredentials("key", "secret"))
//	markets, err := adapter.FetchMarkets(ctx)
func New(options *interfaces.ExchangeOptions) *Exchange {
	if options == nil {
		options = interfaces.NewExchangeOptions()
	}
	logger := logging.NewLogger()
	if options.LogLevel == "debug" {
		logger.SetLevel(logging.DEBUG)
	}
	e := &Exchange{
		options: options,
		logger:  logger.WithFields(logging.String("exchange", exchangeID)),
		// BigONE requires a strictly increasing nanosecond nonce per key.
		nonce:      interfaces.NewNonceSource(time.Nanosecond),
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
		// A failed call surfaces immediately as a classified error; retry
		// policy belongs to the embedding caller.
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
		Name:      "BigONE",
		Countries: []string{"CN"},
		Version:   "v3",
		URLs: interfaces.URLs{
			API: map[string]string{
				"public":   "https://big.one/api/v3",
				"private":  "https://big.one/api/v3/viewer",
				"uc":       "https://big.one/api/uc/v2",
				"contract": "https://big.one/api/contract/v2",
			},
			WWW:  "https://big.one",
			Docs: "https://open.big.one/docs/api.html",
		},
		Has: map[string]bool{
			"fetchMarkets":        true,
			"fetchCurrencies":     true,
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
			"transfer":            true,
		},
		Timeframes: map[string]string{
			"1m":  "min1",
			"5m":  "min5",
			"15m": "min15",
			"30m": "min30",
			"1h":  "hour1",
			"3h":  "hour3",
			"4h":  "hour4",
			"6h":  "hour6",
			"12h": "hour12",
			"1d":  "day1",
			"1w":  "week1",
			"1M":  "month1",
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

// errorTable maps BigONE error codes and messages onto the unified kinds.
var errorTable = interfaces.ErrorTable{
	Exact: map[string]error{
		"10001": interfaces.ErrBadRequest,         // syntax error
		"10005": interfaces.ErrExchangeError,      // internal error
		"10007": interfaces.ErrBadRequest,         // parameter error
		"10011": interfaces.ErrBadSymbol,          // asset pair not found
		"10013": interfaces.ErrOrderNotFound,      // resource not found
		"10014": interfaces.ErrInsufficientFunds,  // insufficient funds
		"10403": interfaces.ErrPermissionDenied,   // permission denied
		"10429": interfaces.ErrRateLimitExceeded,  // too many requests
		"40004": interfaces.ErrAuthentication,     // invalid token
		"40103": interfaces.ErrAuthentication,     // invalid signature
		"40302": interfaces.ErrAuthentication,     // token expired
		"40601": interfaces.ErrExchangeError,      // resource is locked
		"40602": interfaces.ErrExchangeError,      // operation forbidden for state
		"40603": interfaces.ErrInsufficientFunds,  // account balance not enough
		"40120": interfaces.ErrInvalidOrder,       // order is in trading
		"40121": interfaces.ErrInvalidOrder,       // order is already cancelled or filled
		"60100": interfaces.ErrInvalidOrder,       // asset pair is suspended
		"Amount's scale must greater than AssetPair's base scale": interfaces.ErrInvalidOrder,
		"Price mulit with amount should larger than AssetPair's min_quote_value": interfaces.ErrInvalidOrder,
	},
	Broad: []interfaces.Substring{
		{Match: "Insufficient", Kind: interfaces.ErrInsufficientFunds},
		{Match: "not enough", Kind: interfaces.ErrInsufficientFunds},
		{Match: "Not found", Kind: interfaces.ErrOrderNotFound},
		{Match: "suspended", Kind: interfaces.ErrExchangeNotAvailable},
		{Match: "maintenance", Kind: interfaces.ErrExchangeNotAvailable},
	},
}

// sign builds a transport-ready request for a logical endpoint.
//
// Public sub-APIs take their parameters as a query string. Private endpoints
// additionally carry "Authorization: Bearer <jwt>", where the JWT is an HS256
// token with the API key as subject and a strictly increasing nanosecond
// nonce; POST parameters travel as a JSON body instead of the query.
func (e *Exchange) sign(path, api, method string, params interfaces.Params) (*interfaces.Request, error) {
	desc := e.Describe()
	base, ok := desc.URLs.API[api]
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrNotSupported, "", "unknown sub-API "+api, "")
	}
	if e.options.RestURL != "" && api == "public" {
		base = e.options.RestURL
	}
	req := &interfaces.Request{
		URL:     base + "/" + path,
		Method:  method,
		Headers: http.Header{},
	}
	private := api == "private"
	if private {
		if err := e.options.CheckRequiredCredentials(exchangeID, desc.RequiredCredentials); err != nil {
			return nil, err
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"type":  "OpenAPIV2",
			"sub":   e.options.APIKey,
			"nonce": strconv.FormatInt(e.nonce.Next(), 10),
		})
		signed, err := token.SignedString([]byte(e.options.APISecret))
		if err != nil {
			return nil, fmt.Errorf("signing bigone request: %w", err)
		}
		req.Headers.Set("Authorization", "Bearer "+signed)
	}
	if method == http.MethodGet || method == http.MethodDelete {
		if len(params) > 0 {
			req.URL += "?" + params.URLValues().Encode()
		}
	} else {
		req.Headers.Set("Content-Type", "application/json")
		body, err := params.EncodeJSON()
		if err != nil {
			return nil, err
		}
		req.Body = body
	}
	return req, nil
}

// fetch signs, executes and error-checks one call, returning the decoded
// payload of the response envelope's data field.
func (e *Exchange) fetch(ctx context.Context, method, path, api string, params interfaces.Params) (any, error) {
	signed, err := e.sign(path, api, method, params)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, signed.Method, signed.URL, strings.NewReader(signed.Body))
	if err != nil {
		return nil, fmt.Errorf("building bigone request: %w", err)
	}
	httpReq.Header = signed.Headers
	resp, err := e.http.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading bigone response: %w", err)
	}
	e.logger.Debug("bigone response",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
	)
	return e.handleResponse(resp.StatusCode, body)
}

// handleResponse applies the error protocol: map bare transport failures
// first, then consult the vendor's success sentinel, then classify.
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
	if hasCode && code != "0" {
		message, _ := common.GetString(envelope, "message", "msg", "error")
		return nil, errorTable.Classify(exchangeID, code, message, string(body))
	}
	if data, ok := envelope["data"]; ok {
		return data, nil
	}
	return decoded, nil
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
		// The asset catalog lives on a separate sub-API that is occasionally
		// unavailable; markets alone are enough for most operations.
		e.logger.Warn("bigone currencies unavailable", logging.Error(err))
	}
	e.markets.Store(markets)
	return markets, nil
}

// market resolves a unified symbol against the loaded markets table.
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
