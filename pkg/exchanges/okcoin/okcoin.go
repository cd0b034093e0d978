// Package okcoin implements the OKCoin exchange adapter.
//
// OKCoin wraps every REST response in a {code, msg, data} envelope where code
// "0" means success. Private endpoints authenticate with the four-header
// scheme OK-ACCESS-KEY / OK-ACCESS-SIGN / OK-ACCESS-TIMESTAMP /
// OK-ACCESS-PASSPHRASE, where the signature is the base64 HMAC-SHA256 of
// timestamp + method + requestPath + body. Precision is expressed as tick
// sizes.
package okcoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

const exchangeID = "okcoin"

// Exchange is the OKCoin adapter. Construct with New; safe for concurrent use.
type Exchange struct {
	options    *interfaces.ExchangeOptions
	http       common.HTTPClient
	logger     logging.Logger
	nonce      *interfaces.NonceSource
	markets    *interfaces.MarketRegistry
	currencies *interfaces.CurrencyRegistry
	loadMu     sync.Mutex
}

// New creates an OKCoin adapter with the given options. Private endpoints
// require key, secret and passphrase.
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
		Name:      "OKCoin",
		Countries: []string{"CN", "US"},
		Version:   "v5",
		URLs: interfaces.URLs{
			API: map[string]string{
				"rest": "https://www.okcoin.com",
			},
			WWW:  "https://www.okcoin.com",
			Docs: "https://www.okcoin.com/docs-v5/en/",
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
			"1m":  "1m",
			"3m":  "3m",
			"5m":  "5m",
			"15m": "15m",
			"30m": "30m",
			"1h":  "1H",
			"2h":  "2H",
			"4h":  "4H",
			"6h":  "6H",
			"12h": "12H",
			"1d":  "1D",
			"1w":  "1W",
			"1M":  "1M",
		},
		Fees: interfaces.TradingFees{
			Maker:      interfaces.NumberFromString("0.001"),
			Taker:      interfaces.NumberFromString("0.002"),
			Percentage: true,
			TierBased:  true,
		},
		RequiredCredentials: interfaces.RequiredCredentials{
			APIKey:     true,
			Secret:     true,
			Passphrase: true,
		},
		RateLimit: 100 * time.Millisecond,
	}
}

// errorTable maps OKCoin error codes and messages onto the unified kinds.
var errorTable = interfaces.ErrorTable{
	Exact: map[string]error{
		"1":     interfaces.ErrExchangeError,      // operation failed
		"50001": interfaces.ErrExchangeNotAvailable,
		"50004": interfaces.ErrRequestTimeout,
		"50011": interfaces.ErrRateLimitExceeded,
		"50013": interfaces.ErrExchangeNotAvailable, // system busy
		"50026": interfaces.ErrExchangeError,
		"50100": interfaces.ErrAuthentication, // API frozen
		"50101": interfaces.ErrAuthentication, // broker id mismatch
		"50103": interfaces.ErrAuthentication, // missing OK-ACCESS-KEY
		"50104": interfaces.ErrAuthentication, // missing OK-ACCESS-PASSPHRASE
		"50105": interfaces.ErrAuthentication, // wrong passphrase
		"50111": interfaces.ErrAuthentication, // invalid OK-ACCESS-KEY
		"50113": interfaces.ErrAuthentication, // invalid signature
		"50114": interfaces.ErrAuthentication, // invalid authorization
		"51000": interfaces.ErrBadRequest,     // parameter error
		"51001": interfaces.ErrBadSymbol,      // instrument does not exist
		"51008": interfaces.ErrInsufficientFunds,
		"51020": interfaces.ErrInvalidOrder, // order amount below minimum
		"51111": interfaces.ErrBadRequest,   // maximum batch size exceeded
		"51119": interfaces.ErrInsufficientFunds,
		"51400": interfaces.ErrOrderNotFound, // cancellation failed, order not found
		"51401": interfaces.ErrInvalidOrder,  // cancellation failed, order canceled
		"51402": interfaces.ErrInvalidOrder,  // cancellation failed, order completed
		"51603": interfaces.ErrOrderNotFound,
		"58112": interfaces.ErrBadRequest,  // unsupported transfer channel
		"58207": interfaces.ErrBadRequest,  // withdrawal address not allowlisted
		"58350": interfaces.ErrInsufficientFunds,
	},
	Broad: []interfaces.Substring{
		{Match: "Insufficient", Kind: interfaces.ErrInsufficientFunds},
		{Match: "does not exist", Kind: interfaces.ErrOrderNotFound},
		{Match: "Invalid Sign", Kind: interfaces.ErrAuthentication},
		{Match: "Too Many Requests", Kind: interfaces.ErrRateLimitExceeded},
		{Match: "service temporarily unavailable", Kind: interfaces.ErrExchangeNotAvailable},
	},
}

// sign builds a transport-ready request.
//
// Private calls sign the string timestamp + method + requestPath + body,
// where requestPath includes the query string, with HMAC-SHA256 over the
// secret, base64-encoded. The timestamp is an ISO datetime with millisecond
// precision and is generated monotonically to satisfy the venue's replay
// protection.
func (e *Exchange) sign(path, api, method string, params interfaces.Params) (*interfaces.Request, error) {
	desc := e.Describe()
	base := desc.URLs.API["rest"]
	if e.options.RestURL != "" {
		base = e.options.RestURL
	}
	requestPath := "/" + path
	body := ""
	if method == http.MethodGet {
		if len(params) > 0 {
			requestPath += "?" + params.URLValues().Encode()
		}
	} else if len(params) > 0 {
		encoded, err := params.EncodeJSON()
		if err != nil {
			return nil, err
		}
		body = encoded
	}
	req := &interfaces.Request{
		URL:     base + requestPath,
		Method:  method,
		Headers: http.Header{},
		Body:    body,
	}
	if api == "private" {
		if err := e.options.CheckRequiredCredentials(exchangeID, desc.RequiredCredentials); err != nil {
			return nil, err
		}
		timestamp := time.UnixMilli(e.nonce.Next()).UTC().Format("2006-01-02T15:04:05.000Z")
		payload := timestamp + method + requestPath + body
		mac := hmac.New(sha256.New, []byte(e.options.APISecret))
		mac.Write([]byte(payload))
		signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		req.Headers.Set("OK-ACCESS-KEY", e.options.APIKey)
		req.Headers.Set("OK-ACCESS-SIGN", signature)
		req.Headers.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Headers.Set("OK-ACCESS-PASSPHRASE", e.options.Passphrase)
	}
	if body != "" {
		req.Headers.Set("Content-Type", "application/json")
	}
	return req, nil
}

// fetch signs, executes and error-checks one call, returning the envelope's
// data field.
func (e *Exchange) fetch(ctx context.Context, method, path, api string, params interfaces.Params) (any, error) {
	signed, err := e.sign(path, api, method, params)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, signed.Method, signed.URL, strings.NewReader(signed.Body))
	if err != nil {
		return nil, fmt.Errorf("building okcoin request: %w", err)
	}
	httpReq.Header = signed.Headers
	resp, err := e.http.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading okcoin response: %w", err)
	}
	e.logger.Debug("okcoin response",
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
	)
	return e.handleResponse(resp.StatusCode, body)
}

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
		message, _ := common.GetString(envelope, "msg", "message")
		// Batch operations report per-item results; surface the first
		// item-level failure when the envelope itself is only a summary.
		if message == "" {
			if rows, ok := common.GetList(envelope, "data"); ok && len(rows) > 0 {
				if item, ok := common.AsMap(rows[0]); ok {
					itemCode, _ := common.GetString(item, "sCode")
					itemMsg, _ := common.GetString(item, "sMsg")
					if itemCode != "" && itemCode != "0" {
						return nil, errorTable.Classify(exchangeID, itemCode, itemMsg, string(body))
					}
				}
			}
		}
		return nil, errorTable.Classify(exchangeID, code, message, string(body))
	}
	if data, ok := envelope["data"]; ok {
		return data, nil
	}
	return decoded, nil
}

// dataList coerces an envelope payload into a list of objects.
func dataList(data any) ([]map[string]any, error) {
	rows, ok := common.AsList(data)
	if !ok {
		return nil, interfaces.NewAPIError(exchangeID, interfaces.ErrBadResponse, "", "expected a data list", "")
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if m, ok := common.AsMap(row); ok {
			out = append(out, m)
		}
	}
	return out, nil
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
	// The currency catalog is a private endpoint on this venue; skip it
	// silently for key-less market data use.
	if e.options.APIKey != "" {
		if currencies, err := e.FetchCurrencies(ctx); err == nil {
			e.currencies.Store(currencies)
		} else {
			e.logger.Warn("okcoin currencies unavailable", logging.Error(err))
		}
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
