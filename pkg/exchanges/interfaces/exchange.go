package interfaces

import (
	"context"
	"net/http"
	"time"
)

// Exchange defines the unified operation surface every adapter implements.
//
// Each call is a single request/response unit of work: the adapter builds a
// signed request, hands it to the HTTP transport, classifies vendor failures
// and normalizes the response into the unified schema. Adapters keep no state
// between calls apart from the loaded market/currency tables and a monotonic
// nonce counter, so concurrent calls into the same adapter are safe.
//
// Implementations should handle:
// - Authentication with the exchange's signing scheme
// - Normalization of vendor payloads into the unified types
// - Classification of vendor error codes onto the shared error kinds
// - Fast-fail validation of credentials and required arguments
type Exchange interface {
	// Describe returns the adapter's static capability descriptor.
	Describe() Description

	// LoadMarkets fetches and caches the markets and currencies tables.
	// Subsequent calls return the cached tables unless reload is true.
	LoadMarkets(ctx context.Context, reload bool) ([]*Market, error)

	// Market data operations.

	// FetchMarkets retrieves the full list of tradable instruments.
	FetchMarkets(ctx context.Context) ([]*Market, error)

	// FetchCurrencies retrieves the asset catalog with per-network
	// deposit/withdrawal capabilities.
	FetchCurrencies(ctx context.Context) (map[string]*Currency, error)

	// FetchTicker retrieves a statistics snapshot for one unified symbol.
	FetchTicker(ctx context.Context, symbol string) (*Ticker, error)

	// FetchTickers retrieves snapshots for the given symbols, or for every
	// market when symbols is empty.
	FetchTickers(ctx context.Context, symbols []string) (map[string]*Ticker, error)

	// FetchOrderBook retrieves the resting orders for a market. Bids are
	// sorted descending, asks ascending. limit <= 0 uses the venue default.
	FetchOrderBook(ctx context.Context, symbol string, limit int) (*OrderBook, error)

	// FetchTrades retrieves recent public trades. since is an epoch-ms lower
	// bound, 0 for no bound; limit <= 0 uses the venue default.
	FetchTrades(ctx context.Context, symbol string, since int64, limit int) ([]*Trade, error)

	// FetchOHLCV retrieves candles for a unified timeframe string (1m, 1h, ...).
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since int64, limit int) ([]*OHLCV, error)

	// Trading operations.

	// FetchBalance retrieves the account funds snapshot.
	FetchBalance(ctx context.Context, params Params) (*Balances, error)

	// CreateOrder places an order. price is ignored for market orders unless
	// the venue prices market buys by quote cost (params["cost"]).
	CreateOrder(ctx context.Context, symbol, orderType, side string, amount, price Number, params Params) (*Order, error)

	// CancelOrder cancels one order by id.
	CancelOrder(ctx context.Context, id, symbol string, params Params) (*Order, error)

	// CancelAllOrders cancels every open order, optionally scoped to a symbol.
	CancelAllOrders(ctx context.Context, symbol string, params Params) ([]*Order, error)

	// FetchOrder retrieves one order by id.
	FetchOrder(ctx context.Context, id, symbol string) (*Order, error)

	// FetchOrders retrieves order history.
	FetchOrders(ctx context.Context, symbol string, since int64, limit int) ([]*Order, error)

	// FetchOpenOrders retrieves currently open orders.
	FetchOpenOrders(ctx context.Context, symbol string, since int64, limit int) ([]*Order, error)

	// FetchClosedOrders retrieves filled and canceled orders.
	FetchClosedOrders(ctx context.Context, symbol string, since int64, limit int) ([]*Order, error)

	// FetchMyTrades retrieves the account's own executions.
	FetchMyTrades(ctx context.Context, symbol string, since int64, limit int) ([]*Trade, error)

	// Funding operations.

	// FetchDepositAddress retrieves a deposit destination for a currency code.
	// params["network"] selects the chain where the venue supports several.
	FetchDepositAddress(ctx context.Context, code string, params Params) (*DepositAddress, error)

	// FetchDeposits retrieves deposit history, optionally scoped to a code.
	FetchDeposits(ctx context.Context, code string, since int64, limit int) ([]*Transaction, error)

	// FetchWithdrawals retrieves withdrawal history, optionally scoped to a code.
	FetchWithdrawals(ctx context.Context, code string, since int64, limit int) ([]*Transaction, error)

	// Withdraw requests an on-chain withdrawal.
	Withdraw(ctx context.Context, code string, amount Number, address, tag string, params Params) (*Transaction, error)

	// Transfer moves funds between unified account types (spot, funding, swap).
	Transfer(ctx context.Context, code string, amount Number, fromAccount, toAccount string, params Params) (*Transfer, error)
}

// Description is the static capability descriptor of one adapter: identity,
// endpoint bases grouped by sub-API, supported operations, fee schedule and
// the venue's timeframe vocabulary. It contains no executable logic.
type Description struct {
	// ID is the lowercase adapter identifier, e.g. "bigone".
	ID string

	// Name is the human-readable venue name, e.g. "BigONE".
	Name string

	// Countries lists ISO country codes the venue operates from.
	Countries []string

	// Version is the vendor API version the adapter targets.
	Version string

	// URLs groups endpoint base URLs by sub-API key ("public", "private",
	// "contract", ...) plus website and documentation links.
	URLs URLs

	// Has declares which unified operations the adapter supports.
	Has map[string]bool

	// Timeframes maps unified timeframe strings to the venue's vocabulary.
	Timeframes map[string]string

	// Fees is the default trading fee schedule.
	Fees TradingFees

	// RequiredCredentials declares which credential parts private calls need.
	RequiredCredentials RequiredCredentials

	// RateLimit is the minimum delay the venue expects between requests.
	RateLimit time.Duration
}

// URLs groups an adapter's endpoint bases and reference links.
type URLs struct {
	API  map[string]string
	WWW  string
	Docs string
}

// TradingFees is a venue's default maker/taker schedule.
type TradingFees struct {
	Maker      Number
	Taker      Number
	Percentage bool
	TierBased  bool
}

// RequiredCredentials declares the credential parts an adapter's private
// endpoints require. Every adapter requires key and secret; only some require
// a passphrase.
type RequiredCredentials struct {
	APIKey     bool
	Secret     bool
	Passphrase bool
}

// Request is a transport-ready HTTP request produced by an adapter's signer:
// final URL with query string, method, auth headers and encoded body.
type Request struct {
	URL     string
	Method  string
	Headers http.Header
	Body    string
}

// ExchangeOptions defines configuration options for exchange adapters.
type ExchangeOptions struct {
	// APIKey is the authentication key for the exchange API.
	// Required for authenticated endpoints (trading, account info).
	APIKey string

	// APISecret is the secret key paired with the API key.
	// Required for generating signatures for authenticated requests.
	APISecret string

	// Passphrase is the additional credential some venues (OKCoin) require
	// alongside the key and secret.
	Passphrase string

	// RestURL overrides the default REST API base URL, e.g. for sandboxes.
	RestURL string

	// HTTPTimeout specifies the maximum duration to wait for HTTP requests.
	HTTPTimeout time.Duration

	// MaxRequestsPerSecond controls client-side rate limiting so the venue's
	// limits are not exceeded.
	MaxRequestsPerSecond int

	// RecvWindow is the validity window venues with Binance-style signing
	// (Tokocrypto) accept a signed request within.
	RecvWindow time.Duration

	// ClockSkew is added to local time when generating timestamps and nonces,
	// to counteract drift between the client and the venue.
	ClockSkew time.Duration

	// LogLevel controls the verbosity of adapter logging.
	// Common values include: "debug", "info", "warn", "error"
	LogLevel string
}

// NewExchangeOptions returns default exchange options with reasonable values.
//
// Example usage:
//
//	options := interfaces.NewExchangeOptions().WithCredentials("key", "secret")
//	adapter := bigone.New(options)
func NewExchangeOptions() *ExchangeOptions {
	return &ExchangeOptions{
		HTTPTimeout:          15 * time.Second,
		MaxRequestsPerSecond: 10,
		RecvWindow:           5 * time.Second,
		LogLevel:             "info",
	}
}

// WithCredentials sets the API key and secret, returning the options for
// chaining.
func (o *ExchangeOptions) WithCredentials(key, secret string) *ExchangeOptions {
	o.APIKey = key
	o.APISecret = secret
	return o
}

// WithPassphrase sets the API passphrase, returning the options for chaining.
func (o *ExchangeOptions) WithPassphrase(passphrase string) *ExchangeOptions {
	o.Passphrase = passphrase
	return o
}

// CheckRequiredCredentials fails fast with ErrAuthentication before any
// network call when a credential part the adapter needs is absent.
func (o *ExchangeOptions) CheckRequiredCredentials(exchange string, required RequiredCredentials) error {
	if required.APIKey && o.APIKey == "" {
		return NewAPIError(exchange, ErrAuthentication, "", "apiKey credential is required", "")
	}
	if required.Secret && o.APISecret == "" {
		return NewAPIError(exchange, ErrAuthentication, "", "secret credential is required", "")
	}
	if required.Passphrase && o.Passphrase == "" {
		return NewAPIError(exchange, ErrAuthentication, "", "passphrase credential is required", "")
	}
	return nil
}
