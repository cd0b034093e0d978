package woo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/ratelimit"
)

// stubHTTPClient is mutex-guarded: FetchMarkets and FetchCurrencies hit two
// endpoints from concurrent goroutines.
type stubHTTPClient struct {
	mu       sync.Mutex
	respond  func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

func (s *stubHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(req)
}

func (s *stubHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return s.Do(ctx, req)
}

func (s *stubHTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	return s.Do(ctx, req)
}

func (s *stubHTTPClient) SetRateLimit(limit ratelimit.Rate) error { return nil }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func respondWith(body string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return jsonResponse(body), nil
	}
}

var testMarket = &interfaces.Market{
	ID:     "SPOT_BTC_USDT",
	Symbol: "BTC/USDT",
	Base:   "BTC",
	Quote:  "USDT",
	Type:   interfaces.MarketTypeSpot,
	Spot:   true,
}

func newTestExchange(t *testing.T, stub *stubHTTPClient) *Exchange {
	t.Helper()
	options := interfaces.NewExchangeOptions().WithCredentials("test-key", "test-secret")
	e := New(options)
	e.http = stub
	e.markets.Store([]*interfaces.Market{testMarket})
	return e
}

func TestDescribe(t *testing.T) {
	desc := New(nil).Describe()

	assert.Equal(t, "woo", desc.ID)
	assert.False(t, desc.Has["fetchTicker"], "the venue has no public ticker endpoint")
	assert.False(t, desc.Has["fetchTickers"])
	assert.True(t, desc.Has["fetchOrderBook"])
	assert.Equal(t, "1mon", desc.Timeframes["1M"])
	assert.False(t, desc.RequiredCredentials.Passphrase)
}

func TestSignPublic(t *testing.T) {
	e := New(nil)
	req, err := e.sign("v1/public/market_trades", "public", http.MethodGet, interfaces.Params{"symbol": "SPOT_BTC_USDT"})
	require.NoError(t, err)

	assert.Equal(t, "https://api.woo.org/v1/public/market_trades?symbol=SPOT_BTC_USDT", req.URL)
	assert.Empty(t, req.Headers.Get("x-api-key"))
	assert.Empty(t, req.Headers.Get("x-api-signature"))
}

func TestSignPrivateGet(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})
	req, err := e.sign("v1/orders", "private", http.MethodGet, interfaces.Params{
		"symbol": "SPOT_BTC_USDT",
		"status": "INCOMPLETE",
		"size":   "50",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-key", req.Headers.Get("x-api-key"))
	assert.Empty(t, req.Body, "parameters ride in the query on GET")

	timestamp := req.Headers.Get("x-api-timestamp")
	ms, parseErr := strconv.ParseInt(timestamp, 10, 64)
	require.NoError(t, parseErr)
	assert.Greater(t, ms, int64(1e12), "the timestamp is epoch milliseconds")

	// The signed string is the sorted encoded parameters joined with the
	// timestamp by a pipe, and must match the query verbatim.
	encoded := "size=50&status=INCOMPLETE&symbol=SPOT_BTC_USDT"
	assert.True(t, strings.HasSuffix(req.URL, "?"+encoded))
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(encoded + "|" + timestamp))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers.Get("x-api-signature"))
}

func TestSignPrivatePostUsesFormBody(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})
	req, err := e.sign("v1/order", "private", http.MethodPost, interfaces.Params{
		"symbol":     "SPOT_BTC_USDT",
		"order_type": "LIMIT",
	})
	require.NoError(t, err)

	assert.NotContains(t, req.URL, "?", "POST keeps the URL bare")
	assert.Equal(t, "order_type=LIMIT&symbol=SPOT_BTC_USDT", req.Body)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Headers.Get("Content-Type"))

	timestamp := req.Headers.Get("x-api-timestamp")
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(req.Body + "|" + timestamp))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers.Get("x-api-signature"))
}

func TestSignPrivateRequiresCredentials(t *testing.T) {
	e := New(nil)
	_, err := e.sign("v3/balances", "private", http.MethodGet, nil)
	assert.ErrorIs(t, err, interfaces.ErrAuthentication)
}

func TestHandleResponse(t *testing.T) {
	e := New(nil)

	t.Run("success false with a code", func(t *testing.T) {
		_, err := e.handleResponse(200, []byte(`{"success":false,"code":-1101,"message":"transaction exceeds the allowed margin"}`))
		assert.ErrorIs(t, err, interfaces.ErrInsufficientFunds)

		var apiErr *interfaces.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Body, "-1101", "the raw body survives classification")
	})

	t.Run("success false without a code classifies by message", func(t *testing.T) {
		_, err := e.handleResponse(200, []byte(`{"success":false,"message":"order not found"}`))
		assert.ErrorIs(t, err, interfaces.ErrOrderNotFound)
	})

	t.Run("success true returns the envelope", func(t *testing.T) {
		envelope, err := e.handleResponse(200, []byte(`{"success":true,"rows":[{"symbol":"SPOT_BTC_USDT"}]}`))
		require.NoError(t, err)
		assert.Len(t, envelopeRows(envelope, "rows"), 1)
	})

	t.Run("503 maps to unavailable", func(t *testing.T) {
		_, err := e.handleResponse(503, []byte("upstream down"))
		assert.ErrorIs(t, err, interfaces.ErrExchangeNotAvailable)
	})

	t.Run("non JSON body", func(t *testing.T) {
		_, err := e.handleResponse(200, []byte("<html>busy</html>"))
		assert.ErrorIs(t, err, interfaces.ErrBadResponse)
	})

	t.Run("non object body", func(t *testing.T) {
		_, err := e.handleResponse(200, []byte(`[1,2,3]`))
		assert.ErrorIs(t, err, interfaces.ErrBadResponse)
	})
}

func TestTimestampMS(t *testing.T) {
	m := map[string]any{
		"fractional": "1611235117.774",
		"millis":     "1622505600000",
	}
	assert.Equal(t, int64(1611235117774), timestampMS(m, "fractional"), "fractional seconds scale up")
	assert.Equal(t, int64(1622505600000), timestampMS(m, "millis"), "millisecond epochs pass through")
	assert.Equal(t, int64(0), timestampMS(m, "missing"))
}

func TestParseSymbolID(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	assert.Equal(t, "BTC/USDT", e.parseSymbolID("ignored", testMarket), "an explicit market wins")
	assert.Equal(t, "BTC/USDT", e.parseSymbolID("SPOT_BTC_USDT", nil), "loaded markets resolve by id")
	assert.Equal(t, "ETH/USDT", e.parseSymbolID("SPOT_ETH_USDT", nil), "unknown three part ids synthesize")
	assert.Equal(t, "WEIRD", e.parseSymbolID("WEIRD", nil), "anything else passes through")
}

func TestFetchMarketsMergesTokenDecimals(t *testing.T) {
	stub := &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/v1/public/info":
			return jsonResponse(`{"success":true,"rows":[
				{"symbol":"SPOT_BTC_USDT","quote_tick":"0.01","base_min":"0.0001","base_max":"20",
				 "min_notional":"1","is_trading":true},
				{"symbol":"SPOT_ETH_USDT","base_tick":"0.001","quote_tick":"0.01","is_trading":false}]}`), nil
		case "/v1/public/token":
			return jsonResponse(`{"success":true,"rows":[
				{"token":"BTC","decimals":"0.00001","fullname":"Bitcoin"}]}`), nil
		}
		return jsonResponse(`{"success":false,"code":-1000}`), nil
	}}
	e := newTestExchange(t, stub)

	markets, err := e.FetchMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)

	btc := markets[0]
	assert.Equal(t, "BTC/USDT", btc.Symbol)
	assert.True(t, btc.Active)
	assert.Equal(t, "0.00001", btc.Precision.Amount.Decimal.String(), "token decimals fill in missing base ticks")
	assert.Equal(t, "0.01", btc.Precision.Price.Decimal.String())
	assert.Equal(t, "20", btc.Limits.Amount.Max.Decimal.String())
	assert.Equal(t, "1", btc.Limits.Cost.Min.Decimal.String())

	eth := markets[1]
	assert.False(t, eth.Active)
	assert.Equal(t, "0.001", eth.Precision.Amount.Decimal.String(), "an instrument's own tick is never overwritten")
}

func TestFetchMarketsSurvivesTokenCatalogFailure(t *testing.T) {
	stub := &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/v1/public/info" {
			return jsonResponse(`{"success":true,"rows":[
				{"symbol":"SPOT_BTC_USDT","quote_tick":"0.01","is_trading":true}]}`), nil
		}
		return jsonResponse(`{"success":false,"code":-1000,"message":"maintenance"}`), nil
	}}
	e := newTestExchange(t, stub)

	markets, err := e.FetchMarkets(context.Background())
	require.NoError(t, err, "token decimals only refine precision")
	require.Len(t, markets, 1)
	assert.False(t, markets[0].Precision.Amount.Valid)
}

func TestFetchCurrencies(t *testing.T) {
	stub := &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/v1/public/token":
			return jsonResponse(`{"success":true,"rows":[
				{"token":"usdt","fullname":"Tether","decimals":"0.000001"}]}`), nil
		case "/v1/public/token_network":
			return jsonResponse(`{"success":true,"rows":[
				{"token":"usdt","protocol":"TRC20","network":"Tron","allow_deposit":"1","allow_withdraw":"0",
				 "withdrawal_fee":"1","minimum_withdrawal":"10"},
				{"token":"usdt","protocol":"ERC20","network":"Ethereum","allow_deposit":"1","allow_withdraw":"1",
				 "withdrawal_fee":"15","minimum_withdrawal":"30"}]}`), nil
		}
		return jsonResponse(`{"success":false,"code":-1000}`), nil
	}}
	e := newTestExchange(t, stub)

	currencies, err := e.FetchCurrencies(context.Background())
	require.NoError(t, err)

	usdt, ok := currencies["USDT"]
	require.True(t, ok, "codes are upper cased token ids")
	assert.Equal(t, "usdt", usdt.ID)
	assert.Equal(t, "Tether", usdt.Name)
	assert.True(t, usdt.Active)
	require.NotNil(t, usdt.Withdraw)
	assert.True(t, *usdt.Withdraw, "one withdrawable chain is enough")
	assert.Equal(t, "1", usdt.Fee.Decimal.String(), "the first chain's fee is the headline fee")
	assert.Equal(t, "10", usdt.Limits.Withdrawal.Min.Decimal.String())

	require.Len(t, usdt.Networks, 2)
	tron := usdt.Networks["Tron"]
	require.NotNil(t, tron.Withdraw)
	assert.False(t, *tron.Withdraw, "allow_withdraw arrives as a 0/1 integer")
	require.NotNil(t, tron.Deposit)
	assert.True(t, *tron.Deposit)
}

func TestFetchTickerNotSupported(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	_, err := e.FetchTicker(context.Background(), "BTC/USDT")
	assert.ErrorIs(t, err, interfaces.ErrNotSupported)

	_, err = e.FetchTickers(context.Background(), nil)
	assert.ErrorIs(t, err, interfaces.ErrNotSupported)
}

func TestFetchOrderBook(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"timestamp":"1622505600000",
		"asks":[{"price":"10669.4","quantity":"1.56"}],
		"bids":[{"price":"10669.3","quantity":"0.88"},{"price":"10669.2","quantity":"2"}]}`)}
	e := newTestExchange(t, stub)

	book, err := e.FetchOrderBook(context.Background(), "BTC/USDT", 25)
	require.NoError(t, err)

	assert.Equal(t, "BTC/USDT", book.Symbol)
	assert.Equal(t, int64(1622505600000), book.Timestamp)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "10669.4", book.Asks[0].Price.Decimal.String())
	assert.Equal(t, "1.56", book.Asks[0].Amount.Decimal.String())
	require.Len(t, book.Bids, 2)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, "/v1/orderbook/SPOT_BTC_USDT", req.URL.Path)
	assert.Equal(t, "25", req.URL.Query().Get("max_level"))
	assert.NotEmpty(t, req.Header.Get("x-api-signature"), "the order book endpoint is private on this venue")
}

func TestFetchTrades(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"rows":[
		{"symbol":"SPOT_BTC_USDT","side":"BUY","executed_price":"10669.4","executed_quantity":"0.5",
		 "executed_timestamp":"1611235117.774"}]}`)}
	e := newTestExchange(t, stub)

	trades, err := e.FetchTrades(context.Background(), "BTC/USDT", 0, 50)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, "BTC/USDT", trade.Symbol)
	assert.Equal(t, "buy", trade.Side, "venue sides are upper case")
	assert.Equal(t, int64(1611235117774), trade.Timestamp)
	assert.Equal(t, "5334.7", trade.Cost.Decimal.String())
	assert.Empty(t, trade.TakerOrMaker, "anonymous trades carry no role")
}

func TestFetchOHLCVReversesIntoAscendingOrder(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"rows":[
		{"start_timestamp":"1622505720000","open":37.2,"high":37.6,"low":37.1,"close":37.5,"volume":95},
		{"start_timestamp":"1622505660000","open":37,"high":37.3,"low":36.9,"close":37.2,"volume":80},
		{"start_timestamp":"1622505600000","open":36.8,"high":37.1,"low":36.7,"close":37,"volume":60}]}`)}
	e := newTestExchange(t, stub)

	candles, err := e.FetchOHLCV(context.Background(), "BTC/USDT", "1m", 1622505660000, 3)
	require.NoError(t, err)
	require.Len(t, candles, 2, "candles before since are dropped")

	assert.Equal(t, int64(1622505660000), candles[0].Timestamp, "venue order is newest first and must be reversed")
	assert.Equal(t, int64(1622505720000), candles[1].Timestamp)
	assert.Equal(t, 37.5, candles[1].Close)

	require.Len(t, stub.requests, 1)
	query := stub.requests[0].URL.Query()
	assert.Equal(t, "1m", query.Get("type"))
	assert.Equal(t, "SPOT_BTC_USDT", query.Get("symbol"))
}

func TestFetchOHLCVRejectsUnknownTimeframe(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		t.Fatal("validation failures must not reach the network")
		return nil, nil
	}})

	_, err := e.FetchOHLCV(context.Background(), "BTC/USDT", "7m", 0, 0)
	assert.ErrorIs(t, err, interfaces.ErrNotSupported)
}

func TestFetchBalance(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"data":{"holding":[
		{"token":"BTC","holding":"1.5","frozen":"0.5","updated_time":"1622505600.000"},
		{"token":"USDT","holding":"100","frozen":"0"}]}}`)}
	e := newTestExchange(t, stub)

	balances, err := e.FetchBalance(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1622505600000), balances.Timestamp)

	btc := balances.Assets["BTC"]
	assert.Equal(t, "1", btc.Free.Decimal.String(), "free is holding minus frozen")
	assert.Equal(t, "0.5", btc.Used.Decimal.String())
	assert.Equal(t, "1.5", btc.Total.Decimal.String())
}

func TestCreateOrderMarketBuy(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"order_id":9001,"order_amount":100}`)}
	e := newTestExchange(t, stub)

	order, err := e.CreateOrder(context.Background(), "BTC/USDT", interfaces.OrderTypeMarket, interfaces.SideBuy,
		interfaces.Number{}, interfaces.Number{}, interfaces.Params{"cost": "100"})
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	body, readErr := io.ReadAll(stub.requests[0].Body)
	require.NoError(t, readErr)
	assert.Equal(t, "order_amount=100&order_type=MARKET&side=BUY&symbol=SPOT_BTC_USDT", string(body))

	assert.Equal(t, "9001", order.ID)
	assert.Equal(t, interfaces.OrderStatusOpen, order.Status)
	assert.Equal(t, "100", order.Cost.Decimal.String(), "market buys are sized in quote currency")
	assert.False(t, order.Amount.Valid)
}

func TestCreateOrderMarketBuyRequiresCost(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		t.Fatal("validation failures must not reach the network")
		return nil, nil
	}})

	_, err := e.CreateOrder(context.Background(), "BTC/USDT", interfaces.OrderTypeMarket, interfaces.SideBuy,
		interfaces.Number{}, interfaces.Number{}, nil)
	assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)
}

func TestCreateOrderPostOnly(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"order_id":9002,"order_quantity":"0.5","order_price":"10000"}`)}
	e := newTestExchange(t, stub)

	order, err := e.CreateOrder(context.Background(), "BTC/USDT", interfaces.OrderTypeLimit, interfaces.SideSell,
		interfaces.NumberFromString("0.5"), interfaces.NumberFromString("10000"),
		interfaces.Params{"postOnly": true})
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	body, readErr := io.ReadAll(stub.requests[0].Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "order_type=POST_ONLY")
	assert.NotContains(t, string(body), "postOnly", "unified flags never leak onto the wire")

	assert.True(t, order.PostOnly)
	assert.Equal(t, interfaces.OrderTypeLimit, order.Type)
	assert.Equal(t, "0.5", order.Amount.Decimal.String())
	assert.Equal(t, "10000", order.Price.Decimal.String())
}

func TestCancelOrder(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"status":"CANCEL_SENT"}`)}
	e := newTestExchange(t, stub)

	order, err := e.CancelOrder(context.Background(), "9001", "BTC/USDT", nil)
	require.NoError(t, err)
	assert.Equal(t, "9001", order.ID)
	assert.Equal(t, interfaces.OrderStatusCanceling, order.Status)

	require.Len(t, stub.requests, 1)
	req := stub.requests[0]
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "9001", req.URL.Query().Get("order_id"), "DELETE sends parameters in the query")
	assert.Equal(t, "SPOT_BTC_USDT", req.URL.Query().Get("symbol"))
}

func TestCancelAllOrders(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"status":"CANCEL_ALL_SENT"}`)}
	e := newTestExchange(t, stub)

	orders, err := e.CancelAllOrders(context.Background(), "BTC/USDT", nil)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders, "the venue acknowledges without listing the affected orders")
}

func TestParseOrder(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	t.Run("partial fill", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "1", "symbol": "SPOT_BTC_USDT", "side": "SELL", "status": "PARTIAL_FILLED",
			"type": "LIMIT", "price": "100", "quantity": "2", "executed": "0.5",
			"average_executed_price": "100", "created_time": "1611235117.774",
		}, testMarket)

		assert.Equal(t, interfaces.OrderStatusOpen, order.Status)
		assert.Equal(t, "sell", order.Side)
		assert.Equal(t, int64(1611235117774), order.Timestamp)
		assert.Equal(t, "1.5", order.Remaining.Decimal.String())
		assert.Equal(t, "50", order.Cost.Decimal.String(), "cost is the average fill price times the filled size")
	})

	t.Run("post only collapses to limit", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "2", "symbol": "SPOT_BTC_USDT", "side": "BUY", "status": "NEW",
			"type": "POST_ONLY", "price": "100", "quantity": "1",
		}, testMarket)

		assert.Equal(t, interfaces.OrderTypeLimit, order.Type)
		assert.True(t, order.PostOnly)
	})

	t.Run("ioc collapses to limit with time in force", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "3", "symbol": "SPOT_BTC_USDT", "side": "BUY", "status": "FILLED",
			"type": "IOC", "price": "100", "quantity": "1", "executed": "1",
		}, testMarket)

		assert.Equal(t, interfaces.OrderTypeLimit, order.Type)
		assert.Equal(t, "IOC", order.TimeInForce)
		assert.Equal(t, interfaces.OrderStatusClosed, order.Status)
	})

	t.Run("quote sized market buy keeps amount absent", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "4", "symbol": "SPOT_BTC_USDT", "side": "BUY", "status": "NEW",
			"type": "MARKET", "amount": "500",
		}, testMarket)

		assert.False(t, order.Amount.Valid)
		assert.Equal(t, "500", order.Cost.Decimal.String())
	})

	t.Run("cancel sent maps to canceling", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "5", "symbol": "SPOT_BTC_USDT", "side": "BUY", "status": "CANCEL_SENT",
			"type": "LIMIT",
		}, testMarket)
		assert.Equal(t, interfaces.OrderStatusCanceling, order.Status)
	})

	t.Run("unmapped status passes through", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "6", "symbol": "SPOT_BTC_USDT", "side": "BUY", "status": "AUDITING",
			"type": "LIMIT",
		}, testMarket)
		assert.Equal(t, "AUDITING", order.Status)
	})

	t.Run("fee", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"order_id": "7", "symbol": "SPOT_BTC_USDT", "side": "BUY", "status": "FILLED",
			"type": "LIMIT", "total_fee": "0.002", "fee_asset": "BTC",
		}, testMarket)

		require.NotNil(t, order.Fee)
		assert.Equal(t, "0.002", order.Fee.Cost.Decimal.String())
		assert.Equal(t, "BTC", order.Fee.Currency)
	})
}

func TestParseMyTradeRole(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	maker := e.parseMyTrade(map[string]any{
		"id": "t1", "order_id": "o1", "symbol": "SPOT_BTC_USDT", "side": "SELL",
		"executed_price": "100", "executed_quantity": "2", "is_maker": "1",
		"executed_timestamp": "1611235117.774", "fee": "0.01", "fee_asset": "USDT",
	}, testMarket)
	assert.Equal(t, interfaces.RoleMaker, maker.TakerOrMaker)
	assert.Equal(t, "200", maker.Cost.Decimal.String())
	require.NotNil(t, maker.Fee)
	assert.Equal(t, "USDT", maker.Fee.Currency)

	taker := e.parseMyTrade(map[string]any{
		"id": "t2", "symbol": "SPOT_BTC_USDT", "is_maker": "0",
	}, testMarket)
	assert.Equal(t, interfaces.RoleTaker, taker.TakerOrMaker)

	unknown := e.parseMyTrade(map[string]any{
		"id": "t3", "symbol": "SPOT_BTC_USDT",
	}, testMarket)
	assert.Empty(t, unknown.TakerOrMaker, "the role stays open when the flag is missing")
}

func TestFetchDepositAddress(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"address":"TVxtYpiEMdJkZoZSTQ","extra":"memo-1"}`)}
	e := newTestExchange(t, stub)

	address, err := e.FetchDepositAddress(context.Background(), "USDT", interfaces.Params{"network": "TRC20"})
	require.NoError(t, err)

	assert.Equal(t, "USDT", address.Currency)
	assert.Equal(t, "TVxtYpiEMdJkZoZSTQ", address.Address)
	assert.Equal(t, "memo-1", address.Tag)
	assert.Equal(t, "TRC20", address.Network)

	require.Len(t, stub.requests, 1)
	query := stub.requests[0].URL.Query()
	assert.Equal(t, "USDT", query.Get("token"))
	assert.Equal(t, "TRC20", query.Get("network"))
}

func TestParseTransaction(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	t.Run("completed withdrawal", func(t *testing.T) {
		tx := e.parseTransaction(map[string]any{
			"id": "w1", "token": "BTC", "token_side": "WITHDRAW", "status": "COMPLETED",
			"amount": "0.5", "tx_id": "0xabc", "created_time": "1611235117.774",
			"fee_amount": "0.0005", "fee_token": "BTC",
		})

		assert.Equal(t, "withdrawal", tx.Type)
		assert.Equal(t, interfaces.TransactionOK, tx.Status)
		assert.Equal(t, "0xabc", tx.TxID)
		assert.Equal(t, int64(1611235117774), tx.Timestamp)
		require.NotNil(t, tx.Fee)
		assert.Equal(t, "0.0005", tx.Fee.Cost.Decimal.String())
	})

	t.Run("new deposit", func(t *testing.T) {
		tx := e.parseTransaction(map[string]any{
			"id": "d1", "token": "USDT", "token_side": "DEPOSIT", "status": "NEW", "amount": "100",
		})
		assert.Equal(t, "deposit", tx.Type)
		assert.Equal(t, interfaces.TransactionPending, tx.Status)
	})

	t.Run("unknown state defaults to pending", func(t *testing.T) {
		tx := e.parseTransaction(map[string]any{
			"id": "d2", "token": "BTC", "token_side": "DEPOSIT", "status": "AUDITING",
		})
		assert.Equal(t, interfaces.TransactionPending, tx.Status)
	})
}

func TestFetchWithdrawalsScopesBySide(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"rows":[]}`)}
	e := newTestExchange(t, stub)

	_, err := e.FetchWithdrawals(context.Background(), "BTC", 0, 10)
	require.NoError(t, err)

	require.Len(t, stub.requests, 1)
	query := stub.requests[0].URL.Query()
	assert.Equal(t, "BALANCE", query.Get("type"))
	assert.Equal(t, "WITHDRAW", query.Get("token_side"))
	assert.Equal(t, "BTC", query.Get("balance_token"))
}

func TestWithdrawRequiresArguments(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		t.Fatal("validation failures must not reach the network")
		return nil, nil
	}})

	_, err := e.Withdraw(context.Background(), "BTC", interfaces.Number{}, "addr", "", nil)
	assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)

	_, err = e.Withdraw(context.Background(), "BTC", interfaces.NumberFromString("1"), "", "", nil)
	assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)
}

func TestTransfer(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"success":true,"id":123}`)}
	e := newTestExchange(t, stub)

	transfer, err := e.Transfer(context.Background(), "USDT", interfaces.NumberFromString("50"), "main-app", "sub-app", nil)
	require.NoError(t, err)

	assert.Equal(t, "123", transfer.ID)
	assert.Equal(t, "main-app", transfer.FromAccount)
	assert.Equal(t, "sub-app", transfer.ToAccount)
	assert.Equal(t, interfaces.TransactionPending, transfer.Status)

	require.Len(t, stub.requests, 1)
	body, readErr := io.ReadAll(stub.requests[0].Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), "from_application_id=main-app")
	assert.Contains(t, string(body), "to_application_id=sub-app")
}

func decodeRow(t *testing.T, payload string) map[string]any {
	t.Helper()
	decoded, err := common.DecodeJSON([]byte(payload))
	require.NoError(t, err)
	row, ok := common.AsMap(decoded)
	require.True(t, ok)
	return row
}

func TestNormalizersAreIdempotent(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	tests := []struct {
		name    string
		payload string
		parse   func(map[string]any) any
	}{
		{
			"order",
			`{"order_id":"1","symbol":"SPOT_BTC_USDT","side":"SELL","status":"PARTIAL_FILLED",
			  "type":"LIMIT","price":"100","quantity":"2","executed":"0.5",
			  "average_executed_price":"100","created_time":"1611235117.774",
			  "total_fee":"0.001","fee_asset":"BTC"}`,
			func(m map[string]any) any { return e.parseOrder(m, testMarket) },
		},
		{
			"own trade",
			`{"id":"t1","order_id":"o1","symbol":"SPOT_BTC_USDT","side":"SELL",
			  "executed_price":"100","executed_quantity":"2","is_maker":"1",
			  "executed_timestamp":"1611235117.774","fee":"0.01","fee_asset":"USDT"}`,
			func(m map[string]any) any { return e.parseMyTrade(m, testMarket) },
		},
		{
			"public trade",
			`{"symbol":"SPOT_BTC_USDT","side":"BUY","executed_price":"10669.4",
			  "executed_quantity":"0.5","executed_timestamp":"1611235117.774"}`,
			func(m map[string]any) any { return e.parsePublicTrade(m, testMarket) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := decodeRow(t, tt.payload)
			first := tt.parse(row)
			second := tt.parse(row)
			assert.Equal(t, first, second, "reparsing the same payload must yield an identical record")
			assert.Equal(t, decodeRow(t, tt.payload), row, "normalizers must not mutate their input")
		})
	}
}
