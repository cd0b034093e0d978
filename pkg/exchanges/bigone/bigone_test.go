package bigone

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/ratelimit"
)

// stubHTTPClient satisfies common.HTTPClient with canned responses, recording
// every request so tests can assert on URLs, headers and bodies.
type stubHTTPClient struct {
	respond  func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

func (s *stubHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
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

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func respondWith(body string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	}
}

var testMarket = &interfaces.Market{
	ID:     "BTC-USDT",
	Symbol: "BTC/USDT",
	Base:   "BTC",
	Quote:  "USDT",
	Type:   interfaces.MarketTypeSpot,
	Spot:   true,
}

// newTestExchange builds an adapter whose transport is replaced by the stub
// and whose markets table is preloaded, so no call touches the network.
func newTestExchange(t *testing.T, stub *stubHTTPClient) *Exchange {
	t.Helper()
	e := New(interfaces.NewExchangeOptions().WithCredentials("test-key", "test-secret"))
	e.http = stub
	e.markets.Store([]*interfaces.Market{testMarket})
	return e
}

func TestDescribe(t *testing.T) {
	e := New(nil)
	desc := e.Describe()

	assert.Equal(t, "bigone", desc.ID)
	assert.Equal(t, "v3", desc.Version)
	assert.True(t, desc.RequiredCredentials.APIKey)
	assert.True(t, desc.RequiredCredentials.Secret)
	assert.False(t, desc.RequiredCredentials.Passphrase)
	assert.Equal(t, "hour1", desc.Timeframes["1h"])
	assert.True(t, desc.Has["transfer"])
	assert.NotEmpty(t, desc.URLs.API["public"])
	assert.NotEmpty(t, desc.URLs.API["private"])
}

func TestSignPublic(t *testing.T) {
	e := New(nil)
	req, err := e.sign("asset_pairs", "public", http.MethodGet, interfaces.Params{"limit": 5})
	require.NoError(t, err)

	assert.Equal(t, "https://big.one/api/v3/asset_pairs?limit=5", req.URL)
	assert.Empty(t, req.Headers.Get("Authorization"), "public calls carry no bearer token")
	assert.Empty(t, req.Body)
}

func TestSignPrivateJWT(t *testing.T) {
	e := New(interfaces.NewExchangeOptions().WithCredentials("test-key", "test-secret"))
	req, err := e.sign("accounts", "private", http.MethodGet, nil)
	require.NoError(t, err)

	auth := req.Headers.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "), "expected a bearer token, got %q", auth)

	parsed, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(token *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err, "token must verify against the configured secret")
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "OpenAPIV2", claims["type"])
	assert.Equal(t, "test-key", claims["sub"])

	nonce, ok := claims["nonce"].(string)
	require.True(t, ok, "nonce travels as a string claim")
	n, err := strconv.ParseInt(nonce, 10, 64)
	require.NoError(t, err)
	assert.Greater(t, n, int64(1e18), "nonce must be a nanosecond epoch value")
}

func TestSignPrivateRequiresCredentials(t *testing.T) {
	e := New(nil)
	_, err := e.sign("accounts", "private", http.MethodGet, nil)
	assert.ErrorIs(t, err, interfaces.ErrAuthentication)
}

func TestHandleResponse(t *testing.T) {
	e := New(nil)

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"insufficient funds code", 200, `{"code":10014,"message":"Insufficient funds"}`, interfaces.ErrInsufficientFunds},
		{"auth code", 200, `{"code":40103,"message":"invalid signature"}`, interfaces.ErrAuthentication},
		{"broad message match", 200, `{"code":88888,"message":"account balance is not enough"}`, interfaces.ErrInsufficientFunds},
		{"unknown code", 200, `{"code":99999,"message":"novel failure"}`, interfaces.ErrExchangeError},
		{"maintenance page", 503, `<html>down</html>`, interfaces.ErrExchangeNotAvailable},
		{"garbage body", 200, `<html>gateway</html>`, interfaces.ErrBadResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.handleResponse(tt.status, []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *interfaces.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.body, apiErr.Body, "the raw body must survive classification")
		})
	}

	t.Run("success unwraps data", func(t *testing.T) {
		data, err := e.handleResponse(200, []byte(`{"code":0,"data":[{"id":"1"}]}`))
		require.NoError(t, err)
		rows, ok := data.([]any)
		require.True(t, ok)
		assert.Len(t, rows, 1)
	})
}

func TestFetchMarkets(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":0,"data":[
		{"name":"BTC-USDT","quote_scale":2,"base_scale":6,"min_quote_value":"5",
		 "base_asset":{"symbol":"BTC","name":"Bitcoin"},
		 "quote_asset":{"symbol":"USDT","name":"Tether"}}]}`)}
	e := newTestExchange(t, stub)

	markets, err := e.FetchMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, "BTC-USDT", m.ID)
	assert.Equal(t, "BTC/USDT", m.Symbol)
	assert.Equal(t, "BTC", m.Base)
	assert.Equal(t, "USDT", m.Quote)
	assert.True(t, m.Spot)
	assert.Equal(t, "6", m.Precision.Amount.Decimal.String())
	assert.Equal(t, "2", m.Precision.Price.Decimal.String())
	assert.Equal(t, "5", m.Limits.Cost.Min.Decimal.String())

	require.Len(t, stub.requests, 1)
	assert.Contains(t, stub.requests[0].URL.String(), "/asset_pairs")
}

func TestFetchTicker(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":0,"data":{
		"asset_pair_name":"BTC-USDT","close":"62001.5","open":"61000","high":"63000","low":"60500",
		"daily_change":"1001.5","volume":"120.5",
		"bid":{"price":"62000","quantity":"0.5"},
		"ask":{"price":"62002","quantity":"0.7"}}}`)}
	e := newTestExchange(t, stub)

	ticker, err := e.FetchTicker(context.Background(), "BTC/USDT")
	require.NoError(t, err)

	assert.Equal(t, "BTC/USDT", ticker.Symbol)
	assert.Equal(t, "62001.5", ticker.Last.Decimal.String())
	assert.Equal(t, ticker.Close, ticker.Last)
	assert.Equal(t, "62000", ticker.Bid.Decimal.String())
	assert.Equal(t, "0.5", ticker.BidVolume.Decimal.String())
	assert.Equal(t, "62002", ticker.Ask.Decimal.String())
	assert.Equal(t, "1001.5", ticker.Change.Decimal.String())
	assert.False(t, ticker.VWAP.Valid, "unreported fields stay absent")
}

func TestFetchOrderBookEmptySides(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":0,"data":{"bids":[],"asks":[
		{"price":"62002","quantity":"0.7"}]}}`)}
	e := newTestExchange(t, stub)

	book, err := e.FetchOrderBook(context.Background(), "BTC/USDT", 10)
	require.NoError(t, err)

	assert.NotNil(t, book.Bids, "an empty side is an empty slice, not nil")
	assert.Empty(t, book.Bids)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, "62002", book.Asks[0].Price.Decimal.String())
}

func TestParseTradeRoles(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	base := map[string]any{
		"id":              "t1",
		"asset_pair_name": "BTC-USDT",
		"created_at":      "2020-01-01T00:00:00Z",
		"taker_side":      "BID",
		"price":           "100",
		"amount":          "2",
	}
	with := func(extra map[string]any) map[string]any {
		m := make(map[string]any, len(base)+len(extra))
		for k, v := range base {
			m[k] = v
		}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	t.Run("public trade has no role", func(t *testing.T) {
		trade := e.parseTrade(with(nil), testMarket)
		assert.Equal(t, interfaces.SideBuy, trade.Side)
		assert.Empty(t, trade.TakerOrMaker)
		assert.Equal(t, int64(1577836800000), trade.Timestamp)
		assert.Equal(t, "200", trade.Cost.Decimal.String())
	})

	t.Run("own maker trade", func(t *testing.T) {
		trade := e.parseTrade(with(map[string]any{
			"order_id":       "o1",
			"maker_order_id": "o1",
			"taker_order_id": "o2",
		}), testMarket)
		assert.Equal(t, interfaces.RoleMaker, trade.TakerOrMaker)
		assert.Equal(t, "o1", trade.OrderID)
	})

	t.Run("own taker trade", func(t *testing.T) {
		trade := e.parseTrade(with(map[string]any{
			"order_id":       "o2",
			"maker_order_id": "o1",
			"taker_order_id": "o2",
		}), testMarket)
		assert.Equal(t, interfaces.RoleTaker, trade.TakerOrMaker)
	})

	t.Run("self trade role stays empty", func(t *testing.T) {
		trade := e.parseTrade(with(map[string]any{
			"order_id":       "o1",
			"maker_order_id": "o1",
			"taker_order_id": "o1",
		}), testMarket)
		assert.Empty(t, trade.TakerOrMaker, "a self-trade matches both sides, the role is undefined")
	})

	t.Run("both counterparty fees kept as a pair", func(t *testing.T) {
		trade := e.parseTrade(with(map[string]any{
			"maker_fee": "0.01",
			"taker_fee": "0.02",
		}), testMarket)
		require.Len(t, trade.Fees, 2)
		assert.Nil(t, trade.Fee)
		assert.Equal(t, "BTC", trade.Fees[0].Currency, "buy side fees are paid in base")
	})
}

func TestParseOHLCV(t *testing.T) {
	candle := parseOHLCV(map[string]any{
		"open":   "1",
		"high":   "2",
		"low":    "0.5",
		"close":  "1.5",
		"volume": "10",
		"time":   "2020-01-01T00:00:00Z",
	})

	assert.Equal(t, int64(1577836800000), candle.Timestamp)
	assert.Equal(t, 1.0, candle.Open)
	assert.Equal(t, 2.0, candle.High)
	assert.Equal(t, 0.5, candle.Low)
	assert.Equal(t, 1.5, candle.Close)
	assert.Equal(t, 10.0, candle.Volume)
}

func TestFetchBalance(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":0,"data":[
		{"asset_symbol":"BTC","balance":"1.5","locked_balance":"0.5"},
		{"asset_symbol":"USDT","balance":"1000","locked_balance":"0"}]}`)}
	e := newTestExchange(t, stub)

	balances, err := e.FetchBalance(context.Background(), nil)
	require.NoError(t, err)

	btc := balances.Assets["BTC"]
	assert.Equal(t, "1.5", btc.Total.Decimal.String())
	assert.Equal(t, "0.5", btc.Used.Decimal.String())
	assert.Equal(t, "1", btc.Free.Decimal.String(), "free is derived as total minus locked")

	usdt := balances.Assets["USDT"]
	assert.Equal(t, "1000", usdt.Free.Decimal.String())
}

func TestCreateOrderMarketBuy(t *testing.T) {
	t.Run("requires a cost", func(t *testing.T) {
		stub := &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
			t.Fatal("validation failures must not reach the network")
			return nil, nil
		}}
		e := newTestExchange(t, stub)
		_, err := e.CreateOrder(context.Background(), "BTC/USDT", interfaces.OrderTypeMarket, interfaces.SideBuy,
			interfaces.Number{}, interfaces.Number{}, nil)
		assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)
	})

	t.Run("cost travels in the amount field", func(t *testing.T) {
		stub := &stubHTTPClient{respond: respondWith(`{"code":0,"data":{
			"id":"42","asset_pair_name":"BTC-USDT","side":"BID","type":"MARKET",
			"amount":"100","state":"PENDING","created_at":"2020-01-01T00:00:00Z"}}`)}
		e := newTestExchange(t, stub)

		order, err := e.CreateOrder(context.Background(), "BTC/USDT", interfaces.OrderTypeMarket, interfaces.SideBuy,
			interfaces.Number{}, interfaces.Number{}, interfaces.Params{"cost": "100"})
		require.NoError(t, err)

		require.Len(t, stub.requests, 1)
		raw, err := io.ReadAll(stub.requests[0].Body)
		require.NoError(t, err)
		var sent map[string]any
		require.NoError(t, json.Unmarshal(raw, &sent))
		assert.Equal(t, "100", sent["amount"])
		assert.Equal(t, "BID", sent["side"])
		assert.Equal(t, "MARKET", sent["type"])
		_, hasCost := sent["cost"]
		assert.False(t, hasCost, "the unified cost key must not leak to the venue")

		assert.Equal(t, "42", order.ID)
		assert.Equal(t, interfaces.OrderStatusOpen, order.Status)
		assert.False(t, order.Amount.Valid, "market buy amount is a quote cost, not a base quantity")
		assert.Equal(t, "100", order.Cost.Decimal.String())
	})
}

func TestParseOrder(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	t.Run("limit order derives remaining and cost", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"id":              "7",
			"asset_pair_name": "BTC-USDT",
			"side":            "ASK",
			"type":            "LIMIT",
			"price":           "100",
			"amount":          "2",
			"filled_amount":   "0.5",
			"avg_deal_price":  "99",
			"state":           "PENDING",
			"created_at":      "2020-01-01T00:00:00Z",
		}, nil)

		assert.Equal(t, interfaces.SideSell, order.Side)
		assert.Equal(t, interfaces.OrderTypeLimit, order.Type)
		assert.Equal(t, interfaces.OrderStatusOpen, order.Status)
		assert.Equal(t, "1.5", order.Remaining.Decimal.String())
		assert.Equal(t, "49.5", order.Cost.Decimal.String(), "cost is average price times filled")
	})

	t.Run("unmapped state passes through", func(t *testing.T) {
		order := e.parseOrder(map[string]any{"id": "8", "state": "FROZEN"}, nil)
		assert.Equal(t, "FROZEN", order.Status)
	})
}

func TestParseTransactionDirection(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	deposit := e.parseTransaction(map[string]any{
		"id": "d1", "asset_symbol": "BTC", "state": "CONFIRMED",
		"inserted_at": "2020-01-01T00:00:00Z",
	})
	assert.Equal(t, "deposit", deposit.Type)
	assert.Equal(t, interfaces.TransactionOK, deposit.Status)

	withdrawal := e.parseTransaction(map[string]any{
		"id": "w1", "asset_symbol": "BTC", "state": "PENDING", "customer_id": "c9",
		"withdrawal_fee": "0.0005",
	})
	assert.Equal(t, "withdrawal", withdrawal.Type)
	assert.Equal(t, interfaces.TransactionPending, withdrawal.Status)
	require.NotNil(t, withdrawal.Fee)
	assert.Equal(t, "0.0005", withdrawal.Fee.Cost.Decimal.String())
}

func TestTransferRejectsUnknownAccounts(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})
	_, err := e.Transfer(context.Background(), "BTC", interfaces.NumberFromString("1"), "margin", "spot", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrBadRequest)
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
			`{"id":"7","asset_pair_name":"BTC-USDT","side":"ASK","type":"LIMIT",
			  "price":"100","amount":"2","filled_amount":"0.5","avg_deal_price":"99",
			  "state":"PENDING","created_at":"2020-01-01T00:00:00Z"}`,
			func(m map[string]any) any { return e.parseOrder(m, testMarket) },
		},
		{
			"trade",
			`{"id":"t1","asset_pair_name":"BTC-USDT","created_at":"2020-01-01T00:00:00Z",
			  "taker_side":"BID","price":"100","amount":"2",
			  "order_id":"o1","maker_order_id":"o1","taker_order_id":"o2"}`,
			func(m map[string]any) any { return e.parseTrade(m, testMarket) },
		},
		{
			"ticker",
			`{"asset_pair_name":"BTC-USDT","close":"62001.5","open":"61000","high":"63000",
			  "low":"60500","daily_change":"1001.5","volume":"120.5",
			  "bid":{"price":"62000","quantity":"0.5"},"ask":{"price":"62002","quantity":"0.7"}}`,
			func(m map[string]any) any { return e.parseTicker(m, testMarket) },
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
