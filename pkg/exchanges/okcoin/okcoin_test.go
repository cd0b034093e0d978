package okcoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veiloq/exchange-adapters/pkg/common"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/ratelimit"
)

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

func respondWith(body string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
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

func newTestExchange(t *testing.T, stub *stubHTTPClient) *Exchange {
	t.Helper()
	options := interfaces.NewExchangeOptions().WithCredentials("test-key", "test-secret").WithPassphrase("test-pass")
	e := New(options)
	e.http = stub
	e.markets.Store([]*interfaces.Market{testMarket})
	return e
}

func TestDescribe(t *testing.T) {
	desc := New(nil).Describe()

	assert.Equal(t, "okcoin", desc.ID)
	assert.Equal(t, "v5", desc.Version)
	assert.True(t, desc.RequiredCredentials.Passphrase, "private calls need the passphrase header")
	assert.Equal(t, "1H", desc.Timeframes["1h"])
	assert.Equal(t, "1m", desc.Timeframes["1m"])
	assert.Equal(t, "1M", desc.Timeframes["1M"])
}

func TestSignPublic(t *testing.T) {
	e := New(nil)
	req, err := e.sign("api/v5/public/instruments", "public", http.MethodGet, interfaces.Params{"instType": "SPOT"})
	require.NoError(t, err)

	assert.Equal(t, "https://www.okcoin.com/api/v5/public/instruments?instType=SPOT", req.URL)
	assert.Empty(t, req.Headers.Get("OK-ACCESS-KEY"))
	assert.Empty(t, req.Headers.Get("OK-ACCESS-SIGN"))
}

func TestSignPrivate(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})
	req, err := e.sign("api/v5/account/balance", "private", http.MethodGet, interfaces.Params{"ccy": "BTC"})
	require.NoError(t, err)

	assert.Equal(t, "test-key", req.Headers.Get("OK-ACCESS-KEY"))
	assert.Equal(t, "test-pass", req.Headers.Get("OK-ACCESS-PASSPHRASE"))

	timestamp := req.Headers.Get("OK-ACCESS-TIMESTAMP")
	parsed, err := time.Parse("2006-01-02T15:04:05.000Z", timestamp)
	require.NoError(t, err, "timestamp must be ISO with millisecond precision")
	assert.WithinDuration(t, time.Now(), parsed, time.Minute)

	// The signature covers timestamp + method + path-with-query + body.
	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(timestamp + http.MethodGet + "/api/v5/account/balance?ccy=BTC"))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, req.Headers.Get("OK-ACCESS-SIGN"))
}

func TestSignPrivateRequiresPassphrase(t *testing.T) {
	e := New(interfaces.NewExchangeOptions().WithCredentials("k", "s"))
	_, err := e.sign("api/v5/account/balance", "private", http.MethodGet, nil)
	assert.ErrorIs(t, err, interfaces.ErrAuthentication)
}

func TestHandleResponse(t *testing.T) {
	e := New(nil)

	t.Run("envelope error code", func(t *testing.T) {
		_, err := e.handleResponse(200, []byte(`{"code":"51008","msg":"Order failed. Insufficient balance","data":[]}`))
		assert.ErrorIs(t, err, interfaces.ErrInsufficientFunds)
	})

	t.Run("item level sCode surfaces when the summary is silent", func(t *testing.T) {
		_, err := e.handleResponse(200, []byte(`{"code":"1","msg":"","data":[{"sCode":"51400","sMsg":"cancellation failed as the order does not exist"}]}`))
		assert.ErrorIs(t, err, interfaces.ErrOrderNotFound)
	})

	t.Run("success unwraps data", func(t *testing.T) {
		data, err := e.handleResponse(200, []byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT"}]}`))
		require.NoError(t, err)
		rows, err := dataList(data)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("503 maps to unavailable", func(t *testing.T) {
		_, err := e.handleResponse(503, []byte("upstream down"))
		assert.ErrorIs(t, err, interfaces.ErrExchangeNotAvailable)
	})
}

func TestFetchMarkets(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":"0","msg":"","data":[
		{"instId":"BTC-USDT","baseCcy":"BTC","quoteCcy":"USDT","state":"live",
		 "lotSz":"0.0001","tickSz":"0.1","minSz":"0.0001","maxLmtSz":"9999"},
		{"instId":"LTC-USDT","baseCcy":"LTC","quoteCcy":"USDT","state":"suspend",
		 "lotSz":"0.01","tickSz":"0.01","minSz":"0.01"}]}`)}
	e := newTestExchange(t, stub)

	markets, err := e.FetchMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)

	btc := markets[0]
	assert.Equal(t, "BTC/USDT", btc.Symbol)
	assert.True(t, btc.Active)
	assert.Equal(t, "0.0001", btc.Precision.Amount.Decimal.String(), "precision is a tick size on this venue")
	assert.Equal(t, "0.1", btc.Precision.Price.Decimal.String())
	assert.Equal(t, "9999", btc.Limits.Amount.Max.Decimal.String())

	assert.False(t, markets[1].Active, "suspended instruments are inactive")
}

func TestFetchOHLCVReversesIntoAscendingOrder(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":"0","msg":"","data":[
		["1622505780000","37.5","38","37","37.8","120"],
		["1622505720000","37.2","37.6","37.1","37.5","95"],
		["1622505660000","37","37.3","36.9","37.2","80"]]}`)}
	e := newTestExchange(t, stub)

	candles, err := e.FetchOHLCV(context.Background(), "BTC/USDT", "1m", 1622505660000, 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, int64(1622505660000), candles[0].Timestamp, "venue order is newest first and must be reversed")
	assert.Equal(t, int64(1622505780000), candles[2].Timestamp)
	assert.Equal(t, 37.8, candles[2].Close)

	require.Len(t, stub.requests, 1)
	query := stub.requests[0].URL.Query()
	assert.Equal(t, "1m", query.Get("bar"))
	assert.Equal(t, "1622505659999", query.Get("before"), "the before cursor is exclusive")
}

func TestFetchBalance(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":"0","msg":"","data":[
		{"uTime":"1622505600000","details":[
			{"ccy":"BTC","availBal":"1","frozenBal":"0.5","cashBal":"1.5"},
			{"ccy":"USDT","availBal":"100","frozenBal":"0"}]}]}`)}
	e := newTestExchange(t, stub)

	balances, err := e.FetchBalance(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1622505600000), balances.Timestamp)

	btc := balances.Assets["BTC"]
	assert.Equal(t, "1", btc.Free.Decimal.String())
	assert.Equal(t, "0.5", btc.Used.Decimal.String())
	assert.Equal(t, "1.5", btc.Total.Decimal.String())

	usdt := balances.Assets["USDT"]
	assert.Equal(t, "100", usdt.Total.Decimal.String(), "total falls back to free plus frozen")
}

func TestCreateOrderMarketBuyRequiresCost(t *testing.T) {
	stub := &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		t.Fatal("validation failures must not reach the network")
		return nil, nil
	}}
	e := newTestExchange(t, stub)

	_, err := e.CreateOrder(context.Background(), "BTC/USDT", interfaces.OrderTypeMarket, interfaces.SideBuy,
		interfaces.Number{}, interfaces.Number{}, nil)
	assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)
}

func TestParseOrder(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	t.Run("post_only collapses to limit", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"ordId": "1", "instId": "BTC-USDT", "side": "sell", "state": "live",
			"ordType": "post_only", "px": "100", "sz": "2", "accFillSz": "0",
			"cTime": "1622505600000",
		}, testMarket)

		assert.Equal(t, interfaces.OrderTypeLimit, order.Type)
		assert.True(t, order.PostOnly)
		assert.Equal(t, interfaces.OrderStatusOpen, order.Status)
		assert.Equal(t, "2", order.Remaining.Decimal.String())
	})

	t.Run("ioc collapses to limit with time in force", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"ordId": "2", "instId": "BTC-USDT", "side": "buy", "state": "filled",
			"ordType": "ioc", "px": "100", "sz": "1", "accFillSz": "1", "avgPx": "99.5",
		}, testMarket)

		assert.Equal(t, interfaces.OrderTypeLimit, order.Type)
		assert.Equal(t, "IOC", order.TimeInForce)
		assert.Equal(t, interfaces.OrderStatusClosed, order.Status)
		assert.Equal(t, "99.5", order.Cost.Decimal.String())
	})

	t.Run("quote sized market buy keeps amount absent", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"ordId": "3", "instId": "BTC-USDT", "side": "buy", "state": "live",
			"ordType": "market", "sz": "500", "tgtCcy": "quote_ccy",
		}, testMarket)

		assert.False(t, order.Amount.Valid)
		assert.Equal(t, "500", order.Cost.Decimal.String())
	})

	t.Run("fee delta is negated", func(t *testing.T) {
		order := e.parseOrder(map[string]any{
			"ordId": "4", "instId": "BTC-USDT", "side": "buy", "state": "filled",
			"ordType": "limit", "sz": "1", "fee": "-0.001", "feeCcy": "BTC",
		}, testMarket)

		require.NotNil(t, order.Fee)
		assert.Equal(t, "0.001", order.Fee.Cost.Decimal.String())
		assert.Equal(t, "BTC", order.Fee.Currency)
	})
}

func TestParseFillRole(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	taker := e.parseFill(map[string]any{
		"tradeId": "t1", "ordId": "o1", "instId": "BTC-USDT", "side": "buy",
		"execType": "T", "fillPx": "100", "fillSz": "2", "ts": "1622505600000",
	}, testMarket)
	assert.Equal(t, interfaces.RoleTaker, taker.TakerOrMaker)
	assert.Equal(t, "200", taker.Cost.Decimal.String())

	maker := e.parseFill(map[string]any{
		"tradeId": "t2", "instId": "BTC-USDT", "execType": "M",
	}, testMarket)
	assert.Equal(t, interfaces.RoleMaker, maker.TakerOrMaker)
}

func TestParseTransaction(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{})

	t.Run("wdId marks a withdrawal", func(t *testing.T) {
		tx := e.parseTransaction(map[string]any{
			"wdId": "w1", "ccy": "BTC", "chain": "BTC-Bitcoin", "state": "-2",
			"amt": "0.5", "ts": "1622505600000",
		})
		assert.Equal(t, "withdrawal", tx.Type)
		assert.Equal(t, interfaces.TransactionCanceled, tx.Status)
		assert.Equal(t, "Bitcoin", tx.Network, "the chain prefix is the currency, not the network")
	})

	t.Run("depId marks a deposit", func(t *testing.T) {
		tx := e.parseTransaction(map[string]any{
			"depId": "d1", "ccy": "USDT", "chain": "USDT-TRC20", "state": "2",
			"amt": "100",
		})
		assert.Equal(t, "deposit", tx.Type)
		assert.Equal(t, interfaces.TransactionOK, tx.Status)
		assert.Equal(t, "TRC20", tx.Network)
	})

	t.Run("unknown state defaults to pending", func(t *testing.T) {
		tx := e.parseTransaction(map[string]any{"depId": "d2", "ccy": "BTC", "state": "9"})
		assert.Equal(t, interfaces.TransactionPending, tx.Status)
	})
}

func TestTransferRequiresCodeAndAmount(t *testing.T) {
	e := newTestExchange(t, &stubHTTPClient{respond: func(req *http.Request) (*http.Response, error) {
		t.Fatal("validation failures must not reach the network")
		return nil, nil
	}})

	_, err := e.Transfer(context.Background(), "", interfaces.Number{}, "spot", "funding", nil)
	assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)

	_, err = e.Transfer(context.Background(), "BTC", interfaces.Number{}, "spot", "funding", nil)
	assert.ErrorIs(t, err, interfaces.ErrArgumentsRequired)
}

func TestTransferMapsAccountIDs(t *testing.T) {
	stub := &stubHTTPClient{respond: respondWith(`{"code":"0","msg":"","data":[
		{"transId":"tr1","ccy":"BTC","amt":"1","from":"6","to":"18"}]}`)}
	e := newTestExchange(t, stub)

	transfer, err := e.Transfer(context.Background(), "BTC", interfaces.NumberFromString("1"), "funding", "spot", nil)
	require.NoError(t, err)

	assert.Equal(t, "tr1", transfer.ID)
	assert.Equal(t, "funding", transfer.FromAccount)
	assert.Equal(t, "spot", transfer.ToAccount)
	assert.Equal(t, interfaces.TransactionOK, transfer.Status)
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
			`{"ordId":"2","instId":"BTC-USDT","side":"buy","state":"filled","ordType":"ioc",
			  "px":"100","sz":"1","accFillSz":"1","avgPx":"99.5","cTime":"1622505600000",
			  "fee":"-0.001","feeCcy":"BTC"}`,
			func(m map[string]any) any { return e.parseOrder(m, testMarket) },
		},
		{
			"fill",
			`{"tradeId":"t1","ordId":"o1","instId":"BTC-USDT","side":"buy","execType":"T",
			  "fillPx":"100","fillSz":"2","ts":"1622505600000"}`,
			func(m map[string]any) any { return e.parseFill(m, testMarket) },
		},
		{
			"ticker",
			`{"instId":"BTC-USDT","last":"62001.5","bidPx":"62001","bidSz":"0.5",
			  "askPx":"62002","askSz":"0.7","open24h":"61000","high24h":"63000",
			  "low24h":"60500","vol24h":"120.5","volCcy24h":"7470000","ts":"1622505600000"}`,
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
