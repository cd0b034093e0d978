package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/veiloq/exchange-adapters/pkg/exchanges/bigone"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/interfaces"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/okcoin"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/tokocrypto"
	"github.com/veiloq/exchange-adapters/pkg/exchanges/woo"
	"github.com/veiloq/exchange-adapters/pkg/logging"
)

// decimalString renders an optional decimal for logging. Absent values show
// as "-" rather than a misleading zero.
func decimalString(n interfaces.Number) string {
	if !n.Valid {
		return "-"
	}
	return n.Decimal.String()
}

func main() {
	// Credentials come from the environment; a local .env is a convenience,
	// not a requirement.
	_ = godotenv.Load()

	logger := logging.NewLogger()
	logger.SetLevel(logging.DEBUG)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	adapters := map[string]interfaces.Exchange{
		"bigone": bigone.New(interfaces.NewExchangeOptions().
			WithCredentials(os.Getenv("BIGONE_API_KEY"), os.Getenv("BIGONE_API_SECRET"))),
		"okcoin": okcoin.New(interfaces.NewExchangeOptions().
			WithCredentials(os.Getenv("OKCOIN_API_KEY"), os.Getenv("OKCOIN_API_SECRET")).
			WithPassphrase(os.Getenv("OKCOIN_PASSPHRASE"))),
		"tokocrypto": tokocrypto.New(interfaces.NewExchangeOptions().
			WithCredentials(os.Getenv("TOKOCRYPTO_API_KEY"), os.Getenv("TOKOCRYPTO_API_SECRET"))),
		"woo": woo.New(interfaces.NewExchangeOptions().
			WithCredentials(os.Getenv("WOO_API_KEY"), os.Getenv("WOO_API_SECRET"))),
	}

	for name, adapter := range adapters {
		desc := adapter.Describe()
		logger.Info("adapter capabilities",
			logging.String("exchange", name),
			logging.String("version", desc.Version),
			logging.Bool("fetchTicker", desc.Has["fetchTicker"]),
			logging.Bool("transfer", desc.Has["transfer"]),
		)
	}

	// Market data round trip against BigONE, which needs no credentials for
	// public endpoints.
	exchange := adapters["bigone"]

	markets, err := exchange.LoadMarkets(ctx, false)
	if err != nil {
		logger.Error("failed to load markets", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("markets loaded", logging.Int("count", len(markets)))

	ticker, err := exchange.FetchTicker(ctx, "BTC/USDT")
	if err != nil {
		logger.Error("failed to fetch ticker", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("ticker",
		logging.String("symbol", ticker.Symbol),
		logging.String("last", decimalString(ticker.Last)),
		logging.String("bid", decimalString(ticker.Bid)),
		logging.String("ask", decimalString(ticker.Ask)),
	)

	book, err := exchange.FetchOrderBook(ctx, "BTC/USDT", 25)
	if err != nil {
		logger.Error("failed to fetch order book", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("order book",
		logging.String("symbol", book.Symbol),
		logging.Int("bid_levels", len(book.Bids)),
		logging.Int("ask_levels", len(book.Asks)),
	)

	since := time.Now().Add(-time.Hour).UnixMilli()
	candles, err := exchange.FetchOHLCV(ctx, "BTC/USDT", "1m", since, 60)
	if err != nil {
		logger.Error("failed to fetch candles", logging.Error(err))
		os.Exit(1)
	}
	for _, candle := range candles {
		logger.Debug("candle",
			logging.String("time", time.UnixMilli(candle.Timestamp).UTC().Format(time.RFC3339)),
			logging.Float64("open", candle.Open),
			logging.Float64("close", candle.Close),
			logging.Float64("volume", candle.Volume),
		)
	}
	logger.Info("candles fetched", logging.Int("count", len(candles)))

	// Private endpoints only run when credentials are configured.
	if os.Getenv("BIGONE_API_KEY") == "" {
		logger.Info("no credentials configured, skipping account calls")
		return
	}

	balances, err := exchange.FetchBalance(ctx, nil)
	if err != nil {
		logger.Error("failed to fetch balance", logging.Error(err))
		os.Exit(1)
	}
	for code, balance := range balances.Assets {
		logger.Info("balance",
			logging.String("asset", code),
			logging.String("free", decimalString(balance.Free)),
			logging.String("used", decimalString(balance.Used)),
		)
	}

	openOrders, err := exchange.FetchOpenOrders(ctx, "BTC/USDT", 0, 50)
	if err != nil {
		logger.Error("failed to fetch open orders", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("open orders", logging.Int("count", len(openOrders)))
}
