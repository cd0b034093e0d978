package common

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/veiloq/exchange-adapters/pkg/logging"
)

// DebugClientExample demonstrates how to use the debug HTTP client against a
// public exchange endpoint.
func DebugClientExample() {
	// Create a debug client with default config
	client := NewDebugHTTPClient(nil)

	// Create context
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Make a GET request to a public market-data endpoint with retry
	var resp *http.Response
	err := retry.Do(
		func() error {
			var reqErr error
			resp, reqErr = client.Get(ctx, "https://big.one/api/v3/ping")
			return reqErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			fmt.Printf("Retry attempt %d due to error: %v\n", n+1, err)
		}),
	)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Response status: %s\n", resp.Status)
}

// CustomDebugClientExample demonstrates how to create a debug client with custom configuration
func CustomDebugClientExample() {
	// Create a custom debug client config
	config := &DebugClientConfig{
		ClientConfig: &ClientConfig{
			BaseURL:    "https://api.woo.org",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			RetryDelay: 500 * time.Millisecond,
			// Create a zap logger with debug level
			Logger: logging.NewZapLogger(
				logging.WithDebugLevel(),
				logging.WithDevelopmentMode(),
			),
		},
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodyLogSize:  8192, // 8KB
	}

	// Create client with custom config
	client := NewDebugHTTPClient(config)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var resp *http.Response
	err := retry.Do(
		func() error {
			var reqErr error
			resp, reqErr = client.Get(ctx, "https://api.woo.org/v1/public/info")
			if reqErr != nil {
				return reqErr
			}
			// Retry on non-2xx status codes
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				return fmt.Errorf("API returned status code %d: %s", resp.StatusCode, string(body))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			fmt.Printf("Retry attempt %d due to error: %v\n", n+1, err)
		}),
	)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Printf("Response status: %s\n", resp.Status)
}
