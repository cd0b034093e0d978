package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// Common error kinds an adapter may classify a vendor failure into.
// Adapters never return these bare; they wrap them in an APIError carrying the
// raw vendor payload so callers can both branch with errors.Is and debug with
// the original body.
var (
	// ErrAuthentication covers missing, malformed or rejected credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrPermissionDenied is returned when credentials are valid but lack the
	// permission for the requested operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInsufficientFunds is returned when the account balance cannot cover
	// an order or withdrawal.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidOrder covers bad prices, bad amounts and illegal order state
	// transitions (e.g. canceling an already-filled order).
	ErrInvalidOrder = errors.New("invalid order")

	// ErrBadRequest covers malformed requests the venue rejected outright.
	ErrBadRequest = errors.New("bad request")

	// ErrBadSymbol is returned for unknown or unsupported trading pairs.
	ErrBadSymbol = errors.New("unknown symbol")

	// ErrRateLimitExceeded is returned when the venue throttled the call.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrExchangeError is the generic kind for exchange-side failures that
	// match no more specific table entry.
	ErrExchangeError = errors.New("exchange error")

	// ErrExchangeNotAvailable is returned during maintenance windows and
	// availability outages (e.g. HTTP 503 without a structured body).
	ErrExchangeNotAvailable = errors.New("exchange unavailable")

	// ErrArgumentsRequired is raised locally, before any network call, when
	// the caller omitted a mandatory parameter.
	ErrArgumentsRequired = errors.New("required argument missing")

	// ErrNotSupported is returned when the operation does not exist for this
	// venue, market or account type.
	ErrNotSupported = errors.New("operation not supported")

	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrRequestTimeout is returned when the venue reported a timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrBadResponse is returned when the response body cannot be interpreted
	// in the documented shape.
	ErrBadResponse = errors.New("malformed exchange response")
)

// APIError is a classified vendor failure. Kind is one of the sentinel error
// kinds above; Body preserves the raw response so the message is always
// debuggable, never just the classified kind in isolation.
type APIError struct {
	Exchange string
	Kind     error
	Code     string
	Message  string
	Body     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Exchange)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Code != "" {
		fmt.Fprintf(&b, " (code %s)", e.Code)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	} else if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap exposes the classified kind for errors.Is checks.
func (e *APIError) Unwrap() error {
	return e.Kind
}

// NewAPIError builds a classified vendor error.
func NewAPIError(exchange string, kind error, code, message, body string) *APIError {
	return &APIError{
		Exchange: exchange,
		Kind:     kind,
		Code:     code,
		Message:  message,
		Body:     body,
	}
}

// Substring pairs a fragment of a vendor error message with the error kind it
// implies. Entries are evaluated in declaration order; the first match wins.
type Substring struct {
	Match string
	Kind  error
}

// ErrorTable maps a venue's error vocabulary onto the unified kinds.
//
// Classification is three-tiered: exact match of the vendor code, then exact
// match of the vendor message, then ordered substring match of the message.
// Vendors are inconsistent even with themselves (sometimes a code, sometimes
// only a message), so all three tiers are needed for coverage without
// per-call special-casing.
type ErrorTable struct {
	Exact map[string]error
	Broad []Substring
}

// Classify resolves a vendor failure to an APIError. It never returns nil; a
// failure that matches no table entry becomes a generic ErrExchangeError still
// carrying the raw body for diagnostics.
func (t ErrorTable) Classify(exchange, code, message, body string) *APIError {
	if kind, ok := t.Exact[code]; ok && code != "" {
		return NewAPIError(exchange, kind, code, message, body)
	}
	if kind, ok := t.Exact[message]; ok && message != "" {
		return NewAPIError(exchange, kind, code, message, body)
	}
	for _, s := range t.Broad {
		if s.Match != "" && strings.Contains(message, s.Match) {
			return NewAPIError(exchange, s.Kind, code, message, body)
		}
	}
	return NewAPIError(exchange, ErrExchangeError, code, message, body)
}
