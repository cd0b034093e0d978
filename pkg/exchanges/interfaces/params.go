package interfaces

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Params is the open per-call options bag. Recognized keys are documented on
// each operation; unrecognized keys are forwarded to the venue verbatim.
//
// A Params value is treated as immutable input: helpers that consume keys
// return a fresh remainder map and never mutate the original, so a caller may
// share one bag across concurrent calls.
type Params map[string]any

// String returns the value under key as a string. Numeric values are
// formatted; absent or empty values report ok == false.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	default:
		return fmt.Sprintf("%v", t), true
	}
}

// Bool returns the value under key as a bool.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Int returns the value under key as an int64.
func (p Params) Int(key string) (int64, bool) {
	switch t := p[key].(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}

// Number returns the value under key as an optional decimal. Strings, floats,
// ints and decimals are accepted; anything else is absent.
func (p Params) Number(key string) Number {
	switch t := p[key].(type) {
	case string:
		return NumberFromString(t)
	case float64:
		return NumberFrom(decimal.NewFromFloat(t))
	case int:
		return NumberFrom(decimal.NewFromInt(int64(t)))
	case int64:
		return NumberFrom(decimal.NewFromInt(t))
	case decimal.Decimal:
		return NumberFrom(t)
	case decimal.NullDecimal:
		return t
	default:
		return Number{}
	}
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Omit returns a copy of the bag without the consumed keys. The receiver is
// left untouched.
func (p Params) Omit(keys ...string) Params {
	consumed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		consumed[k] = struct{}{}
	}
	rest := make(Params, len(p))
	for k, v := range p {
		if _, ok := consumed[k]; !ok {
			rest[k] = v
		}
	}
	return rest
}

// URLValues renders the bag as URL query values. Decimal values keep their
// exact string form; everything else is formatted with default Go rules.
func (p Params) URLValues() url.Values {
	values := url.Values{}
	for k, v := range p {
		switch t := v.(type) {
		case string:
			values.Set(k, t)
		case decimal.Decimal:
			values.Set(k, t.String())
		case decimal.NullDecimal:
			if t.Valid {
				values.Set(k, t.Decimal.String())
			}
		case float64:
			values.Set(k, decimal.NewFromFloat(t).String())
		default:
			values.Set(k, fmt.Sprintf("%v", t))
		}
	}
	return values
}

// EncodeJSON renders the bag as a JSON object body. Decimal values are
// emitted as JSON strings to preserve their exact representation.
func (p Params) EncodeJSON() (string, error) {
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch t := v.(type) {
		case decimal.Decimal:
			out[k] = t.String()
		case decimal.NullDecimal:
			if t.Valid {
				out[k] = t.Decimal.String()
			}
		default:
			out[k] = v
		}
	}
	body, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding request body: %w", err)
	}
	return string(body), nil
}

// Extend returns a new bag holding the receiver's entries overlaid with
// extra's entries. Neither input is mutated.
func (p Params) Extend(extra Params) Params {
	out := make(Params, len(p)+len(extra))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
