package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// This file implements the ordered-alias lookup used by every response
// normalizer. Vendors spell the same concept under different keys (px/price,
// qty/amount), so each getter accepts a preference-ordered list of keys and
// returns the first present, non-empty value. Absence is reported explicitly;
// values are never coerced to zero.

// DecodeJSON parses a response body into generic Go values with numbers kept
// as json.Number, preserving the vendor's exact decimal representation until
// the final conversion step.
func DecodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding response JSON: %w", err)
	}
	return v, nil
}

// AsMap converts a decoded value to a string-keyed map, returning ok == false
// for any other shape.
func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsList converts a decoded value to a slice, returning ok == false for any
// other shape.
func AsList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// GetString returns the first present, non-empty string value among keys.
// Numeric values are rendered to their string form.
func GetString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case string:
			if t != "" {
				return t, true
			}
		case json.Number:
			return t.String(), true
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(t), true
		}
	}
	return "", false
}

// GetDecimal returns the first value among keys convertible to a decimal.
// Absence or an unparsable value yields the invalid (absent) NullDecimal.
func GetDecimal(m map[string]any, keys ...string) decimal.NullDecimal {
	for _, k := range keys {
		if d, ok := toDecimal(m[k]); ok {
			return decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}
	return decimal.NullDecimal{}
}

// GetFloat returns the first numeric value among keys as a float64.
func GetFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case float64:
			return t, true
		case string:
			if t == "" {
				continue
			}
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// GetInt returns the first integral value among keys as an int64.
func GetInt(m map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case json.Number:
			if i, err := t.Int64(); err == nil {
				return i, true
			}
			if f, err := t.Float64(); err == nil {
				return int64(f), true
			}
		case float64:
			return int64(t), true
		case string:
			if t == "" {
				continue
			}
			if i, err := strconv.ParseInt(t, 10, 64); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// GetBool returns the first boolean value among keys. String spellings of
// true/false are accepted.
func GetBool(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		switch t := m[k].(type) {
		case bool:
			return t, true
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// GetMap returns the first object value among keys.
func GetMap(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if inner, ok := m[k].(map[string]any); ok {
			return inner, true
		}
	}
	return nil, false
}

// GetList returns the first array value among keys.
func GetList(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if inner, ok := m[k].([]any); ok {
			return inner, true
		}
	}
	return nil, false
}

// GetTimestampMS returns the first value among keys interpreted as an epoch
// millisecond timestamp. Integral values are taken as milliseconds verbatim.
// 0 means absent.
func GetTimestampMS(m map[string]any, keys ...string) int64 {
	if ts, ok := GetInt(m, keys...); ok {
		return ts
	}
	return 0
}

// GetTimestampISO returns the first value among keys parsed as an RFC3339
// datetime, converted to epoch milliseconds. 0 means absent.
func GetTimestampISO(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UnixMilli()
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

// ISO8601 renders an epoch millisecond timestamp as an RFC3339 UTC datetime
// with millisecond precision, or "" for the absent timestamp.
func ISO8601(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d, true
		}
	case string:
		if t == "" {
			return decimal.Decimal{}, false
		}
		if d, err := decimal.NewFromString(t); err == nil {
			return d, true
		}
	case float64:
		return decimal.NewFromFloat(t), true
	}
	return decimal.Decimal{}, false
}
