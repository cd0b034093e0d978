package common

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Positional accessors for array-shaped vendor rows. Several venues return
// order book levels and candles as plain JSON arrays, e.g.
// ["62001.5", "0.25"], mixing strings and numbers between endpoints.

// RowString reads a positional field of an array row as a string.
func RowString(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	switch t := row[i].(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// RowDecimal reads a positional field as an optional decimal.
func RowDecimal(row []any, i int) decimal.NullDecimal {
	s := RowString(row, i)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// RowFloat reads a positional field as a float64, 0 when absent.
func RowFloat(row []any, i int) float64 {
	f, _ := strconv.ParseFloat(RowString(row, i), 64)
	return f
}

// RowInt reads a positional field as an int64, 0 when absent. Fractional
// values are truncated.
func RowInt(row []any, i int) int64 {
	s := RowString(row, i)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
