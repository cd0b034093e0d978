package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	v, err := DecodeJSON([]byte(body))
	require.NoError(t, err)
	m, ok := AsMap(v)
	require.True(t, ok)
	return m
}

func TestDecodeJSONKeepsNumbersExact(t *testing.T) {
	m := decode(t, `{"price":0.00000001234567890123456789}`)
	n, ok := m["price"].(json.Number)
	require.True(t, ok, "numbers must decode as json.Number, not float64")
	assert.Equal(t, "0.00000001234567890123456789", n.String())
}

func TestDecodeJSONBadInput(t *testing.T) {
	_, err := DecodeJSON([]byte("<html>busy</html>"))
	assert.Error(t, err)
}

func TestGetStringAliasOrder(t *testing.T) {
	m := decode(t, `{"px":"100.5","price":"200"}`)
	v, ok := GetString(m, "price", "px")
	assert.True(t, ok)
	assert.Equal(t, "200", v, "the first listed key wins")

	v, ok = GetString(m, "last", "px")
	assert.True(t, ok)
	assert.Equal(t, "100.5", v, "absent keys fall through to later aliases")

	_, ok = GetString(m, "missing")
	assert.False(t, ok)
}

func TestGetStringSkipsEmpty(t *testing.T) {
	m := decode(t, `{"clOrdId":"","ordId":"123"}`)
	v, ok := GetString(m, "clOrdId", "ordId")
	assert.True(t, ok)
	assert.Equal(t, "123", v, "empty strings do not satisfy a lookup")
}

func TestGetDecimal(t *testing.T) {
	m := decode(t, `{"s":"0.10","n":0.25,"bad":"abc","empty":""}`)

	d := GetDecimal(m, "s")
	require.True(t, d.Valid)
	assert.Equal(t, "0.1", d.Decimal.String())

	d = GetDecimal(m, "n")
	require.True(t, d.Valid)
	assert.Equal(t, "0.25", d.Decimal.String())

	assert.False(t, GetDecimal(m, "bad").Valid)
	assert.False(t, GetDecimal(m, "empty").Valid, "empty string is absent, not zero")
	assert.False(t, GetDecimal(m, "missing").Valid)
}

func TestGetIntAndFloat(t *testing.T) {
	m := decode(t, `{"i":1622505600000,"s":"42","f":1.9}`)

	i, ok := GetInt(m, "i")
	assert.True(t, ok)
	assert.Equal(t, int64(1622505600000), i)

	i, ok = GetInt(m, "s")
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)

	f, ok := GetFloat(m, "f")
	assert.True(t, ok)
	assert.Equal(t, 1.9, f)
}

func TestGetBool(t *testing.T) {
	m := decode(t, `{"b":true,"s":"false","junk":"maybe"}`)

	b, ok := GetBool(m, "b")
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = GetBool(m, "s")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = GetBool(m, "junk")
	assert.False(t, ok)
}

func TestGetTimestampISO(t *testing.T) {
	m := decode(t, `{"time":"2020-01-01T00:00:00Z","frac":"2020-01-01T00:00:00.500Z"}`)
	assert.Equal(t, int64(1577836800000), GetTimestampISO(m, "time"))
	assert.Equal(t, int64(1577836800500), GetTimestampISO(m, "frac"))
	assert.Equal(t, int64(0), GetTimestampISO(m, "missing"))
}

func TestISO8601(t *testing.T) {
	assert.Equal(t, "2020-01-01T00:00:00.000Z", ISO8601(1577836800000))
	assert.Equal(t, "2020-01-01T00:00:00.500Z", ISO8601(1577836800500))
	assert.Equal(t, "", ISO8601(0))
}

func TestRowAccessors(t *testing.T) {
	v, err := DecodeJSON([]byte(`["62001.5", 0.25, "1622505600000", "bad"]`))
	require.NoError(t, err)
	row, ok := AsList(v)
	require.True(t, ok)

	assert.Equal(t, "62001.5", RowString(row, 0))
	assert.Equal(t, "0.25", RowString(row, 1))
	assert.Equal(t, "", RowString(row, 99), "out of range reads are absent")

	d := RowDecimal(row, 0)
	require.True(t, d.Valid)
	assert.Equal(t, "62001.5", d.Decimal.String())
	assert.False(t, RowDecimal(row, 3).Valid)
	assert.False(t, RowDecimal(row, -1).Valid)

	assert.Equal(t, 62001.5, RowFloat(row, 0))
	assert.Equal(t, int64(1622505600000), RowInt(row, 2))
	assert.Equal(t, int64(62001), RowInt(row, 0), "fractional values truncate")
}
