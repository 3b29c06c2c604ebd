package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-02-29"`), &d))
	assert.Equal(t, NewDate(2024, time.February, 29), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-02-29"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"2024-02-30"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`20240229`), &d))
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want Date
	}{
		{"time", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), NewDate(2024, 1, 2)},
		{"string", "2024-01-02", NewDate(2024, 1, 2)},
		{"datetime string", "2024-01-02 00:00:00+00:00", NewDate(2024, 1, 2)},
		{"bytes", []byte("2024-01-02"), NewDate(2024, 1, 2)},
		{"nil", nil, Date{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.in))
			assert.Equal(t, tt.want, d)
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("yesterday"))
}

func TestDate_Value(t *testing.T) {
	v, err := NewDate(2023, 12, 31).Value()
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", v)
	assert.True(t, NewDate(2024, 1, 1).After(NewDate(2023, 12, 31)))
}

func TestOptional(t *testing.T) {
	var upd UserUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"email": "a@example.com", "username": null}`), &upd))

	assert.True(t, upd.Email.Present())
	assert.Equal(t, "a@example.com", upd.Email.Value)
	assert.True(t, upd.Username.Set)
	assert.True(t, upd.Username.Null)
	assert.False(t, upd.Username.Present())
	assert.False(t, upd.IsActive.Set)
	assert.False(t, upd.Empty())
	assert.False(t, upd.ChangesFlags())

	require.NoError(t, json.Unmarshal([]byte(`{"is_superuser": false}`), &upd))
	assert.True(t, upd.ChangesFlags())

	var empty UserUpdate
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.True(t, empty.Empty())
}

func TestStockPrice_JSONNumbers(t *testing.T) {
	source := "Manual"
	p := StockPrice{
		Symbol:     "IBM",
		Date:       NewDate(2024, 1, 2),
		Open:       decimal.RequireFromString("160.5"),
		High:       decimal.RequireFromString("161"),
		Low:        decimal.RequireFromString("159.25"),
		Close:      decimal.RequireFromString("160.75"),
		Volume:     1200,
		DataSource: &source,
	}
	out, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, 160.5, m["open"])
	assert.Equal(t, 160.75, m["close"])
	assert.Equal(t, "2024-01-02", m["date"])
	assert.Equal(t, "Manual", p.SourceOrEmpty())
	assert.Equal(t, "", (&StockPrice{}).SourceOrEmpty())
}

func TestStockPrice_Validate(t *testing.T) {
	valid := func() StockPrice {
		return StockPrice{
			Symbol: "IBM",
			Date:   NewDate(2024, 1, 2),
			Open:   decimal.RequireFromString("1.5"),
			High:   decimal.RequireFromString("2"),
			Low:    decimal.RequireFromString("1"),
			Close:  decimal.RequireFromString("1.75"),
		}
	}
	p := valid()
	require.NoError(t, p.Validate(), "zero volume is allowed")

	tests := []struct {
		name   string
		mutate func(p *StockPrice)
		field  string
	}{
		{"zero open", func(p *StockPrice) { p.Open = decimal.Zero }, "open"},
		{"negative high", func(p *StockPrice) { p.High = decimal.RequireFromString("-5") }, "high"},
		{"zero low", func(p *StockPrice) { p.Low = decimal.Zero }, "low"},
		{"negative close", func(p *StockPrice) { p.Close = decimal.RequireFromString("-0.01") }, "close"},
		{"negative volume", func(p *StockPrice) { p.Volume = -10 }, "volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := p.Validate()
			require.ErrorIs(t, err, ErrInvalidPrice)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BRK.B", NormalizeSymbol("  brk.b "))
}
