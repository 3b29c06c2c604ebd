package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockPrice is one daily OHLCV bar for a ticker symbol.
// Rows are not user-scoped and (symbol, date, data_source) is not unique.
type StockPrice struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Symbol     string          `json:"symbol" gorm:"size:32;not null;index"`
	Date       Date            `json:"date" gorm:"not null;index"`
	Open       decimal.Decimal `json:"open" gorm:"type:decimal(20,6);not null"`
	High       decimal.Decimal `json:"high" gorm:"type:decimal(20,6);not null"`
	Low        decimal.Decimal `json:"low" gorm:"type:decimal(20,6);not null"`
	Close      decimal.Decimal `json:"close" gorm:"type:decimal(20,6);not null"`
	Volume     int64           `json:"volume" gorm:"not null"`
	DataSource *string         `json:"data_source" gorm:"size:100;index"`
	CreatedAt  time.Time       `json:"created_at"`
}

func init() {
	// Prices are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// NormalizeSymbol returns the canonical (upper-case) form of a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ErrInvalidPrice is returned when a bar breaks the OHLCV value rules.
var ErrInvalidPrice = errors.New("invalid stock price")

// Validate checks that every price is greater than 0 and volume is not negative.
func (p *StockPrice) Validate() error {
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"open", p.Open},
		{"high", p.High},
		{"low", p.Low},
		{"close", p.Close},
	} {
		if !f.value.IsPositive() {
			return fmt.Errorf("%w: %s must be greater than 0, got %s", ErrInvalidPrice, f.name, f.value)
		}
	}
	if p.Volume < 0 {
		return fmt.Errorf("%w: volume must not be negative, got %d", ErrInvalidPrice, p.Volume)
	}
	return nil
}

// BeforeSave keeps one canonical case per symbol and rejects invalid bars
// regardless of caller.
func (p *StockPrice) BeforeSave(tx *gorm.DB) error {
	p.Symbol = NormalizeSymbol(p.Symbol)
	return p.Validate()
}

// SourceOrEmpty returns the data source label, or "" when unset.
func (p *StockPrice) SourceOrEmpty() string {
	if p.DataSource == nil {
		return ""
	}
	return *p.DataSource
}
