package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a wallet owner row.
type User struct {
	UserID string `db:"user_id"`
	Email  string `db:"email"`
	Name   string `db:"name"`
	AuditFields
}

// Currency represents a supported currency row.
type Currency struct {
	CurrencyCode string `db:"currency_code"`
	Symbol       string `db:"symbol"`
	Name         string `db:"name"`
	Precision    int    `db:"precision"`
	IsActive     bool   `db:"is_active"`
	AuditFields
}

// ExchangeRate represents a stored rate row; the repository serves the most
// recent rate effective at the requested time.
type ExchangeRate struct {
	ExchangeRateID   string          `db:"exchange_rate_id"`
	FromCurrencyCode string          `db:"from_currency_code"`
	ToCurrencyCode   string          `db:"to_currency_code"`
	Rate             decimal.Decimal `db:"rate"`
	DateEffective    time.Time       `db:"date_effective"`
	AuditFields
}
