package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ConvertedAmount is the result of a currency conversion, carrying the rate
// that produced it so callers can lock it in.
type ConvertedAmount struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}

// RateProvider is the pluggable external rate source.
type RateProvider interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string, asOf time.Time) (decimal.Decimal, error)
}

// RateCache caches resolved rates for a short validity window.
type RateCache interface {
	GetRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, bool, error)
	SetRate(ctx context.Context, fromCurrency, toCurrency string, rate decimal.Decimal) error
}

// ConversionSvcFacade resolves exchange rates for cross-currency transfers.
// A transfer locks in the returned rate at reservation time; capture uses the
// stored rate regardless of how long settlement takes.
type ConversionSvcFacade interface {
	Convert(ctx context.Context, amount decimal.Decimal, fromCurrency, toCurrency string, asOf time.Time) (ConvertedAmount, error)
}
