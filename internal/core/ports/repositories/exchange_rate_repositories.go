package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateRepositoryFacade reads exchange rates from the rate store. It is
// the default pluggable rate source behind the conversion gateway; production
// deployments may swap in a live feed implementing the same lookup.
type ExchangeRateRepositoryFacade interface {
	// GetRate returns the most recent rate for the pair effective at asOf.
	// Fails with ErrRateUnavailable when no rate is recorded.
	GetRate(ctx context.Context, fromCurrency, toCurrency string, asOf time.Time) (decimal.Decimal, error)
}
