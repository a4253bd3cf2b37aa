package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/paycore/internal/apperrors"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type PgxExchangeRateRepository struct {
	BaseRepository
}

// newPgxExchangeRateRepository creates a new repository for exchange rate data.
func newPgxExchangeRateRepository(pool *pgxpool.Pool) portsrepo.ExchangeRateRepositoryFacade {
	return &PgxExchangeRateRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*PgxExchangeRateRepository)(nil)

// GetRate returns the most recent stored rate for the pair effective at asOf.
func (r *PgxExchangeRateRepository) GetRate(ctx context.Context, fromCurrency, toCurrency string, asOf time.Time) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.Pool.QueryRow(ctx, `
		SELECT rate FROM exchange_rates
		WHERE from_currency_code = $1 AND to_currency_code = $2 AND date_effective <= $3
		ORDER BY date_effective DESC
		LIMIT 1;
	`, fromCurrency, toCurrency, asOf).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("rate %s/%s: %w", fromCurrency, toCurrency, apperrors.ErrRateUnavailable)
		}
		return decimal.Zero, apperrors.NewAppError(500, "failed to query exchange rate", err)
	}
	return rate, nil
}
