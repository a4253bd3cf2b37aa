package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/paycore/paycore/internal/models"
	"github.com/paycore/paycore/internal/utils/mapping"
)

type PgxUserRepository struct {
	BaseRepository
}

// newPgxUserRepository creates a new repository for user data.
func newPgxUserRepository(pool *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

// SaveUser inserts a new user row.
func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO users (user_id, email, name, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`, m.UserID, m.Email, m.Name, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("user %s: %w", user.Email, apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert user", err)
	}
	return nil
}

// FindUserByID retrieves a single user by ID.
func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	var m models.User
	err := r.Pool.QueryRow(ctx, `
		SELECT user_id, email, name, created_at, created_by, last_updated_at, last_updated_by
		FROM users WHERE user_id = $1;
	`, userID).Scan(&m.UserID, &m.Email, &m.Name, &m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find user", err)
	}
	user := mapping.ToDomainUser(m)
	return &user, nil
}

type PgxCurrencyRepository struct {
	BaseRepository
}

// newPgxCurrencyRepository creates a new repository for currency reference data.
func newPgxCurrencyRepository(pool *pgxpool.Pool) portsrepo.CurrencyRepositoryFacade {
	return &PgxCurrencyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CurrencyRepositoryFacade = (*PgxCurrencyRepository)(nil)

const currencyColumns = `currency_code, symbol, name, precision, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

// FindCurrencyByCode retrieves a single currency by its ISO code.
func (r *PgxCurrencyRepository) FindCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error) {
	var m models.Currency
	err := r.Pool.QueryRow(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE currency_code = $1;`, code).
		Scan(&m.CurrencyCode, &m.Symbol, &m.Name, &m.Precision, &m.IsActive,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("currency %s: %w", code, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find currency", err)
	}
	currency := mapping.ToDomainCurrency(m)
	return &currency, nil
}

// ListCurrencies retrieves all supported currencies.
func (r *PgxCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+currencyColumns+` FROM currencies ORDER BY currency_code ASC;`)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query currencies", err)
	}
	defer rows.Close()

	var currencies []models.Currency
	for rows.Next() {
		var m models.Currency
		err := rows.Scan(&m.CurrencyCode, &m.Symbol, &m.Name, &m.Precision, &m.IsActive,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan currency row", err)
		}
		currencies = append(currencies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating currency rows", err)
	}
	return mapping.ToDomainCurrencySlice(currencies), nil
}
