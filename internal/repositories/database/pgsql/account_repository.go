package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/paycore/paycore/internal/models"
	"github.com/paycore/paycore/internal/utils/mapping"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryFacade {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const accountColumns = `
	account_id, owner_user_id, name, currency_code, available, held, status,
	requires_pin, pin_hash, created_at, created_by, last_updated_at, last_updated_by`

// SaveAccount inserts a new account row with zero balances.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`, m.AccountID, m.OwnerUserID, m.Name, m.CurrencyCode, m.Available, m.Held,
		string(m.Status), m.RequiresPIN, m.PINHash,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert account", err)
	}
	return nil
}

// FindAccountByID retrieves a single account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1;`, accountID)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find account", err)
	}
	return acc, nil
}

// FindAccountsByIDs retrieves multiple accounts keyed by account id. Missing
// ids are simply absent from the map; callers decide whether that is an error.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	if len(accountIDs) == 0 {
		return map[string]domain.Account{}, nil
	}

	rows, err := r.Pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = ANY($1);`, accountIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts by IDs", err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts[acc.AccountID] = *acc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return accounts, nil
}

// ListAccountsByOwner retrieves all accounts belonging to a user.
func (r *PgxAccountRepository) ListAccountsByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE owner_user_id = $1 ORDER BY created_at ASC;
	`, ownerUserID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts by owner", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var m models.Account
		var pinHash *string
		err := rows.Scan(&m.AccountID, &m.OwnerUserID, &m.Name, &m.CurrencyCode,
			&m.Available, &m.Held, &m.Status, &m.RequiresPIN, &pinHash,
			&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		if pinHash != nil {
			m.PINHash = *pinHash
		}
		accounts = append(accounts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return mapping.ToDomainAccountSlice(accounts), nil
}

// UpdateAccountStatus changes the account lifecycle status. Accounts are
// never deleted; closing is a status change.
func (r *PgxAccountRepository) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, updatedBy string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE accounts
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE account_id = $1;
	`, accountID, string(status), at, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update account status", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var m models.Account
	var pinHash *string
	err := row.Scan(&m.AccountID, &m.OwnerUserID, &m.Name, &m.CurrencyCode,
		&m.Available, &m.Held, &m.Status, &m.RequiresPIN, &pinHash,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	if pinHash != nil {
		m.PINHash = *pinHash
	}
	acc := mapping.ToDomainAccount(m)
	return &acc, nil
}
