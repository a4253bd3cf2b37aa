package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/paycore/paycore/internal/models"
	"github.com/paycore/paycore/internal/utils/mapping"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates the repository for transactions and the
// idempotency guard.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

const transactionColumns = `
	transaction_id, idempotency_key, request_fingerprint, transaction_type,
	source_account_id, destination_account_id, amount, currency_code,
	external_destination, description, state, external_reference,
	locked_rate, converted_amount, failure_reason, needs_reconciliation,
	provider_metadata, created_at, created_by, last_updated_at, last_updated_by`

// CreateIdempotent reserves the idempotency key and inserts the transaction
// as one atomic step. ON CONFLICT DO NOTHING plus a follow-up read closes the
// race where two identical concurrent requests both believe they are first.
func (r *PgxTransactionRepository) CreateIdempotent(ctx context.Context, txn domain.Transaction) (portsrepo.KeyOutcome, *domain.Transaction, error) {
	m := mapping.ToModelTransaction(txn)

	tag, err := r.Pool.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (idempotency_key) DO NOTHING;
	`, m.TransactionID, m.IdempotencyKey, m.RequestFingerprint, m.Type,
		m.SourceAccountID, m.DestinationAccountID, m.Amount, m.CurrencyCode,
		m.ExternalDestination, m.Description, m.State, m.ExternalReference,
		m.LockedRate, m.ConvertedAmount, m.FailureReason, m.NeedsReconciliation,
		m.ProviderMetadata, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return 0, nil, apperrors.NewAppError(500, "failed to insert transaction", err)
	}

	if tag.RowsAffected() == 1 {
		return portsrepo.KeyFresh, &txn, nil
	}

	existing, err := r.findByIdempotencyKey(ctx, txn.IdempotencyKey)
	if err != nil {
		return 0, nil, err
	}
	if existing.RequestFingerprint != txn.RequestFingerprint {
		return portsrepo.KeyConflict, existing, nil
	}
	return portsrepo.KeyDuplicate, existing, nil
}

// FindTransactionByID retrieves a transaction by its primary key.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return r.findOne(ctx, `WHERE transaction_id = $1`, transactionID)
}

func (r *PgxTransactionRepository) findByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	return r.findOne(ctx, `WHERE idempotency_key = $1`, key)
}

func (r *PgxTransactionRepository) findOne(ctx context.Context, where string, arg any) (*domain.Transaction, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions `+where+`;`, arg)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction: %w", apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction", err)
	}
	return txn, nil
}

// TransitionState performs a compare-and-swap state move. Zero rows affected
// means the prior state no longer matches, surfaced as ErrConflict so callers
// can re-read and decide.
func (r *PgxTransactionRepository) TransitionState(ctx context.Context, transactionID string, from, to domain.TransactionState, updatedBy string, at time.Time) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: illegal transition %s -> %s", apperrors.ErrValidation, from, to)
	}

	tag, err := r.Pool.Exec(ctx, `
		UPDATE transactions
		SET state = $3, last_updated_at = $4, last_updated_by = $5
		WHERE transaction_id = $1 AND state = $2;
	`, transactionID, string(from), string(to), at, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to transition transaction state", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not in state %s: %w", transactionID, from, apperrors.ErrConflict)
	}
	return nil
}

// SetSettlementResult records the provider reference and the opaque provider
// call metadata. Metadata is appended, never overwritten, so every
// call/response pair survives for audit.
func (r *PgxTransactionRepository) SetSettlementResult(ctx context.Context, transactionID string, externalReference *string, metadata json.RawMessage, updatedBy string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE transactions
		SET external_reference = COALESCE($2, external_reference),
		    provider_metadata = COALESCE(provider_metadata, '[]'::jsonb) || COALESCE($3, '[]'::jsonb),
		    last_updated_at = $4, last_updated_by = $5
		WHERE transaction_id = $1;
	`, transactionID, externalReference, metadata, at, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record settlement result", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return nil
}

// SetFailureReason records why a transaction failed or was reversed.
func (r *PgxTransactionRepository) SetFailureReason(ctx context.Context, transactionID string, reason string, updatedBy string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE transactions
		SET failure_reason = $2, last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1;
	`, transactionID, reason, at, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to record failure reason", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return nil
}

// MarkReconciliationRequired flags a transaction for manual intervention.
func (r *PgxTransactionRepository) MarkReconciliationRequired(ctx context.Context, transactionID string, reason string, updatedBy string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE transactions
		SET needs_reconciliation = TRUE, failure_reason = $2, last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1;
	`, transactionID, reason, at, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to flag transaction for reconciliation", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, apperrors.ErrNotFound)
	}
	return nil
}

// FindStaleReserved returns transactions stuck in RESERVED past the cutoff,
// oldest first, for the recovery sweep.
func (r *PgxTransactionRepository) FindStaleReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE state = $1 AND last_updated_at < $2
		ORDER BY last_updated_at ASC
		LIMIT $3;
	`, string(domain.StateReserved), olderThan, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query stale reserved transactions", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan transaction row", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating transaction rows", err)
	}
	return txns, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var m models.Transaction
	err := row.Scan(&m.TransactionID, &m.IdempotencyKey, &m.RequestFingerprint, &m.Type,
		&m.SourceAccountID, &m.DestinationAccountID, &m.Amount, &m.CurrencyCode,
		&m.ExternalDestination, &m.Description, &m.State, &m.ExternalReference,
		&m.LockedRate, &m.ConvertedAmount, &m.FailureReason, &m.NeedsReconciliation,
		&m.ProviderMetadata, &m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}
