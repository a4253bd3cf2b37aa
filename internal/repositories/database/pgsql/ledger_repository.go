package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/paycore/paycore/internal/models"
	"github.com/paycore/paycore/internal/utils/mapping"
	"github.com/shopspring/decimal"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates the repository backing the ledger store.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

// lockedAccount is an account row read under FOR UPDATE.
type lockedAccount struct {
	AccountID string
	Available decimal.Decimal
	Held      decimal.Decimal
	Status    string
}

// lockAccounts locks the given account rows in ascending account id order so
// that concurrent mutators of overlapping account sets serialize
// deterministically and cannot deadlock.
func lockAccounts(ctx context.Context, tx pgx.Tx, accountIDs []string) (map[string]*lockedAccount, error) {
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)

	locked := make(map[string]*lockedAccount, len(ids))
	for _, id := range ids {
		if _, done := locked[id]; done {
			continue
		}
		row := tx.QueryRow(ctx, `
			SELECT account_id, available, held, status
			FROM accounts
			WHERE account_id = $1
			FOR UPDATE;
		`, id)
		acc := &lockedAccount{}
		if err := row.Scan(&acc.AccountID, &acc.Available, &acc.Held, &acc.Status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		locked[id] = acc
	}
	return locked, nil
}

// Reserve places a hold: it moves the amount from available to held, records
// the reservation and flips the owning transaction to RESERVED, all within
// one transaction against the locked account row. Committing the hold and the
// state together means no failure can leave held funds against a transaction
// the recovery sweep will never scan.
func (r *PgxLedgerRepository) Reserve(ctx context.Context, reservation domain.Reservation, reservedBy string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	locked, err := lockAccounts(ctx, tx, []string{reservation.AccountID})
	if err != nil {
		return err
	}
	acc := locked[reservation.AccountID]

	if acc.Status != string(domain.AccountActive) {
		return fmt.Errorf("account %s: %w", acc.AccountID, apperrors.ErrAccountInactive)
	}
	if acc.Available.LessThan(reservation.Amount) {
		return fmt.Errorf("account %s has %s available, need %s: %w",
			acc.AccountID, acc.Available, reservation.Amount, apperrors.ErrInsufficientFunds)
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts
		SET available = available - $2, held = held + $2, last_updated_at = $3
		WHERE account_id = $1;
	`, acc.AccountID, reservation.Amount, reservation.CreatedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to move funds to held", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reservations (reservation_id, transaction_id, account_id, amount, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, reservation.ReservationID, reservation.TransactionID, reservation.AccountID,
		reservation.Amount, reservation.ExpiresAt, reservation.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("hold for transaction %s: %w", reservation.TransactionID, apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert reservation", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET state = $2, last_updated_at = $3, last_updated_by = $4
		WHERE transaction_id = $1 AND state = $5;
	`, reservation.TransactionID, string(domain.StateReserved), reservation.CreatedAt,
		reservedBy, string(domain.StateCreated))
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark transaction reserved", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not in state %s: %w",
			reservation.TransactionID, domain.StateCreated, apperrors.ErrConflict)
	}

	return r.Commit(ctx, tx)
}

// ApplyEntries appends ledger entries and adjusts balances in one atomic unit.
// The (account, transaction, direction) uniqueness check makes replays fail
// with ErrDuplicateApplication before any balance is touched.
func (r *PgxLedgerRepository) ApplyEntries(ctx context.Context, transactionID string, entries []portsrepo.EntryCommand) ([]domain.LedgerEntry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries to apply", apperrors.ErrValidation)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	accountIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		accountIDs = append(accountIDs, e.AccountID)
	}
	locked, err := lockAccounts(ctx, tx, accountIDs)
	if err != nil {
		return nil, err
	}

	// Duplicate-application guard, evaluated under the account locks.
	for _, e := range entries {
		var exists bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM ledger_entries
				WHERE account_id = $1 AND transaction_id = $2 AND direction = $3
			);
		`, e.AccountID, transactionID, string(e.Direction)).Scan(&exists)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to check duplicate application", err)
		}
		if exists {
			return nil, fmt.Errorf("entry %s/%s for transaction %s: %w",
				e.AccountID, e.Direction, transactionID, apperrors.ErrDuplicateApplication)
		}
	}

	now := time.Now().UTC()
	capturedHold := false
	applied := make([]domain.LedgerEntry, 0, len(entries))

	for _, e := range entries {
		acc := locked[e.AccountID]

		switch {
		case e.Direction == domain.Debit && e.FromHeld:
			if acc.Held.LessThan(e.Amount) {
				return nil, fmt.Errorf("account %s held balance %s below capture amount %s: %w",
					acc.AccountID, acc.Held, e.Amount, apperrors.ErrInsufficientFunds)
			}
			acc.Held = acc.Held.Sub(e.Amount)
			capturedHold = true
		case e.Direction == domain.Debit:
			if acc.Available.LessThan(e.Amount) {
				return nil, fmt.Errorf("account %s available balance %s below debit amount %s: %w",
					acc.AccountID, acc.Available, e.Amount, apperrors.ErrInsufficientFunds)
			}
			acc.Available = acc.Available.Sub(e.Amount)
		case e.Direction == domain.Credit:
			acc.Available = acc.Available.Add(e.Amount)
		default:
			return nil, fmt.Errorf("%w: unknown entry direction %q", apperrors.ErrValidation, e.Direction)
		}

		var nextSeq int64
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(sequence), 0) + 1 FROM ledger_entries WHERE account_id = $1;
		`, e.AccountID).Scan(&nextSeq)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to allocate entry sequence", err)
		}

		entry := domain.LedgerEntry{
			EntryID:          uuid.NewString(),
			AccountID:        e.AccountID,
			TransactionID:    transactionID,
			Sequence:         nextSeq,
			Direction:        e.Direction,
			Amount:           e.Amount,
			ResultingBalance: acc.Available.Add(acc.Held),
			CreatedAt:        now,
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO ledger_entries (entry_id, account_id, transaction_id, sequence, direction, amount, resulting_balance, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
		`, entry.EntryID, entry.AccountID, entry.TransactionID, entry.Sequence,
			string(entry.Direction), entry.Amount, entry.ResultingBalance, entry.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nil, fmt.Errorf("entry %s/%s for transaction %s: %w",
					e.AccountID, e.Direction, transactionID, apperrors.ErrDuplicateApplication)
			}
			return nil, apperrors.NewAppError(500, "failed to insert ledger entry", err)
		}

		applied = append(applied, entry)
	}

	lockedIDs := make([]string, 0, len(locked))
	for id := range locked {
		lockedIDs = append(lockedIDs, id)
	}
	sort.Strings(lockedIDs)
	for _, id := range lockedIDs {
		acc := locked[id]
		_, err := tx.Exec(ctx, `
			UPDATE accounts
			SET available = $2, held = $3, last_updated_at = $4
			WHERE account_id = $1;
		`, acc.AccountID, acc.Available, acc.Held, now)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to update account balances", err)
		}
	}

	if capturedHold {
		tag, err := tx.Exec(ctx, `
			UPDATE reservations
			SET captured_at = $2
			WHERE transaction_id = $1 AND captured_at IS NULL AND released_at IS NULL;
		`, transactionID, now)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to mark reservation captured", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, fmt.Errorf("reservation for transaction %s already settled: %w",
				transactionID, apperrors.ErrDuplicateApplication)
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return applied, nil
}

// ReverseAndReleaseHold finalizes a transaction as REVERSED and returns its
// held funds in the same commit. The two effects never land separately, so a
// REVERSED transaction always implies the hold is gone and a failure rolls
// the state back with the funds, leaving the queue or the sweep free to
// retry.
func (r *PgxLedgerRepository) ReverseAndReleaseHold(ctx context.Context, transactionID string, from domain.TransactionState, updatedBy string, at time.Time) error {
	if !from.CanTransitionTo(domain.StateReversed) {
		return fmt.Errorf("%w: illegal transition %s -> %s", apperrors.ErrValidation, from, domain.StateReversed)
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET state = $3, last_updated_at = $4, last_updated_by = $5
		WHERE transaction_id = $1 AND state = $2;
	`, transactionID, string(from), string(domain.StateReversed), at, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to transition transaction state", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s not in state %s: %w", transactionID, from, apperrors.ErrConflict)
	}

	// Find the owning account first, then take its lock; reservation rows are
	// only ever mutated under their account's lock. No reservation row means
	// a transaction with no hold (a deposit); the transition alone commits.
	var accountID string
	err = tx.QueryRow(ctx, `
		SELECT account_id FROM reservations WHERE transaction_id = $1;
	`, transactionID).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.Commit(ctx, tx)
		}
		return apperrors.NewAppError(500, "failed to find reservation", err)
	}

	if _, err := lockAccounts(ctx, tx, []string{accountID}); err != nil {
		return err
	}

	var amount decimal.Decimal
	var capturedAt, releasedAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT amount, captured_at, released_at FROM reservations WHERE transaction_id = $1;
	`, transactionID).Scan(&amount, &capturedAt, &releasedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to re-read reservation", err)
	}
	if capturedAt != nil || releasedAt != nil {
		return fmt.Errorf("reservation for transaction %s already settled: %w",
			transactionID, apperrors.ErrDuplicateApplication)
	}

	_, err = tx.Exec(ctx, `
		UPDATE accounts
		SET available = available + $2, held = held - $2, last_updated_at = $3
		WHERE account_id = $1;
	`, accountID, amount, at)
	if err != nil {
		return apperrors.NewAppError(500, "failed to return held funds", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE reservations SET released_at = $2 WHERE transaction_id = $1;
	`, transactionID, at)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark reservation released", err)
	}

	return r.Commit(ctx, tx)
}

// FindReservationByTransactionID returns the hold owned by the transaction.
func (r *PgxLedgerRepository) FindReservationByTransactionID(ctx context.Context, transactionID string) (*domain.Reservation, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT reservation_id, transaction_id, account_id, amount, expires_at, captured_at, released_at, created_at
		FROM reservations
		WHERE transaction_id = $1;
	`, transactionID)

	var m models.Reservation
	err := row.Scan(&m.ReservationID, &m.TransactionID, &m.AccountID, &m.Amount,
		&m.ExpiresAt, &m.CapturedAt, &m.ReleasedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reservation for transaction %s: %w", transactionID, apperrors.ErrNotFound)
		}
		return nil, apperrors.NewAppError(500, "failed to find reservation", err)
	}

	res := mapping.ToDomainReservation(m)
	return &res, nil
}

// FindEntriesByAccount returns entries in ascending sequence order, bounded by
// upToSequence when positive.
func (r *PgxLedgerRepository) FindEntriesByAccount(ctx context.Context, accountID string, upToSequence int64) ([]domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, account_id, transaction_id, sequence, direction, amount, resulting_balance, created_at
		FROM ledger_entries
		WHERE account_id = $1
	`
	args := []any{accountID}
	if upToSequence > 0 {
		query += ` AND sequence <= $2`
		args = append(args, upToSequence)
	}
	query += ` ORDER BY sequence ASC;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query ledger entries", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

// FindEntriesByTransactionID returns all entries produced by one transaction.
func (r *PgxLedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT entry_id, account_id, transaction_id, sequence, direction, amount, resulting_balance, created_at
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY created_at ASC, sequence ASC;
	`, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query ledger entries by transaction", err)
	}
	defer rows.Close()

	return scanLedgerEntries(rows)
}

func scanLedgerEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	for rows.Next() {
		var m models.LedgerEntry
		err := rows.Scan(&m.EntryID, &m.AccountID, &m.TransactionID, &m.Sequence,
			&m.Direction, &m.Amount, &m.ResultingBalance, &m.CreatedAt)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan ledger entry row", err)
		}
		entries = append(entries, mapping.ToDomainLedgerEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating ledger entry rows", err)
	}
	return entries, nil
}
