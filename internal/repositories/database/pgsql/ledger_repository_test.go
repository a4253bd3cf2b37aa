package pgsql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/paycore/paycore/internal/repositories/database/pgsql"
)

// decimalEq matches a decimal argument by value, not representation.
type decimalEq struct{ want decimal.Decimal }

func (d decimalEq) Match(v any) bool {
	dec, ok := v.(decimal.Decimal)
	return ok && dec.Equal(d.want)
}

func newLedgerRepo(t *testing.T) (pgxmock.PgxPoolIface, *pgsql.PgxLedgerRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := &pgsql.PgxLedgerRepository{BaseRepository: pgsql.BaseRepository{Pool: mock}}
	return mock, repo
}

func lockedAccountRows(accountID string, available, held decimal.Decimal) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"account_id", "available", "held", "status"}).
		AddRow(accountID, available, held, string(domain.AccountActive))
}

func testReservation(amount decimal.Decimal) domain.Reservation {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.Reservation{
		ReservationID: "res-1",
		TransactionID: "txn-1",
		AccountID:     "acc-1",
		Amount:        amount,
		ExpiresAt:     now.Add(15 * time.Minute),
		CreatedAt:     now,
	}
}

func TestLedgerRepository_Reserve_HoldAndStateCommitTogether(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	res := testReservation(decimal.NewFromInt(50))

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(100), decimal.Zero))
	mock.ExpectExec("UPDATE accounts").
		WithArgs("acc-1", decimalEq{res.Amount}, res.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs("res-1", "txn-1", "acc-1", decimalEq{res.Amount}, res.ExpiresAt, res.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "RESERVED", res.CreatedAt, "user-1", "CREATED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	err := repo.Reserve(context.Background(), res, "user-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_Reserve_InsufficientFundsRollsBack(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	res := testReservation(decimal.NewFromInt(500))

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(100), decimal.Zero))
	mock.ExpectRollback()

	err := repo.Reserve(context.Background(), res, "user-1")

	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A transaction that is no longer CREATED aborts the whole unit, taking the
// funds movement and the reservation row down with it.
func TestLedgerRepository_Reserve_StateRaceRollsBackHold(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	res := testReservation(decimal.NewFromInt(50))

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(100), decimal.Zero))
	mock.ExpectExec("UPDATE accounts").
		WithArgs("acc-1", decimalEq{res.Amount}, res.CreatedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs("res-1", "txn-1", "acc-1", decimalEq{res.Amount}, res.ExpiresAt, res.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "RESERVED", res.CreatedAt, "user-1", "CREATED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Reserve(context.Background(), res, "user-1")

	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ApplyEntries_LocksAccountsInAscendingOrder(t *testing.T) {
	mock, repo := newLedgerRepo(t)

	// The capture leg of a transfer: debit acc-b from held, credit acc-a.
	// Entry order is b-then-a, but the locks must be taken a-then-b.
	entries := []portsrepo.EntryCommand{
		{AccountID: "acc-b", Direction: domain.Debit, Amount: decimal.NewFromInt(25), FromHeld: true},
		{AccountID: "acc-a", Direction: domain.Credit, Amount: decimal.NewFromInt(25)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-a").
		WillReturnRows(lockedAccountRows("acc-a", decimal.NewFromInt(40), decimal.Zero))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-b").
		WillReturnRows(lockedAccountRows("acc-b", decimal.NewFromInt(100), decimal.NewFromInt(25)))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc-b", "txn-1", "DEBIT").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc-a", "txn-1", "CREDIT").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery("COALESCE").
		WithArgs("acc-b").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(pgxmock.AnyArg(), "acc-b", "txn-1", int64(7), "DEBIT",
			decimalEq{decimal.NewFromInt(25)}, decimalEq{decimal.NewFromInt(100)}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery("COALESCE").
		WithArgs("acc-a").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(pgxmock.AnyArg(), "acc-a", "txn-1", int64(3), "CREDIT",
			decimalEq{decimal.NewFromInt(25)}, decimalEq{decimal.NewFromInt(65)}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("UPDATE accounts").
		WithArgs("acc-a", decimalEq{decimal.NewFromInt(65)}, decimalEq{decimal.Zero}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs("acc-b", decimalEq{decimal.NewFromInt(100)}, decimalEq{decimal.Zero}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec("UPDATE reservations").
		WithArgs("txn-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	applied, err := repo.ApplyEntries(context.Background(), "txn-1", entries)

	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, int64(7), applied[0].Sequence)
	assert.Equal(t, int64(3), applied[1].Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ApplyEntries_DuplicateApplicationStopsBeforeAnyWrite(t *testing.T) {
	mock, repo := newLedgerRepo(t)

	entries := []portsrepo.EntryCommand{
		{AccountID: "acc-1", Direction: domain.Debit, Amount: decimal.NewFromInt(25), FromHeld: true},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(100), decimal.NewFromInt(25)))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc-1", "txn-1", "DEBIT").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.ApplyEntries(context.Background(), "txn-1", entries)

	require.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The unique index is the backstop when two workers race past the EXISTS
// check; the violation surfaces as the same duplicate-application error.
func TestLedgerRepository_ApplyEntries_UniqueIndexBackstop(t *testing.T) {
	mock, repo := newLedgerRepo(t)

	entries := []portsrepo.EntryCommand{
		{AccountID: "acc-1", Direction: domain.Debit, Amount: decimal.NewFromInt(25), FromHeld: true},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(100), decimal.NewFromInt(25)))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc-1", "txn-1", "DEBIT").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("COALESCE").
		WithArgs("acc-1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(pgxmock.AnyArg(), "acc-1", "txn-1", int64(1), "DEBIT",
			decimalEq{decimal.NewFromInt(25)}, decimalEq{decimal.NewFromInt(100)}, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.ApplyEntries(context.Background(), "txn-1", entries)

	require.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ReverseAndReleaseHold_SingleCommit(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "SETTLING", "REVERSED", at, "system:settlement").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT account_id FROM reservations").
		WithArgs("txn-1").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-1"))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(50), decimal.NewFromInt(25)))
	mock.ExpectQuery("SELECT amount, captured_at, released_at").
		WithArgs("txn-1").
		WillReturnRows(pgxmock.NewRows([]string{"amount", "captured_at", "released_at"}).
			AddRow(decimal.NewFromInt(25), nil, nil))
	mock.ExpectExec("UPDATE accounts").
		WithArgs("acc-1", decimalEq{decimal.NewFromInt(25)}, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE reservations").
		WithArgs("txn-1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	err := repo.ReverseAndReleaseHold(context.Background(), "txn-1", domain.StateSettling, "system:settlement", at)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failed release takes the state transition down with it: the transaction
// stays SETTLING with its hold intact and the next delivery retries the
// whole reversal.
func TestLedgerRepository_ReverseAndReleaseHold_FailedReleaseRollsBackTransition(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "SETTLING", "REVERSED", at, "system:settlement").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT account_id FROM reservations").
		WithArgs("txn-1").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-1"))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(50), decimal.NewFromInt(25)))
	mock.ExpectQuery("SELECT amount, captured_at, released_at").
		WithArgs("txn-1").
		WillReturnRows(pgxmock.NewRows([]string{"amount", "captured_at", "released_at"}).
			AddRow(decimal.NewFromInt(25), nil, nil))
	mock.ExpectExec("UPDATE accounts").
		WithArgs("acc-1", decimalEq{decimal.NewFromInt(25)}, at).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.ReverseAndReleaseHold(context.Background(), "txn-1", domain.StateSettling, "system:settlement", at)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ReverseAndReleaseHold_NoHoldJustTransitions(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "SETTLING", "REVERSED", at, "system:settlement").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT account_id FROM reservations").
		WithArgs("txn-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	err := repo.ReverseAndReleaseHold(context.Background(), "txn-1", domain.StateSettling, "system:settlement", at)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ReverseAndReleaseHold_LostRaceSurfacesConflict(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "SETTLING", "REVERSED", at, "system:settlement").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.ReverseAndReleaseHold(context.Background(), "txn-1", domain.StateSettling, "system:settlement", at)

	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ReverseAndReleaseHold_AlreadySettledRejected(t *testing.T) {
	mock, repo := newLedgerRepo(t)
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	captured := at.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", "SETTLING", "REVERSED", at, "system:settlement").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT account_id FROM reservations").
		WithArgs("txn-1").
		WillReturnRows(pgxmock.NewRows([]string{"account_id"}).AddRow("acc-1"))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("acc-1").
		WillReturnRows(lockedAccountRows("acc-1", decimal.NewFromInt(50), decimal.Zero))
	mock.ExpectQuery("SELECT amount, captured_at, released_at").
		WithArgs("txn-1").
		WillReturnRows(pgxmock.NewRows([]string{"amount", "captured_at", "released_at"}).
			AddRow(decimal.NewFromInt(25), &captured, nil))
	mock.ExpectRollback()

	err := repo.ReverseAndReleaseHold(context.Background(), "txn-1", domain.StateSettling, "system:settlement", at)

	require.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	assert.NoError(t, mock.ExpectationsWereMet())
}
