package repositories

import (
	"context"
	"time"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/shopspring/decimal"
)

// EntryCommand describes one ledger entry to apply atomically. Amount is
// always positive; FromHeld marks a debit that consumes previously held funds
// (a capture) instead of the available balance.
type EntryCommand struct {
	AccountID string
	Direction domain.EntryDirection
	Amount    decimal.Decimal
	FromHeld  bool
}

// LedgerRepositoryFacade is the storage contract of the ledger store. Every
// method that mutates balances runs inside a single database transaction,
// locking the affected account rows in ascending account id order so that
// concurrent mutators serialize deterministically and transfers cannot
// deadlock.
type LedgerRepositoryFacade interface {
	// Reserve places a hold: it locks the account, verifies it is active and
	// has sufficient available funds, moves the amount from available to held,
	// records the reservation row and moves the owning transaction from
	// CREATED to RESERVED, all in one commit. A crash therefore never leaves
	// a hold standing against a CREATED transaction. Fails with
	// ErrInsufficientFunds, ErrAccountInactive, ErrNotFound, ErrDuplicate
	// (hold already exists for the transaction) or ErrConflict (the
	// transaction was no longer CREATED).
	Reserve(ctx context.Context, reservation domain.Reservation, reservedBy string) error

	// ApplyEntries appends the given entries and adjusts balances in one
	// atomic unit. An entry for the same (account, transaction, direction)
	// that already exists fails the whole batch with ErrDuplicateApplication,
	// making settlement retries safe at the storage layer. When a FromHeld
	// debit is applied the transaction's reservation is marked captured.
	ApplyEntries(ctx context.Context, transactionID string, entries []EntryCommand) ([]domain.LedgerEntry, error)

	// ReverseAndReleaseHold moves the transaction from the given state to
	// REVERSED and returns its held funds to available in one commit, so a
	// terminal REVERSED state always implies the hold is gone. A transaction
	// without a hold (a deposit) is just transitioned. Fails with ErrConflict
	// when the transaction is no longer in the given state, or
	// ErrDuplicateApplication when the reservation was already settled; both
	// roll the whole unit back.
	ReverseAndReleaseHold(ctx context.Context, transactionID string, from domain.TransactionState, updatedBy string, at time.Time) error

	FindReservationByTransactionID(ctx context.Context, transactionID string) (*domain.Reservation, error)

	// FindEntriesByAccount returns entries in ascending sequence order,
	// bounded by upToSequence when it is positive, for point-in-time balance
	// reconstruction.
	FindEntriesByAccount(ctx context.Context, accountID string, upToSequence int64) ([]domain.LedgerEntry, error)

	FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
}
