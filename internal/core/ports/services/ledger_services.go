package services

import (
	"context"
	"time"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/paycore/paycore/internal/dto"
)

// LedgerSvcFacade exposes read operations over the ledger store: current
// balances, entry history and point-in-time reconstruction.
type LedgerSvcFacade interface {
	GetBalance(ctx context.Context, accountID string) (*dto.BalanceResponse, error)
	// ListEntries returns the account's entries in sequence order, bounded by
	// upToSequence when positive.
	ListEntries(ctx context.Context, accountID string, upToSequence int64) ([]domain.LedgerEntry, error)
	// ReconcileHistory folds the account's full entry sequence and compares
	// the result with the stored balance.
	ReconcileHistory(ctx context.Context, accountID string) (*dto.LedgerReconciliation, error)
}

// ReservationSvcFacade places and releases holds against account balances
// pending settlement.
type ReservationSvcFacade interface {
	// PlaceHold moves the transaction's debit amount from available to held
	// on the source account, with the given TTL. The transaction flips from
	// CREATED to RESERVED in the same commit as the hold.
	PlaceHold(ctx context.Context, txn *domain.Transaction, ttl time.Duration, actor string) error
	// ReverseHold finalizes the transaction as REVERSED and returns its held
	// funds in one commit. Losing the state race fails with ErrConflict; a
	// reservation already captured or released fails with
	// ErrDuplicateApplication. Neither leaves a partial effect behind.
	ReverseHold(ctx context.Context, transactionID string, from domain.TransactionState, actor string, at time.Time) error
	GetHoldByTransactionID(ctx context.Context, transactionID string) (*domain.Reservation, error)
}

// RecoverySvcFacade re-drives transactions whose settlement was lost.
type RecoverySvcFacade interface {
	// SweepStaleReservations scans RESERVED transactions older than the
	// reservation TTL and either re-enqueues their settlement or reverses
	// them, so funds are never held indefinitely. Returns the number of
	// transactions acted upon.
	SweepStaleReservations(ctx context.Context) (int, error)
}
