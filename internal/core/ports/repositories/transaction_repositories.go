package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/paycore/paycore/internal/core/domain"
)

// KeyOutcome is the result of an idempotency key reservation.
type KeyOutcome int

const (
	// KeyFresh means the key was recorded and the transaction was created;
	// processing may proceed.
	KeyFresh KeyOutcome = iota
	// KeyDuplicate means the key was seen before with the same request
	// fingerprint; the stored transaction's outcome should be returned.
	KeyDuplicate
	// KeyConflict means the key was reused with a different fingerprint.
	KeyConflict
)

// TransactionRepositoryFacade defines persistence operations for transactions
// and the idempotency guard.
type TransactionRepositoryFacade interface {
	// CreateIdempotent atomically reserves the transaction's idempotency key
	// and inserts the row. When the key already exists the stored transaction
	// is returned together with KeyDuplicate or KeyConflict depending on
	// whether the fingerprints match; no side effect occurs.
	CreateIdempotent(ctx context.Context, txn domain.Transaction) (KeyOutcome, *domain.Transaction, error)

	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// TransitionState moves the transaction from one state to another with a
	// compare-and-swap guard on the prior state. A lost race (prior state no
	// longer matches) fails with ErrConflict and leaves the row untouched.
	TransitionState(ctx context.Context, transactionID string, from, to domain.TransactionState, updatedBy string, at time.Time) error

	// SetSettlementResult records the provider reference and opaque provider
	// call metadata gathered during settlement.
	SetSettlementResult(ctx context.Context, transactionID string, externalReference *string, metadata json.RawMessage, updatedBy string, at time.Time) error

	// SetFailureReason records why a transaction failed or was reversed.
	SetFailureReason(ctx context.Context, transactionID string, reason string, updatedBy string, at time.Time) error

	// MarkReconciliationRequired flags a FAILED transaction for manual
	// intervention and records the failure reason.
	MarkReconciliationRequired(ctx context.Context, transactionID string, reason string, updatedBy string, at time.Time) error

	// FindStaleReserved returns transactions stuck in RESERVED longer than
	// the given cutoff, for the recovery sweep.
	FindStaleReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)
}
