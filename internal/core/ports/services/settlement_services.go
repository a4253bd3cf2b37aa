package services

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the provider's view of a settlement attempt.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementSucceeded SettlementStatus = "succeeded"
	SettlementFailed    SettlementStatus = "failed"
)

// SettlementRequest is the outbound provider call payload.
type SettlementRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	CurrencyCode  string
	Destination   string
}

// SettlementReceipt is the provider's acknowledgement of an initiated
// settlement. Raw carries the opaque wire payload for the audit trail.
type SettlementReceipt struct {
	Reference string
	Status    SettlementStatus
	Raw       json.RawMessage
}

// PaymentProvider abstracts an external settlement rail. Implementations must
// classify failures: transient ones (timeouts, 5xx) wrap
// apperrors.ErrTransientProvider, permanent ones wrap
// apperrors.ErrDefinitiveProvider.
type PaymentProvider interface {
	Name() string
	InitiateSettlement(ctx context.Context, req SettlementRequest) (*SettlementReceipt, error)
	// QueryStatus resolves the definitive state of a previously initiated
	// settlement. Dispatchers call it after a bare timeout instead of
	// guessing the outcome.
	QueryStatus(ctx context.Context, reference string) (SettlementStatus, json.RawMessage, error)
}

// SettlementEnqueuer hands a settlement task to the queue for asynchronous
// execution, delivered at least once.
type SettlementEnqueuer interface {
	EnqueueSettlement(ctx context.Context, transactionID string) error
}

// SettlementSvcFacade executes queued settlement tasks. It is idempotent per
// transaction: replays against terminal transactions are logged and discarded.
type SettlementSvcFacade interface {
	// ExecuteSettlement drives one settlement attempt. attempt and
	// maxAttempts come from the queue's delivery metadata; a transient
	// provider error is returned so the queue retries with backoff, and once
	// attempts are exhausted the transaction fails with the reconciliation
	// flag set.
	ExecuteSettlement(ctx context.Context, transactionID string, attempt, maxAttempts int) error
}
