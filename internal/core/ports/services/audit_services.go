package services

import (
	"context"

	"github.com/paycore/paycore/internal/core/domain"
)

// AuditSvcFacade appends immutable state-transition records. Emission never
// fails the triggering operation: a failed write is logged and retried in the
// background, the ledger entries themselves being the primary durability
// guarantee.
type AuditSvcFacade interface {
	RecordTransition(ctx context.Context, transactionID string, prior, next domain.TransactionState, actor, reason string, payload any)
	ListByTransactionID(ctx context.Context, transactionID string) ([]domain.AuditEvent, error)
}
