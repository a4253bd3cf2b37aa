package repositories

import (
	"context"

	"github.com/paycore/paycore/internal/core/domain"
)

// AuditRepositoryFacade appends immutable audit records.
type AuditRepositoryFacade interface {
	SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error
	FindAuditEventsByTransactionID(ctx context.Context, transactionID string) ([]domain.AuditEvent, error)
}
