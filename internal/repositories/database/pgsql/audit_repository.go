package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	"github.com/paycore/paycore/internal/models"
	"github.com/paycore/paycore/internal/utils/mapping"
)

type PgxAuditRepository struct {
	BaseRepository
}

// newPgxAuditRepository creates a new repository for the audit trail.
func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepositoryFacade {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AuditRepositoryFacade = (*PgxAuditRepository)(nil)

// SaveAuditEvent appends one immutable audit record. Rows are never updated
// or deleted.
func (r *PgxAuditRepository) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO audit_events
			(audit_id, transaction_id, prior_state, new_state, actor, reason, payload_digest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`, event.AuditID, event.TransactionID, string(event.PriorState), string(event.NewState),
		event.Actor, event.Reason, event.PayloadDigest, event.CreatedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert audit event", err)
	}
	return nil
}

// FindAuditEventsByTransactionID returns the audit trail for a transaction in
// chronological order.
func (r *PgxAuditRepository) FindAuditEventsByTransactionID(ctx context.Context, transactionID string) ([]domain.AuditEvent, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT audit_id, transaction_id, prior_state, new_state, actor, reason, payload_digest, created_at
		FROM audit_events
		WHERE transaction_id = $1
		ORDER BY created_at ASC, audit_id ASC;
	`, transactionID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query audit events", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var m models.AuditEvent
		err := rows.Scan(&m.AuditID, &m.TransactionID, &m.PriorState, &m.NewState,
			&m.Actor, &m.Reason, &m.PayloadDigest, &m.CreatedAt)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan audit event row", err)
		}
		events = append(events, mapping.ToDomainAuditEvent(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating audit event rows", err)
	}
	return events, nil
}
