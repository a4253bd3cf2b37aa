package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/middleware"
	"github.com/paycore/paycore/internal/utils"
)

const (
	auditRetryAttempts = 3
	auditRetryDelay    = 2 * time.Second
)

type AuditService struct {
	auditRepo portsrepo.AuditRepositoryFacade
}

func NewAuditService(auditRepo portsrepo.AuditRepositoryFacade) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

var _ portssvc.AuditSvcFacade = (*AuditService)(nil)

// RecordTransition appends one audit record for a state transition. It never
// returns an error: the ledger entries are the primary durability guarantee,
// so a failed audit write is logged and retried in the background rather than
// failing the transition that triggered it.
func (s *AuditService) RecordTransition(ctx context.Context, transactionID string, prior, next domain.TransactionState, actor, reason string, payload any) {
	logger := middleware.GetLoggerFromCtx(ctx)

	digest := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			logger.Warn("Failed to marshal audit payload, recording without digest",
				slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		} else {
			digest = utils.PayloadDigest(string(raw))
		}
	}

	event := domain.AuditEvent{
		AuditID:       uuid.NewString(),
		TransactionID: transactionID,
		PriorState:    prior,
		NewState:      next,
		Actor:         actor,
		Reason:        reason,
		PayloadDigest: digest,
		CreatedAt:     time.Now(),
	}

	if err := s.auditRepo.SaveAuditEvent(ctx, event); err == nil {
		return
	} else {
		logger.Warn("Audit write failed, retrying in background",
			slog.String("error", err.Error()),
			slog.String("transaction_id", transactionID),
			slog.String("new_state", string(next)))
	}

	// Detach from the request so the retry survives the caller returning.
	go s.retrySave(context.WithoutCancel(ctx), logger, event)
}

func (s *AuditService) retrySave(ctx context.Context, logger *slog.Logger, event domain.AuditEvent) {
	for attempt := 1; attempt <= auditRetryAttempts; attempt++ {
		select {
		case <-time.After(auditRetryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return
		}
		if err := s.auditRepo.SaveAuditEvent(ctx, event); err == nil {
			return
		} else if attempt == auditRetryAttempts {
			logger.Error("Audit write permanently failed",
				slog.String("error", err.Error()),
				slog.String("transaction_id", event.TransactionID),
				slog.String("audit_id", event.AuditID))
		}
	}
}

func (s *AuditService) ListByTransactionID(ctx context.Context, transactionID string) ([]domain.AuditEvent, error) {
	events, err := s.auditRepo.FindAuditEventsByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		return []domain.AuditEvent{}, nil
	}
	return events, nil
}
