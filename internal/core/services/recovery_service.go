package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/middleware"
)

const recoveryActor = "system:recovery"

// RecoveryService re-drives RESERVED transactions whose settlement task was
// lost, so held funds never sit in limbo past the reservation TTL.
type RecoveryService struct {
	txnRepo        portsrepo.TransactionRepositoryFacade
	reservationSvc portssvc.ReservationSvcFacade
	auditSvc       portssvc.AuditSvcFacade
	enqueuer       portssvc.SettlementEnqueuer
	reservationTTL time.Duration
	batchSize      int
}

func NewRecoveryService(
	txnRepo portsrepo.TransactionRepositoryFacade,
	reservationSvc portssvc.ReservationSvcFacade,
	auditSvc portssvc.AuditSvcFacade,
	enqueuer portssvc.SettlementEnqueuer,
	reservationTTL time.Duration,
	batchSize int,
) *RecoveryService {
	return &RecoveryService{
		txnRepo:        txnRepo,
		reservationSvc: reservationSvc,
		auditSvc:       auditSvc,
		enqueuer:       enqueuer,
		reservationTTL: reservationTTL,
		batchSize:      batchSize,
	}
}

var _ portssvc.RecoverySvcFacade = (*RecoveryService)(nil)

// SweepStaleReservations scans transactions stuck in RESERVED past the TTL.
// A transaction whose hold is still unexpired gets its settlement re-enqueued;
// one whose hold expired is reversed and the funds returned. Individual
// failures are logged and skipped so one bad row never stalls the sweep.
func (s *RecoveryService) SweepStaleReservations(ctx context.Context) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	stale, err := s.txnRepo.FindStaleReserved(ctx, now.Add(-s.reservationTTL), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale reservations: %w", err)
	}

	acted := 0
	for _, txn := range stale {
		if err := s.recoverOne(ctx, logger, txn, now); err != nil {
			logger.Error("Failed to recover stale transaction",
				slog.String("error", err.Error()),
				slog.String("transaction_id", txn.TransactionID))
			continue
		}
		acted++
	}
	if acted > 0 {
		logger.Info("Recovery sweep completed", slog.Int("recovered", acted), slog.Int("scanned", len(stale)))
	}
	return acted, nil
}

func (s *RecoveryService) recoverOne(ctx context.Context, logger *slog.Logger, txn domain.Transaction, now time.Time) error {
	// Pure credits carry no hold; the only possible recovery is re-driving
	// the lost settlement task.
	if txn.SourceAccountID == nil {
		return s.reenqueue(ctx, logger, txn)
	}

	reservation, err := s.reservationSvc.GetHoldByTransactionID(ctx, txn.TransactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Reserved without a hold row should not happen; flag it rather
			// than guess.
			return s.reverseStale(ctx, txn, "reservation record missing", now)
		}
		return err
	}
	if reservation.Expired(now) {
		return s.reverseStale(ctx, txn, "reservation expired before settlement", now)
	}
	return s.reenqueue(ctx, logger, txn)
}

func (s *RecoveryService) reenqueue(ctx context.Context, logger *slog.Logger, txn domain.Transaction) error {
	if err := s.enqueuer.EnqueueSettlement(ctx, txn.TransactionID); err != nil {
		return fmt.Errorf("failed to re-enqueue settlement: %w", err)
	}
	logger.Info("Re-enqueued lost settlement", slog.String("transaction_id", txn.TransactionID))
	return nil
}

func (s *RecoveryService) reverseStale(ctx context.Context, txn domain.Transaction, reason string, now time.Time) error {
	// The transition to REVERSED and the hold release commit as one unit; a
	// failure leaves the transaction RESERVED for the next sweep to retry.
	if err := s.reservationSvc.ReverseHold(ctx, txn.TransactionID, domain.StateReserved, recoveryActor, now); err != nil {
		// Another worker may have picked it up in the meantime; that is fine.
		if errors.Is(err, apperrors.ErrConflict) {
			return nil
		}
		return err
	}
	if err := s.txnRepo.SetFailureReason(ctx, txn.TransactionID, reason, recoveryActor, now); err != nil {
		return err
	}
	s.auditSvc.RecordTransition(ctx, txn.TransactionID, domain.StateReserved, domain.StateReversed, recoveryActor, reason, nil)
	return nil
}
