package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/middleware"
)

type ReservationService struct {
	ledgerRepo portsrepo.LedgerRepositoryFacade
}

func NewReservationService(ledgerRepo portsrepo.LedgerRepositoryFacade) *ReservationService {
	return &ReservationService{ledgerRepo: ledgerRepo}
}

var _ portssvc.ReservationSvcFacade = (*ReservationService)(nil)

// PlaceHold reserves the transaction's debit amount on the source account and
// marks the transaction RESERVED in the same commit. The storage layer
// verifies funds and account status under the row lock.
func (s *ReservationService) PlaceHold(ctx context.Context, txn *domain.Transaction, ttl time.Duration, actor string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if txn.SourceAccountID == nil {
		return fmt.Errorf("transaction %s has no source account to hold against: %w", txn.TransactionID, apperrors.ErrValidation)
	}

	now := time.Now()
	reservation := domain.Reservation{
		ReservationID: uuid.NewString(),
		TransactionID: txn.TransactionID,
		AccountID:     *txn.SourceAccountID,
		Amount:        txn.Amount,
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
	}

	if err := s.ledgerRepo.Reserve(ctx, reservation, actor); err != nil {
		if !errors.Is(err, apperrors.ErrInsufficientFunds) && !errors.Is(err, apperrors.ErrAccountInactive) && !errors.Is(err, apperrors.ErrDuplicate) {
			logger.Error("Failed to place hold", slog.String("error", err.Error()), slog.String("transaction_id", txn.TransactionID))
		}
		return err
	}

	logger.Info("Hold placed",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("account_id", reservation.AccountID),
		slog.String("amount", reservation.Amount.String()))
	return nil
}

// ReverseHold finalizes the transaction as REVERSED and returns its held
// funds in a single commit, so the terminal state and the release can never
// land separately.
func (s *ReservationService) ReverseHold(ctx context.Context, transactionID string, from domain.TransactionState, actor string, at time.Time) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.ledgerRepo.ReverseAndReleaseHold(ctx, transactionID, from, actor, at); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) && !errors.Is(err, apperrors.ErrDuplicateApplication) {
			logger.Error("Failed to reverse hold", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return err
	}

	logger.Info("Transaction reversed and hold released", slog.String("transaction_id", transactionID))
	return nil
}

func (s *ReservationService) GetHoldByTransactionID(ctx context.Context, transactionID string) (*domain.Reservation, error) {
	return s.ledgerRepo.FindReservationByTransactionID(ctx, transactionID)
}
