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
	"github.com/paycore/paycore/internal/dto"
	"github.com/paycore/paycore/internal/middleware"
	"github.com/paycore/paycore/internal/utils"
)

// CoordinatorService drives transactions through their lifecycle. It owns the
// synchronous phase only; the settlement service takes over once a task is on
// the queue.
type CoordinatorService struct {
	txnRepo        portsrepo.TransactionRepositoryFacade
	currencyRepo   portsrepo.CurrencyRepositoryFacade
	accountSvc     portssvc.AccountSvcFacade
	reservationSvc portssvc.ReservationSvcFacade
	conversionSvc  portssvc.ConversionSvcFacade
	auditSvc       portssvc.AuditSvcFacade
	enqueuer       portssvc.SettlementEnqueuer
	settlementSvc  portssvc.SettlementSvcFacade
	reservationTTL time.Duration
}

func NewCoordinatorService(
	txnRepo portsrepo.TransactionRepositoryFacade,
	currencyRepo portsrepo.CurrencyRepositoryFacade,
	accountSvc portssvc.AccountSvcFacade,
	reservationSvc portssvc.ReservationSvcFacade,
	conversionSvc portssvc.ConversionSvcFacade,
	auditSvc portssvc.AuditSvcFacade,
	enqueuer portssvc.SettlementEnqueuer,
	settlementSvc portssvc.SettlementSvcFacade,
	reservationTTL time.Duration,
) *CoordinatorService {
	return &CoordinatorService{
		txnRepo:        txnRepo,
		currencyRepo:   currencyRepo,
		accountSvc:     accountSvc,
		reservationSvc: reservationSvc,
		conversionSvc:  conversionSvc,
		auditSvc:       auditSvc,
		enqueuer:       enqueuer,
		settlementSvc:  settlementSvc,
		reservationTTL: reservationTTL,
	}
}

var _ portssvc.CoordinatorSvcFacade = (*CoordinatorService)(nil)

func (s *CoordinatorService) SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest, actor string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	txn := domain.Transaction{
		TransactionID:        uuid.NewString(),
		IdempotencyKey:       req.IdempotencyKey,
		RequestFingerprint:   utils.RequestFingerprint(string(req.Type), req.SourceAccountID, req.DestinationAccountID, req.Amount, req.CurrencyCode, req.ExternalDestination),
		Type:                 req.Type,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		CurrencyCode:         req.CurrencyCode,
		ExternalDestination:  req.ExternalDestination,
		Description:          req.Description,
		State:                domain.StateCreated,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}
	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}
	if err := s.checkAmountPrecision(ctx, &txn); err != nil {
		return nil, err
	}

	accounts, err := s.checkAccounts(ctx, &txn, req.PIN)
	if err != nil {
		return nil, err
	}

	// Cross-currency transfer: lock the rate now so capture converts with the
	// same rate no matter how long settlement takes.
	if txn.Type == domain.Transfer {
		dest := accounts[*txn.DestinationAccountID]
		if dest.CurrencyCode != txn.CurrencyCode {
			converted, err := s.conversionSvc.Convert(ctx, txn.Amount, txn.CurrencyCode, dest.CurrencyCode, now)
			if err != nil {
				return nil, err
			}
			txn.LockedRate = &converted.Rate
			txn.ConvertedAmount = &converted.Amount
		}
	}

	outcome, stored, err := s.txnRepo.CreateIdempotent(ctx, txn)
	if err != nil {
		logger.Error("Failed to create transaction", slog.String("error", err.Error()), slog.String("idempotency_key", req.IdempotencyKey))
		return nil, err
	}
	switch outcome {
	case portsrepo.KeyConflict:
		return nil, fmt.Errorf("idempotency key %s reused with a different payload: %w", req.IdempotencyKey, apperrors.ErrConflict)
	case portsrepo.KeyDuplicate:
		logger.Info("Duplicate submission, returning stored transaction",
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.String("transaction_id", stored.TransactionID))
		return stored, nil
	}

	s.auditSvc.RecordTransition(ctx, txn.TransactionID, "", domain.StateCreated, actor, "transaction accepted", txn)

	// Reservation phase. Deposits take no hold; credits apply at capture
	// only. PlaceHold commits the hold and the CREATED to RESERVED move as
	// one unit, so no failure can strand held funds on a CREATED transaction.
	if txn.SourceAccountID != nil {
		if err := s.reservationSvc.PlaceHold(ctx, &txn, s.reservationTTL, actor); err != nil {
			s.failCreated(ctx, &txn, actor, err)
			return nil, err
		}
	} else {
		if err := s.txnRepo.TransitionState(ctx, txn.TransactionID, domain.StateCreated, domain.StateReserved, actor, time.Now()); err != nil {
			logger.Error("Failed to mark transaction reserved", slog.String("error", err.Error()), slog.String("transaction_id", txn.TransactionID))
			return nil, err
		}
	}
	txn.State = domain.StateReserved
	s.auditSvc.RecordTransition(ctx, txn.TransactionID, domain.StateCreated, domain.StateReserved, actor, "funds reserved", nil)

	if txn.RequiresProvider() {
		// An enqueue failure is not fatal: the transaction stays RESERVED and
		// the recovery sweep re-enqueues it.
		if err := s.enqueuer.EnqueueSettlement(ctx, txn.TransactionID); err != nil {
			logger.Warn("Failed to enqueue settlement, leaving for recovery sweep",
				slog.String("error", err.Error()),
				slog.String("transaction_id", txn.TransactionID))
		}
		return &txn, nil
	}

	// Internal transfers settle synchronously; no provider is involved.
	if err := s.settlementSvc.ExecuteSettlement(ctx, txn.TransactionID, 1, 1); err != nil {
		return nil, err
	}
	return s.txnRepo.FindTransactionByID(ctx, txn.TransactionID)
}

// checkAmountPrecision rejects amounts carrying more decimal places than the
// transaction currency supports. The ledger stores amounts exactly, but
// providers wire whole minor units; admitting excess precision would debit
// the ledger more than ever leaves the building.
func (s *CoordinatorService) checkAmountPrecision(ctx context.Context, txn *domain.Transaction) error {
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, txn.CurrencyCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("currency %s is not supported: %w", txn.CurrencyCode, apperrors.ErrValidation)
		}
		return err
	}
	if !currency.IsActive {
		return fmt.Errorf("currency %s is not active: %w", txn.CurrencyCode, apperrors.ErrValidation)
	}
	if !txn.Amount.Equal(txn.Amount.Round(int32(currency.Precision))) {
		return fmt.Errorf("amount %s exceeds the %d decimal places of %s: %w",
			txn.Amount, currency.Precision, txn.CurrencyCode, apperrors.ErrValidation)
	}
	return nil
}

// checkAccounts loads the accounts the intent touches and enforces existence,
// status, currency and PIN rules before any state is recorded.
func (s *CoordinatorService) checkAccounts(ctx context.Context, txn *domain.Transaction, pin string) (map[string]domain.Account, error) {
	var ids []string
	if txn.SourceAccountID != nil {
		ids = append(ids, *txn.SourceAccountID)
	}
	if txn.DestinationAccountID != nil {
		ids = append(ids, *txn.DestinationAccountID)
	}

	accounts, err := s.accountSvc.GetAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		acc, ok := accounts[id]
		if !ok {
			return nil, fmt.Errorf("account %s: %w", id, apperrors.ErrNotFound)
		}
		if !acc.IsActive() {
			return nil, fmt.Errorf("account %s is %s: %w", id, acc.Status, apperrors.ErrAccountInactive)
		}
	}

	// The debit leg is always denominated in the request currency; only the
	// credit leg of a transfer may differ.
	if txn.SourceAccountID != nil {
		src := accounts[*txn.SourceAccountID]
		if src.CurrencyCode != txn.CurrencyCode {
			return nil, fmt.Errorf("source account currency %s does not match transaction currency %s: %w", src.CurrencyCode, txn.CurrencyCode, apperrors.ErrValidation)
		}
		srcCopy := src
		if err := s.accountSvc.VerifyPIN(ctx, &srcCopy, pin); err != nil {
			return nil, err
		}
	}
	if txn.Type == domain.Deposit {
		dest := accounts[*txn.DestinationAccountID]
		if dest.CurrencyCode != txn.CurrencyCode {
			return nil, fmt.Errorf("destination account currency %s does not match deposit currency %s: %w", dest.CurrencyCode, txn.CurrencyCode, apperrors.ErrValidation)
		}
	}
	return accounts, nil
}

// failCreated moves a freshly created transaction straight to FAILED after a
// reservation failure. Best effort; the original error is what the caller sees.
func (s *CoordinatorService) failCreated(ctx context.Context, txn *domain.Transaction, actor string, cause error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now()

	if err := s.txnRepo.TransitionState(ctx, txn.TransactionID, domain.StateCreated, domain.StateFailed, actor, now); err != nil {
		logger.Error("Failed to mark transaction failed", slog.String("error", err.Error()), slog.String("transaction_id", txn.TransactionID))
		return
	}
	if err := s.txnRepo.SetFailureReason(ctx, txn.TransactionID, cause.Error(), actor, now); err != nil {
		logger.Error("Failed to record failure reason", slog.String("error", err.Error()), slog.String("transaction_id", txn.TransactionID))
	}
	s.auditSvc.RecordTransition(ctx, txn.TransactionID, domain.StateCreated, domain.StateFailed, actor, cause.Error(), nil)
}

func (s *CoordinatorService) GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		}
		return nil, err
	}
	return txn, nil
}
