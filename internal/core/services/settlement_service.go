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

const settlementActor = "system:settlement"

// SettlementService executes queued settlement tasks. The queue delivers at
// least once; the duplicate-application guard in the ledger store and the
// terminal-state check here make re-deliveries harmless.
type SettlementService struct {
	txnRepo        portsrepo.TransactionRepositoryFacade
	ledgerRepo     portsrepo.LedgerRepositoryFacade
	reservationSvc portssvc.ReservationSvcFacade
	auditSvc       portssvc.AuditSvcFacade
	provider       portssvc.PaymentProvider
}

func NewSettlementService(
	txnRepo portsrepo.TransactionRepositoryFacade,
	ledgerRepo portsrepo.LedgerRepositoryFacade,
	reservationSvc portssvc.ReservationSvcFacade,
	auditSvc portssvc.AuditSvcFacade,
	provider portssvc.PaymentProvider,
) *SettlementService {
	return &SettlementService{
		txnRepo:        txnRepo,
		ledgerRepo:     ledgerRepo,
		reservationSvc: reservationSvc,
		auditSvc:       auditSvc,
		provider:       provider,
	}
}

var _ portssvc.SettlementSvcFacade = (*SettlementService)(nil)

func (s *SettlementService) ExecuteSettlement(ctx context.Context, transactionID string, attempt, maxAttempts int) error {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("transaction_id", transactionID),
		slog.Int("attempt", attempt))

	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.State.IsTerminal() {
		// Terminal states are safe to discard: REVERSED commits together
		// with its hold release, so there is never cleanup left behind one.
		logger.Info("Duplicate settlement delivery for terminal transaction, discarding",
			slog.String("state", string(txn.State)))
		return nil
	}

	switch txn.State {
	case domain.StateReserved:
		err := s.txnRepo.TransitionState(ctx, transactionID, domain.StateReserved, domain.StateSettling, settlementActor, time.Now())
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost a race with another delivery; re-read and decide.
			txn, err = s.txnRepo.FindTransactionByID(ctx, transactionID)
			if err != nil {
				return err
			}
			if txn.State.IsTerminal() {
				return nil
			}
			if txn.State != domain.StateSettling {
				return fmt.Errorf("transaction %s in state %s: %w", transactionID, txn.State, apperrors.ErrConflict)
			}
		} else if err != nil {
			return err
		} else {
			s.auditSvc.RecordTransition(ctx, transactionID, domain.StateReserved, domain.StateSettling, settlementActor, "settlement started", nil)
		}
		txn.State = domain.StateSettling
	case domain.StateSettling:
		// A previous attempt crashed mid-settlement; carry on.
	default:
		return fmt.Errorf("transaction %s in state %s: %w", transactionID, txn.State, apperrors.ErrConflict)
	}

	if !txn.RequiresProvider() {
		return s.capture(ctx, logger, txn)
	}
	return s.settleWithProvider(ctx, logger, txn, attempt, maxAttempts)
}

func (s *SettlementService) settleWithProvider(ctx context.Context, logger *slog.Logger, txn *domain.Transaction, attempt, maxAttempts int) error {
	receipt, err := s.provider.InitiateSettlement(ctx, portssvc.SettlementRequest{
		TransactionID: txn.TransactionID,
		Amount:        txn.Amount,
		CurrencyCode:  txn.CurrencyCode,
		Destination:   txn.ExternalDestination,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDefinitiveProvider) {
			return s.reverse(ctx, logger, txn, err)
		}
		// Transient failure or bare timeout. Never assume the outcome: ask the
		// provider what actually happened before deciding.
		return s.resolveIndeterminate(ctx, logger, txn, attempt, maxAttempts, err)
	}

	if err := s.txnRepo.SetSettlementResult(ctx, txn.TransactionID, refOrNil(receipt.Reference), receipt.Raw, settlementActor, time.Now()); err != nil {
		logger.Error("Failed to record settlement result", slog.String("error", err.Error()))
		return err
	}
	txn.ExternalReference = refOrNil(receipt.Reference)

	switch receipt.Status {
	case portssvc.SettlementSucceeded:
		return s.capture(ctx, logger, txn)
	case portssvc.SettlementFailed:
		return s.reverse(ctx, logger, txn, fmt.Errorf("provider reported failure: %w", apperrors.ErrDefinitiveProvider))
	default:
		pending := fmt.Errorf("settlement still pending at provider: %w", apperrors.ErrTransientProvider)
		if attempt >= maxAttempts {
			return s.exhaust(ctx, logger, txn, pending)
		}
		return pending
	}
}

// resolveIndeterminate handles the case where the initiate call failed without
// a definitive outcome. QueryStatus resolves what the provider actually did;
// only a still-indeterminate answer is retried.
func (s *SettlementService) resolveIndeterminate(ctx context.Context, logger *slog.Logger, txn *domain.Transaction, attempt, maxAttempts int, cause error) error {
	status, raw, err := s.provider.QueryStatus(ctx, txn.TransactionID)
	if err == nil {
		switch status {
		case portssvc.SettlementSucceeded:
			logger.Info("Provider settled despite initiate failure, capturing")
			if len(raw) > 0 {
				if err := s.txnRepo.SetSettlementResult(ctx, txn.TransactionID, nil, raw, settlementActor, time.Now()); err != nil {
					return err
				}
			}
			return s.capture(ctx, logger, txn)
		case portssvc.SettlementFailed:
			return s.reverse(ctx, logger, txn, fmt.Errorf("provider reported failure after timeout: %w", apperrors.ErrDefinitiveProvider))
		}
	} else {
		logger.Warn("Status query failed after indeterminate settlement", slog.String("error", err.Error()))
	}

	if attempt >= maxAttempts {
		return s.exhaust(ctx, logger, txn, cause)
	}
	return fmt.Errorf("settlement attempt failed: %w", cause)
}

// capture applies the transaction's ledger effect and finalizes it. A
// duplicate application means an earlier attempt already moved the money, so
// only the state transition is finished.
func (s *SettlementService) capture(ctx context.Context, logger *slog.Logger, txn *domain.Transaction) error {
	entries := captureEntries(txn)
	if _, err := s.ledgerRepo.ApplyEntries(ctx, txn.TransactionID, entries); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicateApplication) {
			logger.Error("Failed to apply ledger entries", slog.String("error", err.Error()))
			return err
		}
		logger.Info("Ledger entries already applied by an earlier attempt")
	}

	err := s.txnRepo.TransitionState(ctx, txn.TransactionID, domain.StateSettling, domain.StateCaptured, settlementActor, time.Now())
	if errors.Is(err, apperrors.ErrConflict) {
		current, ferr := s.txnRepo.FindTransactionByID(ctx, txn.TransactionID)
		if ferr == nil && current.State.IsTerminal() {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	s.auditSvc.RecordTransition(ctx, txn.TransactionID, domain.StateSettling, domain.StateCaptured, settlementActor, "settlement captured", nil)
	logger.Info("Transaction captured")
	return nil
}

// reverse returns held funds and finalizes the transaction as REVERSED after
// a definitive provider failure. The transition and the release commit as one
// unit: a failure leaves the transaction SETTLING with its hold intact, so the
// next delivery runs the reversal again. Returns nil on success: a definitive
// failure must not be retried by the queue.
func (s *SettlementService) reverse(ctx context.Context, logger *slog.Logger, txn *domain.Transaction, cause error) error {
	now := time.Now()
	err := s.reservationSvc.ReverseHold(ctx, txn.TransactionID, domain.StateSettling, settlementActor, now)
	if errors.Is(err, apperrors.ErrConflict) {
		current, ferr := s.txnRepo.FindTransactionByID(ctx, txn.TransactionID)
		if ferr == nil && current.State.IsTerminal() {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}

	if err := s.txnRepo.SetFailureReason(ctx, txn.TransactionID, cause.Error(), settlementActor, now); err != nil {
		logger.Error("Failed to record failure reason", slog.String("error", err.Error()))
	}

	s.auditSvc.RecordTransition(ctx, txn.TransactionID, domain.StateSettling, domain.StateReversed, settlementActor, cause.Error(), nil)
	logger.Info("Transaction reversed", slog.String("reason", cause.Error()))
	return nil
}

// exhaust finalizes a transaction whose retries ran out without a definitive
// provider answer. The hold is left in place and the transaction is flagged
// for manual reconciliation; releasing funds whose fate is unknown would risk
// a double spend. Returns nil so the queue stops retrying.
func (s *SettlementService) exhaust(ctx context.Context, logger *slog.Logger, txn *domain.Transaction, cause error) error {
	now := time.Now()
	err := s.txnRepo.TransitionState(ctx, txn.TransactionID, domain.StateSettling, domain.StateFailed, settlementActor, now)
	if errors.Is(err, apperrors.ErrConflict) {
		current, ferr := s.txnRepo.FindTransactionByID(ctx, txn.TransactionID)
		if ferr == nil && current.State.IsTerminal() {
			return nil
		}
		return err
	}
	if err != nil {
		return err
	}
	if err := s.txnRepo.MarkReconciliationRequired(ctx, txn.TransactionID, cause.Error(), settlementActor, now); err != nil {
		logger.Error("Failed to flag transaction for reconciliation", slog.String("error", err.Error()))
	}

	s.auditSvc.RecordTransition(ctx, txn.TransactionID, domain.StateSettling, domain.StateFailed, settlementActor, "settlement attempts exhausted: "+cause.Error(), nil)
	logger.Error("Settlement attempts exhausted, transaction flagged for reconciliation",
		slog.String("reason", cause.Error()))
	return nil
}

// captureEntries derives the ledger effect of a captured transaction.
func captureEntries(txn *domain.Transaction) []portsrepo.EntryCommand {
	var entries []portsrepo.EntryCommand
	if txn.SourceAccountID != nil {
		entries = append(entries, portsrepo.EntryCommand{
			AccountID: *txn.SourceAccountID,
			Direction: domain.Debit,
			Amount:    txn.Amount,
			FromHeld:  true,
		})
	}
	if txn.DestinationAccountID != nil {
		entries = append(entries, portsrepo.EntryCommand{
			AccountID: *txn.DestinationAccountID,
			Direction: domain.Credit,
			Amount:    txn.CreditAmount(),
		})
	}
	return entries
}

func refOrNil(ref string) *string {
	if ref == "" {
		return nil
	}
	return &ref
}
