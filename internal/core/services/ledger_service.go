package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/dto"
	"github.com/paycore/paycore/internal/middleware"
	"github.com/shopspring/decimal"
)

type LedgerService struct {
	ledgerRepo  portsrepo.LedgerRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
}

func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade) *LedgerService {
	return &LedgerService{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
	}
}

var _ portssvc.LedgerSvcFacade = (*LedgerService)(nil)

func (s *LedgerService) GetBalance(ctx context.Context, accountID string) (*dto.BalanceResponse, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &dto.BalanceResponse{
		AccountID:    account.AccountID,
		CurrencyCode: account.CurrencyCode,
		Available:    account.Available,
		Held:         account.Held,
		Total:        account.TotalBalance(),
	}, nil
}

func (s *LedgerService) ListEntries(ctx context.Context, accountID string, upToSequence int64) ([]domain.LedgerEntry, error) {
	if _, err := s.accountRepo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.FindEntriesByAccount(ctx, accountID, upToSequence)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	if entries == nil {
		return []domain.LedgerEntry{}, nil
	}
	return entries, nil
}

// ReconcileHistory replays the account's full entry sequence from zero and
// compares the folded result with the stored total balance. The two must
// always agree; a mismatch indicates ledger corruption and is logged at error
// level.
func (s *LedgerService) ReconcileHistory(ctx context.Context, accountID string) (*dto.LedgerReconciliation, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.FindEntriesByAccount(ctx, accountID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries for reconciliation: %w", err)
	}

	replayed := decimal.Zero
	for _, e := range entries {
		replayed = replayed.Add(e.SignedAmount())
	}
	stored := account.TotalBalance()

	result := &dto.LedgerReconciliation{
		AccountID:       accountID,
		ReplayedBalance: replayed,
		StoredBalance:   stored,
		EntryCount:      len(entries),
		Consistent:      replayed.Equal(stored),
	}
	if !result.Consistent {
		logger.Error("Ledger replay mismatch",
			slog.String("account_id", accountID),
			slog.String("replayed", replayed.String()),
			slog.String("stored", stored.String()),
			slog.Int("entry_count", len(entries)))
	}
	return result, nil
}
