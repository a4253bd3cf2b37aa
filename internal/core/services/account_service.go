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

type AccountService struct {
	accountRepo  portsrepo.AccountRepositoryFacade
	currencyRepo portsrepo.CurrencyRepositoryFacade
	userRepo     portsrepo.UserRepositoryFacade
}

func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, currencyRepo portsrepo.CurrencyRepositoryFacade, userRepo portsrepo.UserRepositoryFacade) *AccountService {
	return &AccountService{
		accountRepo:  accountRepo,
		currencyRepo: currencyRepo,
		userRepo:     userRepo,
	}
}

var _ portssvc.AccountSvcFacade = (*AccountService)(nil)

func (s *AccountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.userRepo.FindUserByID(ctx, req.OwnerUserID); err != nil {
		return nil, fmt.Errorf("owner lookup: %w", err)
	}
	currency, err := s.currencyRepo.FindCurrencyByCode(ctx, req.CurrencyCode)
	if err != nil {
		return nil, fmt.Errorf("currency lookup: %w", err)
	}
	if !currency.IsActive {
		return nil, fmt.Errorf("currency %s is not active: %w", req.CurrencyCode, apperrors.ErrValidation)
	}

	now := time.Now()
	account := domain.Account{
		AccountID:    uuid.NewString(),
		OwnerUserID:  req.OwnerUserID,
		Name:         req.Name,
		CurrencyCode: req.CurrencyCode,
		Status:       domain.AccountActive,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}
	if req.PIN != "" {
		hash, err := utils.HashPIN(req.PIN)
		if err != nil {
			logger.Error("Failed to hash account PIN", slog.String("error", err.Error()))
			return nil, apperrors.NewAppError(500, "failed to hash PIN", err)
		}
		account.RequiresPIN = true
		account.PINHash = hash
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		logger.Error("Failed to save account in repository", slog.String("error", err.Error()), slog.String("account_id", account.AccountID))
		return nil, err
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("owner_user_id", account.OwnerUserID))
	return &account, nil
}

func (s *AccountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find account by ID in repository", slog.String("error", err.Error()), slog.String("account_id", accountID))
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) GetAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
}

func (s *AccountService) ListAccountsByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	accounts, err := s.accountRepo.ListAccountsByOwner(ctx, ownerUserID)
	if err != nil {
		logger.Error("Failed to list accounts from repository", slog.String("error", err.Error()), slog.String("owner_user_id", ownerUserID))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

// DeactivateAccount closes the account. Closing requires both balances to be
// zero so no funds are stranded.
func (s *AccountService) DeactivateAccount(ctx context.Context, accountID string, updatedBy string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Status == domain.AccountClosed {
		return fmt.Errorf("account %s already closed: %w", accountID, apperrors.ErrValidation)
	}
	if !account.Available.IsZero() || !account.Held.IsZero() {
		return fmt.Errorf("account %s has a non-zero balance: %w", accountID, apperrors.ErrValidation)
	}

	if err := s.accountRepo.UpdateAccountStatus(ctx, accountID, domain.AccountClosed, updatedBy, time.Now()); err != nil {
		logger.Error("Failed to close account in repository", slog.String("error", err.Error()), slog.String("account_id", accountID))
		return err
	}

	logger.Info("Account closed", slog.String("account_id", accountID))
	return nil
}

// VerifyPIN checks the spending PIN when the account requires one. The PIN is
// compared against the bcrypt hash and never logged.
func (s *AccountService) VerifyPIN(ctx context.Context, account *domain.Account, pin string) error {
	if account == nil {
		return fmt.Errorf("account: %w", apperrors.ErrNotFound)
	}
	if !account.RequiresPIN {
		return nil
	}
	if pin == "" || !utils.CheckPINHash(pin, account.PINHash) {
		return fmt.Errorf("invalid PIN for account %s: %w", account.AccountID, apperrors.ErrValidation)
	}
	return nil
}
