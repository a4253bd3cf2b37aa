package services

import (
	"context"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/paycore/paycore/internal/dto"
)

// AccountSvcFacade provisions and reads wallet accounts. Balances are
// read-only here; only ledger store operations move money.
type AccountSvcFacade interface {
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	GetAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error)
	// DeactivateAccount soft-archives the account; accounts are never deleted.
	DeactivateAccount(ctx context.Context, accountID string, updatedBy string) error
	// VerifyPIN checks a spending PIN against the account's stored hash.
	// Accounts without a PIN requirement always pass.
	VerifyPIN(ctx context.Context, account *domain.Account, pin string) error
}

// UserSvcFacade provisions wallet owners.
type UserSvcFacade interface {
	CreateUser(ctx context.Context, req dto.CreateUserRequest, creator string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
}
