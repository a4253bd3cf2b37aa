package repositories

import (
	"context"
	"time"

	"github.com/paycore/paycore/internal/core/domain"
)

// AccountRepositoryFacade defines persistence operations for accounts.
// Balance columns are read-only through this interface; only the ledger
// repository mutates them.
type AccountRepositoryFacade interface {
	SaveAccount(ctx context.Context, account domain.Account) error
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error)
	UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, updatedBy string, at time.Time) error
}
