package repositories

import (
	"context"

	"github.com/paycore/paycore/internal/core/domain"
)

// UserRepositoryFacade defines persistence operations for wallet owners.
type UserRepositoryFacade interface {
	SaveUser(ctx context.Context, user domain.User) error
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
}

// CurrencyRepositoryFacade defines read operations for supported currencies.
type CurrencyRepositoryFacade interface {
	FindCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error)
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
}
