package dto

import (
	"time"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to provision a wallet account.
type CreateAccountRequest struct {
	OwnerUserID  string `json:"ownerUserID" binding:"required"`
	Name         string `json:"name" binding:"required"`
	CurrencyCode string `json:"currencyCode" binding:"required,len=3"`
	PIN          string `json:"pin" binding:"omitempty,numeric,min=4,max=8"` // Optional; enables PIN-gated spending
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID    string               `json:"accountID"`
	OwnerUserID  string               `json:"ownerUserID"`
	Name         string               `json:"name"`
	CurrencyCode string               `json:"currencyCode"`
	Available    decimal.Decimal      `json:"available"`
	Held         decimal.Decimal      `json:"held"`
	Total        decimal.Decimal      `json:"total"`
	Status       domain.AccountStatus `json:"status"`
	RequiresPIN  bool                 `json:"requiresPIN"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse.
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:    acc.AccountID,
		OwnerUserID:  acc.OwnerUserID,
		Name:         acc.Name,
		CurrencyCode: acc.CurrencyCode,
		Available:    acc.Available,
		Held:         acc.Held,
		Total:        acc.TotalBalance(),
		Status:       acc.Status,
		RequiresPIN:  acc.RequiresPIN,
		CreatedAt:    acc.CreatedAt,
	}
}

// ToListAccountResponse converts a slice of domain accounts to DTOs.
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i, acc := range accounts {
		res[i] = ToAccountResponse(&acc)
	}
	return res
}
