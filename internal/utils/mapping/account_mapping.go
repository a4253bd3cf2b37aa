package mapping

import (
	"github.com/paycore/paycore/internal/core/domain"
	"github.com/paycore/paycore/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:    d.AccountID,
		OwnerUserID:  d.OwnerUserID,
		Name:         d.Name,
		CurrencyCode: d.CurrencyCode,
		Available:    d.Available,
		Held:         d.Held,
		Status:       models.AccountStatus(d.Status),
		RequiresPIN:  d.RequiresPIN,
		PINHash:      d.PINHash,
		AuditFields:  ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:    m.AccountID,
		OwnerUserID:  m.OwnerUserID,
		Name:         m.Name,
		CurrencyCode: m.CurrencyCode,
		Available:    m.Available,
		Held:         m.Held,
		Status:       domain.AccountStatus(m.Status),
		RequiresPIN:  m.RequiresPIN,
		PINHash:      m.PINHash,
		AuditFields:  ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainAccountSlice converts a slice of model Accounts to domain Accounts
func ToDomainAccountSlice(ms []models.Account) []domain.Account {
	ds := make([]domain.Account, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainAccount(m)
	}
	return ds
}
