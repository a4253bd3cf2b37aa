package models

import (
	"github.com/shopspring/decimal"
)

// AccountStatus mirrors domain.AccountStatus at the storage layer.
type AccountStatus string

// Account represents a wallet account row.
type Account struct {
	AccountID    string          `db:"account_id"`
	OwnerUserID  string          `db:"owner_user_id"`
	Name         string          `db:"name"`
	CurrencyCode string          `db:"currency_code"`
	Available    decimal.Decimal `db:"available"`
	Held         decimal.Decimal `db:"held"`
	Status       AccountStatus   `db:"status"`
	RequiresPIN  bool            `db:"requires_pin"`
	PINHash      string          `db:"pin_hash"` // Nullable
	AuditFields
}
