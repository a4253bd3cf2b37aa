package domain

import (
	"github.com/shopspring/decimal"
)

// AccountStatus indicates whether an account may transact.
type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountFrozen AccountStatus = "FROZEN"
	AccountClosed AccountStatus = "CLOSED"
)

// Account represents a single-currency wallet balance owned by a user.
// Available and Held are maintained exclusively by the ledger store;
// no other component mutates them.
type Account struct {
	AccountID    string          `json:"accountID"`    // Primary Key (UUID)
	OwnerUserID  string          `json:"ownerUserID"`  // FK -> users.user_id (Not Null)
	Name         string          `json:"name"`         // User-defined wallet name
	CurrencyCode string          `json:"currencyCode"` // FK -> currencies.code (Not Null)
	Available    decimal.Decimal `json:"available"`    // Spendable funds, never negative
	Held         decimal.Decimal `json:"held"`         // Funds reserved pending settlement, never negative
	Status       AccountStatus   `json:"status"`
	RequiresPIN  bool            `json:"requiresPIN"` // Withdrawals/bill payments require PIN verification
	PINHash      string          `json:"-"`           // bcrypt hash, empty when RequiresPIN is false
	AuditFields
}

// TotalBalance is the account's full monetary position: available plus held.
func (a Account) TotalBalance() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// IsActive reports whether the account may participate in transactions.
func (a Account) IsActive() bool {
	return a.Status == AccountActive
}
