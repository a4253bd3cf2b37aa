package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryDirection indicates whether a ledger entry is a Debit or a Credit.
type EntryDirection string

const (
	Debit  EntryDirection = "DEBIT"
	Credit EntryDirection = "CREDIT"
)

// LedgerEntry is an immutable record of a single monetary movement against one
// account. Entries are append-only; corrections are new entries. Sequence is
// strictly increasing per account, and folding all entries for an account in
// sequence order must reproduce its stored total balance.
type LedgerEntry struct {
	EntryID          string          `json:"entryID"`          // Primary Key (UUID)
	AccountID        string          `json:"accountID"`        // FK -> accounts.account_id (Not Null)
	TransactionID    string          `json:"transactionID"`    // FK -> transactions.transaction_id (Not Null)
	Sequence         int64           `json:"sequence"`         // Monotonic per account, starts at 1
	Direction        EntryDirection  `json:"direction"`        // DEBIT or CREDIT
	Amount           decimal.Decimal `json:"amount"`           // Positive value
	ResultingBalance decimal.Decimal `json:"resultingBalance"` // Total balance (available + held) after this entry
	CreatedAt        time.Time       `json:"createdAt"`
}

// SignedAmount returns the entry amount with its balance effect sign applied.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}
