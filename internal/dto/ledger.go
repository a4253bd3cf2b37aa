package dto

import (
	"time"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceResponse reports an account's current monetary position.
type BalanceResponse struct {
	AccountID    string          `json:"accountID"`
	CurrencyCode string          `json:"currencyCode"`
	Available    decimal.Decimal `json:"available"`
	Held         decimal.Decimal `json:"held"`
	Total        decimal.Decimal `json:"total"`
}

// LedgerEntryResponse is the caller-facing view of one ledger entry.
type LedgerEntryResponse struct {
	EntryID          string                `json:"entryID"`
	TransactionID    string                `json:"transactionID"`
	Sequence         int64                 `json:"sequence"`
	Direction        domain.EntryDirection `json:"direction"`
	Amount           decimal.Decimal       `json:"amount"`
	ResultingBalance decimal.Decimal       `json:"resultingBalance"`
	CreatedAt        time.Time             `json:"createdAt"`
}

// LedgerReconciliation is the result of replaying an account's entry sequence
// against its stored balance.
type LedgerReconciliation struct {
	AccountID       string          `json:"accountID"`
	ReplayedBalance decimal.Decimal `json:"replayedBalance"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	EntryCount      int             `json:"entryCount"`
	Consistent      bool            `json:"consistent"`
}

// ToLedgerEntryResponses converts domain entries to DTOs.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	res := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		res[i] = LedgerEntryResponse{
			EntryID:          e.EntryID,
			TransactionID:    e.TransactionID,
			Sequence:         e.Sequence,
			Direction:        e.Direction,
			Amount:           e.Amount,
			ResultingBalance: e.ResultingBalance,
			CreatedAt:        e.CreatedAt,
		}
	}
	return res
}
