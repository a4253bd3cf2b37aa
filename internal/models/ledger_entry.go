package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry represents an append-only ledger entry row. The table carries a
// unique index on (account_id, transaction_id, direction) which is the
// storage-level duplicate-application guard, and one on (account_id, sequence)
// for the per-account ordering invariant.
type LedgerEntry struct {
	EntryID          string          `db:"entry_id"`
	AccountID        string          `db:"account_id"`
	TransactionID    string          `db:"transaction_id"`
	Sequence         int64           `db:"sequence"`
	Direction        string          `db:"direction"`
	Amount           decimal.Decimal `db:"amount"`
	ResultingBalance decimal.Decimal `db:"resulting_balance"`
	CreatedAt        time.Time       `db:"created_at"`
}

// Reservation represents a hold row. transaction_id is unique: a transaction
// owns at most one hold, settled exactly once.
type Reservation struct {
	ReservationID string          `db:"reservation_id"`
	TransactionID string          `db:"transaction_id"`
	AccountID     string          `db:"account_id"`
	Amount        decimal.Decimal `db:"amount"`
	ExpiresAt     time.Time       `db:"expires_at"`
	CapturedAt    *time.Time      `db:"captured_at"` // Nullable
	ReleasedAt    *time.Time      `db:"released_at"` // Nullable
	CreatedAt     time.Time       `db:"created_at"`
}
