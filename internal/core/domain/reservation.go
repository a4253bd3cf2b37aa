package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reservation is a hold placed against an account's available balance pending
// settlement. It is exclusively owned by its transaction and is released
// (captured or rolled back) exactly once.
type Reservation struct {
	ReservationID string          `json:"reservationID"` // Primary Key (UUID)
	TransactionID string          `json:"transactionID"` // FK -> transactions.transaction_id, unique
	AccountID     string          `json:"accountID"`     // FK -> accounts.account_id
	Amount        decimal.Decimal `json:"amount"`        // Positive; moved from available to held
	ExpiresAt     time.Time       `json:"expiresAt"`
	CapturedAt    *time.Time      `json:"capturedAt"` // Set when the hold became a permanent debit
	ReleasedAt    *time.Time      `json:"releasedAt"` // Set when the hold was returned to available
	CreatedAt     time.Time       `json:"createdAt"`
}

// Settled reports whether the hold has already been captured or released.
func (r Reservation) Settled() bool {
	return r.CapturedAt != nil || r.ReleasedAt != nil
}

// Expired reports whether the hold outlived its TTL without settling.
func (r Reservation) Expired(now time.Time) bool {
	return !r.Settled() && now.After(r.ExpiresAt)
}
