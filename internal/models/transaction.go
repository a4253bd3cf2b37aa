package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Transaction represents a transaction row. The idempotency_key column
// carries a unique constraint; the fingerprint column lets the idempotency
// guard distinguish retries from conflicting reuse.
type Transaction struct {
	TransactionID        string           `db:"transaction_id"`
	IdempotencyKey       string           `db:"idempotency_key"`
	RequestFingerprint   string           `db:"request_fingerprint"`
	Type                 string           `db:"transaction_type"`
	SourceAccountID      *string          `db:"source_account_id"`      // Nullable
	DestinationAccountID *string          `db:"destination_account_id"` // Nullable
	Amount               decimal.Decimal  `db:"amount"`
	CurrencyCode         string           `db:"currency_code"`
	ExternalDestination  string           `db:"external_destination"`
	Description          string           `db:"description"`
	State                string           `db:"state"`
	ExternalReference    *string          `db:"external_reference"` // Nullable
	LockedRate           *decimal.Decimal `db:"locked_rate"`        // Nullable
	ConvertedAmount      *decimal.Decimal `db:"converted_amount"`   // Nullable
	FailureReason        string           `db:"failure_reason"`
	NeedsReconciliation  bool             `db:"needs_reconciliation"`
	ProviderMetadata     json.RawMessage  `db:"provider_metadata"` // JSONB, nullable
	AuditFields
}
