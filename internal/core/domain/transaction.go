package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the monetary operation being performed.
type TransactionType string

const (
	Deposit     TransactionType = "DEPOSIT"
	Withdrawal  TransactionType = "WITHDRAWAL"
	Transfer    TransactionType = "TRANSFER"
	BillPayment TransactionType = "BILL_PAYMENT"
)

// TransactionState is a node in the transaction lifecycle state machine:
//
//	CREATED -> RESERVED -> SETTLING -> {CAPTURED | REVERSED | FAILED}
//
// Terminal states are immutable; any further settlement activity for a
// terminal transaction is discarded as a duplicate delivery.
type TransactionState string

const (
	StateCreated  TransactionState = "CREATED"
	StateReserved TransactionState = "RESERVED"
	StateSettling TransactionState = "SETTLING"
	StateCaptured TransactionState = "CAPTURED"
	StateReversed TransactionState = "REVERSED"
	StateFailed   TransactionState = "FAILED"
)

// IsTerminal reports whether the state permits no further transitions.
func (s TransactionState) IsTerminal() bool {
	switch s {
	case StateCaptured, StateReversed, StateFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving to next.
func (s TransactionState) CanTransitionTo(next TransactionState) bool {
	switch s {
	case StateCreated:
		return next == StateReserved || next == StateFailed
	case StateReserved:
		return next == StateSettling || next == StateReversed || next == StateFailed
	case StateSettling:
		return next == StateCaptured || next == StateReversed || next == StateFailed
	}
	return false
}

// Transaction is a single monetary intent moving through the lifecycle state
// machine. Exactly one row exists per idempotency key; its ledger effect is
// applied at most once regardless of retries. Once terminal it is immutable.
type Transaction struct {
	TransactionID        string           `json:"transactionID"`  // Primary Key (UUID)
	IdempotencyKey       string           `json:"idempotencyKey"` // Unique, caller supplied
	RequestFingerprint   string           `json:"-"`              // SHA-256 digest of the canonical request payload
	Type                 TransactionType  `json:"type"`
	SourceAccountID      *string          `json:"sourceAccountID"`      // Nil for deposits
	DestinationAccountID *string          `json:"destinationAccountID"` // Nil for withdrawals and bill payments
	Amount               decimal.Decimal  `json:"amount"`               // Positive, in CurrencyCode
	CurrencyCode         string           `json:"currencyCode"`
	ExternalDestination  string           `json:"externalDestination,omitempty"` // Provider-side destination for withdrawals/bill payments
	Description          string           `json:"description,omitempty"`
	State                TransactionState `json:"state"`
	ExternalReference    *string          `json:"externalReference"` // Provider transaction id, nil until settlement
	LockedRate           *decimal.Decimal `json:"lockedRate"`        // Cross-currency transfers: rate fixed at reservation
	ConvertedAmount      *decimal.Decimal `json:"convertedAmount"`   // Amount credited to destination, in its currency
	FailureReason        string           `json:"failureReason,omitempty"`
	NeedsReconciliation  bool             `json:"needsReconciliation"` // FAILED transactions awaiting manual intervention
	ProviderMetadata     json.RawMessage  `json:"-"`                   // Opaque provider call/response pairs for audit
	AuditFields
}

// IsCrossCurrency reports whether the transaction credits a currency other
// than the one it debits.
func (t Transaction) IsCrossCurrency() bool {
	return t.LockedRate != nil && t.ConvertedAmount != nil
}

// CreditAmount is the amount applied to the destination account, honouring a
// locked conversion rate when present.
func (t Transaction) CreditAmount() decimal.Decimal {
	if t.ConvertedAmount != nil {
		return *t.ConvertedAmount
	}
	return t.Amount
}

// RequiresProvider reports whether settlement needs the external payment
// provider. Internal transfers settle synchronously without one.
func (t Transaction) RequiresProvider() bool {
	return t.Type != Transfer
}

// Validate checks structural invariants of the intent. It does not consult
// account state; that is the coordinator's job.
func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return fmt.Errorf("transaction amount must be positive, got %s", t.Amount)
	}
	switch t.Type {
	case Deposit:
		if t.DestinationAccountID == nil {
			return fmt.Errorf("deposit requires a destination account")
		}
	case Withdrawal, BillPayment:
		if t.SourceAccountID == nil {
			return fmt.Errorf("%s requires a source account", t.Type)
		}
		if t.ExternalDestination == "" {
			return fmt.Errorf("%s requires an external destination", t.Type)
		}
	case Transfer:
		if t.SourceAccountID == nil || t.DestinationAccountID == nil {
			return fmt.Errorf("transfer requires both source and destination accounts")
		}
		if *t.SourceAccountID == *t.DestinationAccountID {
			return fmt.Errorf("transfer source and destination must differ")
		}
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	if t.LockedRate != nil && !t.LockedRate.IsPositive() {
		return fmt.Errorf("locked rate must be positive")
	}
	return nil
}
