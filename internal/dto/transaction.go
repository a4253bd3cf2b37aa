package dto

import (
	"time"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SubmitTransactionRequest is the inbound transaction intent. The idempotency
// key guarantees the request has exactly one effect regardless of retries.
type SubmitTransactionRequest struct {
	IdempotencyKey       string                 `json:"idempotencyKey" binding:"required,min=8,max=128"`
	Type                 domain.TransactionType `json:"type" binding:"required,oneof=DEPOSIT WITHDRAWAL TRANSFER BILL_PAYMENT"`
	SourceAccountID      *string                `json:"sourceAccountID"`
	DestinationAccountID *string                `json:"destinationAccountID"`
	Amount               decimal.Decimal        `json:"amount" binding:"required"`
	CurrencyCode         string                 `json:"currencyCode" binding:"required,len=3"`
	ExternalDestination  string                 `json:"externalDestination"` // Required for WITHDRAWAL and BILL_PAYMENT
	Description          string                 `json:"description"`
	PIN                  string                 `json:"pin"` // Verified, never stored; excluded from the request fingerprint
}

// TransactionResponse is the caller-facing view of a transaction. Settlement
// outcomes are asynchronous; callers poll by transaction id.
type TransactionResponse struct {
	TransactionID        string                  `json:"transactionID"`
	Type                 domain.TransactionType  `json:"type"`
	State                domain.TransactionState `json:"state"`
	SourceAccountID      *string                 `json:"sourceAccountID,omitempty"`
	DestinationAccountID *string                 `json:"destinationAccountID,omitempty"`
	Amount               decimal.Decimal         `json:"amount"`
	CurrencyCode         string                  `json:"currencyCode"`
	LockedRate           *decimal.Decimal        `json:"lockedRate,omitempty"`
	ConvertedAmount      *decimal.Decimal        `json:"convertedAmount,omitempty"`
	ExternalReference    *string                 `json:"externalReference,omitempty"`
	FailureReason        string                  `json:"failureReason,omitempty"`
	NeedsReconciliation  bool                    `json:"needsReconciliation"`
	CreatedAt            time.Time               `json:"createdAt"`
	LastUpdatedAt        time.Time               `json:"lastUpdatedAt"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:        t.TransactionID,
		Type:                 t.Type,
		State:                t.State,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		CurrencyCode:         t.CurrencyCode,
		LockedRate:           t.LockedRate,
		ConvertedAmount:      t.ConvertedAmount,
		ExternalReference:    t.ExternalReference,
		FailureReason:        t.FailureReason,
		NeedsReconciliation:  t.NeedsReconciliation,
		CreatedAt:            t.CreatedAt,
		LastUpdatedAt:        t.LastUpdatedAt,
	}
}
