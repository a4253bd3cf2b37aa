package domain

import "time"

// AuditEvent is an immutable record of a single transaction state transition.
// The audit trail is ordered per transaction and is sufficient to reconstruct
// the full lifecycle for compliance review.
type AuditEvent struct {
	AuditID       string           `json:"auditID"` // Primary Key (UUID)
	TransactionID string           `json:"transactionID"`
	PriorState    TransactionState `json:"priorState"` // Empty for the initial CREATED record
	NewState      TransactionState `json:"newState"`
	Actor         string           `json:"actor"`  // User id or system component name
	Reason        string           `json:"reason"` // Human-readable transition cause
	PayloadDigest string           `json:"payloadDigest"`
	CreatedAt     time.Time        `json:"createdAt"`
}
