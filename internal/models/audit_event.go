package models

import "time"

// AuditEvent represents an immutable state-transition record row.
type AuditEvent struct {
	AuditID       string    `db:"audit_id"`
	TransactionID string    `db:"transaction_id"`
	PriorState    string    `db:"prior_state"` // Empty for the initial record
	NewState      string    `db:"new_state"`
	Actor         string    `db:"actor"`
	Reason        string    `db:"reason"`
	PayloadDigest string    `db:"payload_digest"`
	CreatedAt     time.Time `db:"created_at"`
}
