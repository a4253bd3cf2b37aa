package mapping

import (
	"github.com/paycore/paycore/internal/core/domain"
	"github.com/paycore/paycore/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	return models.Transaction{
		TransactionID:        d.TransactionID,
		IdempotencyKey:       d.IdempotencyKey,
		RequestFingerprint:   d.RequestFingerprint,
		Type:                 string(d.Type),
		SourceAccountID:      d.SourceAccountID,
		DestinationAccountID: d.DestinationAccountID,
		Amount:               d.Amount,
		CurrencyCode:         d.CurrencyCode,
		ExternalDestination:  d.ExternalDestination,
		Description:          d.Description,
		State:                string(d.State),
		ExternalReference:    d.ExternalReference,
		LockedRate:           d.LockedRate,
		ConvertedAmount:      d.ConvertedAmount,
		FailureReason:        d.FailureReason,
		NeedsReconciliation:  d.NeedsReconciliation,
		ProviderMetadata:     d.ProviderMetadata,
		AuditFields:          ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	return domain.Transaction{
		TransactionID:        m.TransactionID,
		IdempotencyKey:       m.IdempotencyKey,
		RequestFingerprint:   m.RequestFingerprint,
		Type:                 domain.TransactionType(m.Type),
		SourceAccountID:      m.SourceAccountID,
		DestinationAccountID: m.DestinationAccountID,
		Amount:               m.Amount,
		CurrencyCode:         m.CurrencyCode,
		ExternalDestination:  m.ExternalDestination,
		Description:          m.Description,
		State:                domain.TransactionState(m.State),
		ExternalReference:    m.ExternalReference,
		LockedRate:           m.LockedRate,
		ConvertedAmount:      m.ConvertedAmount,
		FailureReason:        m.FailureReason,
		NeedsReconciliation:  m.NeedsReconciliation,
		ProviderMetadata:     m.ProviderMetadata,
		AuditFields:          ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:          m.EntryID,
		AccountID:        m.AccountID,
		TransactionID:    m.TransactionID,
		Sequence:         m.Sequence,
		Direction:        domain.EntryDirection(m.Direction),
		Amount:           m.Amount,
		ResultingBalance: m.ResultingBalance,
		CreatedAt:        m.CreatedAt,
	}
}

// ToDomainReservation converts a model Reservation to a domain Reservation
func ToDomainReservation(m models.Reservation) domain.Reservation {
	return domain.Reservation{
		ReservationID: m.ReservationID,
		TransactionID: m.TransactionID,
		AccountID:     m.AccountID,
		Amount:        m.Amount,
		ExpiresAt:     m.ExpiresAt,
		CapturedAt:    m.CapturedAt,
		ReleasedAt:    m.ReleasedAt,
		CreatedAt:     m.CreatedAt,
	}
}

// ToDomainAuditEvent converts a model AuditEvent to a domain AuditEvent
func ToDomainAuditEvent(m models.AuditEvent) domain.AuditEvent {
	return domain.AuditEvent{
		AuditID:       m.AuditID,
		TransactionID: m.TransactionID,
		PriorState:    domain.TransactionState(m.PriorState),
		NewState:      domain.TransactionState(m.NewState),
		Actor:         m.Actor,
		Reason:        m.Reason,
		PayloadDigest: m.PayloadDigest,
		CreatedAt:     m.CreatedAt,
	}
}
