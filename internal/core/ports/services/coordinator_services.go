package services

import (
	"context"

	"github.com/paycore/paycore/internal/core/domain"
	"github.com/paycore/paycore/internal/dto"
)

// CoordinatorSvcFacade orchestrates the full lifecycle of a monetary
// operation: validate, reserve, enqueue, settle, finalize. It is the only
// entry point through which transaction intents enter the system.
type CoordinatorSvcFacade interface {
	// SubmitTransaction runs the synchronous phase of a transaction:
	// idempotency check, validation, reservation and settlement enqueue (or
	// immediate capture for internal transfers). Duplicate submissions return
	// the stored transaction without reprocessing; a reused key with a
	// different payload fails with ErrConflict.
	SubmitTransaction(ctx context.Context, req dto.SubmitTransactionRequest, actor string) (*domain.Transaction, error)

	GetTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
}
