package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/middleware"
)

// Handler adapts queue deliveries to the settlement and recovery services.
type Handler struct {
	settlementSvc portssvc.SettlementSvcFacade
	recoverySvc   portssvc.RecoverySvcFacade
	logger        *slog.Logger
}

func NewHandler(settlementSvc portssvc.SettlementSvcFacade, recoverySvc portssvc.RecoverySvcFacade, logger *slog.Logger) *Handler {
	return &Handler{
		settlementSvc: settlementSvc,
		recoverySvc:   recoverySvc,
		logger:        logger,
	}
}

// Register wires the task types into the mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskSettlementExecute, h.HandleSettlementTask)
	mux.HandleFunc(TaskSettlementSweep, h.HandleSweepTask)
}

// HandleSettlementTask executes one settlement attempt. Returning an error
// hands the task back to asynq for a backoff retry; the service itself decides
// when attempts are exhausted, using the delivery metadata passed through.
func (h *Handler) HandleSettlementTask(ctx context.Context, task *asynq.Task) error {
	var payload SettlementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload never heals; drop it.
		return fmt.Errorf("malformed settlement payload: %v: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	attempt := retried + 1
	maxAttempts := maxRetry + 1

	taskLogger := h.logger.With(
		slog.String("task_type", task.Type()),
		slog.String("transaction_id", payload.TransactionID))
	ctx = middleware.ContextWithLogger(ctx, taskLogger)

	return h.settlementSvc.ExecuteSettlement(ctx, payload.TransactionID, attempt, maxAttempts)
}

// HandleSweepTask runs one recovery sweep pass.
func (h *Handler) HandleSweepTask(ctx context.Context, task *asynq.Task) error {
	ctx = middleware.ContextWithLogger(ctx, h.logger.With(slog.String("task_type", task.Type())))
	_, err := h.recoverySvc.SweepStaleReservations(ctx)
	return err
}
