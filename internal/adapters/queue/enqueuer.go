package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/middleware"
)

// Enqueuer hands settlement tasks to the asynq queue. Delivery is at least
// once; the settlement service tolerates duplicates.
type Enqueuer struct {
	client      *asynq.Client
	queueName   string
	maxAttempts int
	taskTimeout time.Duration
}

func NewEnqueuer(client *asynq.Client, queueName string, maxAttempts int, taskTimeout time.Duration) *Enqueuer {
	return &Enqueuer{
		client:      client,
		queueName:   queueName,
		maxAttempts: maxAttempts,
		taskTimeout: taskTimeout,
	}
}

var _ portssvc.SettlementEnqueuer = (*Enqueuer)(nil)

func (e *Enqueuer) EnqueueSettlement(ctx context.Context, transactionID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	task, err := NewSettlementTask(transactionID, e.queueName, e.maxAttempts, e.taskTimeout)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue settlement task: %w", err)
	}

	logger.Info("Settlement task enqueued",
		slog.String("transaction_id", transactionID),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue))
	return nil
}
