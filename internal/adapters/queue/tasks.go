package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskSettlementExecute drives one settlement attempt for a transaction.
	TaskSettlementExecute = "settlement:execute"
	// TaskSettlementSweep runs the recovery sweep over stale reservations.
	TaskSettlementSweep = "settlement:sweep"
)

// SettlementPayload is the wire payload of a settlement task.
type SettlementPayload struct {
	TransactionID string `json:"transaction_id"`
}

// NewSettlementTask builds the queue task for one transaction's settlement.
func NewSettlementTask(transactionID, queueName string, maxAttempts int, timeout time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(SettlementPayload{TransactionID: transactionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settlement payload: %w", err)
	}
	return asynq.NewTask(TaskSettlementExecute, payload,
		asynq.MaxRetry(maxAttempts-1),
		asynq.Timeout(timeout),
		asynq.Queue(queueName),
	), nil
}

// NewSweepTask builds the periodic recovery sweep task.
func NewSweepTask(queueName string) *asynq.Task {
	return asynq.NewTask(TaskSettlementSweep, nil,
		asynq.MaxRetry(0),
		asynq.Queue(queueName),
	)
}
