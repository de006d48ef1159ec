package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity recomputes debtor balances from the ledger.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskDebtorStatusRefresh rewrites derived debtor statuses.
	TaskDebtorStatusRefresh = "debtors:status_refresh"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LedgerIntegrityPayload bounds a ledger reconciliation run.
type LedgerIntegrityPayload struct {
	Concurrency int `json:"concurrency"`
}

// NewLedgerIntegrityTask constructs a ledger reconciliation task.
func NewLedgerIntegrityTask(concurrency int) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{Concurrency: concurrency})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewDebtorStatusRefreshTask constructs a status refresh task.
func NewDebtorStatusRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskDebtorStatusRefresh, nil)
}

// IdempotencyCleanupPayload carries the retention window in hours.
type IdempotencyCleanupPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(maxAgeHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{MaxAgeHours: maxAgeHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
