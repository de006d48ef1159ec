package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sariverse/sariverse/internal/shared"
)

// IdempotencyCleanupJob prunes settled idempotency keys past their retention
// window so the table stays small.
type IdempotencyCleanupJob struct {
	store  *shared.IdempotencyStore
	logger *slog.Logger
}

func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{store: store, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	maxAge := time.Duration(payload.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}
	if err := j.store.Cleanup(ctx, maxAge); err != nil {
		return err
	}
	j.logger.Info("idempotency keys pruned",
		slog.Duration("max_age", maxAge),
		slog.String("job", "idempotency_cleanup"),
	)
	return nil
}
