package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DebtorStatusRefreshJob rewrites the stored status labels so list views stay
// accurate even when an account crosses its due date without any writes.
type DebtorStatusRefreshJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDebtorStatusRefreshJob(pool *pgxpool.Pool, logger *slog.Logger) *DebtorStatusRefreshJob {
	return &DebtorStatusRefreshJob{pool: pool, logger: logger}
}

// Handle processes TaskDebtorStatusRefresh tasks.
func (j *DebtorStatusRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	tag, err := j.pool.Exec(ctx, `
		UPDATE debtors
		SET status = CASE
			WHEN balance = 0 THEN 'settled'
			WHEN due_date IS NOT NULL AND due_date < NOW() THEN 'overdue'
			WHEN due_date IS NOT NULL AND due_date <= NOW() + INTERVAL '3 days' THEN 'due-soon'
			ELSE 'active'
		END,
		updated_at = NOW()
		WHERE NOT is_archived
		  AND status IS DISTINCT FROM CASE
			WHEN balance = 0 THEN 'settled'
			WHEN due_date IS NOT NULL AND due_date < NOW() THEN 'overdue'
			WHEN due_date IS NOT NULL AND due_date <= NOW() + INTERVAL '3 days' THEN 'due-soon'
			ELSE 'active'
		END`,
	)
	if err != nil {
		return err
	}
	j.logger.Info("debtor statuses refreshed",
		slog.Int64("updated", tag.RowsAffected()),
		slog.String("job", "debtor_status_refresh"),
	)
	return nil
}
