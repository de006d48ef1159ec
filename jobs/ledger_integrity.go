package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/sariverse/sariverse/internal/observability"
)

// driftTolerance absorbs float accumulation noise when comparing balances.
const driftTolerance = 0.005

// LedgerIntegrityJob recomputes every debtor's balance from the ledger and
// flags rows where sum(charges) - sum(payments) no longer matches the stored
// balance.
type LedgerIntegrityJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewLedgerIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	concurrency := payload.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	rows, err := j.pool.Query(ctx, `SELECT id, balance FROM debtors WHERE NOT is_archived`)
	if err != nil {
		return err
	}
	type debtorRow struct {
		id      string
		balance float64
	}
	debtorRows := make([]debtorRow, 0)
	for rows.Next() {
		var d debtorRow
		if err := rows.Scan(&d.id, &d.balance); err != nil {
			rows.Close()
			return err
		}
		debtorRows = append(debtorRows, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, d := range debtorRows {
		d := d
		g.Go(func() error {
			var charged, paid float64
			err := j.pool.QueryRow(gctx, `
				SELECT
					COALESCE((SELECT SUM(total_price) FROM debtor_products WHERE debtor_id = $1), 0),
					COALESCE((SELECT SUM(amount) FROM transactions WHERE debtor_id = $1 AND NOT is_deleted), 0)`,
				d.id,
			).Scan(&charged, &paid)
			if err != nil {
				return err
			}
			expected := charged - paid
			if math.Abs(expected-d.balance) > driftTolerance {
				j.logger.Error("ledger drift detected",
					slog.String("debtor_id", d.id),
					slog.Float64("stored_balance", d.balance),
					slog.Float64("expected_balance", expected),
				)
				if j.metrics != nil {
					j.metrics.LedgerDriftDetected()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	j.logger.Info("ledger integrity check finished",
		slog.Int("debtors", len(debtorRows)),
		slog.String("job", "ledger_integrity"),
	)
	return nil
}
