package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/lyceum-erp/lyceum-erp/internal/jobs"
)

const (
	// TaskTypeIntegrityScan is the task type for the redundant override sweep.
	TaskTypeIntegrityScan = "authz:integrity"
)

// NewOverrideScanTask constructs an Asynq task. The sweep takes no parameters.
func NewOverrideScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIntegrityScan, nil)
}

// OverrideScanJob finds per-user overrides that restate the holder's role default.
// A redundant row changes no decision today but silently pins the outcome
// against future role edits, so operators want a list of them.
type OverrideScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewOverrideScanJob wires dependencies for the override sweep handler.
func NewOverrideScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverrideScanJob {
	return &OverrideScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the override sweep logic.
func (j *OverrideScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("override scan: handler not configured")
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTypeIntegrityScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting override scan")

	redundant, err := j.scan(ctx)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, r := range redundant {
		logger.Warn("redundant override",
			slog.Int64("user_id", r.UserID),
			slog.String("permission", r.Permission),
			slog.Bool("granted", r.Granted),
		)
	}
	j.metrics().SetRedundantOverrides(len(redundant))

	logger.Info("completed override scan",
		slog.Int("redundant", len(redundant)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *OverrideScanJob) scan(ctx context.Context) ([]redundantOverride, error) {
	if j.Pool == nil {
		return nil, errors.New("override scan: pool not configured")
	}
	// An override is redundant when its value equals what the user's role
	// already answers. Users without a role default to deny, so their
	// granted=false overrides count too.
	rows, err := j.Pool.Query(ctx, `
		SELECT up.user_id, p.name, up.granted
		FROM user_permissions up
		JOIN users u ON u.id = up.user_id
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.granted = EXISTS (
			SELECT 1 FROM role_permissions rp
			WHERE rp.role_id = u.role_id AND rp.permission_id = up.permission_id
		)
		ORDER BY up.user_id, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	redundant := make([]redundantOverride, 0)
	for rows.Next() {
		var r redundantOverride
		if err := rows.Scan(&r.UserID, &r.Permission, &r.Granted); err != nil {
			return nil, err
		}
		redundant = append(redundant, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return redundant, nil
}

func (j *OverrideScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskTypeIntegrityScan))
}

func (j *OverrideScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *OverrideScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

type redundantOverride struct {
	UserID     int64
	Permission string
	Granted    bool
}
