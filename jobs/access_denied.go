package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/lyceum-erp/lyceum-erp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AccessDeniedJob persists denied authorization decisions for audit review.
type AccessDeniedJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAccessDeniedJob wires dependencies for the denial audit handler.
func NewAccessDeniedJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessDeniedJob {
	return &AccessDeniedJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes a single denial write.
func (j *AccessDeniedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("access denied job: handler not configured")
	}
	var payload AccessDeniedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = j.now()
	}

	tracker := j.metrics().Track(TaskTypeAccessDenied)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.persist(ctx, payload); err != nil {
		resultErr = err
		j.logger().Error("denial write failed", slog.Any("error", err))
		return resultErr
	}

	j.logger().Info("denial recorded",
		slog.String("reason", payload.Reason),
		slog.String("path", payload.Path),
	)
	return resultErr
}

func (j *AccessDeniedJob) persist(ctx context.Context, payload AccessDeniedPayload) error {
	if j.Pool == nil {
		return errors.New("access denied job: pool not configured")
	}
	_, err := j.Pool.Exec(ctx, `
		INSERT INTO access_denials (user_id, required_permissions, method, path, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, payload.PrincipalID, payload.RequiredPermissions, payload.Method, payload.Path, payload.Reason, payload.OccurredAt)
	return err
}

func (j *AccessDeniedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeAccessDenied))
	}
	return slog.Default().With(slog.String("job", TaskTypeAccessDenied))
}

func (j *AccessDeniedJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AccessDeniedJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
