package authz

import (
	"context"
	"log/slog"
	"time"
)

// DenialReason classifies why a request was denied.
type DenialReason string

const (
	// ReasonAuthenticationRequired marks requests with no authenticated principal.
	ReasonAuthenticationRequired DenialReason = "authentication_required"
	// ReasonPermissionDenied marks policy denials for an authenticated principal.
	ReasonPermissionDenied DenialReason = "permission_denied"
	// ReasonInfrastructureError marks denials forced by a storage failure.
	ReasonInfrastructureError DenialReason = "infrastructure_error"
)

const (
	outcomeAllow      = "allow"
	outcomeDenyAuth   = "deny_auth"
	outcomeDenyPolicy = "deny_policy"
	outcomeDenyInfra  = "deny_infra"
)

func outcomeFor(reason DenialReason) string {
	switch reason {
	case ReasonAuthenticationRequired:
		return outcomeDenyAuth
	case ReasonInfrastructureError:
		return outcomeDenyInfra
	default:
		return outcomeDenyPolicy
	}
}

// DenialEvent captures one denied request for audit.
type DenialEvent struct {
	PrincipalID         *int64       `json:"principalId"`
	RequiredPermissions []string     `json:"requiredPermissions"`
	Method              string       `json:"method"`
	Path                string       `json:"path"`
	Reason              DenialReason `json:"reason"`
	OccurredAt          time.Time    `json:"occurredAt"`
}

// DenialQueue hands denial events to the background audit pipeline.
type DenialQueue interface {
	EnqueueAccessDenied(ctx context.Context, event DenialEvent) error
}

// DecisionMetrics records gate outcomes.
type DecisionMetrics interface {
	ObserveAuthzDecision(outcome string)
	DenialQueueFailure()
}

// Recorder fans denials out to the log, the metrics registry and the audit
// queue. Every sink is optional and recording never fails the request.
type Recorder struct {
	logger  *slog.Logger
	metrics DecisionMetrics
	queue   DenialQueue
}

// NewRecorder constructs a Recorder. Nil sinks are skipped.
func NewRecorder(logger *slog.Logger, metrics DecisionMetrics, queue DenialQueue) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger, metrics: metrics, queue: queue}
}

// Allowed counts a resolved allow.
func (r *Recorder) Allowed() {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.ObserveAuthzDecision(outcomeAllow)
}

// Denied records one denial. Infrastructure denials log at error level so
// they stand apart from ordinary policy denials.
func (r *Recorder) Denied(ctx context.Context, event DenialEvent) {
	if r == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	principal := slog.String("principal", "anonymous")
	if event.PrincipalID != nil {
		principal = slog.Int64("principal_id", *event.PrincipalID)
	}
	logFn := r.logger.Warn
	if event.Reason == ReasonInfrastructureError {
		logFn = r.logger.Error
	}
	logFn("authz: access denied",
		slog.String("reason", string(event.Reason)),
		principal,
		slog.Any("required_permissions", event.RequiredPermissions),
		slog.String("method", event.Method),
		slog.String("path", event.Path))
	if r.metrics != nil {
		r.metrics.ObserveAuthzDecision(outcomeFor(event.Reason))
	}
	if r.queue != nil {
		if err := r.queue.EnqueueAccessDenied(ctx, event); err != nil {
			r.logger.Error("authz: enqueue denial event", slog.Any("error", err))
			if r.metrics != nil {
				r.metrics.DenialQueueFailure()
			}
		}
	}
}
