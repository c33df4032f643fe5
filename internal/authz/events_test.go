package authz

import (
	"context"
	"errors"
	"testing"
)

func TestRecorderDeniedStampsTime(t *testing.T) {
	queue := &capturedQueue{}
	recorder := NewRecorder(nil, nil, queue)

	recorder.Denied(context.Background(), DenialEvent{Reason: ReasonPermissionDenied})

	if len(queue.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(queue.events))
	}
	if queue.events[0].OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be stamped")
	}
}

func TestRecorderQueueFailureCountsMetric(t *testing.T) {
	metrics := &capturedMetrics{}
	queue := &capturedQueue{err: errors.New("redis down")}
	recorder := NewRecorder(nil, metrics, queue)

	recorder.Denied(context.Background(), DenialEvent{Reason: ReasonPermissionDenied})

	if metrics.queueFailures != 1 {
		t.Fatalf("expected 1 queue failure, got %d", metrics.queueFailures)
	}
	// The denial outcome itself is still observed.
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "deny_policy" {
		t.Fatalf("expected deny_policy outcome, got %v", metrics.outcomes)
	}
}

func TestRecorderOutcomeMapping(t *testing.T) {
	cases := []struct {
		reason DenialReason
		want   string
	}{
		{ReasonAuthenticationRequired, "deny_auth"},
		{ReasonPermissionDenied, "deny_policy"},
		{ReasonInfrastructureError, "deny_infra"},
	}
	for _, tc := range cases {
		metrics := &capturedMetrics{}
		recorder := NewRecorder(nil, metrics, nil)
		recorder.Denied(context.Background(), DenialEvent{Reason: tc.reason})
		if len(metrics.outcomes) != 1 || metrics.outcomes[0] != tc.want {
			t.Fatalf("reason %s: expected %s, got %v", tc.reason, tc.want, metrics.outcomes)
		}
	}
}

func TestRecorderNilSafety(t *testing.T) {
	var recorder *Recorder
	recorder.Allowed()
	recorder.Denied(context.Background(), DenialEvent{})

	// Sinks are optional one by one as well.
	NewRecorder(nil, nil, nil).Denied(context.Background(), DenialEvent{Reason: ReasonPermissionDenied})
}

func TestRecorderAllowedCountsMetric(t *testing.T) {
	metrics := &capturedMetrics{}
	NewRecorder(nil, metrics, nil).Allowed()
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "allow" {
		t.Fatalf("expected allow outcome, got %v", metrics.outcomes)
	}
}
