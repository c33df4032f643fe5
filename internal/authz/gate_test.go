package authz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

type stubResolver struct {
	allow          bool
	err            error
	anyCalls       int
	allCalls       int
	lastPerms      []string
	effective      []string
	effectiveErr   error
	effectiveCalls int
}

func (s *stubResolver) ResolveAny(ctx context.Context, userID int64, permissions []string) (bool, error) {
	s.anyCalls++
	s.lastPerms = permissions
	return s.allow, s.err
}

func (s *stubResolver) ResolveAll(ctx context.Context, userID int64, permissions []string) (bool, error) {
	s.allCalls++
	s.lastPerms = permissions
	return s.allow, s.err
}

func (s *stubResolver) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	s.effectiveCalls++
	return s.effective, s.effectiveErr
}

type capturedMetrics struct {
	outcomes      []string
	queueFailures int
}

func (m *capturedMetrics) ObserveAuthzDecision(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *capturedMetrics) DenialQueueFailure() {
	m.queueFailures++
}

type capturedQueue struct {
	events []DenialEvent
	err    error
}

func (q *capturedQueue) EnqueueAccessDenied(ctx context.Context, event DenialEvent) error {
	q.events = append(q.events, event)
	return q.err
}

type deniedBody struct {
	Success             bool     `json:"success"`
	Message             string   `json:"message"`
	Error               string   `json:"error"`
	RequiredPermissions []string `json:"requiredPermissions"`
}

func principalRequest(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID, Email: "user@lyceum.local"})
	return req.WithContext(ctx)
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestGateRejectsAnonymous(t *testing.T) {
	resolver := &stubResolver{}
	metrics := &capturedMetrics{}
	queue := &capturedQueue{}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, metrics, queue)}

	called := false
	handler := gate.RequireAny("roles.view")(okHandler(&called))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/roles", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if called {
		t.Fatal("next handler must not run")
	}
	var body deniedBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Error != "Access token required" {
		t.Fatalf("unexpected 401 body: %s", rr.Body.String())
	}
	if resolver.anyCalls != 0 {
		t.Fatal("resolution must not run for anonymous requests")
	}
	if len(queue.events) != 1 || queue.events[0].Reason != ReasonAuthenticationRequired {
		t.Fatalf("expected one authentication denial event, got %+v", queue.events)
	}
	if queue.events[0].PrincipalID != nil {
		t.Fatal("anonymous denial must carry no principal")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "deny_auth" {
		t.Fatalf("expected deny_auth outcome, got %v", metrics.outcomes)
	}
}

func TestGateDeniesMissingPermission(t *testing.T) {
	resolver := &stubResolver{allow: false}
	metrics := &capturedMetrics{}
	queue := &capturedQueue{}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, metrics, queue)}

	called := false
	handler := gate.RequireAny("roles.view", "roles.edit")(okHandler(&called))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/roles", 7))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if called {
		t.Fatal("next handler must not run")
	}
	var body deniedBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success || body.Message != "Insufficient permissions" {
		t.Fatalf("unexpected 403 body: %s", rr.Body.String())
	}
	// The response lists the full requirement, never which part was missing.
	if len(body.RequiredPermissions) != 2 || body.RequiredPermissions[0] != "roles.view" || body.RequiredPermissions[1] != "roles.edit" {
		t.Fatalf("unexpected requiredPermissions: %v", body.RequiredPermissions)
	}
	if len(queue.events) != 1 || queue.events[0].Reason != ReasonPermissionDenied {
		t.Fatalf("expected one policy denial event, got %+v", queue.events)
	}
	if queue.events[0].PrincipalID == nil || *queue.events[0].PrincipalID != 7 {
		t.Fatalf("expected principal 7 on the event, got %+v", queue.events[0].PrincipalID)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "deny_policy" {
		t.Fatalf("expected deny_policy outcome, got %v", metrics.outcomes)
	}
}

func TestGateAllowsAndAttachesEffectiveSet(t *testing.T) {
	resolver := &stubResolver{allow: true, effective: []string{"roles.view", "courses.view"}}
	metrics := &capturedMetrics{}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, metrics, nil)}

	var attached PermissionSet
	var hadSet bool
	handler := gate.RequireAny("roles.view")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached, hadSet = PermissionsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/roles", 7))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !hadSet {
		t.Fatal("expected effective set on the context")
	}
	if !attached.Has("courses.view") || attached.Has("payments.refund") {
		t.Fatalf("unexpected set contents: %v", attached)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "allow" {
		t.Fatalf("expected allow outcome, got %v", metrics.outcomes)
	}
}

func TestGateEffectiveSetFailureStillAllows(t *testing.T) {
	resolver := &stubResolver{allow: true, effectiveErr: errors.New("redis down")}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, nil, nil)}

	var hadSet bool
	handler := gate.RequireAny("roles.view")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadSet = PermissionsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/roles", 7))

	if rr.Code != http.StatusOK {
		t.Fatalf("the decision already allowed, expected 200, got %d", rr.Code)
	}
	if hadSet {
		t.Fatal("no set should be attached when the fetch fails")
	}
}

func TestGateSelfAccessBypassesResolution(t *testing.T) {
	resolver := &stubResolver{allow: false}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, nil, nil)}

	var hadSet bool
	called := false
	handler := gate.Require(Requirement{
		Permissions: []string{"users.view"},
		AllowSelf:   true,
		SelfID: func(r *http.Request) (int64, bool) {
			return 7, true
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, hadSet = PermissionsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/users/7", 7))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !called {
		t.Fatal("next handler must run")
	}
	if resolver.anyCalls != 0 {
		t.Fatal("self access must skip resolution")
	}
	if hadSet {
		t.Fatal("self access must not attach an effective set")
	}
}

func TestGateSelfMismatchResolvesNormally(t *testing.T) {
	resolver := &stubResolver{allow: false}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, nil, nil)}

	handler := gate.Require(Requirement{
		Permissions: []string{"users.view"},
		AllowSelf:   true,
		SelfID: func(r *http.Request) (int64, bool) {
			return 9, true
		},
	})(okHandler(new(bool)))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/users/9", 7))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if resolver.anyCalls != 1 {
		t.Fatalf("expected resolution, calls %d", resolver.anyCalls)
	}
}

func TestGateEmptyRequirementAdmitsAnyPrincipal(t *testing.T) {
	resolver := &stubResolver{}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, nil, nil)}

	called := false
	handler := gate.Require(Requirement{})(okHandler(&called))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/auth/me", 7))
	if rr.Code != http.StatusOK || !called {
		t.Fatalf("expected pass-through for authenticated principal, got %d", rr.Code)
	}
	if resolver.anyCalls+resolver.allCalls != 0 {
		t.Fatal("empty requirement must not resolve")
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous requests still get 401, got %d", rr.Code)
	}
}

func TestGateRequireAllUsesConjunction(t *testing.T) {
	resolver := &stubResolver{allow: true, effective: []string{"a"}}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, nil, nil)}

	handler := gate.RequireAll("reports.view", "reports.export")(okHandler(new(bool)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/reports", 7))

	if resolver.allCalls != 1 || resolver.anyCalls != 0 {
		t.Fatalf("expected ResolveAll, got any=%d all=%d", resolver.anyCalls, resolver.allCalls)
	}
}

func TestGateNormalizesRequirement(t *testing.T) {
	resolver := &stubResolver{allow: false}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, nil, nil)}

	handler := gate.RequireAny(" Roles.View ", "roles.view", "ROLES.EDIT")(okHandler(new(bool)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/roles", 7))

	var body deniedBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := []string{"roles.view", "roles.edit"}
	if len(body.RequiredPermissions) != len(want) {
		t.Fatalf("expected %v, got %v", want, body.RequiredPermissions)
	}
	for i := range want {
		if body.RequiredPermissions[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, body.RequiredPermissions)
		}
	}
	if len(resolver.lastPerms) != 2 {
		t.Fatalf("resolver must see normalized names, got %v", resolver.lastPerms)
	}
}

func TestGateInfrastructureFailureDenies(t *testing.T) {
	resolver := &stubResolver{allow: false, err: errors.New("connection reset")}
	metrics := &capturedMetrics{}
	queue := &capturedQueue{}
	gate := Gate{Service: resolver, Events: NewRecorder(nil, metrics, queue)}

	rr := httptest.NewRecorder()
	handler := gate.RequireAny("roles.view")(okHandler(new(bool)))
	handler.ServeHTTP(rr, principalRequest(http.MethodGet, "/api/roles", 7))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected fail-closed 403, got %d", rr.Code)
	}
	if len(queue.events) != 1 || queue.events[0].Reason != ReasonInfrastructureError {
		t.Fatalf("expected infrastructure denial event, got %+v", queue.events)
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0] != "deny_infra" {
		t.Fatalf("expected deny_infra outcome, got %v", metrics.outcomes)
	}
}

func TestSelfIDFromURLParam(t *testing.T) {
	selfID := SelfIDFromURLParam("userID")

	r := chi.NewRouter()
	var got int64
	var found bool
	r.Get("/users/{userID}", func(w http.ResponseWriter, req *http.Request) {
		got, found = selfID(req)
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	if !found || got != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", got, found)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	if found {
		t.Fatal("non-numeric parameter must not match")
	}
}
