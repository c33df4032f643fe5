package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

func TestPrincipalAttachesValidToken(t *testing.T) {
	repo, user := newStubRepo(t, "opensesame", true)
	svc := NewService(repo, "test-secret", time.Hour)
	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		var got shared.Principal
		var found bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, found = shared.PrincipalFromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", scheme+" "+token)
		Principal(svc)(next).ServeHTTP(httptest.NewRecorder(), req)

		if !found {
			t.Fatalf("scheme %q: no principal attached", scheme)
		}
		if got.UserID != user.ID {
			t.Fatalf("scheme %q: principal user = %d, want %d", scheme, got.UserID, user.ID)
		}
	}
}

func TestPrincipalPassesAnonymously(t *testing.T) {
	repo, user := newStubRepo(t, "opensesame", true)
	svc := NewService(repo, "test-secret", time.Hour)
	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	// Invalid or absent credentials never short-circuit here, the
	// authorization gate owns the 401.
	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.token"},
		{"tampered token", "Bearer " + token + "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var found bool
			var status int
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, found = shared.PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			Principal(svc)(next).ServeHTTP(rec, req)
			status = rec.Code

			if found {
				t.Fatal("principal attached for invalid credentials")
			}
			if status != http.StatusNoContent {
				t.Fatalf("status = %d, the request must reach the handler", status)
			}
		})
	}
}
