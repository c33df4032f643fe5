package auth

import (
	"net/http"
	"strings"

	"github.com/lyceum-erp/lyceum-erp/internal/shared"
)

// Principal authenticates a bearer token when one is present and attaches
// the principal to the request context. Requests without a valid token
// continue anonymously; the authorization gate owns the 401.
func Principal(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			raw := strings.TrimSpace(header[len("Bearer "):])
			principal, err := service.ParseToken(raw)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
