package shared

import "context"

type principalContextKey struct{}

// Principal identifies the authenticated user on a request.
type Principal struct {
	UserID int64
	Email  string
}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. Anonymous
// requests carry none.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
