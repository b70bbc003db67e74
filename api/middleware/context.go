package middleware

import "context"

type principalKey struct{}

type requestIDKey struct{}

// Principal is the authenticated caller attached by Auth.
type Principal struct {
	UserID string
	Role   string
}

// WithPrincipal stores p on ctx, replacing any earlier principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller and whether one was attached.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.UserID
}

func RoleFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}

// WithUserID keeps any role already on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	p, _ := PrincipalFromContext(ctx)
	p.UserID = userID
	return WithPrincipal(ctx, p)
}

// WithRole keeps any user id already on ctx.
func WithRole(ctx context.Context, role string) context.Context {
	p, _ := PrincipalFromContext(ctx)
	p.Role = role
	return WithPrincipal(ctx, p)
}

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
