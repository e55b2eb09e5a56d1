package auth

import "context"

type contextKey string

const (
	contextKeyPassport contextKey = "auth.passport"
	contextKeyRole     contextKey = "auth.role"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, passport string, role Role) context.Context {
	ctx = context.WithValue(ctx, contextKeyPassport, passport)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	return ctx
}

// PassportFromContext extracts the authenticated passport from context.
func PassportFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if passport, ok := ctx.Value(contextKeyPassport).(string); ok {
		return passport
	}
	return ""
}

// RoleFromContext extracts the role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if role, ok := value.(string); ok {
		if normalized, valid := NormalizeRole(role); valid {
			return normalized
		}
	}
	return ""
}
