package middleware

import (
	"context"
)

// Context key type to avoid collisions
type contextKey string

// ClaimsKey is the context key for token claims
const ClaimsKey contextKey = "claims"

// Claims identifies the caller of an authenticated request.
type Claims struct {
	Sub    string
	Scopes []string
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds token claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
