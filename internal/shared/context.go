package shared

import "context"

// Identity describes the authenticated store owner attached to a request.
type Identity struct {
	ProfileID int64
	UserID    string
	Email     string
}

type contextKey string

const identityKey contextKey = "sariverse.identity"

// ContextWithIdentity stores the identity in the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity, or nil when unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// ProfileIDFromContext returns the owning profile id, or zero when absent.
func ProfileIDFromContext(ctx context.Context) int64 {
	if id := IdentityFromContext(ctx); id != nil {
		return id.ProfileID
	}
	return 0
}
