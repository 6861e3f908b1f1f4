package session

import "context"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the authenticated principal in the given context.
// Providers and UI glue attach it so the Synchronizer can verify that
// provider-owned updates come from the matching principal.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the authenticated principal in the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
