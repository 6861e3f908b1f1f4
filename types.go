package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// IdentityUpdate carries the provider-owned fields an authenticated user may
// change. Only DisplayName is in scope; nil means leave the field untouched.
type IdentityUpdate struct {
	DisplayName *string
}

// IdentityProvider is the authentication collaborator. It owns the
// authoritative identity record and is the only component allowed to mutate
// it. Implementations deliver session-change events serially, in emission
// order, to every subscribed callback; a nil identity means signed out.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
	UpdateIdentity(ctx context.Context, update IdentityUpdate) error
	SignOut(ctx context.Context) error
	Subscribe(fn func(*Identity)) (unsubscribe func())
}

// ProfileStore is the document store collaborator keyed by uid.
type ProfileStore interface {
	// Get returns the stored document or ErrProfileNotFound.
	Get(ctx context.Context, uid string) (*ProfileDocument, error)

	// CreateIfAbsent persists the seed unless a document for seed.UID already
	// exists, and returns whichever document is current afterwards. The
	// operation must be atomic at the store: under concurrent calls for the
	// same uid exactly one document is ever created, and every caller
	// observes a complete document. A client-side check-then-write does not
	// satisfy this contract.
	CreateIfAbsent(ctx context.Context, seed *ProfileDocument) (*ProfileDocument, error)

	// Patch applies the named fields and nothing else. Keys from
	// ProfileFieldKeys target the nested profile object; "displayName" and
	// "email" refresh the top-level cache columns. UpdatedAt is assigned by
	// the store and strictly increases on every mutation.
	Patch(ctx context.Context, uid string, fields map[string]string) error
}

// Reporter receives errors the core recovers from locally, e.g. a profile
// fetch that collapsed the session to anonymous. Implementations must not
// block the caller.
type Reporter interface {
	Report(err error, context map[string]any)
}

type noopReporter struct{}

func (noopReporter) Report(error, map[string]any) {}

func normalizeReporter(r Reporter) Reporter {
	if r == nil {
		return noopReporter{}
	}
	return r
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
