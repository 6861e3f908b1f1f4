package session

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Listener receives every published Session snapshot, in publish order.
type Listener func(Session)

// Controller owns the published Session. It is constructed once at startup
// and passed by reference to every consumer; there is no package-level
// instance. The provider's event stream is the sole driver of session
// state: Login and Logout only talk to the provider and let the resulting
// event, handled by the subscription, move the session.
type Controller struct {
	provider     IdentityProvider
	store        ProfileStore
	synchronizer *Synchronizer
	logger       Logger
	reporter     Reporter

	mu          sync.RWMutex
	current     Session
	listeners   map[int]Listener
	nextHandle  int
	unsubscribe func()
}

// NewController returns a Controller in StateUnknown. Call Start to attach
// it to the provider's event stream.
func NewController(provider IdentityProvider, store ProfileStore) *Controller {
	return &Controller{
		provider:     provider,
		store:        store,
		synchronizer: NewSynchronizer(provider, store),
		logger:       defLogger{},
		reporter:     noopReporter{},
		current:      Session{State: StateUnknown},
		listeners:    map[int]Listener{},
	}
}

func (c *Controller) WithLogger(logger Logger) *Controller {
	if logger != nil {
		c.logger = logger
		c.synchronizer.WithLogger(logger)
	}
	return c
}

// WithReporter configures the observability collaborator that receives
// locally recovered errors.
func (c *Controller) WithReporter(reporter Reporter) *Controller {
	c.reporter = normalizeReporter(reporter)
	return c
}

// Start subscribes to the provider's session-change events. The provider
// delivers events serially in emission order, so exactly one event is
// processed at a time and no merges race within a client.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	unsubscribe := c.provider.Subscribe(func(identity *Identity) {
		c.handleAuthEvent(ctx, identity)
	})

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
}

// Stop detaches from the provider. The last published Session remains
// readable via Current.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// handleAuthEvent rebuilds the Session wholesale for one provider event.
// Any failure to produce a complete authenticated view fails closed to
// anonymous; a half-populated authenticated session is never published.
func (c *Controller) handleAuthEvent(ctx context.Context, identity *Identity) {
	if identity == nil {
		c.publish(Session{State: StateAnonymous})
		return
	}

	doc, err := c.store.Get(ctx, identity.UID)
	if err != nil {
		c.logger.Error("profile fetch failed, collapsing session", "uid", identity.UID, "error", err)
		c.reporter.Report(err, map[string]any{"uid": identity.UID, "op": "profile_fetch"})
		c.publish(Session{State: StateAnonymous})
		return
	}

	merged, err := Merge(identity, doc)
	if err != nil {
		c.logger.Error("identity/profile merge failed", "uid", identity.UID, "error", err)
		c.reporter.Report(err, map[string]any{"uid": identity.UID, "op": "merge"})
		c.publish(Session{State: StateAnonymous})
		return
	}

	c.publish(Session{
		Identity: identity.Clone(),
		Profile:  merged,
		State:    StateAuthenticated,
	})
}

func (c *Controller) publish(s Session) {
	c.mu.Lock()
	c.current = s
	snapshot := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		snapshot = append(snapshot, fn)
	}
	c.mu.Unlock()

	for _, fn := range snapshot {
		fn(s)
	}
}

// Current returns the latest published Session snapshot.
func (c *Controller) Current() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe registers a listener for future snapshots and immediately
// replays the current one, mirroring how auth-state observers fire on
// attach. The returned func removes the listener.
func (c *Controller) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	handle := c.nextHandle
	c.nextHandle++
	c.listeners[handle] = fn
	current := c.current
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, handle)
		c.mu.Unlock()
	}
}

// SignUp creates the account at the provider, sets the provider's
// displayName, and seeds the profile document. Steps fail independently
// and are surfaced without rolling back earlier ones: a provider account
// may exist without a profile document, and Synchronizer.EnsureProfile can
// repair that later. The published Session is driven by the provider event
// the account creation emits, not by this call's return.
func (c *Controller) SignUp(ctx context.Context, email, password, displayName string) (*Identity, error) {
	identity, err := c.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if displayName != "" {
		if err := c.provider.UpdateIdentity(ctx, IdentityUpdate{DisplayName: &displayName}); err != nil {
			return identity, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to set display name")
		}
		identity.DisplayName = displayName
	}

	if _, err := c.synchronizer.EnsureProfile(ctx, identity); err != nil {
		return identity, err
	}

	// The provider's account-creation event may have fired before the
	// document existed, collapsing the session. Re-derive through the same
	// wholesale rebuild path now that the seed is in place.
	c.handleAuthEvent(ctx, identity)

	return identity, nil
}

// Login delegates to the provider. It never updates the published Session
// synchronously; the subsequent provider event is the sole source of the
// new session. Credential errors propagate verbatim for display.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	_, err := c.provider.Authenticate(ctx, email, password)
	return err
}

// Logout triggers provider sign-out. The Session transitions to anonymous
// once the provider emits the corresponding event; there is no optimistic
// transition.
func (c *Controller) Logout(ctx context.Context) error {
	return c.provider.SignOut(ctx)
}

// UpdateProfile applies a partial profile update through the Synchronizer
// and folds the fresh document into the live Session, re-applying the
// identity-wins rule so a stale client-held displayName never overwrites
// the provider's authoritative value. On error the Session is unchanged.
func (c *Controller) UpdateProfile(ctx context.Context, uid string, fields map[string]string) (*ProfileDocument, error) {
	doc, err := c.synchronizer.UpdateProfile(ctx, uid, fields)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	if current.Authenticated() && current.Identity.UID == uid {
		identity := current.Identity.Clone()
		if name, ok := fields[FieldDisplayName]; ok {
			identity.DisplayName = name
		}
		merged, err := Merge(identity, doc)
		if err != nil {
			c.reporter.Report(err, map[string]any{"uid": uid, "op": "update_fold"})
			return doc, nil
		}
		c.publish(Session{
			Identity: identity,
			Profile:  merged,
			State:    StateAuthenticated,
		})
	}

	return doc, nil
}
