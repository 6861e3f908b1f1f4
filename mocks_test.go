package session_test

import (
	"context"
	"sync"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// MockProfileStore implements session.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, uid string) (*session.ProfileDocument, error) {
	args := m.Called(ctx, uid)
	doc, _ := args.Get(0).(*session.ProfileDocument)
	return doc, args.Error(1)
}

func (m *MockProfileStore) CreateIfAbsent(ctx context.Context, seed *session.ProfileDocument) (*session.ProfileDocument, error) {
	args := m.Called(ctx, seed)
	doc, _ := args.Get(0).(*session.ProfileDocument)
	return doc, args.Error(1)
}

func (m *MockProfileStore) Patch(ctx context.Context, uid string, fields map[string]string) error {
	args := m.Called(ctx, uid, fields)
	return args.Error(0)
}

// recordingReporter captures reported errors for assertions.
type recordingReporter struct {
	mu      sync.Mutex
	errors  []error
	context []map[string]any
}

func (r *recordingReporter) Report(err error, ctx map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.context = append(r.context, ctx)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// stubProvider is a scriptable IdentityProvider. Unlike a live provider it
// does not replay state on subscribe, so tests control exactly when the
// first event lands.
type stubProvider struct {
	mu        sync.Mutex
	listeners []func(*session.Identity)

	createIdentity *session.Identity
	createErr      error
	authIdentity   *session.Identity
	authErr        error
	updateErr      error

	updates      []session.IdentityUpdate
	signOutCalls int
}

func (s *stubProvider) CreateAccount(ctx context.Context, email, password string) (*session.Identity, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createIdentity.Clone(), nil
}

func (s *stubProvider) Authenticate(ctx context.Context, email, password string) (*session.Identity, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.authIdentity.Clone(), nil
}

func (s *stubProvider) UpdateIdentity(ctx context.Context, update session.IdentityUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, update)
	return nil
}

func (s *stubProvider) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutCalls++
	return nil
}

func (s *stubProvider) Subscribe(fn func(*session.Identity)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	return func() {}
}

// emit delivers one session-change event to every subscriber, in order.
func (s *stubProvider) emit(identity *session.Identity) {
	s.mu.Lock()
	listeners := append([]func(*session.Identity){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(identity.Clone())
	}
}

func (s *stubProvider) displayNameUpdates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := []string{}
	for _, u := range s.updates {
		if u.DisplayName != nil {
			names = append(names, *u.DisplayName)
		}
	}
	return names
}
