package session_test

import (
	"context"
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testIdentity() *session.Identity {
	return &session.Identity{
		UID:           "u1",
		Email:         "alice@example.com",
		DisplayName:   "Alice Smith",
		EmailVerified: true,
	}
}

func storedDoc() *session.ProfileDocument {
	return &session.ProfileDocument{
		UID:         "u1",
		Email:       "stale@example.com",
		DisplayName: "Stale Name",
		Profile: session.ProfileFields{
			Bio:      "gardener",
			Location: "Lisbon",
		},
		Settings: session.Settings{EmailNotifications: true},
	}
}

func TestControllerStartsUnknown(t *testing.T) {
	provider := &stubProvider{}
	store := &MockProfileStore{}

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())

	current := ctrl.Current()
	assert.Equal(t, session.StateUnknown, current.State)
	assert.Nil(t, current.Identity)
	assert.Nil(t, current.Profile)
	assert.Equal(t, session.RenderLoading, session.Decide(current))
}

func TestControllerAnonymousOnNilEvent(t *testing.T) {
	provider := &stubProvider{}
	store := &MockProfileStore{}

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())

	provider.emit(nil)

	current := ctrl.Current()
	assert.Equal(t, session.StateAnonymous, current.State)
	assert.Nil(t, current.Identity)
	assert.Nil(t, current.Profile)
	assert.Equal(t, session.RenderAuthPrompt, session.Decide(current))
}

func TestControllerMergesIdentityWins(t *testing.T) {
	provider := &stubProvider{}
	store := &MockProfileStore{}
	store.On("Get", mock.Anything, "u1").Return(storedDoc(), nil).Once()

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())

	provider.emit(testIdentity())

	current := ctrl.Current()
	require.Equal(t, session.StateAuthenticated, current.State)
	require.NotNil(t, current.Profile)
	assert.Equal(t, "Alice Smith", current.Profile.DisplayName)
	assert.Equal(t, "alice@example.com", current.Profile.Email)
	assert.Equal(t, "gardener", current.Profile.Profile.Bio)
	assert.Equal(t, session.RenderContent, session.Decide(current))
	store.AssertExpectations(t)
}

func TestControllerFailsClosedOnProfileFetchError(t *testing.T) {
	provider := &stubProvider{}
	store := &MockProfileStore{}
	store.On("Get", mock.Anything, "u1").
		Return(nil, session.ErrProfileNotFound).Once()

	reporter := &recordingReporter{}
	ctrl := session.NewController(provider, store).WithReporter(reporter)
	ctrl.Start(context.Background())

	provider.emit(testIdentity())

	current := ctrl.Current()
	assert.Equal(t, session.StateAnonymous, current.State)
	assert.Nil(t, current.Identity)
	assert.Equal(t, 1, reporter.count())
	assert.NotEqual(t, session.RenderContent, session.Decide(current))
}

func TestControllerFailsClosedOnUIDMismatch(t *testing.T) {
	provider := &stubProvider{}
	store := &MockProfileStore{}
	mismatched := storedDoc()
	mismatched.UID = "someone-else"
	store.On("Get", mock.Anything, "u1").Return(mismatched, nil).Once()

	reporter := &recordingReporter{}
	ctrl := session.NewController(provider, store).WithReporter(reporter)
	ctrl.Start(context.Background())

	provider.emit(testIdentity())

	assert.Equal(t, session.StateAnonymous, ctrl.Current().State)
	assert.Equal(t, 1, reporter.count())
}

func TestSignUpSeedsProfileDefaults(t *testing.T) {
	provider := &stubProvider{
		createIdentity: &session.Identity{UID: "u1", Email: "alice@example.com"},
	}
	store := &MockProfileStore{}

	var seeded *session.ProfileDocument
	store.On("CreateIfAbsent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			seeded = args.Get(1).(*session.ProfileDocument)
		}).
		Return(storedDoc(), nil).Once()
	store.On("Get", mock.Anything, "u1").Return(storedDoc(), nil).Once()

	ctrl := session.NewController(provider, store)
	identity, err := ctrl.SignUp(context.Background(), "alice@example.com", "correct-horse", "Alice Smith")
	require.NoError(t, err)
	require.NotNil(t, identity)

	assert.Equal(t, []string{"Alice Smith"}, provider.displayNameUpdates())

	require.NotNil(t, seeded)
	assert.Equal(t, "u1", seeded.UID)
	assert.Equal(t, "Alice Smith", seeded.DisplayName)
	assert.Equal(t, "", seeded.Profile.PhotoURL)
	assert.False(t, seeded.Settings.DarkMode)
	assert.True(t, seeded.Settings.EmailNotifications)
	store.AssertExpectations(t)
}

func TestSignUpSurfacesSeedFailureWithoutRollback(t *testing.T) {
	provider := &stubProvider{
		createIdentity: &session.Identity{UID: "u1", Email: "alice@example.com"},
	}
	store := &MockProfileStore{}
	store.On("CreateIfAbsent", mock.Anything, mock.Anything).
		Return(nil, session.ErrProfileWrite).Once()

	ctrl := session.NewController(provider, store)
	identity, err := ctrl.SignUp(context.Background(), "alice@example.com", "correct-horse", "Alice")
	require.Error(t, err)
	// account creation already happened and is not rolled back
	require.NotNil(t, identity)
	assert.Equal(t, "u1", identity.UID)
}

func TestLoginDoesNotSynchronouslyPublish(t *testing.T) {
	provider := &stubProvider{authIdentity: testIdentity()}
	store := &MockProfileStore{}
	store.On("Get", mock.Anything, "u1").Return(storedDoc(), nil).Once()

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())

	require.NoError(t, ctrl.Login(context.Background(), "alice@example.com", "correct-horse"))
	assert.Equal(t, session.StateUnknown, ctrl.Current().State)

	// the provider event is the sole source of the new session
	provider.emit(testIdentity())
	assert.Equal(t, session.StateAuthenticated, ctrl.Current().State)
}

func TestLoginPropagatesAuthErrors(t *testing.T) {
	provider := &stubProvider{authErr: session.ErrInvalidCredentials}
	ctrl := session.NewController(provider, &MockProfileStore{})

	err := ctrl.Login(context.Background(), "alice@example.com", "nope")
	require.Error(t, err)
	assert.True(t, session.IsAuthError(err))
}

func TestLogoutReblocksOnlyViaProviderEvent(t *testing.T) {
	provider := &stubProvider{}
	store := &MockProfileStore{}
	store.On("Get", mock.Anything, "u1").Return(storedDoc(), nil).Once()

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())
	provider.emit(testIdentity())
	require.Equal(t, session.StateAuthenticated, ctrl.Current().State)

	var verdicts []session.Verdict
	unsubscribe := ctrl.Subscribe(func(s session.Session) {
		verdicts = append(verdicts, session.Decide(s))
	})
	defer unsubscribe()

	require.NoError(t, ctrl.Logout(context.Background()))
	assert.Equal(t, 1, provider.signOutCalls)
	// no optimistic transition before the event
	assert.Equal(t, session.StateAuthenticated, ctrl.Current().State)

	provider.emit(nil)
	assert.Equal(t, session.StateAnonymous, ctrl.Current().State)

	// replayed authenticated frame, then the prompt; never a stale content
	// frame after the sign-out event landed
	require.NotEmpty(t, verdicts)
	assert.Equal(t, session.RenderAuthPrompt, verdicts[len(verdicts)-1])
}

func TestSubscribeReplaysCurrentSnapshot(t *testing.T) {
	provider := &stubProvider{}
	ctrl := session.NewController(provider, &MockProfileStore{})

	var states []session.State
	unsubscribe := ctrl.Subscribe(func(s session.Session) {
		states = append(states, s.State)
	})

	require.Equal(t, []session.State{session.StateUnknown}, states)

	unsubscribe()
	ctrl.Start(context.Background())
	provider.emit(nil)
	assert.Equal(t, []session.State{session.StateUnknown}, states)
}

func TestUpdateProfileFoldsFreshDocument(t *testing.T) {
	identity := testIdentity()
	provider := &stubProvider{}
	store := &MockProfileStore{}
	store.On("Get", mock.Anything, "u1").Return(storedDoc(), nil).Once()

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())
	provider.emit(identity)
	require.Equal(t, session.StateAuthenticated, ctrl.Current().State)

	updated := storedDoc()
	updated.Profile.Bio = "botanist"
	updated.DisplayName = "Stale Name" // store cache still behind

	store.On("Patch", mock.Anything, "u1", map[string]string{"bio": "botanist"}).
		Return(nil).Once()
	store.On("Get", mock.Anything, "u1").Return(updated, nil).Once()

	ctx := session.WithIdentity(context.Background(), identity)
	doc, err := ctrl.UpdateProfile(ctx, "u1", map[string]string{"bio": "botanist"})
	require.NoError(t, err)
	assert.Equal(t, "botanist", doc.Profile.Bio)

	current := ctrl.Current()
	require.Equal(t, session.StateAuthenticated, current.State)
	assert.Equal(t, "botanist", current.Profile.Profile.Bio)
	// identity-wins re-applied on fold: the stale cached name never
	// overwrites the provider's value
	assert.Equal(t, "Alice Smith", current.Profile.DisplayName)
	store.AssertExpectations(t)
}

func TestUpdateProfileErrorLeavesSessionUnchanged(t *testing.T) {
	identity := testIdentity()
	provider := &stubProvider{}
	store := &MockProfileStore{}
	store.On("Get", mock.Anything, "u1").Return(storedDoc(), nil).Once()

	ctrl := session.NewController(provider, store)
	ctrl.Start(context.Background())
	provider.emit(identity)
	before := ctrl.Current()

	store.On("Patch", mock.Anything, "u1", mock.Anything).
		Return(session.ErrProfileWrite).Once()

	ctx := session.WithIdentity(context.Background(), identity)
	_, err := ctrl.UpdateProfile(ctx, "u1", map[string]string{"bio": "x"})
	require.Error(t, err)
	assert.True(t, session.IsProfileWriteError(err))
	assert.Equal(t, before, ctrl.Current())
}
