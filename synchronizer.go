package session

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// ProfileFieldKeys are the recognized profile-update keys and their write
// target. True means the field lives under the store's nested profile path;
// false means the identity provider owns it. Keys outside this table are
// ignored by UpdateProfile.
var ProfileFieldKeys = map[string]bool{
	FieldDisplayName: false,
	FieldPhotoURL:    true,
	FieldBio:         true,
	FieldLocation:    true,
	FieldWebsite:     true,
}

// Synchronizer splits a profile update between the identity provider and
// the profile store, applies it, and returns the canonical merged document.
type Synchronizer struct {
	provider IdentityProvider
	store    ProfileStore
	logger   Logger
}

func NewSynchronizer(provider IdentityProvider, store ProfileStore) *Synchronizer {
	return &Synchronizer{
		provider: provider,
		store:    store,
		logger:   defLogger{},
	}
}

func (s *Synchronizer) WithLogger(logger Logger) *Synchronizer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// UpdateProfile applies the recognized fields for uid and returns the full
// re-read document (read-your-write). displayName targets the provider and
// requires the context principal to match uid; every other recognized key
// is patched under the store's nested profile path so omitted fields stay
// untouched. If displayName is present and the principal check fails,
// neither store is touched. There are no retries; each write is
// at-most-once from this core's perspective.
func (s *Synchronizer) UpdateProfile(ctx context.Context, uid string, fields map[string]string) (*ProfileDocument, error) {
	var displayName *string
	storeFields := map[string]string{}

	for key, value := range fields {
		nested, recognized := ProfileFieldKeys[key]
		switch {
		case !recognized:
			s.logger.Debug("ignoring unrecognized profile field", "key", key)
		case nested:
			storeFields[key] = value
		default:
			v := value
			displayName = &v
		}
	}

	if displayName != nil {
		principal, ok := IdentityFromContext(ctx)
		if !ok || principal.UID != uid {
			return nil, ErrPermissionDenied.WithMetadata(map[string]any{"uid": uid})
		}

		if err := s.provider.UpdateIdentity(ctx, IdentityUpdate{DisplayName: displayName}); err != nil {
			return nil, goerrors.Wrap(err, ErrProfileWrite.Category, ErrProfileWrite.Message).
				WithTextCode(ErrProfileWrite.TextCode)
		}

		// Refresh the store's displayName cache alongside the nested patch.
		storeFields[FieldDisplayName] = *displayName
	}

	if len(storeFields) > 0 {
		if err := s.store.Patch(ctx, uid, storeFields); err != nil {
			return nil, goerrors.Wrap(err, ErrProfileWrite.Category, ErrProfileWrite.Message).
				WithTextCode(ErrProfileWrite.TextCode)
		}
	}

	doc, err := s.store.Get(ctx, uid)
	if err != nil {
		return nil, goerrors.Wrap(err, ErrProfileWrite.Category, "profile re-read after update failed").
			WithTextCode(ErrProfileWrite.TextCode)
	}

	return doc, nil
}

// EnsureProfile seeds the document for a freshly created identity. The
// store's conditional create makes this idempotent and race safe: under
// concurrent calls exactly one document is created and every caller gets a
// complete one back.
func (s *Synchronizer) EnsureProfile(ctx context.Context, identity *Identity) (*ProfileDocument, error) {
	if identity == nil || identity.UID == "" {
		return nil, goerrors.New("cannot seed profile without an identity", goerrors.CategoryBadInput)
	}
	return s.store.CreateIfAbsent(ctx, NewProfileSeed(identity))
}
