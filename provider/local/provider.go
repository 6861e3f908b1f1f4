// Package local is a credential-backed session.IdentityProvider: accounts
// live in a Bun-managed table with bcrypt password hashes, and session
// changes fan out to subscribers in emission order. It exists so the
// session core can run without a hosted auth service.
package local

import (
	"context"
	"database/sql"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	session "github.com/goliatone/go-session"
)

// MinPasswordLength is the weakest password the provider accepts.
var MinPasswordLength = 8

// BcryptCost is the hashing cost for new accounts.
var BcryptCost = 12

type userRow struct {
	bun.BaseModel `bun:"table:auth_users,alias:au"`

	UID           string `bun:"uid,pk"`
	Email         string `bun:"email,notnull,unique"`
	DisplayName   string `bun:"display_name,notnull,default:''"`
	EmailVerified bool   `bun:"email_verified,notnull,default:false"`
	PasswordHash  string `bun:"password_hash,notnull"`
	CreatedAt     int64  `bun:"created_at,notnull"`
}

// Provider implements session.IdentityProvider against a local user table.
// It holds the single current principal for the client and delivers every
// session change to subscribers serially, in emission order.
type Provider struct {
	db     *bun.DB
	logger session.Logger
	now    func() time.Time

	mu         sync.Mutex
	current    *session.Identity
	listeners  map[int]func(*session.Identity)
	nextHandle int

	tokens *tokenMint
}

var _ session.IdentityProvider = (*Provider)(nil)

func New(db *bun.DB) *Provider {
	return &Provider{
		db:        db,
		now:       time.Now,
		listeners: map[int]func(*session.Identity){},
		tokens:    newTokenMint(),
	}
}

func (p *Provider) WithLogger(logger session.Logger) *Provider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithSigningKey sets the HMAC key used to mint and verify ID tokens.
func (p *Provider) WithSigningKey(key []byte) *Provider {
	p.tokens.signingKey = key
	return p
}

// WithTokenTTL overrides the ID token lifetime.
func (p *Provider) WithTokenTTL(ttl time.Duration) *Provider {
	if ttl > 0 {
		p.tokens.ttl = ttl
	}
	return p
}

// WithIssuer overrides the ID token issuer claim.
func (p *Provider) WithIssuer(issuer string) *Provider {
	if issuer != "" {
		p.tokens.issuer = issuer
	}
	return p
}

// WithClock injects a custom clock (useful for tests).
func (p *Provider) WithClock(clock func() time.Time) *Provider {
	if clock != nil {
		p.now = clock
		p.tokens.now = clock
	}
	return p
}

// Migrate creates the backing table if needed.
func (p *Provider) Migrate(ctx context.Context) error {
	if _, err := p.db.NewCreateTable().Model((*userRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create auth_users table")
	}
	return nil
}

type credentialsPayload struct {
	Email    string
	Password string
}

// Validate will run validation rules
func (r credentialsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// CreateAccount registers a new identity and signs it in: the created
// identity becomes the current principal and is emitted to subscribers,
// matching hosted providers that start a session on account creation.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*session.Identity, error) {
	payload := credentialsPayload{Email: email, Password: password}
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid registration payload")
	}

	if len(password) < MinPasswordLength {
		return nil, session.ErrWeakPassword.WithMetadata(map[string]any{
			"min_length": MinPasswordLength,
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	row := &userRow{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UnixMicro(),
	}

	res, err := p.db.NewInsert().
		Model(row).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to persist account")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		if p.logger != nil {
			p.logger.Debug("registration rejected, email already in use", "email", email)
		}
		return nil, session.ErrEmailInUse.WithMetadata(map[string]any{"email": email})
	}

	identity := identityFromRow(row)
	p.setCurrent(identity)
	return identity.Clone(), nil
}

// Authenticate verifies the credential pair. On success the identity
// becomes the current principal and is emitted; on failure the session is
// untouched and ErrInvalidCredentials propagates verbatim.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*session.Identity, error) {
	row := new(userRow)
	err := p.db.NewSelect().Model(row).Where("email = ?", email).Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to look up account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		if p.logger != nil {
			p.logger.Warn("authentication failed", "email", email)
		}
		return nil, session.ErrInvalidCredentials
	}

	identity := identityFromRow(row)
	p.setCurrent(identity)
	return identity.Clone(), nil
}

// UpdateIdentity mutates provider-owned fields of the current principal.
// Only DisplayName is supported. Requires a signed-in principal.
func (p *Provider) UpdateIdentity(ctx context.Context, update session.IdentityUpdate) error {
	if update.DisplayName == nil {
		return nil
	}

	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return session.ErrPermissionDenied.WithMetadata(map[string]any{
			"reason": "no signed-in principal",
		})
	}

	_, err := p.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("display_name = ?", *update.DisplayName).
		Where("uid = ?", current.UID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to update display name")
	}

	updated := current.Clone()
	updated.DisplayName = *update.DisplayName
	p.setCurrent(updated)
	return nil
}

// SignOut clears the current principal and emits a nil identity.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setCurrent(nil)
	return nil
}

// Subscribe registers a session-change callback and replays the current
// state immediately, the way hosted auth observers fire on attach. Events
// are dispatched one at a time while the provider's lock is held, so
// callbacks observe them in emission order and must not call back into the
// provider.
func (p *Provider) Subscribe(fn func(*session.Identity)) func() {
	if fn == nil {
		return func() {}
	}

	p.mu.Lock()
	handle := p.nextHandle
	p.nextHandle++
	p.listeners[handle] = fn
	fn(p.current.Clone())
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, handle)
		p.mu.Unlock()
	}
}

func (p *Provider) setCurrent(identity *session.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = identity
	for _, fn := range p.listeners {
		fn(identity.Clone())
	}
}

func identityFromRow(row *userRow) *session.Identity {
	return &session.Identity{
		UID:           row.UID,
		Email:         row.Email,
		DisplayName:   row.DisplayName,
		EmailVerified: row.EmailVerified,
	}
}
