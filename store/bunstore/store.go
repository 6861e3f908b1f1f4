// Package bunstore persists profile documents with Bun. It supplies the
// store-side primitives the session core requires: a conditional create
// that is atomic at the database, nested-path patches that leave omitted
// fields untouched, and a server-assigned, strictly increasing updated_at.
package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	session "github.com/goliatone/go-session"
)

type profileRow struct {
	bun.BaseModel `bun:"table:user_profiles,alias:prof"`

	UID         string                `bun:"uid,pk"`
	Email       string                `bun:"email,notnull,default:''"`
	DisplayName string                `bun:"display_name,notnull,default:''"`
	CreatedAt   int64                 `bun:"created_at,notnull"`
	UpdatedAt   int64                 `bun:"updated_at,notnull"`
	Profile     session.ProfileFields `bun:"profile,type:jsonb"`
	Settings    session.Settings      `bun:"settings,type:jsonb"`
}

// profilePathKeys are the patch keys that live inside the profile JSON
// column, addressed by json path so sibling fields survive the update.
var profilePathKeys = map[string]string{
	session.FieldBio:      "$.bio",
	session.FieldLocation: "$.location",
	session.FieldWebsite:  "$.website",
	session.FieldPhotoURL: "$.photoURL",
}

// cacheColumns are the top-level cache fields a patch may refresh.
var cacheColumns = map[string]string{
	session.FieldDisplayName: "display_name",
	session.FieldEmail:       "email",
}

// Store implements session.ProfileStore over a bun.DB.
type Store struct {
	db     *bun.DB
	logger session.Logger
	now    func() time.Time
}

var _ session.ProfileStore = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

func (s *Store) WithLogger(logger session.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock injects a custom clock (useful for tests). Monotonicity of
// updated_at does not depend on it; the UPDATE clamps against the stored
// value.
func (s *Store) WithClock(clock func() time.Time) *Store {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Migrate creates the backing table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*profileRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create user_profiles table")
	}
	return nil
}

// Get returns the document for uid or session.ErrProfileNotFound.
func (s *Store) Get(ctx context.Context, uid string) (*session.ProfileDocument, error) {
	row := new(profileRow)
	err := s.db.NewSelect().Model(row).Where("uid = ?", uid).Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrProfileNotFound.WithMetadata(map[string]any{"uid": uid})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to fetch profile document")
	}
	return documentFromRow(row), nil
}

// CreateIfAbsent inserts the seed unless a row for seed.UID exists, then
// re-reads. The conditional insert runs at the database, so under
// concurrent calls for the same uid exactly one row is ever created and
// every caller, win or lose the race, reads back a complete document with
// created_at set exactly once.
func (s *Store) CreateIfAbsent(ctx context.Context, seed *session.ProfileDocument) (*session.ProfileDocument, error) {
	if seed == nil || seed.UID == "" {
		return nil, goerrors.New("profile seed requires a uid", goerrors.CategoryBadInput)
	}

	row := rowFromDocument(seed)
	now := s.now().UnixMicro()
	row.CreatedAt = now
	row.UpdatedAt = now

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (uid) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create profile document")
	}

	return s.Get(ctx, seed.UID)
}

// Patch applies only the named fields in a single UPDATE. Nested profile
// keys go through json_set so sibling fields inside the profile object are
// unaffected; displayName/email refresh their cache columns. updated_at is
// assigned here, never by the client, and strictly increases even when two
// writes land inside the same clock tick.
func (s *Store) Patch(ctx context.Context, uid string, fields map[string]string) error {
	if uid == "" {
		return goerrors.New("patch requires a uid", goerrors.CategoryBadInput)
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		if _, ok := profilePathKeys[key]; ok {
			keys = append(keys, key)
			continue
		}
		if _, ok := cacheColumns[key]; ok {
			keys = append(keys, key)
			continue
		}
		if s.logger != nil {
			s.logger.Debug("ignoring unknown patch field", "key", key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	q := s.db.NewUpdate().Model((*profileRow)(nil)).Where("uid = ?", uid)

	var jsonPairs []string
	var jsonArgs []any
	for _, key := range keys {
		if path, ok := profilePathKeys[key]; ok {
			jsonPairs = append(jsonPairs, fmt.Sprintf("'%s', ?", path))
			jsonArgs = append(jsonArgs, fields[key])
			continue
		}
		q = q.Set(cacheColumns[key]+" = ?", fields[key])
	}
	if len(jsonPairs) > 0 {
		expr := "profile = json_set(profile, " + strings.Join(jsonPairs, ", ") + ")"
		q = q.Set(expr, jsonArgs...)
	}

	now := s.now().UnixMicro()
	q = q.Set("updated_at = CASE WHEN ? > updated_at THEN ? ELSE updated_at + 1 END", now, now)

	res, err := q.Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to patch profile document")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read patch result")
	}
	if affected == 0 {
		return session.ErrProfileNotFound.WithMetadata(map[string]any{"uid": uid})
	}

	return nil
}

func documentFromRow(row *profileRow) *session.ProfileDocument {
	return &session.ProfileDocument{
		UID:         row.UID,
		Email:       row.Email,
		DisplayName: row.DisplayName,
		CreatedAt:   time.UnixMicro(row.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMicro(row.UpdatedAt).UTC(),
		Profile:     row.Profile,
		Settings:    row.Settings,
	}
}

func rowFromDocument(doc *session.ProfileDocument) *profileRow {
	return &profileRow{
		UID:         doc.UID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		Profile:     doc.Profile,
		Settings:    doc.Settings,
	}
}
