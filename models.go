package session

import "time"

// Identity is the provider's authoritative record for a user. Only the
// provider mutates it; everyone else treats it as a value.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
}

// Clone returns a copy so subscribers cannot mutate shared state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// ProfileFields is the nested, store-owned portion of a profile document.
// Every field is independently patchable under the profile path.
type ProfileFields struct {
	Bio      string `json:"bio"`
	Location string `json:"location"`
	Website  string `json:"website"`
	PhotoURL string `json:"photoURL"`
}

// Settings holds per-user preferences.
type Settings struct {
	EmailNotifications bool `json:"emailNotifications"`
	DarkMode           bool `json:"darkMode"`
}

// ProfileDocument is the store-persisted extended profile. Email and
// DisplayName here are a cache of the identity record, not authoritative;
// Merge always prefers the identity values.
type ProfileDocument struct {
	UID         string        `json:"uid"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Profile     ProfileFields `json:"profile"`
	Settings    Settings      `json:"settings"`
}

// Clone returns a deep copy of the document.
func (d *ProfileDocument) Clone() *ProfileDocument {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// NewProfileSeed builds the document persisted on first sign-up: empty
// profile fields and default settings, with the identity's cached values.
func NewProfileSeed(identity *Identity) *ProfileDocument {
	seed := &ProfileDocument{
		Settings: Settings{
			EmailNotifications: true,
			DarkMode:           false,
		},
	}
	if identity != nil {
		seed.UID = identity.UID
		seed.Email = identity.Email
		seed.DisplayName = identity.DisplayName
	}
	return seed
}
