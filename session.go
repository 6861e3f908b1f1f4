package session

import "fmt"

// State is the gating state of a session.
type State string

const (
	// StateUnknown is the sole initial state, entered once at startup and
	// never re-entered. It means no provider event has been observed yet.
	StateUnknown State = "unknown"
	// StateAnonymous means the provider reported no identity, or the session
	// collapsed after a failed profile fetch.
	StateAnonymous State = "anonymous"
	// StateAuthenticated means an identity was reported and its profile
	// document merged successfully.
	StateAuthenticated State = "authenticated"
)

// Session is the ephemeral merged view published by the Controller. It is
// rebuilt wholesale on every provider event and never partially mutated;
// treat it as a value.
type Session struct {
	Identity *Identity
	Profile  *ProfileDocument
	State    State
}

// Authenticated reports whether the session carries a verified identity.
func (s Session) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

func (s Session) String() string {
	uid := "<nil>"
	if s.Identity != nil {
		uid = s.Identity.UID
	}
	return fmt.Sprintf("state=%s uid=%s profile=%t", s.State, uid, s.Profile != nil)
}
