package session

// Verdict is the rendering decision derived from a Session snapshot.
type Verdict string

const (
	// RenderLoading shows a neutral loading indicator only. Neither
	// protected content nor an auth prompt may appear.
	RenderLoading Verdict = "loading"
	// RenderAuthPrompt shows a blocking credential-collection surface.
	RenderAuthPrompt Verdict = "auth-prompt"
	// RenderContent shows the protected subtree.
	RenderContent Verdict = "content"
)

// Decide is the access gate: a pure function of the latest Session with no
// timers or internal state. Only an authenticated session unlocks content;
// anything indeterminate fails closed to the loading indicator so a late
// first provider event never flashes content or a prompt. Any transition
// away from StateAuthenticated re-blocks on the next snapshot; there is no
// grace period for stale content.
func Decide(s Session) Verdict {
	switch s.State {
	case StateAuthenticated:
		if s.Identity == nil {
			return RenderLoading
		}
		return RenderContent
	case StateAnonymous:
		return RenderAuthPrompt
	default:
		return RenderLoading
	}
}

// DismissAuthPrompt is the prompt's dismiss action: a deliberate no-op.
// Access denial is fail-closed, so closing the prompt just re-derives the
// same verdict instead of granting a client-side escape hatch.
func DismissAuthPrompt(s Session) Verdict {
	return Decide(s)
}
