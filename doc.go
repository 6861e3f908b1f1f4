// Package session reconciles an identity provider's authoritative record
// with an independently stored profile document and publishes a single
// merged Session snapshot that gates what consumers may render.
//
// Session lifecycle:
//   - Controller subscribes to the provider's session-change events and is
//     the sole writer of the published Session. Events are handled one at a
//     time in delivery order; a failed profile fetch collapses the session
//     to anonymous rather than surfacing a half-populated view.
//   - Synchronizer splits profile edits between the provider (displayName)
//     and the profile store (nested profile fields), then re-reads the full
//     document so callers always fold a read-your-write result back in.
//
// Gating:
//   - Decide is a pure function of the latest Session snapshot. StateUnknown
//     renders neither protected content nor an auth prompt, so there is
//     never a flash of either while the first provider event is pending.
//
// Collaborators (IdentityProvider, ProfileStore, Reporter) are small
// interfaces; store/bunstore and provider/local ship working
// implementations backed by Bun.
package session
