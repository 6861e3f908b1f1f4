package session

import (
	"net/url"
	"strings"
	"unicode/utf16"
)

// AvatarPalette is the fixed color palette fallback avatars draw from.
// FallbackAvatar returns an index into this slice.
var AvatarPalette = []string{
	"#4F46E5", // indigo-600
	"#7C3AED", // violet-600
	"#EC4899", // pink-600
	"#10B981", // emerald-600
	"#F59E0B", // amber-500
	"#EF4444", // red-500
	"#0EA5E9", // sky-500
	"#8B5CF6", // purple-500
	"#14B8A6", // teal-500
	"#F97316", // orange-500
}

// trustedPhotoHosts are the photo hosts whose URLs get their filename
// segment re-encoded. Everything else passes through untouched.
var trustedPhotoHosts = map[string]struct{}{
	"i.ibb.co": {},
}

// ValidatePhotoURL sanitizes a user-supplied photo URL.
//
// Parseable URL on a trusted host: only the final path segment (the
// filename) is percent-encoded; scheme, host, and earlier segments are
// reconstructed untouched. Parseable URL on any other host: returned
// unmodified. This trust-any-host passthrough is intentional broad
// compatibility carried over from the consuming product; do not tighten it
// here without a security review, wrap it instead. Unparseable input is not
// rejected either: if it contains a space the whole string is
// percent-encoded, otherwise it comes back as-is.
func ValidatePhotoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if strings.Contains(raw, " ") {
			return strings.ReplaceAll(raw, " ", "%20")
		}
		return raw
	}

	if _, trusted := trustedPhotoHosts[u.Hostname()]; !trusted {
		return raw
	}

	segments := strings.Split(u.EscapedPath(), "/")
	last := segments[len(segments)-1]
	decoded, err := url.PathUnescape(last)
	if err != nil {
		decoded = last
	}
	segments[len(segments)-1] = url.PathEscape(decoded)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(strings.Join(segments, "/"))
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// FallbackAvatar derives a deterministic initials avatar from a seed, which
// is the user's display name when present, otherwise their email. Identical
// seeds always yield identical output across calls and runs.
func FallbackAvatar(seed string) (colorIndex int, initials string) {
	return AvatarColorIndex(seed), AvatarInitials(seed)
}

// AvatarColorIndex reduces a polynomial rolling hash of the seed's UTF-16
// code units to an index into AvatarPalette. Only the shift operand is
// wrapped to 32 bits; the running value stays wide, matching the web
// client's number semantics so identical seeds pick identical colors on
// both sides.
func AvatarColorIndex(seed string) int {
	var hash int64
	for _, unit := range utf16.Encode([]rune(seed)) {
		shifted := int32(hash) << 5
		hash = int64(unit) + int64(shifted) - hash
	}

	if hash < 0 {
		hash = -hash
	}
	return int(hash % int64(len(AvatarPalette)))
}

// AvatarInitials returns the uppercase first letters of the first two
// space-separated tokens of a display name. A single-token seed, such as an
// email address, yields its first letter alone.
func AvatarInitials(seed string) string {
	tokens := strings.Fields(seed)
	switch {
	case len(tokens) >= 2:
		return strings.ToUpper(firstRune(tokens[0]) + firstRune(tokens[1]))
	case len(tokens) == 1:
		return strings.ToUpper(firstRune(tokens[0]))
	default:
		return ""
	}
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}
