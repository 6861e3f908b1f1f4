package local

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"

	session "github.com/goliatone/go-session"
)

const defaultIssuer = "go-session/local"

// idTokenClaims is the claim set minted for a signed-in identity.
type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

type tokenMint struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func newTokenMint() *tokenMint {
	return &tokenMint{
		issuer: defaultIssuer,
		ttl:    time.Hour,
		now:    time.Now,
	}
}

// MintIDToken signs a short-lived HS256 token describing the identity, for
// consumers that need to hand proof of the session to another component.
func (p *Provider) MintIDToken(identity *session.Identity) (string, error) {
	if identity == nil {
		return "", goerrors.New("cannot mint token for nil identity", goerrors.CategoryBadInput)
	}
	if len(p.tokens.signingKey) == 0 {
		return "", goerrors.New("provider has no signing key configured", goerrors.CategoryInternal)
	}

	now := p.tokens.now()
	claims := &idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.tokens.issuer,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.tokens.ttl)),
		},
		Email:         identity.Email,
		Name:          identity.DisplayName,
		EmailVerified: identity.EmailVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.tokens.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign ID token")
	}

	return signed, nil
}

// ParseIDToken verifies a minted token and reconstructs the identity it
// describes. Tokens signed with anything but HMAC are rejected.
func (p *Provider) ParseIDToken(raw string) (*session.Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &idTokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, goerrors.New("unexpected signing method", goerrors.CategoryAuth).
				WithMetadata(map[string]any{"alg": t.Header["alg"]})
		}
		return p.tokens.signingKey, nil
	}, jwt.WithIssuer(p.tokens.issuer))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "invalid ID token")
	}

	claims, ok := token.Claims.(*idTokenClaims)
	if !ok || !token.Valid {
		return nil, goerrors.New("unable to decode ID token claims", goerrors.CategoryAuth)
	}

	return &session.Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		DisplayName:   claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}
