package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Verifier turns a credential issued by the authentication backend into a
// signed-in session. The session's user id always comes from the credential.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Session, error)
}

// AccessClaims are the claims of a backend access token (Supabase layout).
type AccessClaims struct {
	Email        string         `json:"email,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	// Now overrides the clock used for exp/nbf checks.
	Now func() time.Time
}

// JWTVerifier checks HS256 access tokens signed with the backend's shared secret.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session: jwt secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &JWTVerifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Session{}, fmt.Errorf("%w: missing access token", ErrInvalidCredential)
	}

	// claims are validated below with the injected clock
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	claims := &AccessClaims{}
	if _, err := parser.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if err := v.validate(claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	return Session{
		UserID:        claims.Subject,
		Authenticated: true,
		Profile: Profile{
			UserID: claims.Subject,
			Name:   displayName(claims.UserMetadata),
			Email:  claims.Email,
		},
	}, nil
}

func (v *JWTVerifier) validate(c *AccessClaims) error {
	now := v.now()
	switch {
	case c.Subject == "":
		return errors.New("token has no subject")
	case c.ExpiresAt == nil:
		return errors.New("token has no expiry")
	case !c.VerifyExpiresAt(now, true):
		return errors.New("token is expired")
	case !c.VerifyNotBefore(now, false):
		return errors.New("token is not valid yet")
	case v.issuer != "" && !c.VerifyIssuer(v.issuer, true):
		return errors.New("unexpected issuer")
	case v.audience != "" && !c.VerifyAudience(v.audience, true):
		return errors.New("unexpected audience")
	}
	return nil
}

func displayName(meta map[string]any) string {
	for _, key := range []string{"full_name", "name"} {
		if s, ok := meta[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
