package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret-with-at-least-32-bytes!!"

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims AccessClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func claimsFor(sub string, exp time.Time) AccessClaims {
	return AccessClaims{
		Email:        sub + "@example.com",
		UserMetadata: map[string]any{"full_name": "Ana Souza"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://auth.example.com",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(JWTConfig{
		Secret:   testSecret,
		Issuer:   "https://auth.example.com",
		Audience: "authenticated",
		Now:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	return v
}

func TestJWTVerifierAcceptsSignedToken(t *testing.T) {
	v := newTestVerifier(t)
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("u1", testNow.Add(time.Hour)))

	s, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !s.Valid() || s.UserID != "u1" || s.Profile.UserID != "u1" {
		t.Fatalf("unexpected session %+v", s)
	}
	if s.Profile.Name != "Ana Souza" || s.Profile.Email != "u1@example.com" {
		t.Fatalf("profile not taken from claims: %+v", s.Profile)
	}
}

func TestJWTVerifierRejects(t *testing.T) {
	v := newTestVerifier(t)
	valid := claimsFor("u1", testNow.Add(time.Hour))

	noSubject := valid
	noSubject.Subject = ""
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	otherIssuer := valid
	otherIssuer.Issuer = "https://evil.example.com"
	otherAudience := valid
	otherAudience.Audience = jwt.ClaimStrings{"anon"}
	notYet := valid
	notYet.NotBefore = jwt.NewNumericDate(testNow.Add(time.Minute))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"unsigned", unsigned},
		{"forged signature", sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-12"), valid)},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), claimsFor("u1", testNow.Add(-time.Second)))},
		{"no subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"other issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), otherIssuer)},
		{"other audience", sign(t, jwt.SigningMethodHS256, []byte(testSecret), otherAudience)},
		{"not valid yet", sign(t, jwt.SigningMethodHS256, []byte(testSecret), notYet)},
		{"other algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := v.Verify(context.Background(), tc.token)
			if !errors.Is(err, ErrInvalidCredential) {
				t.Fatalf("expected ErrInvalidCredential, got %v", err)
			}
			if s.Valid() {
				t.Fatalf("rejected token produced a session: %+v", s)
			}
		})
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	if _, err := NewJWTVerifier(JWTConfig{}); err == nil {
		t.Fatal("expected error without secret")
	}
}
