package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type testKeys struct {
	private *rsa.PrivateKey
	pem     string
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return testKeys{private: key, pem: string(block)}
}

func (k testKeys) sign(t *testing.T, claims ClerkClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(k.private)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func sessionClaims(sub string, ttl time.Duration) ClerkClaims {
	now := time.Now()
	return ClerkClaims{
		SessionID:       "sess_1",
		AuthorizedParty: "https://app.tastesync.io",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://clerk.tastesync.io",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestClerkVerifierAcceptsValidToken(t *testing.T) {
	keys := newTestKeys(t)
	v, err := NewClerkVerifier(ClerkConfig{
		PublicKeyPEM:      keys.pem,
		Issuer:            "https://clerk.tastesync.io",
		AuthorizedParties: []string{"https://app.tastesync.io"},
	})
	if err != nil {
		t.Fatalf("NewClerkVerifier: %v", err)
	}

	claims, err := v.Verify(keys.sign(t, sessionClaims("user_123", time.Minute)))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "user_123" || claims.SessionID != "sess_1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestClerkVerifierRejections(t *testing.T) {
	keys := newTestKeys(t)
	other := newTestKeys(t)
	v, err := NewClerkVerifier(ClerkConfig{
		PublicKeyPEM:      keys.pem,
		Issuer:            "https://clerk.tastesync.io",
		AuthorizedParties: []string{"https://app.tastesync.io"},
	})
	if err != nil {
		t.Fatalf("NewClerkVerifier: %v", err)
	}

	wrongIssuer := sessionClaims("user_1", time.Minute)
	wrongIssuer.Issuer = "https://evil.example"
	wrongParty := sessionClaims("user_1", time.Minute)
	wrongParty.AuthorizedParty = "https://evil.example"
	noSubject := sessionClaims("", time.Minute)
	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims("user_1", time.Minute)).SignedString([]byte(keys.pem))
	if err != nil {
		t.Fatalf("sign hmac: %v", err)
	}

	cases := map[string]struct {
		token string
		want  error
	}{
		"expired":       {keys.sign(t, sessionClaims("user_1", -time.Minute)), ErrExpiredJWT},
		"wrong key":     {other.sign(t, sessionClaims("user_1", time.Minute)), ErrInvalidJWT},
		"wrong issuer":  {keys.sign(t, wrongIssuer), ErrInvalidJWT},
		"wrong azp":     {keys.sign(t, wrongParty), ErrInvalidJWT},
		"no subject":    {keys.sign(t, noSubject), ErrInvalidJWT},
		"hmac confused": {hmacToken, ErrInvalidJWT},
		"garbage":       {"not.a.jwt", ErrInvalidJWT},
	}
	for name, tc := range cases {
		if _, err := v.Verify(tc.token); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}

func TestNewClerkVerifierAcceptsEscapedNewlines(t *testing.T) {
	keys := newTestKeys(t)
	escaped := ""
	for _, r := range keys.pem {
		if r == '\n' {
			escaped += `\n`
			continue
		}
		escaped += string(r)
	}
	if _, err := NewClerkVerifier(ClerkConfig{PublicKeyPEM: escaped}); err != nil {
		t.Fatalf("expected env-style escaped PEM to parse: %v", err)
	}
	if _, err := NewClerkVerifier(ClerkConfig{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
