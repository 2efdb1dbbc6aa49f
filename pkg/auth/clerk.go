package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidJWT      = errors.New("invalid JWT token")
	ErrExpiredJWT      = errors.New("JWT token expired")
	ErrUnauthenticated = errors.New("authentication required")
)

// ClerkClaims are the claims of a Clerk session token. Email is only present
// when the instance's session token template adds it.
type ClerkClaims struct {
	SessionID       string `json:"sid,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	Email           string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID is the Clerk user id (the token subject).
func (c *ClerkClaims) UserID() string { return c.Subject }

type ClerkConfig struct {
	// PublicKeyPEM is the instance's JWT verification key (CLERK_JWT_KEY).
	PublicKeyPEM string
	// Issuer, when set, must equal the iss claim (the Frontend API URL).
	Issuer string
	// AuthorizedParties, when set, restricts the azp claim to these origins.
	AuthorizedParties []string
	Leeway            time.Duration
}

// ClerkVerifier verifies RS256 Clerk session tokens networklessly.
type ClerkVerifier struct {
	key     *rsa.PublicKey
	issuer  string
	parties []string
	parser  *jwt.Parser
}

func NewClerkVerifier(cfg ClerkConfig) (*ClerkVerifier, error) {
	pem := strings.TrimSpace(strings.ReplaceAll(cfg.PublicKeyPEM, `\n`, "\n"))
	if pem == "" {
		return nil, fmt.Errorf("clerk public key is required")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parse clerk public key: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &ClerkVerifier{
		key:     key,
		issuer:  cfg.Issuer,
		parties: cfg.AuthorizedParties,
		parser:  jwt.NewParser(opts...),
	}, nil
}

// Verify validates a session token and returns its claims.
func (v *ClerkVerifier) Verify(tokenString string) (*ClerkClaims, error) {
	claims := &ClerkClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredJWT
		}
		return nil, ErrInvalidJWT
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidJWT
	}
	if len(v.parties) > 0 && claims.AuthorizedParty != "" && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, ErrInvalidJWT
	}
	return claims, nil
}
