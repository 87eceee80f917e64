package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for any token that fails signature, structure
// or expiry checks. Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// TokenCodec issues and parses HS256 tokens carrying a subject, a kind and
// an expiry.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// NewTokenCodec creates a codec signing with secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock returns a copy of the codec reading time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// TokenKind separates access tokens from refresh tokens. It travels in the
// "typ" claim and Parse only accepts the kind it is asked for.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

type tokenClaims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// Issue signs an access token for subject that expires ttl from now.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (string, error) {
	return c.issue(AccessToken, subject, ttl)
}

// IssueRefresh signs a refresh token for subject that expires ttl from now.
func (c *TokenCodec) IssueRefresh(subject string, ttl time.Duration) (string, error) {
	return c.issue(RefreshToken, subject, ttl)
}

func (c *TokenCodec) issue(kind TokenKind, subject string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := tokenClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies an access token and returns its subject. A token is rejected
// when the signature or algorithm is wrong, exp or sub is missing, the kind is
// not access, or now >= exp.
func (c *TokenCodec) Parse(token string) (string, error) {
	return c.parse(AccessToken, token)
}

// ParseRefresh is Parse for refresh tokens.
func (c *TokenCodec) ParseRefresh(token string) (string, error) {
	return c.parse(RefreshToken, token)
}

func (c *TokenCodec) parse(kind TokenKind, token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims tokenClaims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}); err != nil {
		return "", ErrInvalidToken
	}

	if claims.Kind != kind || claims.ExpiresAt == nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
