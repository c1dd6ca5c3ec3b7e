// Package auth resolves caller identity from bearer tokens.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	lkerrors "lorekeeper/internal/errors"
)

// Verifier maps a presented token to a username.
type Verifier interface {
	Username(token string) (string, error)
}

// JWTVerifier validates HS256 tokens signed with a shared secret. The
// username is carried in the subject claim.
type JWTVerifier struct {
	secret []byte
}

var _ Verifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Username(token string) (string, error) {
	raw := stripBearer(token)
	if raw == "" {
		return "", fmt.Errorf("%w: missing token", lkerrors.ErrAuthFailure)
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", lkerrors.ErrAuthFailure, err)
	}
	if !parsed.Valid {
		return "", fmt.Errorf("%w: token rejected", lkerrors.ErrAuthFailure)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", lkerrors.ErrAuthFailure)
	}
	return claims.Subject, nil
}

// Sign mints a token for username. Used by local tooling and tests.
func (v *JWTVerifier) Sign(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Static maps fixed tokens to usernames. Meant for tests and local
// single-user setups where running a token issuer is overkill.
type Static map[string]string

var _ Verifier = Static(nil)

func (s Static) Username(token string) (string, error) {
	if user, ok := s[stripBearer(token)]; ok && user != "" {
		return user, nil
	}
	return "", fmt.Errorf("%w: unknown token", lkerrors.ErrAuthFailure)
}

func stripBearer(token string) string {
	raw := strings.TrimSpace(token)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = raw[7:]
	}
	return strings.TrimSpace(raw)
}
