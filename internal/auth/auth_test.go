package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	lkerrors "lorekeeper/internal/errors"
)

func TestJWTVerifierRoundTrip(t *testing.T) {
	v, err := NewJWTVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	token, err := v.Sign("alice", time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	for _, presented := range []string{token, "Bearer " + token, "bearer " + token, "  Bearer " + token + "  "} {
		user, err := v.Username(presented)
		if err != nil {
			t.Fatalf("Username(%q) error = %v", presented, err)
		}
		if user != "alice" {
			t.Errorf("Username() = %q, want alice", user)
		}
	}
}

func TestJWTVerifierRejections(t *testing.T) {
	v, err := NewJWTVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	expired, err := v.Sign("alice", -time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	other, err := NewJWTVerifier("other-secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}
	wrongSecret, err := other.Sign("alice", time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"bearer only", "Bearer "},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", wrongSecret},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Username(tt.token); !errors.Is(err, lkerrors.ErrAuthFailure) {
				t.Errorf("Username(%q) error = %v, want ErrAuthFailure", tt.token, err)
			}
		})
	}
}

func TestStaticVerifier(t *testing.T) {
	v := Static{"tok-1": "alice", "tok-2": "bob"}

	user, err := v.Username("Bearer tok-1")
	if err != nil {
		t.Fatalf("Username() error = %v", err)
	}
	if user != "alice" {
		t.Errorf("Username() = %q, want alice", user)
	}

	if _, err := v.Username("tok-3"); !errors.Is(err, lkerrors.ErrAuthFailure) {
		t.Errorf("unknown token error = %v, want ErrAuthFailure", err)
	}
}
