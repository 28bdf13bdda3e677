package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		DisplayName: "Alice",
		OrgID:       "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestVerify_ValidToken(t *testing.T) {
	v := NewVerifier("secret")
	tok := signToken(t, "secret", "user-1", time.Now().Add(time.Hour))

	claims, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
	if claims.DisplayName != "Alice" || claims.OrgID != "org-1" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewVerifier("secret")
	tok := signToken(t, "other", "user-1", time.Now().Add(time.Hour))

	if _, err := v.Verify(tok); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	v := NewVerifier("secret")
	tok := signToken(t, "secret", "user-1", time.Now().Add(-time.Minute))

	if _, err := v.Verify(tok); err != ErrInvalidToken {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerify_EmptyAndGarbage(t *testing.T) {
	v := NewVerifier("secret")
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := v.Verify(tok); err != ErrInvalidToken {
			t.Errorf("Verify(%q) = %v, want ErrInvalidToken", tok, err)
		}
	}
}
