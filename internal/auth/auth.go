// Package auth verifies coaching socket credentials. Token issuance
// happens elsewhere; this side only checks signature and expiry.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the identity carried by a verified credential.
type Claims struct {
	UserID      string
	DisplayName string
	OrgID       string
}

type tokenClaims struct {
	DisplayName string `json:"name"`
	OrgID       string `json:"orgId"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the HMAC signature and expiry and returns the caller's
// identity. Any failure collapses to ErrInvalidToken so the gateway has
// a single rejection path.
func (v *Verifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID:      tc.Subject,
		DisplayName: tc.DisplayName,
		OrgID:       tc.OrgID,
	}, nil
}
