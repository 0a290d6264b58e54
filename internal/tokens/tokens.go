// Package tokens issues and redeems signed, time-limited tokens that bind an
// email address to a purpose. Verification links carry them.
package tokens

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// EmailVerifySalt scopes tokens used in verification links.
const EmailVerifySalt = "email-verify"

// VerifyMaxAge is how long a verification link stays valid.
const VerifyMaxAge = 24 * time.Hour

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Signer signs and checks tokens for a single salt.
type Signer struct {
	key  []byte
	salt string
	now  func() time.Time
}

// NewSigner derives the signing key for salt from secret.
func NewSigner(secret, salt string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("tokens: empty secret")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), []byte(salt), []byte("souk signed token"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Signer{key: key, salt: salt, now: time.Now}, nil
}

// WithClock returns a copy of s that reads the time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	c := *s
	c.now = now
	return &c
}

// Issue returns a token naming email, stamped with the current time.
func (s *Signer) Issue(email string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  email,
		Audience: jwt.ClaimStrings{s.salt},
		IssuedAt: jwt.NewNumericDate(s.now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Redeem checks token and returns the email it names. Tokens older than
// maxAge fail with ErrTokenExpired, anything else wrong with ErrTokenInvalid.
func (s *Signer) Redeem(token string, maxAge time.Duration) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims,
		func(*jwt.Token) (interface{}, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(s.salt),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.IssuedAt == nil || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	age := s.now().Sub(claims.IssuedAt.Time)
	if age < 0 {
		return "", ErrTokenInvalid
	}
	if age > maxAge {
		return "", ErrTokenExpired
	}
	return claims.Subject, nil
}
