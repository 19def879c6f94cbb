package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "brilliantaksan-admin"
	Audience = "brilliantaksan-cms"
	Lifetime = 12 * time.Hour
)

// ErrNotConfigured is returned by Issue when no signing secret is set.
var ErrNotConfigured = errors.New("admin session secret is not configured")

// Session is the authenticated admin carried by a valid token.
type Session struct {
	Email string
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret []byte
	now    func() time.Time
}

type CodecOption func(*Codec)

// WithClock overrides the time source used for iat, exp and verification.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret []byte, opts ...CodecOption) *Codec {
	c := &Codec{secret: secret, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether the codec can issue tokens.
func (c *Codec) Configured() bool { return c != nil && len(c.secret) > 0 }

// Issue returns a token for email that expires after Lifetime.
func (c *Codec) Issue(email string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
	})
	s, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return s, nil
}

// Verify checks signature, issuer, audience and expiry and returns the
// embedded session. Any failure, including a missing secret, reports false.
func (c *Codec) Verify(token string) (Session, bool) {
	if !c.Configured() || token == "" {
		return Session{}, false
	}
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || cl.Email == "" {
		return Session{}, false
	}
	return Session{Email: cl.Email}, true
}
