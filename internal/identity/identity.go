// Package identity verifies access tokens minted by the external identity
// provider and reduces them to the email the admin allowlist is checked against.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken means the provider rejected the token itself.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrNotConfigured means no provider project was configured.
	ErrNotConfigured = errors.New("identity provider is not configured")
)

type Identity struct {
	UID   string
	Email string
}

type Verifier interface {
	VerifyAccessToken(ctx context.Context, token string) (Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Identity, error)

func (f VerifierFunc) VerifyAccessToken(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}
