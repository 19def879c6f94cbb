package identity

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Firebase verifies ID tokens with the Firebase Admin SDK. The SDK client is
// built on first use and shared afterwards.
type Firebase struct {
	projectID       string
	credentialsFile string

	once    sync.Once
	client  tokenVerifier
	initErr error

	newClient func(ctx context.Context) (tokenVerifier, error)
}

func NewFirebase(projectID, credentialsFile string) *Firebase {
	f := &Firebase{projectID: projectID, credentialsFile: credentialsFile}
	f.newClient = f.dial
	return f
}

func (f *Firebase) dial(ctx context.Context) (tokenVerifier, error) {
	if f.projectID == "" {
		return nil, ErrNotConfigured
	}
	var opts []option.ClientOption
	if f.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(f.credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: f.projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	c, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return c, nil
}

func (f *Firebase) verifier() (tokenVerifier, error) {
	f.once.Do(func() {
		// detached from any request so a cancelled first caller does not poison the cache
		f.client, f.initErr = f.newClient(context.Background())
	})
	return f.client, f.initErr
}

func (f *Firebase) VerifyAccessToken(ctx context.Context, token string) (Identity, error) {
	v, err := f.verifier()
	if err != nil {
		return Identity{}, err
	}
	tok, err := v.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) {
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return Identity{}, fmt.Errorf("verify id token: %w", err)
	}
	email, _ := tok.Claims["email"].(string)
	return Identity{UID: tok.UID, Email: email}, nil
}
