package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/brilliantaksan/brilliantaksan-web/internal/identity"
)

var (
	ErrMissingToken    = errors.New("missing access token")
	ErrInvalidIdentity = errors.New("invalid identity session")
	ErrForbidden       = errors.New("account is not authorized for admin access")
)

// State is where a request ended up in the session state machine.
type State int

const (
	StateNoToken State = iota
	StateInvalid
	StateValid
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateInvalid:
		return "invalid"
	case StateValid:
		return "not_allowed"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Service exchanges identity provider tokens for session tokens and
// authenticates requests carrying the session cookie.
type Service struct {
	codec    *Codec
	allow    Allowlist
	verifier identity.Verifier
	secure   bool
	onLogin  func(outcome string)
}

type Option func(*Service)

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Service) { s.secure = secure }
}

// WithLoginObserver is called once per Login with a short outcome label.
func WithLoginObserver(fn func(outcome string)) Option {
	return func(s *Service) { s.onLogin = fn }
}

func NewService(codec *Codec, allow Allowlist, verifier identity.Verifier, opts ...Option) *Service {
	s := &Service{codec: codec, allow: allow, verifier: verifier}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login verifies accessToken with the identity provider and, when its email
// is allowlisted, returns a signed session token. Errors are ErrMissingToken,
// ErrInvalidIdentity, ErrForbidden, or an upstream/configuration failure.
func (s *Service) Login(ctx context.Context, accessToken string) (string, Session, error) {
	tok, sess, err := s.login(ctx, accessToken)
	if s.onLogin != nil {
		s.onLogin(loginOutcome(err))
	}
	return tok, sess, err
}

func (s *Service) login(ctx context.Context, accessToken string) (string, Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", Session{}, ErrMissingToken
	}
	if s.verifier == nil {
		return "", Session{}, identity.ErrNotConfigured
	}

	id, err := s.verifier.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return "", Session{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return "", Session{}, err
	}

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if !s.allow.Allowed(email) {
		return "", Session{}, ErrForbidden
	}

	tok, err := s.codec.Issue(email)
	if err != nil {
		return "", Session{}, err
	}
	return tok, Session{Email: email}, nil
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrInvalidIdentity):
		return "invalid_identity"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

// Authenticate runs the per-request state machine over the session cookie.
// The session is only returned in StateAuthorized.
func (s *Service) Authenticate(r *http.Request) (Session, State) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return Session{}, StateNoToken
	}
	sess, ok := s.codec.Verify(raw)
	if !ok {
		return Session{}, StateInvalid
	}
	if !s.allow.Allowed(sess.Email) {
		return Session{}, StateValid
	}
	return sess, StateAuthorized
}
