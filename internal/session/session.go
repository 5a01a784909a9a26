// Package session tells the rest of the application who the current user
// is, if anyone, and whether that is still being worked out.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/carehub/internal/authtoken"
	"github.com/nhle/carehub/internal/credential"
)

// Snapshot is one observation of the session.
type Snapshot struct {
	// Resolving is true while the identity is not yet known.
	Resolving bool

	// UserID is empty when nobody is signed in.
	UserID string

	// Name is an optional display name for the status bar.
	Name string
}

// Resolving returns the pre-decision snapshot.
func Resolving() Snapshot { return Snapshot{Resolving: true} }

// Anonymous returns a resolved snapshot without identity.
func Anonymous() Snapshot { return Snapshot{} }

// SignedIn returns a resolved snapshot for userID.
func SignedIn(userID, name string) Snapshot {
	return Snapshot{UserID: userID, Name: name}
}

// Authenticated reports whether the snapshot carries an identity.
func (s Snapshot) Authenticated() bool {
	return !s.Resolving && s.UserID != ""
}

func (s Snapshot) String() string {
	switch {
	case s.Resolving:
		return "resolving"
	case s.UserID == "":
		return "signed out"
	case s.Name != "":
		return s.Name + " (" + s.UserID + ")"
	default:
		return s.UserID
	}
}

// Provider resolves the current session.
type Provider interface {
	Resolve(ctx context.Context) (Snapshot, error)
}

// Authenticator is a Provider whose session can be changed and that can
// hand out the bearer token backing it.
type Authenticator interface {
	Provider
	SignIn(ctx context.Context, token string) (Snapshot, error)
	SignOut(ctx context.Context) error
	Token(ctx context.Context) (string, error)
}

// StaticProvider always resolves to a fixed user.
type StaticProvider struct {
	UserID string
}

// Resolve returns the configured user, or Anonymous when none is set.
func (p StaticProvider) Resolve(context.Context) (Snapshot, error) {
	if p.UserID == "" {
		return Anonymous(), nil
	}
	return SignedIn(p.UserID, ""), nil
}

// Secrets is the credential store a TokenProvider keeps its token in.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// TokenProvider derives the session from a signed token kept in Secrets.
type TokenProvider struct {
	secrets Secrets
	key     string
	now     func() time.Time
}

// NewTokenProvider returns a TokenProvider reading the token stored at key.
func NewTokenProvider(secrets Secrets, key string) *TokenProvider {
	return &TokenProvider{secrets: secrets, key: key, now: time.Now}
}

// Resolve reads the stored token. A missing or expired token resolves to
// Anonymous; only keyring failures are errors.
func (p *TokenProvider) Resolve(context.Context) (Snapshot, error) {
	token, err := p.secrets.Get(p.key)
	if errors.Is(err, credential.ErrMissing) {
		return Anonymous(), nil
	}
	if err != nil {
		return Anonymous(), fmt.Errorf("resolving session: %w", err)
	}

	claims, err := authtoken.Inspect(token, p.now())
	if err != nil {
		return Anonymous(), nil
	}
	return SignedIn(claims.UserID, claims.Name), nil
}

// SignIn validates and stores token.
func (p *TokenProvider) SignIn(_ context.Context, token string) (Snapshot, error) {
	claims, err := authtoken.Inspect(token, p.now())
	if err != nil {
		return Anonymous(), fmt.Errorf("signing in: %w", err)
	}
	if err := p.secrets.Set(p.key, token); err != nil {
		return Anonymous(), fmt.Errorf("signing in: %w", err)
	}
	return SignedIn(claims.UserID, claims.Name), nil
}

// SignOut forgets the stored token.
func (p *TokenProvider) SignOut(context.Context) error {
	if err := p.secrets.Delete(p.key); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// Token returns the stored token for use as a bearer credential.
func (p *TokenProvider) Token(context.Context) (string, error) {
	token, err := p.secrets.Get(p.key)
	if err != nil {
		return "", fmt.Errorf("reading session token: %w", err)
	}
	return token, nil
}
