// Package gateway defines the contract between the notification controller
// and whatever backend holds a user's notifications.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/carehub/internal/model"
)

// Op names a gateway mutation.
type Op string

const (
	OpMarkOneRead Op = "mark_one_read"
	OpMarkAllRead Op = "mark_all_read"
)

// ErrNotFound is returned by MarkOneRead when the id does not exist or is
// not owned by the user.
var ErrNotFound = errors.New("notification not found")

// AuthError indicates the backend rejected the session's credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// FetchError wraps a failed Fetch.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching notifications for %s: %v", e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError wraps a failed MarkOneRead or MarkAllRead.
type MutationError struct {
	Op     Op
	UserID string
	ID     string
	Err    error
}

func (e *MutationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s for %s: %v", e.Op, e.ID, e.UserID, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", e.Op, e.UserID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsNotFound reports whether err (or any error in its chain) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Gateway is the fetch/mutate surface of a notification backend. Every call
// is scoped to a single user; implementations never touch another user's
// records.
type Gateway interface {
	// Name identifies the backend in logs and the status bar.
	Name() string

	// Fetch returns all of the user's notifications in a stable order.
	// Failures are returned as *FetchError.
	Fetch(ctx context.Context, userID string) ([]model.Notification, error)

	// MarkOneRead sets read on one notification. It is idempotent and
	// fails with ErrNotFound (inside a *MutationError) when the id is
	// missing or belongs to someone else.
	MarkOneRead(ctx context.Context, userID, id string) error

	// MarkAllRead sets read on every notification of the user. It
	// succeeds without change when nothing is unread.
	MarkAllRead(ctx context.Context, userID string) error
}
