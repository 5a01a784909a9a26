package store

import (
	"context"
	"errors"

	"github.com/nhle/carehub/internal/model"
)

// ErrNotFound is returned when a notification does not exist for the
// given recipient. A notification owned by someone else is reported the
// same way so callers cannot probe for foreign ids.
var ErrNotFound = errors.New("notification not found")

// NotificationFilter controls which notifications a query returns.
// RecipientID is mandatory: queries are always scoped to one user.
type NotificationFilter struct {
	RecipientID string
	UnreadOnly  bool
	Kind        *model.Kind
	Limit       int
}

// Store defines the persistence interface for notifications.
type Store interface {
	// CreateNotification inserts a record and returns it with its
	// generated ID (when none was supplied) and normalized timestamp.
	CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error)

	// GetNotifications lists a recipient's notifications, newest first
	// with ties broken by ID so the order is stable across calls.
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error)

	// GetNotificationByID loads one notification owned by recipientID.
	GetNotificationByID(ctx context.Context, recipientID, id string) (*model.Notification, error)

	// MarkNotificationRead sets read on one notification. Marking an
	// already-read notification succeeds without change.
	MarkNotificationRead(ctx context.Context, recipientID, id string) error

	// MarkAllNotificationsRead sets read on every unread notification
	// of the recipient and reports how many changed.
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)

	// CountUnread returns the number of unread notifications.
	CountUnread(ctx context.Context, recipientID string) (int, error)
}
