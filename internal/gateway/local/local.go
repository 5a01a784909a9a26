// Package local serves notifications straight from the SQLite store.
package local

import (
	"context"

	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/store"
)

// Gateway implements gateway.Gateway over a store.Store.
type Gateway struct {
	store store.Store
}

// New returns a Gateway reading from and writing to s.
func New(s store.Store) *Gateway {
	return &Gateway{store: s}
}

// Name returns "local".
func (g *Gateway) Name() string { return "local" }

// Fetch lists the user's notifications, newest first.
func (g *Gateway) Fetch(ctx context.Context, userID string) ([]model.Notification, error) {
	items, err := g.store.GetNotifications(ctx, store.NotificationFilter{RecipientID: userID})
	if err != nil {
		return nil, &gateway.FetchError{UserID: userID, Err: err}
	}
	return items, nil
}

// MarkOneRead marks id read for userID.
func (g *Gateway) MarkOneRead(ctx context.Context, userID, id string) error {
	err := g.store.MarkNotificationRead(ctx, userID, id)
	if store.IsNotFound(err) {
		err = gateway.ErrNotFound
	}
	if err != nil {
		return &gateway.MutationError{Op: gateway.OpMarkOneRead, UserID: userID, ID: id, Err: err}
	}
	return nil
}

// MarkAllRead marks every notification of userID read.
func (g *Gateway) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := g.store.MarkAllNotificationsRead(ctx, userID); err != nil {
		return &gateway.MutationError{Op: gateway.OpMarkAllRead, UserID: userID, Err: err}
	}
	return nil
}
