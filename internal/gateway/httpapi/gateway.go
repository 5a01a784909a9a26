// Package httpapi talks to the carehub REST backend.
package httpapi

import (
	"context"
	"net/url"

	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/model"
)

const notificationsPath = "/api/v1/notifications"

// Gateway implements gateway.Gateway against the REST backend. The bearer
// token decides whose notifications the backend serves; every returned
// record is still checked against the expected user.
type Gateway struct {
	client *Client
}

// New returns a Gateway using client.
func New(client *Client) *Gateway {
	return &Gateway{client: client}
}

// Name returns "http".
func (g *Gateway) Name() string { return "http" }

// Fetch lists the user's notifications in backend order.
func (g *Gateway) Fetch(ctx context.Context, userID string) ([]model.Notification, error) {
	var items []model.Notification
	if err := g.client.Get(ctx, notificationsPath, &items); err != nil {
		return nil, wrapFetch(userID, err)
	}

	for _, n := range items {
		if err := n.ValidateFor(userID); err != nil {
			return nil, &gateway.FetchError{UserID: userID, Err: err}
		}
	}
	if items == nil {
		items = []model.Notification{}
	}
	return items, nil
}

// MarkOneRead issues PUT /api/v1/notifications/:id/read.
func (g *Gateway) MarkOneRead(ctx context.Context, userID, id string) error {
	path := notificationsPath + "/" + url.PathEscape(id) + "/read"
	if err := g.client.Put(ctx, path, nil, nil); err != nil {
		return wrapMutation(gateway.OpMarkOneRead, userID, id, err)
	}
	return nil
}

// MarkAllRead issues PUT /api/v1/notifications/read-all.
func (g *Gateway) MarkAllRead(ctx context.Context, userID string) error {
	if err := g.client.Put(ctx, notificationsPath+"/read-all", nil, nil); err != nil {
		return wrapMutation(gateway.OpMarkAllRead, userID, "", err)
	}
	return nil
}

// Auth failures pass through unwrapped so the controller can tell an
// expired session from a broken backend.
func wrapFetch(userID string, err error) error {
	if gateway.IsAuthError(err) {
		return err
	}
	return &gateway.FetchError{UserID: userID, Err: err}
}

func wrapMutation(op gateway.Op, userID, id string, err error) error {
	if gateway.IsAuthError(err) {
		return err
	}
	return &gateway.MutationError{Op: op, UserID: userID, ID: id, Err: err}
}
