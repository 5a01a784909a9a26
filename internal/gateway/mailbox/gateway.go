// Package mailbox reads notifications from an IMAP folder. Each message is
// one notification; the \Seen flag is its read state.
package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/model"
)

// Entry is the subset of an IMAP message the gateway needs.
type Entry struct {
	UID     uint32
	Subject string
	Date    time.Time
	Seen    bool
	Body    []byte
}

// mailClient is the IMAP surface the gateway depends on.
type mailClient interface {
	FetchAll(ctx context.Context) ([]Entry, error)
	MarkSeen(ctx context.Context, uid uint32) error
	MarkAllSeen(ctx context.Context) error
}

// Gateway implements gateway.Gateway over one user's mailbox.
type Gateway struct {
	client mailClient
	owner  string
}

// New returns a Gateway serving owner's notifications from client.
func New(client *IMAPClient, owner string) *Gateway {
	return &Gateway{client: client, owner: owner}
}

// Name returns "imap".
func (g *Gateway) Name() string { return "imap" }

// Fetch converts every message in the folder into a notification, newest
// first with ties broken by UID.
func (g *Gateway) Fetch(ctx context.Context, userID string) ([]model.Notification, error) {
	if err := g.checkOwner(userID); err != nil {
		return nil, &gateway.FetchError{UserID: userID, Err: err}
	}

	entries, err := g.client.FetchAll(ctx)
	if err != nil {
		if gateway.IsAuthError(err) {
			return nil, err
		}
		return nil, &gateway.FetchError{UserID: userID, Err: err}
	}

	items := make([]model.Notification, 0, len(entries))
	for _, e := range entries {
		items = append(items, toNotification(userID, e))
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		a, _ := strconv.ParseUint(items[i].ID, 10, 32)
		b, _ := strconv.ParseUint(items[j].ID, 10, 32)
		return a > b
	})

	return items, nil
}

// MarkOneRead sets \Seen on the message whose UID is id.
func (g *Gateway) MarkOneRead(ctx context.Context, userID, id string) error {
	wrap := func(err error) error {
		if gateway.IsAuthError(err) {
			return err
		}
		return &gateway.MutationError{Op: gateway.OpMarkOneRead, UserID: userID, ID: id, Err: err}
	}

	if err := g.checkOwner(userID); err != nil {
		return wrap(gateway.ErrNotFound)
	}

	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return wrap(gateway.ErrNotFound)
	}

	if err := g.client.MarkSeen(ctx, uint32(uid)); err != nil {
		return wrap(err)
	}
	return nil
}

// MarkAllRead sets \Seen on every unseen message.
func (g *Gateway) MarkAllRead(ctx context.Context, userID string) error {
	if err := g.checkOwner(userID); err != nil {
		return &gateway.MutationError{Op: gateway.OpMarkAllRead, UserID: userID, Err: err}
	}

	if err := g.client.MarkAllSeen(ctx); err != nil {
		if gateway.IsAuthError(err) {
			return err
		}
		return &gateway.MutationError{Op: gateway.OpMarkAllRead, UserID: userID, Err: err}
	}
	return nil
}

func (g *Gateway) checkOwner(userID string) error {
	if userID != g.owner {
		return fmt.Errorf("mailbox belongs to %q, not %q", g.owner, userID)
	}
	return nil
}

func toNotification(userID string, e Entry) model.Notification {
	kind, title := parseSubject(e.Subject)

	msg := title
	if body := bodyText(e.Body); body != "" {
		if msg == "" {
			msg = body
		} else {
			msg = msg + "\n\n" + body
		}
	}

	return model.Notification{
		ID:          strconv.FormatUint(uint64(e.UID), 10),
		RecipientID: userID,
		Kind:        kind,
		Message:     msg,
		CreatedAt:   e.Date.UTC(),
		Read:        e.Seen,
	}
}

var subjectTag = regexp.MustCompile(`^\s*\[([A-Za-z]+)\]\s*`)

// parseSubject splits a "[Alert] Fall detected" subject into its kind and
// title. Untagged or unknown tags are treated as updates.
func parseSubject(subject string) (model.Kind, string) {
	m := subjectTag.FindStringSubmatch(subject)
	if m == nil {
		return model.KindUpdate, strings.TrimSpace(subject)
	}

	kind, err := model.ParseKind(m[1])
	if err != nil {
		return model.KindUpdate, strings.TrimSpace(subject)
	}
	return kind, strings.TrimSpace(subject[len(m[0]):])
}

// bodyText extracts the text/plain part of a raw RFC 2822 message.
func bodyText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if contentType != "" && !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(body))
	}
}
