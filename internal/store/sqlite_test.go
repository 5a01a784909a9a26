package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/store"
	"github.com/nhle/carehub/tests/testutil"
)

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestCreateNotification_AssignsIDAndNormalizesTime(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	local := time.FixedZone("UTC+2", 2*60*60)
	n, err := s.CreateNotification(ctx, model.Notification{
		RecipientID: "u1",
		Kind:        model.KindAlert,
		Message:     "Missed dose",
		CreatedAt:   base.In(local),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, time.UTC, n.CreatedAt.Location())

	got, err := s.GetNotificationByID(ctx, "u1", n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Missed dose", got.Message)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.False(t, got.Read)
}

func TestCreateNotification_RejectsInvalid(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.CreateNotification(context.Background(), model.Notification{
		ID:          "n1",
		RecipientID: "u1",
		Kind:        "Escalation",
		CreatedAt:   base,
	})
	assert.Error(t, err)
}

func TestGetNotifications_ScopedAndOrdered(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	testutil.Seed(t, s,
		testutil.Notification("b", "u1", model.KindReminder, base, time.Hour),
		testutil.Notification("a", "u1", model.KindAlert, base, time.Hour),
		testutil.Notification("c", "u1", model.KindUpdate, base, 0),
		testutil.Notification("x", "u2", model.KindAlert, base, 0),
	)

	got, err := s.GetNotifications(ctx, store.NotificationFilter{RecipientID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	// Equal timestamps fall back to id order.
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "b", got[2].ID)
	for _, n := range got {
		assert.Equal(t, "u1", n.RecipientID)
	}
}

func TestGetNotifications_Filters(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	read := testutil.Notification("r", "u1", model.KindAlert, base, 3*time.Hour)
	read.Read = true
	testutil.Seed(t, s,
		read,
		testutil.Notification("a", "u1", model.KindAlert, base, 2*time.Hour),
		testutil.Notification("m", "u1", model.KindReminder, base, time.Hour),
	)

	unread, err := s.GetNotifications(ctx, store.NotificationFilter{RecipientID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	kind := model.KindAlert
	alerts, err := s.GetNotifications(ctx, store.NotificationFilter{RecipientID: "u1", Kind: &kind})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	limited, err := s.GetNotifications(ctx, store.NotificationFilter{RecipientID: "u1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "m", limited[0].ID)

	_, err = s.GetNotifications(ctx, store.NotificationFilter{})
	assert.Error(t, err)
}

func TestGetNotifications_EmptyIsNotNil(t *testing.T) {
	s := testutil.NewTestStore(t)

	got, err := s.GetNotifications(context.Background(), store.NotificationFilter{RecipientID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMarkNotificationRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.Seed(t, s,
		testutil.Notification("n1", "u1", model.KindAlert, base, 0),
		testutil.Notification("n2", "u2", model.KindAlert, base, 0),
	)

	require.NoError(t, s.MarkNotificationRead(ctx, "u1", "n1"))
	got, err := s.GetNotificationByID(ctx, "u1", "n1")
	require.NoError(t, err)
	assert.True(t, got.Read)

	// Marking again is idempotent.
	assert.NoError(t, s.MarkNotificationRead(ctx, "u1", "n1"))

	err = s.MarkNotificationRead(ctx, "u1", "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Another user's record is indistinguishable from a missing one.
	err = s.MarkNotificationRead(ctx, "u1", "n2")
	assert.True(t, store.IsNotFound(err))

	other, err := s.GetNotificationByID(ctx, "u2", "n2")
	require.NoError(t, err)
	assert.False(t, other.Read)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.Seed(t, s,
		testutil.Notification("n1", "u1", model.KindAlert, base, 0),
		testutil.Notification("n2", "u1", model.KindUpdate, base, time.Minute),
		testutil.Notification("n3", "u2", model.KindReminder, base, 0),
	)

	changed, err := s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	count, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = s.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	changed, err = s.MarkAllNotificationsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestGetNotificationByID_NotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetNotificationByID(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoadFixtures(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	data := `
notifications:
  - id: f1
    recipient: u1
    kind: alert
    message: Blood pressure reading overdue
    age: 2h
  - recipient: u1
    kind: Reminder
    message: Physio at 15:00
    created_at: 2025-03-14T08:00:00Z
    read: true
`
	n, err := store.LoadFixtures(ctx, s, strings.NewReader(data), base)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetNotifications(ctx, store.NotificationFilter{RecipientID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, model.KindAlert, got[0].Kind)
	assert.True(t, base.Add(-2*time.Hour).Equal(got[0].CreatedAt))
	assert.True(t, got[1].Read)
	assert.NotEmpty(t, got[1].ID)
}

func TestLoadFixtures_RejectsUnknownKind(t *testing.T) {
	s := testutil.NewTestStore(t)

	data := "notifications:\n  - id: f1\n    recipient: u1\n    kind: page\n    age: 1h\n"
	_, err := store.LoadFixtures(context.Background(), s, strings.NewReader(data), base)
	assert.Error(t, err)
}

func TestLoadFixtures_Empty(t *testing.T) {
	s := testutil.NewTestStore(t)

	n, err := store.LoadFixtures(context.Background(), s, strings.NewReader(""), base)
	require.NoError(t, err)
	assert.Zero(t, n)
}
