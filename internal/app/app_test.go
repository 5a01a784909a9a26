package app

import (
	"context"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/carehub/internal/authtoken"
	"github.com/nhle/carehub/internal/credential"
	"github.com/nhle/carehub/internal/gateway/local"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/notify"
	"github.com/nhle/carehub/internal/session"
	"github.com/nhle/carehub/internal/store"
	"github.com/nhle/carehub/internal/ui/inbox"
	"github.com/nhle/carehub/internal/ui/signin"
	"github.com/nhle/carehub/tests/testutil"
)

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// run feeds every message produced by cmd back into m until nothing is
// left. Commands that do not finish promptly (ticks) are dropped.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) Model {
	t.Helper()

	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		msg, ok := exec(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			var next tea.Cmd
			m, next = m.Update(msg)
			queue = append(queue, next)
		}
	}
	return m.(Model)
}

func exec(c tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(500 * time.Millisecond):
		return nil, false
	}
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return run(t, next, cmd)
}

func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

// openSignIn presses L without running the form's own commands.
func openSignIn(t *testing.T, m Model) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})
	require.NotNil(t, cmd)
	return next.(Model)
}

func seededStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s,
		testutil.Notification("n1", "u1", model.KindAlert, base, time.Minute),
		testutil.Notification("n2", "u1", model.KindReminder, base, time.Hour),
		testutil.Notification("n3", "u2", model.KindUpdate, base, 0),
	)
	return s
}

func start(t *testing.T, s store.Store, p session.Provider) Model {
	t.Helper()
	m := New(Options{
		Gateway: local.New(s),
		Session: p,
		Display: model.DisplayConfig{SortNewestFirst: true},
		Logger:  zerolog.Nop(),
	})
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return run(t, m, m.Init())
}

func TestInit_LoadsSignedInUser(t *testing.T) {
	m := start(t, seededStore(t), session.StaticProvider{UserID: "u1"})

	ctrl := m.Controller()
	require.Equal(t, notify.PhaseLoaded, ctrl.Phase())
	assert.Equal(t, "u1", ctrl.UserID())
	assert.Len(t, ctrl.Items(), 2)
	assert.Equal(t, 2, ctrl.UnreadCount())
	assert.Contains(t, m.View(), "[2 unread]")
}

func TestInit_Anonymous(t *testing.T) {
	m := start(t, seededStore(t), session.StaticProvider{})

	assert.Equal(t, notify.PhaseUnauthenticated, m.Controller().Phase())
	assert.Contains(t, m.View(), "not signed in")
	assert.Contains(t, m.View(), "session.user_id")

	// Commands in the wrong state do nothing.
	m = press(t, m, "M")
	m = press(t, m, "r")
	assert.Equal(t, notify.PhaseUnauthenticated, m.Controller().Phase())
}

func TestOpen_ShowsDetailAndMarksRead(t *testing.T) {
	s := seededStore(t)
	m := start(t, s, session.StaticProvider{UserID: "u1"})

	n, ok := m.Controller().Item("n2")
	require.True(t, ok)

	m = send(t, m, inbox.OpenMsg{Notification: n})
	assert.Equal(t, ViewDetail, m.CurrentView())

	stored, err := s.GetNotificationByID(context.Background(), "u1", "n2")
	require.NoError(t, err)
	assert.True(t, stored.Read)

	got, _ := m.Controller().Item("n2")
	assert.True(t, got.Read)
	assert.Equal(t, 1, m.Controller().UnreadCount())

	cur, ok := m.detail.Current()
	require.True(t, ok)
	assert.True(t, cur.Read)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestMarkAllKey(t *testing.T) {
	s := seededStore(t)
	m := start(t, s, session.StaticProvider{UserID: "u1"})

	m = press(t, m, "M")

	assert.Equal(t, 0, m.Controller().UnreadCount())
	count, err := s.CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Other users are untouched.
	count, err = s.CountUnread(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkAllDisabledWhenNothingUnread(t *testing.T) {
	m := start(t, seededStore(t), session.StaticProvider{UserID: "u1"})

	assert.True(t, m.keys.MarkAllRead.Enabled())
	assert.Contains(t, m.helpView.ShortView(), "mark all read")

	m = press(t, m, "M")
	require.Zero(t, m.Controller().UnreadCount())

	assert.False(t, m.keys.MarkAllRead.Enabled())
	assert.NotContains(t, m.helpView.ShortView(), "mark all read")

	// Pressing it again issues nothing.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("M")})
	if cmd != nil {
		assert.NotEqual(t, notify.MarkAllAsReadMsg{}, cmd())
	}
}

func TestMarkAllDisabledWhenSignedOut(t *testing.T) {
	m := start(t, seededStore(t), session.StaticProvider{})

	assert.False(t, m.keys.MarkAllRead.Enabled())
}

func TestRefreshKey_PicksUpNewRecords(t *testing.T) {
	s := seededStore(t)
	m := start(t, s, session.StaticProvider{UserID: "u1"})
	gen := m.Controller().LoadedGeneration()

	testutil.Seed(t, s, testutil.Notification("n4", "u1", model.KindAlert, base, 0))
	m = press(t, m, "r")

	assert.Len(t, m.Controller().Items(), 3)
	assert.Greater(t, m.Controller().LoadedGeneration(), gen)
}

func TestPollTick_Reloads(t *testing.T) {
	s := seededStore(t)
	m := start(t, s, session.StaticProvider{UserID: "u1"})

	testutil.Seed(t, s, testutil.Notification("n4", "u1", model.KindAlert, base, 0))
	m = send(t, m, pollTickMsg{})

	assert.Len(t, m.Controller().Items(), 3)
}

func TestHelpToggle(t *testing.T) {
	m := start(t, seededStore(t), session.StaticProvider{UserID: "u1"})

	m = press(t, m, "?")
	assert.Equal(t, ViewHelp, m.CurrentView())
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	m = press(t, m, "?")
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func tokenSession(t *testing.T) (*session.TokenProvider, *credential.Vault) {
	t.Helper()
	vault := credential.NewVault(keyring.NewArrayKeyring(nil))
	return session.NewTokenProvider(vault, "session-token"), vault
}

func TestSignInAndOut(t *testing.T) {
	p, vault := tokenSession(t)
	m := start(t, seededStore(t), p)
	require.Equal(t, notify.PhaseUnauthenticated, m.Controller().Phase())
	assert.Contains(t, m.View(), "Press L to sign in")

	m = openSignIn(t, m)
	assert.Equal(t, ViewSignIn, m.CurrentView())

	tok, err := authtoken.Issue("secret", "u1", "Ana", time.Now(), time.Hour)
	require.NoError(t, err)
	m = send(t, m, signin.SubmittedMsg{Token: tok})

	assert.Equal(t, ViewInbox, m.CurrentView())
	require.Equal(t, notify.PhaseLoaded, m.Controller().Phase())
	assert.Equal(t, "u1", m.Controller().UserID())
	assert.Contains(t, m.View(), "Ana (u1)")

	m = press(t, m, "O")
	assert.Equal(t, notify.PhaseUnauthenticated, m.Controller().Phase())
	assert.Empty(t, m.Controller().Items())
	_, err = vault.Get("session-token")
	assert.ErrorIs(t, err, credential.ErrMissing)
}

func TestSignIn_Rejected(t *testing.T) {
	p, _ := tokenSession(t)
	m := start(t, seededStore(t), p)

	m = send(t, m, signin.SubmittedMsg{Token: "not-a-token"})

	assert.Equal(t, notify.PhaseUnauthenticated, m.Controller().Phase())
	assert.Contains(t, m.View(), "Sign-in failed")

	m = send(t, m, noticeExpiredMsg{seq: m.noticeSeq})
	assert.NotContains(t, m.View(), "Sign-in failed")
}

func TestSignIn_Cancelled(t *testing.T) {
	p, _ := tokenSession(t)
	m := start(t, seededStore(t), p)

	m = openSignIn(t, m)
	require.Equal(t, ViewSignIn, m.CurrentView())

	m = send(t, m, signin.CancelledMsg{})
	assert.Equal(t, ViewInbox, m.CurrentView())
}

func TestDetailClosesOnSignOut(t *testing.T) {
	m := start(t, seededStore(t), session.StaticProvider{UserID: "u1"})

	n, _ := m.Controller().Item("n1")
	m = send(t, m, inbox.OpenMsg{Notification: n})
	require.Equal(t, ViewDetail, m.CurrentView())

	m = send(t, m, sessionResolvedMsg{snap: session.Anonymous()})
	assert.Equal(t, ViewInbox, m.CurrentView())
	assert.Equal(t, notify.PhaseUnauthenticated, m.Controller().Phase())
}
