package inbox

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/carehub/internal/keys"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/notify"
)

var now = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sample() []model.Notification {
	return []model.Notification{
		{ID: "old", RecipientID: "u1", Kind: model.KindUpdate, Message: "Rota changed", CreatedAt: now.Add(-time.Hour), Read: true},
		{ID: "new", RecipientID: "u1", Kind: model.KindAlert, Message: "Fall detected\nRoom 4", CreatedAt: now},
	}
}

func TestSetItems_SortsNewestFirst(t *testing.T) {
	m := New(keys.DefaultKeyMap(), true, 80, 10)
	m.SetItems(sample(), nil)

	n, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "new", n.ID)
	assert.Equal(t, 2, m.Len())
}

func TestSetItems_KeepsCursor(t *testing.T) {
	m := New(keys.DefaultKeyMap(), false, 80, 10)
	m.SetItems(sample(), nil)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	n, _ := m.Selected()
	require.Equal(t, "new", n.ID)

	items := sample()
	items[1].Read = true
	m.SetItems(items, nil)

	n, _ = m.Selected()
	assert.Equal(t, "new", n.ID)
	assert.True(t, n.Read)
}

func TestUpdate_Commands(t *testing.T) {
	m := New(keys.DefaultKeyMap(), true, 80, 10)
	m.SetItems(sample(), nil)

	_, cmd := m.Update(runes("m"))
	require.NotNil(t, cmd)
	assert.Equal(t, notify.MarkAsReadMsg{ID: "new"}, cmd())

	_, cmd = m.Update(runes("M"))
	require.NotNil(t, cmd)
	assert.Equal(t, notify.MarkAllAsReadMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	open, ok := cmd().(OpenMsg)
	require.True(t, ok)
	assert.Equal(t, "new", open.Notification.ID)
}

func TestUpdate_MarkReadOnReadItemIsNoop(t *testing.T) {
	m := New(keys.DefaultKeyMap(), true, 80, 10)
	m.SetItems(sample(), nil)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := m.Update(runes("m"))
	assert.Nil(t, cmd)
}

func TestUpdate_ToggleSort(t *testing.T) {
	m := New(keys.DefaultKeyMap(), true, 80, 10)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.NewestFirst())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel…", truncate("hello", 4))
	assert.Equal(t, "…", truncate("hello", 1))
	assert.Empty(t, truncate("hello", 0))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Fall detected", firstLine("Fall detected\nRoom 4"))
	assert.Equal(t, "single", firstLine("single"))
}

func TestItemDelegate_UsesInjectedClock(t *testing.T) {
	// Rows are only rendered by the delegate, so it owns the clock.
	_, isDefault := interface{}(Item{}).(list.DefaultItem)
	assert.False(t, isDefault)

	it := Item{Notification: sample()[0]}
	l := list.New([]list.Item{it}, ItemDelegate{}, 80, 5)

	var buf bytes.Buffer
	ItemDelegate{Now: func() time.Time { return now }}.Render(&buf, l, 0, it)
	assert.Contains(t, buf.String(), "1h ago")
	assert.Contains(t, buf.String(), "Rota changed")

	buf.Reset()
	ItemDelegate{Now: func() time.Time { return now.Add(2 * time.Hour) }}.Render(&buf, l, 0, it)
	assert.Contains(t, buf.String(), "3h ago")
}
