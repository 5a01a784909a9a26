// Package inbox renders the notification list and turns key presses into
// controller commands.
package inbox

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/carehub/internal/keys"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/notify"
	"github.com/nhle/carehub/internal/theme"
)

// OpenMsg asks the parent to show the detail view for a notification.
type OpenMsg struct {
	Notification model.Notification
}

// Model is the notification list view.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	newestFirst bool
	width       int
	height      int
}

// New creates an empty inbox.
func New(k *keys.KeyMap, newestFirst bool, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:        l,
		keys:        k,
		newestFirst: newestFirst,
		width:       width,
		height:      height,
	}
}

// SetItems replaces the rows with items, keeping the cursor on the same
// notification when it is still present.
func (m *Model) SetItems(items []model.Notification, pending func(id string) bool) tea.Cmd {
	if m.newestFirst {
		items = notify.SortNewestFirst(items)
	}

	selectedID := ""
	if sel, ok := m.list.SelectedItem().(Item); ok {
		selectedID = sel.Notification.ID
	}

	rows := make([]list.Item, len(items))
	cursor := -1
	for i, n := range items {
		rows[i] = Item{Notification: n, Pending: pending != nil && pending(n.ID)}
		if n.ID == selectedID {
			cursor = i
		}
	}

	cmd := m.list.SetItems(rows)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
	return cmd
}

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Len returns the number of rows.
func (m Model) Len() int { return len(m.list.Items()) }

// NewestFirst reports the current sort mode.
func (m Model) NewestFirst() bool { return m.newestFirst }

// Update handles list keys. Mark commands are emitted as controller
// messages; the list itself never changes read state.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			n, ok := m.Selected()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return OpenMsg{Notification: n} }

		case key.Matches(msg, m.keys.MarkRead):
			n, ok := m.Selected()
			if !ok || n.Read {
				return m, nil
			}
			return m, func() tea.Msg { return notify.MarkAsReadMsg{ID: n.ID} }

		case key.Matches(msg, m.keys.MarkAllRead):
			return m, func() tea.Msg { return notify.MarkAllAsReadMsg{} }

		case key.Matches(msg, m.keys.ToggleSort):
			m.newestFirst = !m.newestFirst
			return m, nil
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list.
func (m Model) View() string {
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
