// Package detail shows one notification in full.
package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/carehub/internal/keys"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/notify"
	"github.com/nhle/carehub/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the notification detail view component.
type Model struct {
	n        *model.Notification
	viewport viewport.Model
	keys     *keys.KeyMap
	now      func() time.Time
	width    int
	height   int
}

// New creates a new detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Show replaces the displayed notification. Refreshing the same id keeps
// the scroll position.
func (m *Model) Show(n model.Notification) {
	same := m.n != nil && m.n.ID == n.ID
	m.n = &n
	m.viewport.SetContent(m.renderContent())
	if !same {
		m.viewport.GotoTop()
	}
}

// Current returns the displayed notification.
func (m Model) Current() (model.Notification, bool) {
	if m.n == nil {
		return model.Notification{}, false
	}
	return *m.n, true
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.MarkRead):
			if m.n != nil && !m.n.Read {
				id := m.n.ID
				return m, func() tea.Msg { return notify.MarkAsReadMsg{ID: id} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.n == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notification selected")
	}

	return m.viewport.View()
}

func (m Model) renderContent() string {
	n := m.n
	var sections []string

	kind := theme.KindStyle(n.Kind).Render(theme.KindIcon(n.Kind) + " " + strings.ToUpper(string(n.Kind)))
	state := theme.ReadStyle.Render("read")
	if !n.Read {
		state = theme.UnreadStyle.Render("unread")
	}
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, kind, "  ", state), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	sections = append(sections, fmt.Sprintf(
		"%s  %s (%s)",
		metaStyle.Render("Received:"),
		valStyle.Render(n.CreatedAt.Local().Format("2006-01-02 15:04")),
		notify.RelativeTime(m.now(), n.CreatedAt),
	))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	sections = append(sections, "", sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0))), "")

	body := lipgloss.NewStyle().Width(max(m.width-2, 10)).Render(n.Message)
	sections = append(sections, body)

	return strings.Join(sections, "\n")
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if m.n != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
