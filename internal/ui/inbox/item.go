package inbox

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/notify"
	"github.com/nhle/carehub/internal/theme"
)

// Item wraps a notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
	// Pending is set while a mark-read for this item is in flight.
	Pending bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Message }

// ItemDelegate implements list.ItemDelegate for notification rows.
type ItemDelegate struct {
	// Now is the clock used for relative times.
	Now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single notification line:
//
//	▸ ● ! Fall detected in bathroom                5m ago
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification

	cursor := "  "
	if index == m.Index() {
		cursor = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("▸ ")
	}

	marker := " "
	switch {
	case it.Pending:
		marker = lipgloss.NewStyle().Foreground(theme.ColorGray).Render("…")
	case !n.Read:
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("●")
	}

	icon := theme.KindStyle(n.Kind).Render(theme.KindIcon(n.Kind))

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	age := notify.RelativeTime(now(), n.CreatedAt)

	textStyle := theme.UnreadStyle
	if n.Read {
		textStyle = theme.ReadStyle
	}

	prefix := fmt.Sprintf("%s%s %s ", cursor, marker, icon)
	avail := m.Width() - lipgloss.Width(prefix) - len(age) - 2
	text := truncate(firstLine(n.Message), avail)

	gap := m.Width() - lipgloss.Width(prefix) - lipgloss.Width(text) - len(age)
	if gap < 1 {
		gap = 1
	}

	fmt.Fprint(w, prefix+textStyle.Render(text)+strings.Repeat(" ", gap)+theme.HelpStyle.Render(age))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate shortens s to at most n runes, adding an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
