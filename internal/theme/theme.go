package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/carehub/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the detail view content area.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BannerStyle is the blocking fetch-failure banner.
var BannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorRed).
	Padding(0, 1)

// NoticeStyle is the dismissible mutation-failure notice.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Bold(true)

// UnreadStyle renders an unread notification's message.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// ReadStyle renders a read notification's message.
var ReadStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// KindStyle returns a color-coded style for the given notification kind.
func KindStyle(kind model.Kind) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch kind.Priority() {
	case model.PriorityCritical:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorBlue)
	}
}

// KindIcon returns the glyph shown next to a notification of kind.
func KindIcon(kind model.Kind) string {
	switch kind {
	case model.KindAlert:
		return "!"
	case model.KindReminder:
		return "◷"
	default:
		return "i"
	}
}
