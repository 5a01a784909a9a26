package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/carehub/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the height left for the main area.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the title on the left and the session/unread
// summary on the right.
func (l Layout) RenderHeader(title, summary string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(summary)
	return joinWithFiller(theme.HeaderStyle, l.Width, left, right)
}

// RenderStatusBar renders keyboard hints, replaced by notice when one is
// showing.
func (l Layout) RenderStatusBar(hints, notice string) string {
	var left string
	if notice != "" {
		left = theme.StatusBarStyle.Render(theme.NoticeStyle.Render("⚠ " + notice))
	} else {
		left = theme.StatusBarStyle.Render(hints)
	}
	return joinWithFiller(theme.StatusBarStyle, l.Width, left, "")
}

// RenderCentered renders msg in the middle of the content area.
func (l Layout) RenderCentered(msg string, style lipgloss.Style) string {
	return style.
		Width(l.Width).
		Height(l.ContentHeight()).
		Align(lipgloss.Center, lipgloss.Center).
		Render(msg)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func joinWithFiller(bar lipgloss.Style, width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(bar.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}
