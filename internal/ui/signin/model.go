// Package signin is the form used to paste a session token.
package signin

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/carehub/internal/authtoken"
	"github.com/nhle/carehub/internal/theme"
)

// SubmittedMsg carries the token the user entered.
type SubmittedMsg struct {
	Token string
}

// CancelledMsg is sent when the user aborts the form.
type CancelledMsg struct{}

// Model wraps a huh form asking for a session token.
type Model struct {
	form   *huh.Form
	token  *string
	reason string
	width  int
}

// New builds the form. reason is shown above it, e.g. why the previous
// session ended.
func New(reason string, width int) Model {
	token := new(string)
	m := Model{token: token, reason: reason, width: width}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session token").
				Description("Paste the token from `carehub token --user <id>`").
				EchoMode(huh.EchoModePassword).
				Value(token).
				Validate(validateToken),
		),
	).WithWidth(formWidth(width)).WithShowHelp(true)
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update forwards msg to the form and reports completion or abort.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		tok := strings.TrimSpace(*m.token)
		return m, func() tea.Msg { return SubmittedMsg{Token: tok} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	parts := []string{theme.HeaderStyle.Render("Sign in")}
	if m.reason != "" {
		parts = append(parts, "", theme.NoticeStyle.Render(m.reason))
	}
	parts = append(parts, "", m.form.View())
	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func validateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("token is required")
	}
	if _, err := authtoken.Inspect(s, time.Now()); err != nil {
		if errors.Is(err, authtoken.ErrExpired) {
			return errors.New("token has expired")
		}
		return errors.New("not a valid session token")
	}
	return nil
}

func formWidth(width int) int {
	w := width - 8
	if w > 70 {
		w = 70
	}
	if w < 20 {
		w = 20
	}
	return w
}
