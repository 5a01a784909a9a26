package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/keys"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/notify"
	"github.com/nhle/carehub/internal/session"
	"github.com/nhle/carehub/internal/theme"
	"github.com/nhle/carehub/internal/ui"
	"github.com/nhle/carehub/internal/ui/detail"
	helpview "github.com/nhle/carehub/internal/ui/help"
	"github.com/nhle/carehub/internal/ui/inbox"
	"github.com/nhle/carehub/internal/ui/signin"
)

// noticeTimeout is how long a failure notice stays in the status bar.
const noticeTimeout = 5 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewDetail
	ViewHelp
	ViewSignIn
)

// sessionResolvedMsg carries the outcome of resolving or changing the session.
type sessionResolvedMsg struct {
	snap session.Snapshot
	err  error
}

// signInFailedMsg reports a rejected token.
type signInFailedMsg struct {
	err error
}

// signedOutMsg reports the outcome of forgetting the stored token.
type signedOutMsg struct {
	err error
}

// pollTickMsg triggers a periodic reload.
type pollTickMsg struct{}

// noticeExpiredMsg clears the app-level notice with the given sequence.
type noticeExpiredMsg struct {
	seq int
}

// Options wires the root model to its collaborators.
type Options struct {
	Gateway gateway.Gateway
	Session session.Provider
	Display model.DisplayConfig
	Logger  zerolog.Logger
	Context context.Context
}

// Model is the root Bubble Tea model. It routes messages between the
// session, the notification controller and the views.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ready        bool
	keys         *keys.KeyMap
	log          zerolog.Logger
	ctx          context.Context

	ctrl     notify.Controller
	provider session.Provider
	auth     session.Authenticator
	snap     session.Snapshot

	inbox    inbox.Model
	detail   detail.Model
	helpView helpview.Model
	signin   signin.Model

	pollInterval time.Duration

	// App-level notice for session failures; the controller owns its own.
	notice    string
	noticeSeq int
}

// New creates the root model. The session starts out resolving.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ctrlOpts := []notify.Option{notify.WithLogger(opts.Logger), notify.WithContext(ctx)}
	if opts.Display.OptimisticReads {
		ctrlOpts = append(ctrlOpts, notify.WithOptimisticReads())
	}

	auth, _ := opts.Session.(session.Authenticator)

	return Model{
		currentView:  ViewInbox,
		keys:         k,
		log:          opts.Logger,
		ctx:          ctx,
		ctrl:         notify.New(opts.Gateway, ctrlOpts...),
		provider:     opts.Session,
		auth:         auth,
		snap:         session.Resolving(),
		inbox:        inbox.New(k, opts.Display.SortNewestFirst, 80, 22),
		detail:       detail.New(k, 80, 22),
		helpView:     helpview.New(k, 80, 22),
		pollInterval: time.Duration(opts.Display.PollIntervalSec) * time.Second,
	}
}

// Controller exposes the notification controller for inspection.
func (m Model) Controller() notify.Controller { return m.ctrl }

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// Init announces the resolving session, starts resolving it and starts
// the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return notify.SessionChangedMsg{Session: session.Resolving()} },
		m.resolveSession(),
		m.schedulePoll(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.Width
		contentHeight := m.layout.ContentHeight()
		m.inbox.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		// Forward to the form so huh can calculate its layout.
		if m.currentView == ViewSignIn {
			return m.updateActiveView(msg)
		}
		return m, nil

	case sessionResolvedMsg:
		var noticeCmd tea.Cmd
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("resolving session")
			m, noticeCmd = m.setNotice("Could not read session: " + msg.err.Error())
		}
		m.snap = msg.snap
		m.log.Info().Str("session", msg.snap.String()).Msg("session changed")
		next, cmd := m.updateController(notify.SessionChangedMsg{Session: msg.snap})
		return next, tea.Batch(noticeCmd, cmd)

	case signInFailedMsg:
		m.log.Warn().Err(msg.err).Msg("sign-in rejected")
		return m.setNotice("Sign-in failed: " + msg.err.Error())

	case signedOutMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("signing out")
			return m.setNotice("Sign-out failed: " + msg.err.Error())
		}
		m.snap = session.Anonymous()
		return m.updateController(notify.SessionChangedMsg{Session: m.snap})

	case pollTickMsg:
		next, cmd := m.updateController(notify.ReloadMsg{})
		return next, tea.Batch(cmd, next.schedulePoll())

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case notify.SessionChangedMsg, notify.FetchResultMsg, notify.MutationResultMsg,
		notify.MarkAsReadMsg, notify.MarkAllAsReadMsg, notify.ReloadMsg, notify.DismissNoticeMsg:
		return m.updateController(msg)

	case inbox.OpenMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.Show(msg.Notification)
		if msg.Notification.Read {
			return m, nil
		}
		return m.updateController(notify.MarkAsReadMsg{ID: msg.Notification.ID})

	case detail.BackMsg:
		m.currentView = ViewInbox
		return m, nil

	case signin.SubmittedMsg:
		m.currentView = m.previousView
		return m, m.signIn(msg.Token)

	case signin.CancelledMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// The form owns every other key while it is open.
		if m.currentView == ViewSignIn {
			return m.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
			} else {
				m.previousView = m.currentView
				m.currentView = ViewHelp
			}
			return m, nil

		case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
			m.currentView = m.previousView
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			return m.updateController(notify.ReloadMsg{})

		case key.Matches(msg, m.keys.SignIn):
			if m.auth == nil || m.ctrl.Phase() == notify.PhaseResolving {
				return m, nil
			}
			reason := ""
			if m.ctrl.Expired() {
				reason = "Your session expired. Paste a new token to continue."
			}
			m.signin = signin.New(reason, m.layout.Width)
			m.previousView = ViewInbox
			m.currentView = ViewSignIn
			return m, m.signin.Init()

		case key.Matches(msg, m.keys.SignOut):
			if m.auth == nil || !m.snap.Authenticated() {
				return m, nil
			}
			return m, m.signOut()
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards msg to the view that currently has focus.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		if m.ctrl.Phase() != notify.PhaseLoaded {
			return m, nil
		}
		sorted := m.inbox.NewestFirst()
		m.inbox, cmd = m.inbox.Update(msg)
		if m.inbox.NewestFirst() != sorted {
			return m, tea.Batch(cmd, m.syncViews())
		}
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewSignIn:
		m.signin, cmd = m.signin.Update(msg)
	}

	return m, cmd
}

// updateController steps the controller and brings the views in line with
// its new state.
func (m Model) updateController(msg tea.Msg) (Model, tea.Cmd) {
	prevSeq := m.ctrl.NoticeSeq()
	wasExpired := m.ctrl.Expired()

	var cmd tea.Cmd
	m.ctrl, cmd = m.ctrl.Update(msg)
	cmds := []tea.Cmd{cmd}

	if seq := m.ctrl.NoticeSeq(); seq != prevSeq && m.ctrl.Notice() != "" {
		cmds = append(cmds, tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
			return notify.DismissNoticeMsg{Seq: seq}
		}))
	}

	if m.ctrl.Expired() && !wasExpired {
		m.snap = session.Anonymous()
	}

	cmds = append(cmds, m.syncViews())
	return m, tea.Batch(cmds...)
}

// syncViews pushes the controller's list into the inbox, disables mark-all
// when it would do nothing, and refreshes or closes the detail view.
func (m *Model) syncViews() tea.Cmd {
	cmd := m.inbox.SetItems(m.ctrl.Items(), m.ctrl.Pending)
	m.keys.MarkAllRead.SetEnabled(m.ctrl.CanMarkAll())

	if m.currentView != ViewDetail && m.previousView != ViewDetail {
		return cmd
	}
	cur, ok := m.detail.Current()
	if !ok {
		return cmd
	}

	if m.ctrl.Phase() != notify.PhaseLoaded {
		if m.currentView == ViewDetail {
			m.currentView = ViewInbox
		}
		return cmd
	}
	if n, ok := m.ctrl.Item(cur.ID); ok {
		m.detail.Show(n)
	} else if m.currentView == ViewDetail {
		m.currentView = ViewInbox
	}
	return cmd
}

func (m Model) setNotice(text string) (Model, tea.Cmd) {
	m.notice = text
	m.noticeSeq++
	seq := m.noticeSeq
	return m, tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m Model) resolveSession() tea.Cmd {
	p, ctx := m.provider, m.ctx
	return func() tea.Msg {
		snap, err := p.Resolve(ctx)
		return sessionResolvedMsg{snap: snap, err: err}
	}
}

func (m Model) signIn(token string) tea.Cmd {
	a, ctx := m.auth, m.ctx
	return func() tea.Msg {
		snap, err := a.SignIn(ctx, token)
		if err != nil {
			return signInFailedMsg{err: err}
		}
		return sessionResolvedMsg{snap: snap}
	}
}

func (m Model) signOut() tea.Cmd {
	a, ctx := m.auth, m.ctx
	return func() tea.Msg {
		return signedOutMsg{err: a.SignOut(ctx)}
	}
}

// schedulePoll returns the next poll tick, or nil when polling is off.
func (m Model) schedulePoll() tea.Cmd {
	if m.pollInterval <= 0 {
		return nil
	}
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.headerSummary())
	content := m.renderContent()

	notice := m.ctrl.Notice()
	if notice == "" {
		notice = m.notice
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), notice)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerTitle() string {
	title := "CareHub Notifications"
	if m.ctrl.Phase() == notify.PhaseLoaded {
		if n := m.ctrl.UnreadCount(); n > 0 {
			title = fmt.Sprintf("%s [%d unread]", title, n)
		}
	}
	return title
}

func (m Model) headerSummary() string {
	summary := m.snap.String()
	if m.ctrl.Refreshing() {
		summary = "refreshing… | " + summary
	}
	return summary
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewSignIn:
		return lipgloss.NewStyle().
			Width(m.layout.Width).
			Height(m.layout.ContentHeight()).
			Render(m.signin.View())
	case ViewDetail:
		return m.detail.View()
	}

	muted := lipgloss.NewStyle().Foreground(theme.ColorGray)

	switch m.ctrl.Phase() {
	case notify.PhaseResolving:
		return m.layout.RenderCentered("Checking session…", muted)

	case notify.PhaseUnauthenticated:
		msg := "You are not signed in."
		if m.ctrl.Expired() {
			msg = "Your session has expired."
		}
		if m.auth != nil {
			msg += "\n\nPress L to sign in."
		} else {
			msg += "\n\nSet session.user_id in the config file."
		}
		return m.layout.RenderCentered(msg, muted)

	case notify.PhaseLoading:
		return m.layout.RenderCentered("Loading notifications…", muted)

	case notify.PhaseError:
		banner := theme.BannerStyle.Render("Could not load notifications: " + m.ctrl.Err())
		body := lipgloss.JoinVertical(lipgloss.Center, banner, "", muted.Render("Press r to retry."))
		return m.layout.RenderCentered(body, lipgloss.NewStyle())
	}

	if m.inbox.Len() == 0 {
		return m.layout.RenderCentered("No notifications.", muted)
	}
	return m.inbox.View()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewSignIn:
		return "enter submit | esc cancel"
	case ViewDetail:
		return "esc back | m mark read | j/k scroll | q quit"
	}

	switch m.ctrl.Phase() {
	case notify.PhaseUnauthenticated:
		if m.auth != nil {
			return "L sign in | q quit"
		}
		return "q quit"
	case notify.PhaseError:
		return "r retry | q quit"
	case notify.PhaseLoaded:
		return m.helpView.ShortView()
	}
	return "q quit"
}
