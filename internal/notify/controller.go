// Package notify holds the notification center state machine. A Controller
// owns the active user's notification list, issues gateway calls as
// tea.Cmds, and applies their results only when they are still current.
package notify

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/model"
)

// Phase is the controller's state tag.
type Phase int

const (
	PhaseResolving Phase = iota
	PhaseUnauthenticated
	PhaseLoading
	PhaseLoaded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for discarded results and failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithOptimisticReads patches records locally as soon as a mark command
// is issued. A reload still follows every mutation.
func WithOptimisticReads() Option {
	return func(c *Controller) { c.optimistic = true }
}

// WithContext sets the context passed to gateway calls.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) { c.ctx = ctx }
}

// Controller is an immutable value: Update returns the next state. The
// items slice and pending set are never modified in place, so earlier
// values stay valid.
type Controller struct {
	gw         gateway.Gateway
	log        zerolog.Logger
	ctx        context.Context
	optimistic bool

	phase      Phase
	userID     string
	items      []model.Notification
	generation uint64
	loadedGen  uint64
	refreshing bool
	errMsg     string
	expired    bool

	notice    string
	noticeSeq int

	pending    map[string]bool
	pendingAll bool
}

// New returns a controller in PhaseResolving.
func New(gw gateway.Gateway, opts ...Option) Controller {
	c := Controller{
		gw:    gw,
		log:   zerolog.Nop(),
		ctx:   context.Background(),
		phase: PhaseResolving,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Phase returns the current state tag.
func (c Controller) Phase() Phase { return c.phase }

// UserID returns the user whose notifications are held, if any.
func (c Controller) UserID() string { return c.userID }

// Items returns a copy of the list. It is empty outside PhaseLoaded.
func (c Controller) Items() []model.Notification {
	if c.phase != PhaseLoaded {
		return nil
	}
	out := make([]model.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Item looks up a held notification by id.
func (c Controller) Item(id string) (model.Notification, bool) {
	for _, n := range c.items {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// UnreadCount is the number of unread items held.
func (c Controller) UnreadCount() int {
	if c.phase != PhaseLoaded {
		return 0
	}
	return UnreadCount(c.items)
}

// Generation is the latest fetch generation issued.
func (c Controller) Generation() uint64 { return c.generation }

// LoadedGeneration is the generation of the fetch that produced Items.
func (c Controller) LoadedGeneration() uint64 { return c.loadedGen }

// Err returns the blocking fetch failure message in PhaseError.
func (c Controller) Err() string { return c.errMsg }

// Notice returns the transient mutation failure message, if any.
func (c Controller) Notice() string { return c.notice }

// NoticeSeq increases every time a new notice is set.
func (c Controller) NoticeSeq() int { return c.noticeSeq }

// Expired reports whether the controller became unauthenticated because
// the backend rejected the session.
func (c Controller) Expired() bool { return c.expired }

// Refreshing reports whether a reload is in flight behind a loaded list.
func (c Controller) Refreshing() bool { return c.refreshing }

// Pending reports whether a mark command for id is in flight.
func (c Controller) Pending(id string) bool {
	return c.pending[id] || (c.pendingAll && c.phase == PhaseLoaded)
}

// CanMarkAll reports whether MarkAllAsReadMsg would do anything.
func (c Controller) CanMarkAll() bool {
	return c.phase == PhaseLoaded && !c.pendingAll && UnreadCount(c.items) > 0
}

// Update applies msg and returns the next controller and any command to run.
// Messages the controller does not handle are ignored.
func (c Controller) Update(msg tea.Msg) (Controller, tea.Cmd) {
	switch msg := msg.(type) {
	case SessionChangedMsg:
		return c.onSession(msg)
	case FetchResultMsg:
		return c.onFetchResult(msg), nil
	case MarkAsReadMsg:
		return c.onMarkAsRead(msg)
	case MarkAllAsReadMsg:
		return c.onMarkAllAsRead()
	case MutationResultMsg:
		return c.onMutationResult(msg)
	case ReloadMsg:
		return c.onReload()
	case DismissNoticeMsg:
		if msg.Seq == c.noticeSeq {
			c.notice = ""
		}
		return c, nil
	}
	return c, nil
}

func (c Controller) onSession(msg SessionChangedMsg) (Controller, tea.Cmd) {
	snap := msg.Session

	switch {
	case snap.Resolving:
		c = c.reset(PhaseResolving)
		return c, nil

	case snap.UserID == "":
		c = c.reset(PhaseUnauthenticated)
		return c, nil
	}

	// Repeated announcement of the active user.
	if snap.UserID == c.userID && c.phase >= PhaseLoading {
		return c, nil
	}

	c = c.reset(PhaseLoading)
	c.userID = snap.UserID
	return c.fetch()
}

// reset clears everything tied to the previous user and bumps the
// generation so their in-flight results are discarded.
func (c Controller) reset(phase Phase) Controller {
	c.phase = phase
	c.userID = ""
	c.items = nil
	c.loadedGen = 0
	c.refreshing = false
	c.errMsg = ""
	c.expired = false
	c.notice = ""
	c.pending = nil
	c.pendingAll = false
	c.generation++
	return c
}

// fetch issues a Fetch stamped with a new generation.
func (c Controller) fetch() (Controller, tea.Cmd) {
	c.generation++
	gen, userID, gw, ctx := c.generation, c.userID, c.gw, c.ctx

	return c, func() tea.Msg {
		items, err := gw.Fetch(ctx, userID)
		return FetchResultMsg{Generation: gen, UserID: userID, Items: items, Err: err}
	}
}

func (c Controller) onFetchResult(msg FetchResultMsg) Controller {
	if msg.Generation != c.generation || msg.UserID != c.userID {
		c.log.Debug().
			Uint64("generation", msg.Generation).
			Uint64("latest", c.generation).
			Str("user_id", msg.UserID).
			Msg("discarding stale fetch result")
		return c
	}
	if c.phase != PhaseLoading && c.phase != PhaseLoaded {
		return c
	}

	if msg.Err != nil {
		c.log.Warn().Err(msg.Err).
			Str("user_id", msg.UserID).
			Str("op", "fetch").
			Uint64("generation", msg.Generation).
			Msg("fetch failed")

		if gateway.IsAuthError(msg.Err) {
			return c.expire()
		}

		c.phase = PhaseError
		c.errMsg = msg.Err.Error()
		c.items = nil
		c.refreshing = false
		return c
	}

	items := make([]model.Notification, 0, len(msg.Items))
	for _, n := range msg.Items {
		if n.RecipientID != c.userID {
			c.log.Warn().
				Str("user_id", c.userID).
				Str("notification_id", n.ID).
				Msg("dropping notification addressed to another user")
			continue
		}
		// A fetch issued while a mark is in flight may predate it.
		if c.optimistic && (c.pendingAll || c.pending[n.ID]) {
			n = n.MarkedRead()
		}
		items = append(items, n)
	}

	c.phase = PhaseLoaded
	c.items = items
	c.loadedGen = msg.Generation
	c.refreshing = false
	c.errMsg = ""
	return c
}

// expire drops the session after the backend rejected it.
func (c Controller) expire() Controller {
	c = c.reset(PhaseUnauthenticated)
	c.expired = true
	return c
}

func (c Controller) onMarkAsRead(msg MarkAsReadMsg) (Controller, tea.Cmd) {
	if c.phase != PhaseLoaded || c.pendingAll || c.pending[msg.ID] {
		return c, nil
	}

	idx := -1
	for i, n := range c.items {
		if n.ID == msg.ID {
			idx = i
			break
		}
	}
	if idx < 0 || c.items[idx].Read {
		return c, nil
	}

	pending := make(map[string]bool, len(c.pending)+1)
	for id := range c.pending {
		pending[id] = true
	}
	pending[msg.ID] = true
	c.pending = pending

	if c.optimistic {
		items := make([]model.Notification, len(c.items))
		copy(items, c.items)
		items[idx] = items[idx].MarkedRead()
		c.items = items
		c.discardInFlight()
	}

	gw, ctx, userID, id := c.gw, c.ctx, c.userID, msg.ID
	return c, func() tea.Msg {
		err := gw.MarkOneRead(ctx, userID, id)
		return MutationResultMsg{Op: gateway.OpMarkOneRead, UserID: userID, ID: id, Err: err}
	}
}

func (c Controller) onMarkAllAsRead() (Controller, tea.Cmd) {
	if !c.CanMarkAll() {
		return c, nil
	}

	c.pendingAll = true

	if c.optimistic {
		items := make([]model.Notification, len(c.items))
		for i, n := range c.items {
			items[i] = n.MarkedRead()
		}
		c.items = items
		c.discardInFlight()
	}

	gw, ctx, userID := c.gw, c.ctx, c.userID
	return c, func() tea.Msg {
		err := gw.MarkAllRead(ctx, userID)
		return MutationResultMsg{Op: gateway.OpMarkAllRead, UserID: userID, Err: err}
	}
}

// discardInFlight bumps the generation so a fetch issued before a local
// patch cannot overwrite it.
func (c *Controller) discardInFlight() {
	c.generation++
	c.refreshing = false
}

func (c Controller) onMutationResult(msg MutationResultMsg) (Controller, tea.Cmd) {
	if msg.UserID != c.userID || c.userID == "" {
		return c, nil
	}

	switch msg.Op {
	case gateway.OpMarkOneRead:
		if c.pending[msg.ID] {
			pending := make(map[string]bool, len(c.pending))
			for id := range c.pending {
				if id != msg.ID {
					pending[id] = true
				}
			}
			c.pending = pending
		}
	case gateway.OpMarkAllRead:
		c.pendingAll = false
	}

	if msg.Err != nil {
		c.log.Warn().Err(msg.Err).
			Str("user_id", msg.UserID).
			Str("op", string(msg.Op)).
			Str("notification_id", msg.ID).
			Uint64("generation", c.generation).
			Msg("mutation failed")

		if gateway.IsAuthError(msg.Err) {
			return c.expire(), nil
		}

		c.notice = mutationNotice(msg)
		c.noticeSeq++
		if !c.optimistic {
			return c, nil
		}
	}

	return c.reload()
}

func (c Controller) onReload() (Controller, tea.Cmd) {
	switch c.phase {
	case PhaseLoaded, PhaseLoading, PhaseError:
		return c.reload()
	}
	return c, nil
}

// reload fetches again. A loaded list stays visible while it runs.
func (c Controller) reload() (Controller, tea.Cmd) {
	switch c.phase {
	case PhaseLoaded:
		c.refreshing = true
	case PhaseLoading, PhaseError:
		c.phase = PhaseLoading
		c.errMsg = ""
	default:
		return c, nil
	}
	return c.fetch()
}

func mutationNotice(msg MutationResultMsg) string {
	if gateway.IsNotFound(msg.Err) {
		return "Notification no longer exists"
	}
	if msg.Op == gateway.OpMarkAllRead {
		return "Could not mark all as read: " + msg.Err.Error()
	}
	return "Could not mark as read: " + msg.Err.Error()
}
