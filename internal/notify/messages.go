package notify

import (
	"github.com/nhle/carehub/internal/gateway"
	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/session"
)

// SessionChangedMsg announces a new session snapshot.
type SessionChangedMsg struct {
	Session session.Snapshot
}

// MarkAsReadMsg asks the controller to mark one notification read.
type MarkAsReadMsg struct {
	ID string
}

// MarkAllAsReadMsg asks the controller to mark every notification read.
type MarkAllAsReadMsg struct{}

// ReloadMsg asks for a fresh fetch. It is sent by the reload key and the
// poll timer.
type ReloadMsg struct{}

// DismissNoticeMsg clears the mutation notice if it is still the one
// identified by Seq.
type DismissNoticeMsg struct {
	Seq int
}

// FetchResultMsg carries the outcome of a Fetch issued at Generation.
type FetchResultMsg struct {
	Generation uint64
	UserID     string
	Items      []model.Notification
	Err        error
}

// MutationResultMsg carries the outcome of a MarkOneRead or MarkAllRead.
type MutationResultMsg struct {
	Op     gateway.Op
	UserID string
	ID     string
	Err    error
}
