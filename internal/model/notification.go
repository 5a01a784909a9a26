package model

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a notification. The set is closed: every record is a
// Reminder, an Alert, or an Update.
type Kind string

const (
	KindReminder Kind = "Reminder"
	KindAlert    Kind = "Alert"
	KindUpdate   Kind = "Update"
)

// Kinds lists every valid Kind in priority order.
var Kinds = []Kind{KindAlert, KindReminder, KindUpdate}

// ParseKind converts a case-insensitive label into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown notification kind %q", s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindReminder, KindAlert, KindUpdate:
		return true
	}
	return false
}

// Priority returns the display priority (lower number = more urgent).
// It affects presentation only.
func (k Kind) Priority() int {
	switch k {
	case KindAlert:
		return PriorityCritical
	case KindReminder:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Normalized priority constants (lower number = higher priority).
const (
	PriorityCritical = 1
	PriorityMedium   = 3
	PriorityLow      = 4
)

// Notification is a single alert, reminder, or update addressed to one
// recipient. Every field except Read is fixed at creation; Read only ever
// moves from false to true.
type Notification struct {
	// ID is unique within the recipient's notifications and never reused.
	ID string `json:"id" db:"id" validate:"required"`

	// RecipientID is the user who owns this notification.
	RecipientID string `json:"recipientId" db:"recipient_id" validate:"required"`

	// Kind is one of Reminder, Alert, or Update.
	Kind Kind `json:"kind" db:"kind" validate:"required,oneof=Reminder Alert Update"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// CreatedAt is when the notification was produced.
	CreatedAt time.Time `json:"createdAt" db:"created_at" validate:"required"`

	// Read indicates whether the recipient has seen this notification.
	Read bool `json:"read" db:"read"`
}

// MarkedRead returns a copy of n with Read set. Marking is one-way; there
// is no counterpart that clears the flag.
func (n Notification) MarkedRead() Notification {
	n.Read = true
	return n
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the structural rules of a notification record as it
// arrives over the wire or from storage.
func (n Notification) Validate() error {
	if err := recordValidator().Struct(n); err != nil {
		return fmt.Errorf("invalid notification %q: %w", n.ID, err)
	}
	return nil
}

// ValidateFor checks n and additionally that it belongs to userID.
func (n Notification) ValidateFor(userID string) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.RecipientID != userID {
		return fmt.Errorf(
			"notification %q belongs to %q, not %q",
			n.ID, n.RecipientID, userID,
		)
	}
	return nil
}
