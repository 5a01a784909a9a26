package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/carehub/internal/model"
	"github.com/nhle/carehub/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Seed inserts the given notifications into s, failing the test on error.
func Seed(t *testing.T, s store.Store, notifications ...model.Notification) {
	t.Helper()

	for _, n := range notifications {
		if _, err := s.CreateNotification(context.Background(), n); err != nil {
			t.Fatalf("seeding notification %s: %v", n.ID, err)
		}
	}
}

// Notification builds a record for recipient created ago before base.
func Notification(id, recipient string, kind model.Kind, base time.Time, ago time.Duration) model.Notification {
	return model.Notification{
		ID:          id,
		RecipientID: recipient,
		Kind:        kind,
		Message:     string(kind) + " " + id,
		CreatedAt:   base.Add(-ago),
	}
}
