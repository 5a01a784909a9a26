package notify

import (
	"fmt"
	"sort"
	"time"

	"github.com/nhle/carehub/internal/model"
)

// UnreadCount returns the number of items with Read == false.
func UnreadCount(items []model.Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}

// SortNewestFirst returns a copy of items ordered by CreatedAt descending.
// Items with equal timestamps keep their gateway order.
func SortNewestFirst(items []model.Notification) []model.Notification {
	sorted := make([]model.Notification, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// RelativeTime formats t relative to now, e.g. "just now", "5m ago",
// "3h ago", "2d ago", "3w ago". Anything older than about two months is
// shown as a date. Timestamps in the future read as "just now".
func RelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 60*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/(24*7)))
	default:
		return t.Format("Jan 2, 2006")
	}
}
