package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/carehub/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every pooled connection to ":memory:" would see its own empty
	// database, so keep a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreateNotification inserts a new notification record.
// If the notification has no ID, a new UUID is generated; a zero
// CreatedAt is replaced with the current time.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	n model.Notification,
) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	if err := n.Validate(); err != nil {
		return model.Notification{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, kind, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, string(n.Kind), n.Message,
		boolToInt(n.Read), n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("creating notification %s: %w", n.ID, err)
	}

	return n, nil
}

// GetNotifications retrieves the recipient's notifications matching the
// filter, ordered by creation time descending.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	filter NotificationFilter,
) ([]model.Notification, error) {
	if filter.RecipientID == "" {
		return nil, fmt.Errorf("querying notifications: recipient is required")
	}

	conditions := []string{"recipient_id = ?"}
	args := []interface{}{filter.RecipientID}

	if filter.UnreadOnly {
		conditions = append(conditions, "read = 0")
	}
	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(*filter.Kind))
	}

	query := "SELECT id, recipient_id, kind, message, read, created_at FROM notifications" +
		" WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY created_at DESC, id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// GetNotificationByID retrieves a single notification owned by recipientID.
func (s *SQLiteStore) GetNotificationByID(
	ctx context.Context,
	recipientID, id string,
) (*model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, recipient_id, kind, message, read, created_at
		FROM notifications WHERE recipient_id = ? AND id = ?`,
		recipientID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting notification %s: %w", id, err)
		}
		return nil, fmt.Errorf("getting notification %s: %w", id, ErrNotFound)
	}

	n, err := scanNotification(rows)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(
	ctx context.Context,
	recipientID, id string,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE recipient_id = ? AND id = ? AND read = 0",
		recipientID, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}

	changed, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if changed > 0 {
		return nil
	}

	// Nothing changed: either already read or not ours.
	var exists int
	err = s.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND id = ?",
		recipientID, id,
	)
	if err != nil {
		return fmt.Errorf("checking notification %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("marking notification %s as read: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the
// recipient as read.
func (s *SQLiteStore) MarkAllNotificationsRead(
	ctx context.Context,
	recipientID string,
) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0",
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read for %s: %w", recipientID, err)
	}
	return result.RowsAffected()
}

// CountUnread returns the number of unread notifications for recipientID.
func (s *SQLiteStore) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read = 0",
		recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for %s: %w", recipientID, err)
	}
	return count, nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		kind      string
		readInt   int
		createdAt sql.NullTime
	)

	err := rows.Scan(
		&n.ID, &n.RecipientID, &kind, &n.Message,
		&readInt, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Kind = model.Kind(kind)
	n.Read = readInt != 0
	if createdAt.Valid {
		n.CreatedAt = createdAt.Time.UTC()
	}

	return n, nil
}

// IsNotFound reports whether err (or any error in its chain) is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
