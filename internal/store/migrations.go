package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	kind         TEXT NOT NULL CHECK(kind IN ('Reminder', 'Alert', 'Update')),
	message      TEXT NOT NULL,
	read         INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (recipient_id, id)
);

CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_unread
	ON notifications(recipient_id, read) WHERE read = 0;

-- read never goes back to 0.
CREATE TRIGGER IF NOT EXISTS trg_notifications_read_monotonic
BEFORE UPDATE OF read ON notifications
WHEN OLD.read = 1 AND NEW.read = 0
BEGIN
	SELECT RAISE(ABORT, 'notification read flag cannot be cleared');
END;

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
