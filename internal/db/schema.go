package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS people (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    handle     TEXT,
    role       TEXT NOT NULL DEFAULT 'unverified' CHECK (role IN ('unverified', 'member', 'admin')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_people_handle
    ON people(handle) WHERE handle IS NOT NULL;

CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS equipment (
    id          INTEGER PRIMARY KEY,
    category_id INTEGER NOT NULL REFERENCES categories(id),
    name        TEXT NOT NULL,
    description TEXT,
    holder_id   INTEGER NOT NULL REFERENCES people(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_equipment_holder ON equipment(holder_id);

CREATE TABLE IF NOT EXISTS transfers (
    id             INTEGER PRIMARY KEY,
    equipment_id   INTEGER NOT NULL REFERENCES equipment(id),
    from_holder_id INTEGER NOT NULL REFERENCES people(id),
    to_holder_id   INTEGER NOT NULL REFERENCES people(id),
    batch_id       TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'verified', 'deleted')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    resolved_at    DATETIME
);

-- At most one pending transfer may exist per equipment item. This is the
-- mutual-exclusion invariant that keeps two people from claiming the same
-- physical item at once.
CREATE UNIQUE INDEX IF NOT EXISTS idx_transfers_pending_equipment
    ON transfers(equipment_id) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS idx_transfers_batch ON transfers(batch_id);

CREATE TABLE IF NOT EXISTS history (
    id           INTEGER PRIMARY KEY,
    equipment_id INTEGER NOT NULL REFERENCES equipment(id),
    holder_id    INTEGER NOT NULL REFERENCES people(id),
    recorded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_history_equipment ON history(equipment_id);
CREATE INDEX IF NOT EXISTS idx_history_holder ON history(holder_id);

CREATE TABLE IF NOT EXISTS staff (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'viewer' CHECK (role IN ('admin', 'viewer')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_username_active
    ON staff(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
