package database

// Schema is the full schema at the latest migration version, kept in
// sync with the files under migrations/files. Tests apply it directly to
// in-memory databases instead of running the migration machinery.
const Schema = `
CREATE TABLE users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
);

CREATE TABLE events (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL REFERENCES users (id),
    current_version_id TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE event_versions (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
    version_number INTEGER NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    start_time DATETIME NOT NULL,
    end_time DATETIME NOT NULL,
    location TEXT NOT NULL DEFAULT '',
    is_recurring INTEGER NOT NULL DEFAULT 0,
    recurrence_pattern TEXT NOT NULL DEFAULT '',
    changed_at DATETIME NOT NULL,
    changed_by_user_id TEXT NOT NULL REFERENCES users (id),
    UNIQUE (event_id, version_number)
);

CREATE INDEX idx_event_versions_event_id ON event_versions (event_id);
CREATE INDEX idx_event_versions_start_time ON event_versions (start_time);

CREATE TABLE event_permissions (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK (role IN ('owner', 'editor', 'viewer')),
    granted_at DATETIME NOT NULL,
    UNIQUE (event_id, user_id)
);

CREATE INDEX idx_event_permissions_user_id ON event_permissions (user_id);
`
