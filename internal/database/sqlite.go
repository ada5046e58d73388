// Package database implements the core.Store interface on SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"calshare/internal/core"
	"calshare/internal/database/migrations"
	"calshare/internal/model"
)

// SQLiteStore implements core.Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The caller
// is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with the
// PRAGMAs the store relies on. Exported for tools and tests that need a
// properly configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Foreign keys default to OFF in SQLite; cascade deletes depend on them.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return db, nil
}

// storeErr classifies a storage failure: uniqueness violations surface as
// core.ErrConflict (they are the concurrent-update detector), everything
// else as core.ErrPersistence.
func storeErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %w", op, core.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistence, err)
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

const versionColumns = `id, event_id, version_number, title, description,
	start_time, end_time, location, is_recurring, recurrence_pattern,
	changed_at, changed_by_user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*model.EventVersion, error) {
	var v model.EventVersion
	err := row.Scan(&v.ID, &v.EventID, &v.VersionNumber, &v.Title, &v.Description,
		&v.StartTime, &v.EndTime, &v.Location, &v.IsRecurring, &v.RecurrencePattern,
		&v.ChangedAt, &v.ChangedByUserID)
	if err != nil {
		return nil, err
	}
	v.StartTime = v.StartTime.UTC()
	v.EndTime = v.EndTime.UTC()
	v.ChangedAt = v.ChangedAt.UTC()
	return &v, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var current sql.NullString
	if err := row.Scan(&e.ID, &e.OwnerID, &current, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.CurrentVersionID = current.String
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// Event operations

func (s *SQLiteStore) CreateEventWithVersion(event *model.Event, version *model.EventVersion) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	// The pointer column starts NULL: the version row it targets does
	// not exist yet.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, owner_id, current_version_id, created_at) VALUES (?, ?, NULL, ?)`,
		event.ID, event.OwnerID, event.CreatedAt.UTC())
	if err != nil {
		return storeErr("inserting event", err)
	}

	if err := insertVersion(ctx, tx, version); err != nil {
		return storeErr("inserting first version", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE events SET current_version_id = ? WHERE id = ?`,
		version.ID, event.ID)
	if err != nil {
		return storeErr("setting current version", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_permissions (id, event_id, user_id, role, granted_at) VALUES (?, ?, ?, ?, ?)`,
		event.ID+"-owner", event.ID, event.OwnerID, model.RoleOwner, event.CreatedAt.UTC())
	if err != nil {
		return storeErr("inserting owner permission", err)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

func (s *SQLiteStore) GetEvent(eventID string) (*model.Event, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT id, owner_id, current_version_id, created_at FROM events WHERE id = ?`, eventID)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding event", err)
	}
	return event, nil
}

func (s *SQLiteStore) GetEventDetail(eventID string) (*model.EventDetail, error) {
	event, err := s.GetEvent(eventID)
	if err != nil || event == nil {
		return nil, err
	}

	detail := &model.EventDetail{Event: *event}

	if event.CurrentVersionID != "" {
		row := s.db.QueryRowContext(context.Background(),
			`SELECT `+versionColumns+` FROM event_versions WHERE id = ?`, event.CurrentVersionID)
		current, err := scanVersion(row)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, storeErr("loading current version", err)
		}
		if current != nil {
			detail.Current = *current
		}
	}

	grants, err := s.ListPermissions(eventID)
	if err != nil {
		return nil, err
	}
	detail.Permissions = grants
	return detail, nil
}

func (s *SQLiteStore) DeleteEvent(eventID string) (bool, error) {
	res, err := s.db.ExecContext(context.Background(), `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return false, storeErr("deleting event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("counting deleted rows", err)
	}
	return n > 0, nil
}

// Version operations

func insertVersion(ctx context.Context, tx *sql.Tx, v *model.EventVersion) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO event_versions (id, event_id, version_number, title, description,
			start_time, end_time, location, is_recurring, recurrence_pattern,
			changed_at, changed_by_user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.EventID, v.VersionNumber, v.Title, v.Description,
		v.StartTime.UTC(), v.EndTime.UTC(), v.Location, v.IsRecurring, v.RecurrencePattern,
		v.ChangedAt.UTC(), v.ChangedByUserID)
	return err
}

func (s *SQLiteStore) AppendVersion(version *model.EventVersion) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("starting transaction", err)
	}
	defer tx.Rollback()

	// The (event_id, version_number) uniqueness serializes concurrent
	// appends: the loser of a race fails here with a conflict instead
	// of silently interleaving.
	if err := insertVersion(ctx, tx, version); err != nil {
		return storeErr("inserting version", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE events SET current_version_id = ? WHERE id = ?`,
		version.ID, version.EventID)
	if err != nil {
		return storeErr("repointing current version", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("counting repointed rows", err)
	}
	if n == 0 {
		return fmt.Errorf("repointing current version: %w: event %s missing", core.ErrPersistence, version.EventID)
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

func (s *SQLiteStore) GetVersionByID(eventID, versionID string) (*model.EventVersion, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+versionColumns+` FROM event_versions WHERE id = ? AND event_id = ?`,
		versionID, eventID)
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding version", err)
	}
	return version, nil
}

func (s *SQLiteStore) GetVersionByNumber(eventID string, number int) (*model.EventVersion, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+versionColumns+` FROM event_versions WHERE event_id = ? AND version_number = ?`,
		eventID, number)
	version, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding version by number", err)
	}
	return version, nil
}

func (s *SQLiteStore) ListVersions(eventID string, newestFirst bool, limit, offset int) ([]*model.EventVersion, int, error) {
	ctx := context.Background()

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_versions WHERE event_id = ?`, eventID).Scan(&total)
	if err != nil {
		return nil, 0, storeErr("counting versions", err)
	}

	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	// A negative limit means no limit in SQLite.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM event_versions WHERE event_id = ?
		 ORDER BY version_number `+order+` LIMIT ? OFFSET ?`,
		eventID, limit, offset)
	if err != nil {
		return nil, 0, storeErr("listing versions", err)
	}
	defer rows.Close()

	var versions []*model.EventVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, 0, storeErr("scanning version", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("iterating versions", err)
	}
	return versions, total, nil
}

// Permission operations

func (s *SQLiteStore) GetPermission(eventID, userID string) (*model.EventPermission, error) {
	var p model.EventPermission
	err := s.db.QueryRowContext(context.Background(),
		`SELECT id, event_id, user_id, role, granted_at FROM event_permissions
		 WHERE event_id = ? AND user_id = ?`, eventID, userID).
		Scan(&p.ID, &p.EventID, &p.UserID, &p.Role, &p.GrantedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding permission", err)
	}
	p.GrantedAt = p.GrantedAt.UTC()
	return &p, nil
}

func (s *SQLiteStore) InsertPermission(perm *model.EventPermission) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO event_permissions (id, event_id, user_id, role, granted_at) VALUES (?, ?, ?, ?, ?)`,
		perm.ID, perm.EventID, perm.UserID, perm.Role, perm.GrantedAt.UTC())
	if err != nil {
		return storeErr("inserting permission", err)
	}
	return nil
}

func (s *SQLiteStore) UpdatePermissionRole(eventID, userID string, role model.Role) (*model.EventPermission, error) {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE event_permissions SET role = ? WHERE event_id = ? AND user_id = ?`,
		role, eventID, userID)
	if err != nil {
		return nil, storeErr("updating permission role", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, storeErr("counting updated rows", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetPermission(eventID, userID)
}

func (s *SQLiteStore) DeletePermission(eventID, userID string) (bool, error) {
	res, err := s.db.ExecContext(context.Background(),
		`DELETE FROM event_permissions WHERE event_id = ? AND user_id = ?`,
		eventID, userID)
	if err != nil {
		return false, storeErr("deleting permission", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("counting deleted rows", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListPermissions(eventID string) ([]model.PermissionGrant, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT p.id, p.event_id, p.user_id, p.role, p.granted_at,
		       u.id, u.username, u.email
		FROM event_permissions p
		JOIN users u ON u.id = p.user_id
		WHERE p.event_id = ?
		ORDER BY p.granted_at, p.id`, eventID)
	if err != nil {
		return nil, storeErr("listing permissions", err)
	}
	defer rows.Close()

	var grants []model.PermissionGrant
	for rows.Next() {
		var g model.PermissionGrant
		err := rows.Scan(&g.ID, &g.EventID, &g.UserID, &g.Role, &g.GrantedAt,
			&g.User.ID, &g.User.Username, &g.User.Email)
		if err != nil {
			return nil, storeErr("scanning permission", err)
		}
		g.GrantedAt = g.GrantedAt.UTC()
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating permissions", err)
	}
	return grants, nil
}

// Listing operations

const listEntryColumns = `e.id, v.title, v.description, v.start_time, v.end_time,
	v.location, v.is_recurring, v.recurrence_pattern`

func scanListEntry(rows *sql.Rows) (model.EventListEntry, error) {
	var entry model.EventListEntry
	err := rows.Scan(&entry.EventID, &entry.Title, &entry.Description,
		&entry.StartTime, &entry.EndTime, &entry.Location,
		&entry.IsRecurring, &entry.RecurrencePattern)
	if err != nil {
		return entry, err
	}
	entry.StartTime = entry.StartTime.UTC()
	entry.EndTime = entry.EndTime.UTC()
	return entry, nil
}

func (s *SQLiteStore) ListEventsForUser(userID string, limit, offset int) ([]model.EventListEntry, int, error) {
	ctx := context.Background()

	// (event_id, user_id) is unique, so the permission join yields at
	// most one row per event.
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM events e
		JOIN event_permissions p ON p.event_id = e.id
		WHERE p.user_id = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, storeErr("counting events", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+listEntryColumns+`
		FROM events e
		JOIN event_permissions p ON p.event_id = e.id
		JOIN event_versions v ON v.id = e.current_version_id
		WHERE p.user_id = ?
		ORDER BY v.start_time, e.id
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, storeErr("listing events", err)
	}
	defer rows.Close()

	var entries []model.EventListEntry
	for rows.Next() {
		entry, err := scanListEntry(rows)
		if err != nil {
			return nil, 0, storeErr("scanning event entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("iterating events", err)
	}
	return entries, total, nil
}

func (s *SQLiteStore) ListCandidateEvents(userID string, from, to time.Time) ([]model.EventListEntry, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT `+listEntryColumns+`
		FROM events e
		JOIN event_permissions p ON p.event_id = e.id
		JOIN event_versions v ON v.id = e.current_version_id
		WHERE p.user_id = ?
		  AND (v.is_recurring = 1 OR (v.end_time > ? AND v.start_time < ?))
		ORDER BY v.start_time, e.id`, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, storeErr("listing candidate events", err)
	}
	defer rows.Close()

	var entries []model.EventListEntry
	for rows.Next() {
		entry, err := scanListEntry(rows)
		if err != nil {
			return nil, storeErr("scanning candidate entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating candidates", err)
	}
	return entries, nil
}

// User operations

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

const userColumns = `id, username, email, hashed_password, is_active, created_at`

func (s *SQLiteStore) GetUser(userID string) (*model.User, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding user", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByUsername(username string) (*model.User, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("finding user by username", err)
	}
	return user, nil
}

func (s *SQLiteStore) CreateUser(user *model.User) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO users (id, username, email, hashed_password, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.HashedPassword, user.IsActive, user.CreatedAt.UTC())
	if err != nil {
		return storeErr("inserting user", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.Check(s.db)
}

// MigrateUp applies all pending migrations.
func (s *SQLiteStore) MigrateUp() error {
	return migrations.Up(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements core.Store.
var _ core.Store = (*SQLiteStore)(nil)
