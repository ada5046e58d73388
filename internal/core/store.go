package core

import (
	"time"

	"calshare/internal/model"
)

// Store provides the persistent state behind the service. Every method
// that writes more than one row must do so in a single transaction:
// partial states (an event without a current version, a version without
// an updated pointer) must never be observable.
//
// Find-style methods return (nil, nil) when the entity is absent; the
// service layer decides which absences are ErrNotFound.
type Store interface {
	// Event operations

	// CreateEventWithVersion atomically inserts the event row, its
	// version #1, repoints the event's current-version pointer, and
	// seeds the owner permission from event.OwnerID.
	CreateEventWithVersion(event *model.Event, version *model.EventVersion) error

	// GetEvent returns the bare event row.
	GetEvent(eventID string) (*model.Event, error)

	// GetEventDetail returns the event with its current version and
	// permission list (grantee identities attached).
	GetEventDetail(eventID string) (*model.EventDetail, error)

	// DeleteEvent removes the event and cascades to its versions and
	// permissions. Reports whether a row was actually deleted.
	DeleteEvent(eventID string) (bool, error)

	// Version operations

	// AppendVersion atomically inserts a new version and repoints the
	// parent event's current-version pointer to it. Two appends racing
	// on the same version number serialize on the (event_id,
	// version_number) uniqueness; the loser gets ErrConflict.
	AppendVersion(version *model.EventVersion) error

	// GetVersionByID returns a version only if it belongs to eventID.
	GetVersionByID(eventID, versionID string) (*model.EventVersion, error)

	// GetVersionByNumber returns the version with the given sequence number.
	GetVersionByNumber(eventID string, number int) (*model.EventVersion, error)

	// ListVersions returns one page of an event's version chain plus the
	// total count. newestFirst selects history order; oldest-first is
	// changelog order.
	ListVersions(eventID string, newestFirst bool, limit, offset int) ([]*model.EventVersion, int, error)

	// Permission operations

	GetPermission(eventID, userID string) (*model.EventPermission, error)
	InsertPermission(perm *model.EventPermission) error
	UpdatePermissionRole(eventID, userID string, role model.Role) (*model.EventPermission, error)
	DeletePermission(eventID, userID string) (bool, error)
	ListPermissions(eventID string) ([]model.PermissionGrant, error)

	// Listing operations

	// ListEventsForUser returns one entry per event the user holds any
	// permission on, ordered by the current version's start time.
	ListEventsForUser(userID string, limit, offset int) ([]model.EventListEntry, int, error)

	// ListCandidateEvents returns entries for windowed listing: every
	// recurring event the user can see, plus non-recurring events whose
	// interval intersects [from, to).
	ListCandidateEvents(userID string, from, to time.Time) ([]model.EventListEntry, error)

	// User operations

	GetUser(userID string) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	CreateUser(user *model.User) error

	// Close closes the underlying storage.
	Close() error
}
