package model

import "time"

// Role is the permission level a user holds on an event.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// In reports whether r is a member of the given allowed set.
// Permission checks are always set membership, never rank comparison:
// owner-specific carve-outs in sharing don't fit an ordinal model.
func (r Role) In(roles ...Role) bool {
	for _, allowed := range roles {
		if r == allowed {
			return true
		}
	}
	return false
}

// User is an external identity. The core only reads ID and IsActive;
// credentials are managed by the auth layer.
type User struct {
	ID             string // UUID
	Username       string
	Email          string
	HashedPassword string
	IsActive       bool
	CreatedAt      time.Time
}

// UserPublic is the minimal identity attached to permission listings
// and changelog entries.
type UserPublic struct {
	ID       string
	Username string
	Email    string
}

// Public strips credential fields from a User.
func (u *User) Public() UserPublic {
	return UserPublic{ID: u.ID, Username: u.Username, Email: u.Email}
}

// Event is the persistent identity of a calendar event. Its content lives
// in the version chain; CurrentVersionID points at the authoritative row.
// CurrentVersionID is empty only inside the creation transaction, before
// the first version is committed; no reader ever observes that state.
type Event struct {
	ID               string // UUID
	OwnerID          string // Foreign key to User
	CurrentVersionID string // Foreign key to current EventVersion
	CreatedAt        time.Time
}

// EventContent holds the user-editable fields of an event. These are the
// only fields that participate in merging, no-op detection, and diffing.
type EventContent struct {
	Title             string
	Description       string
	StartTime         time.Time
	EndTime           time.Time
	Location          string
	IsRecurring       bool
	RecurrencePattern string // RFC 5545 RRULE string; empty unless IsRecurring
}

// EventVersion is one immutable snapshot in an event's version chain.
// Versions are only ever appended, never mutated or individually deleted.
type EventVersion struct {
	ID            string // UUID
	EventID       string // Foreign key to Event
	VersionNumber int    // 1-based, unique per event
	EventContent
	ChangedAt       time.Time
	ChangedByUserID string
}

// EventPermission grants one role to one user for one event.
// Unique per (event, user); exactly one owner row per event.
type EventPermission struct {
	ID        string // UUID
	EventID   string
	UserID    string
	Role      Role
	GrantedAt time.Time
}

// PermissionGrant is a permission row joined with the grantee's identity.
type PermissionGrant struct {
	EventPermission
	User UserPublic
}

// EventDetail is an event materialized with its current version and
// permission list, the projection returned by read and mutate operations.
type EventDetail struct {
	Event       Event
	Current     EventVersion
	Permissions []PermissionGrant
}

// EventListEntry pairs an event id with its current version's content,
// the unit fed into listing and recurrence expansion.
type EventListEntry struct {
	EventID string
	EventContent
}

// Occurrence is a concrete time-bounded instance of a (possibly recurring)
// event within a query window. Occurrences are projections, not rows.
type Occurrence struct {
	EventID     string
	Title       string
	Location    string
	Start       time.Time
	End         time.Time
	IsRecurring bool
}
