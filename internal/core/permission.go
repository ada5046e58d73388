package core

import (
	"fmt"

	"calshare/internal/model"
)

// GetRole returns the caller-independent role lookup for one user on one
// event, or "" if no permission row exists.
func (s *EventService) GetRole(eventID, userID string) (model.Role, error) {
	perm, err := s.store.GetPermission(eventID, userID)
	if err != nil {
		return "", fmt.Errorf("loading permission: %w", err)
	}
	if perm == nil {
		return "", nil
	}
	return perm.Role, nil
}

// GrantPermission grants role to userID on the event. Sharing management
// requires the caller to be owner or editor. Granting an existing
// identical role is a no-op; an existing different role is a conflict
// directing the caller to the update path; the owner role can never be
// granted to a non-owner.
func (s *EventService) GrantPermission(eventID, userID string, role model.Role, callerID string) (*model.EventPermission, error) {
	detail, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	grantee, err := s.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("loading grantee: %w", err)
	}
	if grantee == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}

	if role == model.RoleOwner && detail.Event.OwnerID != userID {
		return nil, fmt.Errorf("%w: owner role cannot be granted to another user", ErrConflict)
	}

	existing, err := s.store.GetPermission(eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking existing permission: %w", err)
	}
	if existing != nil {
		if existing.Role == role {
			return existing, nil // idempotent re-grant
		}
		return nil, fmt.Errorf("%w: user %s already has role %q on event %s; update the role instead",
			ErrConflict, userID, existing.Role, eventID)
	}

	perm := &model.EventPermission{
		ID:        s.idgen.New(),
		EventID:   eventID,
		UserID:    userID,
		Role:      role,
		GrantedAt: s.clock.Now(),
	}
	if err := s.store.InsertPermission(perm); err != nil {
		return nil, fmt.Errorf("inserting permission: %w", err)
	}

	s.logger.Info("permission granted", "event_id", eventID, "user_id", userID, "role", role)
	return perm, nil
}

// UpdatePermission changes an existing grant's role. The owner's role is
// immutable; a missing grant is ErrNotFound.
func (s *EventService) UpdatePermission(eventID, userID string, newRole model.Role, callerID string) (*model.EventPermission, error) {
	detail, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if !newRole.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, newRole)
	}

	if detail.Event.OwnerID == userID && newRole != model.RoleOwner {
		return nil, fmt.Errorf("%w: the owner's role cannot be changed", ErrConflict)
	}
	if detail.Event.OwnerID != userID && newRole == model.RoleOwner {
		return nil, fmt.Errorf("%w: owner role cannot be granted to another user", ErrConflict)
	}

	perm, err := s.store.UpdatePermissionRole(eventID, userID, newRole)
	if err != nil {
		return nil, fmt.Errorf("updating permission: %w", err)
	}
	if perm == nil {
		return nil, fmt.Errorf("%w: no permission for user %s on event %s", ErrNotFound, userID, eventID)
	}

	s.logger.Info("permission updated", "event_id", eventID, "user_id", userID, "role", newRole)
	return perm, nil
}

// RevokePermission removes a user's access to the event. The owner's row
// is only removable by deleting the whole event. Reports whether a row
// was actually deleted.
func (s *EventService) RevokePermission(eventID, userID, callerID string) (bool, error) {
	detail, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor)
	if err != nil {
		return false, err
	}

	if detail.Event.OwnerID == userID {
		return false, fmt.Errorf("%w: the owner's permission cannot be revoked", ErrConflict)
	}

	deleted, err := s.store.DeletePermission(eventID, userID)
	if err != nil {
		return false, fmt.Errorf("deleting permission: %w", err)
	}
	if deleted {
		s.logger.Info("permission revoked", "event_id", eventID, "user_id", userID)
	}
	return deleted, nil
}

// ListPermissions returns every grant on the event with grantee
// identities. Any role on the event may view the sharing list.
func (s *EventService) ListPermissions(eventID, callerID string) ([]model.PermissionGrant, error) {
	if _, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor, model.RoleViewer); err != nil {
		return nil, err
	}

	grants, err := s.store.ListPermissions(eventID)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	return grants, nil
}

// ShareGrant is one (user, role) pair in a share request.
type ShareGrant struct {
	UserID string
	Role   model.Role
}

// ShareEvent applies a list of grants in one call, creating missing
// permissions and updating existing ones. Items are applied
// independently; the first failure aborts and reports which grant failed.
// Returns the event's full permission list afterwards.
func (s *EventService) ShareEvent(eventID string, grants []ShareGrant, callerID string) ([]model.PermissionGrant, error) {
	if _, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor); err != nil {
		return nil, err
	}

	for _, g := range grants {
		existing, err := s.store.GetPermission(eventID, g.UserID)
		if err != nil {
			return nil, fmt.Errorf("checking permission for user %s: %w", g.UserID, err)
		}
		if existing == nil {
			_, err = s.GrantPermission(eventID, g.UserID, g.Role, callerID)
		} else if existing.Role != g.Role {
			_, err = s.UpdatePermission(eventID, g.UserID, g.Role, callerID)
		}
		if err != nil {
			return nil, fmt.Errorf("sharing with user %s: %w", g.UserID, err)
		}
	}
	return s.ListPermissions(eventID, callerID)
}
