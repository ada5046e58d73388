package core

import (
	"fmt"

	"calshare/internal/model"
)

// GetVersion returns one historical version of an event. Any role on the
// event is sufficient; the version must belong to the event.
func (s *EventService) GetVersion(eventID, versionID, callerID string) (*model.EventVersion, error) {
	if _, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor, model.RoleViewer); err != nil {
		return nil, err
	}

	version, err := s.store.GetVersionByID(eventID, versionID)
	if err != nil {
		return nil, fmt.Errorf("loading version: %w", err)
	}
	if version == nil {
		return nil, fmt.Errorf("%w: version %s for event %s", ErrNotFound, versionID, eventID)
	}
	return version, nil
}

// GetHistory returns one page of the event's version chain, newest first.
func (s *EventService) GetHistory(eventID, callerID string, limit, offset int) ([]*model.EventVersion, int, error) {
	return s.listVersions(eventID, callerID, true, limit, offset)
}

// GetChangelog returns one page of the event's version chain, oldest
// first, which reads as the sequence of changes over time.
func (s *EventService) GetChangelog(eventID, callerID string, limit, offset int) ([]*model.EventVersion, int, error) {
	return s.listVersions(eventID, callerID, false, limit, offset)
}

func (s *EventService) listVersions(eventID, callerID string, newestFirst bool, limit, offset int) ([]*model.EventVersion, int, error) {
	if _, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor, model.RoleViewer); err != nil {
		return nil, 0, err
	}

	limit, offset = clampPage(limit, offset)
	versions, total, err := s.store.ListVersions(eventID, newestFirst, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing versions: %w", err)
	}
	return versions, total, nil
}
