package core

import (
	"fmt"

	"calshare/internal/model"
)

// FieldChange records one content field differing between two versions.
type FieldChange struct {
	Old any
	New any
}

// DiffVersions computes the structural difference between two versions of
// the same event: a map from field name to old/new pair for every content
// field that changed. Metadata (ids, version numbers, change attribution)
// never appears in a diff. versionID1 is the baseline ("old") and
// versionID2 the target ("new"); the caller chooses the direction, the
// differ does not reorder by version number. Any role on the event may
// diff its versions.
func (s *EventService) DiffVersions(eventID, versionID1, versionID2, callerID string) (map[string]FieldChange, error) {
	if versionID1 == versionID2 {
		return nil, fmt.Errorf("%w: cannot diff a version against itself", ErrValidation)
	}

	if _, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor, model.RoleViewer); err != nil {
		return nil, err
	}

	v1, err := s.store.GetVersionByID(eventID, versionID1)
	if err != nil {
		return nil, fmt.Errorf("loading baseline version: %w", err)
	}
	v2, err := s.store.GetVersionByID(eventID, versionID2)
	if err != nil {
		return nil, fmt.Errorf("loading target version: %w", err)
	}
	if v1 == nil || v2 == nil {
		missing := versionID1
		if v1 != nil {
			missing = versionID2
		}
		return nil, fmt.Errorf("%w: version %s for event %s", ErrNotFound, missing, eventID)
	}

	return diffContent(v1.EventContent, v2.EventContent), nil
}

// diffContent compares the content fields of two snapshots. All content
// fields are scalars, so a flat old/new map captures the full difference.
func diffContent(old, new model.EventContent) map[string]FieldChange {
	changes := make(map[string]FieldChange)

	if old.Title != new.Title {
		changes["title"] = FieldChange{Old: old.Title, New: new.Title}
	}
	if old.Description != new.Description {
		changes["description"] = FieldChange{Old: old.Description, New: new.Description}
	}
	if !old.StartTime.Equal(new.StartTime) {
		changes["start_time"] = FieldChange{Old: old.StartTime, New: new.StartTime}
	}
	if !old.EndTime.Equal(new.EndTime) {
		changes["end_time"] = FieldChange{Old: old.EndTime, New: new.EndTime}
	}
	if old.Location != new.Location {
		changes["location"] = FieldChange{Old: old.Location, New: new.Location}
	}
	if old.IsRecurring != new.IsRecurring {
		changes["is_recurring"] = FieldChange{Old: old.IsRecurring, New: new.IsRecurring}
	}
	if old.RecurrencePattern != new.RecurrencePattern {
		changes["recurrence_pattern"] = FieldChange{Old: old.RecurrencePattern, New: new.RecurrencePattern}
	}

	return changes
}
