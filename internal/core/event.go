package core

import (
	"fmt"

	"calshare/internal/model"
)

// CreateEvent atomically creates an event, its version #1, and the owner
// permission for ownerID. On any failure nothing is persisted: there is
// never an event without a current version or without an owner row.
func (s *EventService) CreateEvent(content model.EventContent, ownerID string) (*model.EventDetail, error) {
	content = normalizeContent(content)
	if err := validateContent(content); err != nil {
		return nil, err
	}

	owner, err := s.store.GetUser(ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading owner: %w", err)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, ownerID)
	}

	now := s.clock.Now()
	event := &model.Event{
		ID:        s.idgen.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	version := &model.EventVersion{
		ID:              s.idgen.New(),
		EventID:         event.ID,
		VersionNumber:   1,
		EventContent:    content,
		ChangedAt:       now,
		ChangedByUserID: ownerID,
	}
	event.CurrentVersionID = version.ID

	if err := s.store.CreateEventWithVersion(event, version); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	s.logger.Info("event created", "event_id", event.ID, "owner_id", ownerID)

	detail, err := s.store.GetEventDetail(event.ID)
	if err != nil {
		return nil, fmt.Errorf("loading created event: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: event %s vanished after creation", ErrPersistence, event.ID)
	}
	return detail, nil
}

// BatchResult reports the outcome of one item in a batch creation.
type BatchResult struct {
	Index int
	Event *model.EventDetail // nil when Err is set
	Err   error
}

// CreateEvents creates a batch of events independently: one invalid item
// does not abort the rest. Results are returned in input order.
func (s *EventService) CreateEvents(contents []model.EventContent, ownerID string) []BatchResult {
	results := make([]BatchResult, len(contents))
	for i, content := range contents {
		detail, err := s.CreateEvent(content, ownerID)
		results[i] = BatchResult{Index: i, Event: detail, Err: err}
		if err != nil {
			s.logger.Warn("batch item failed", "index", i, "error", err)
		}
	}
	return results
}

// GetEvent returns the event with its current state. Requires any role on
// the event.
func (s *EventService) GetEvent(eventID, callerID string) (*model.EventDetail, error) {
	return s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor, model.RoleViewer)
}

// UpdateEvent applies a partial content change as a new version. Fields
// absent from the patch carry over from the current version. If the
// merged result is identical to the current content, no version is
// created and the event is returned unchanged. Requires owner or editor.
func (s *EventService) UpdateEvent(eventID string, patch ContentPatch, callerID string) (*model.EventDetail, error) {
	detail, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if detail.Current.ID == "" {
		return nil, fmt.Errorf("%w: event %s has no current version", ErrNotFound, eventID)
	}

	if patch.IsZero() {
		return detail, nil
	}

	merged := patch.applyTo(detail.Current.EventContent)
	if contentEqual(merged, detail.Current.EventContent) {
		// Idempotent no-op: identical content never grows the chain.
		return detail, nil
	}
	if err := validateContent(merged); err != nil {
		return nil, err
	}

	version := &model.EventVersion{
		ID:              s.idgen.New(),
		EventID:         eventID,
		VersionNumber:   detail.Current.VersionNumber + 1,
		EventContent:    merged,
		ChangedAt:       s.clock.Now(),
		ChangedByUserID: callerID,
	}
	if err := s.store.AppendVersion(version); err != nil {
		return nil, fmt.Errorf("appending version: %w", err)
	}

	s.logger.Info("event updated", "event_id", eventID, "version", version.VersionNumber, "changed_by", callerID)
	return s.reloadDetail(eventID)
}

// RollbackEvent restores a historical version's content as a new version
// at the head of the chain. Rollback never rewinds the pointer: history
// is preserved in full. Requires owner or editor.
func (s *EventService) RollbackEvent(eventID, targetVersionID, callerID string) (*model.EventDetail, error) {
	detail, err := s.requireRole(eventID, callerID, model.RoleOwner, model.RoleEditor)
	if err != nil {
		return nil, err
	}

	target, err := s.store.GetVersionByID(eventID, targetVersionID)
	if err != nil {
		return nil, fmt.Errorf("loading target version: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: version %s does not belong to event %s", ErrValidation, targetVersionID, eventID)
	}

	version := &model.EventVersion{
		ID:              s.idgen.New(),
		EventID:         eventID,
		VersionNumber:   detail.Current.VersionNumber + 1,
		EventContent:    target.EventContent,
		ChangedAt:       s.clock.Now(),
		ChangedByUserID: callerID,
	}
	if err := s.store.AppendVersion(version); err != nil {
		return nil, fmt.Errorf("appending rollback version: %w", err)
	}

	s.logger.Info("event rolled back", "event_id", eventID,
		"target_version", target.VersionNumber, "new_version", version.VersionNumber)
	return s.reloadDetail(eventID)
}

// DeleteEvent removes the event with all its versions and permissions.
// Owner only.
func (s *EventService) DeleteEvent(eventID, callerID string) error {
	if _, err := s.requireRole(eventID, callerID, model.RoleOwner); err != nil {
		return err
	}

	deleted, err := s.store.DeleteEvent(eventID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}

	s.logger.Info("event deleted", "event_id", eventID, "deleted_by", callerID)
	return nil
}

// reloadDetail re-reads the event after a successful mutation so the
// caller sees committed database state.
func (s *EventService) reloadDetail(eventID string) (*model.EventDetail, error) {
	detail, err := s.store.GetEventDetail(eventID)
	if err != nil {
		return nil, fmt.Errorf("reloading event: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: event %s vanished after mutation", ErrPersistence, eventID)
	}
	return detail, nil
}
