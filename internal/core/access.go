package core

import (
	"fmt"

	"calshare/internal/model"
)

// requireRole is the access gate in front of every event operation. It
// loads the event (ErrNotFound if absent), resolves the caller's
// permission row, and fails with ErrForbidden unless the caller's role is
// in the allowed set. The loaded detail is returned so callers avoid a
// second fetch.
//
// The ordering matters for error semantics: a caller with no permission
// on an existing event gets ErrForbidden, not ErrNotFound.
func (s *EventService) requireRole(eventID, callerID string, allowed ...model.Role) (*model.EventDetail, error) {
	detail, err := s.store.GetEventDetail(eventID)
	if err != nil {
		return nil, fmt.Errorf("loading event: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNotFound, eventID)
	}

	for _, grant := range detail.Permissions {
		if grant.UserID == callerID {
			if grant.Role.In(allowed...) {
				return detail, nil
			}
			break
		}
	}
	return nil, fmt.Errorf("%w: user %s lacks required role on event %s", ErrForbidden, callerID, eventID)
}
