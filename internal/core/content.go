package core

import (
	"fmt"
	"strings"
	"time"

	"calshare/internal/model"
)

const maxTitleLen = 255

// ContentPatch is a partial update to an event's content. Nil fields are
// absent and carry over unchanged from the current version; updates are a
// merge over the current content, never a replace.
type ContentPatch struct {
	Title             *string
	Description       *string
	StartTime         *time.Time
	EndTime           *time.Time
	Location          *string
	IsRecurring       *bool
	RecurrencePattern *string
}

// IsZero reports whether the patch carries no fields at all.
func (p ContentPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.StartTime == nil &&
		p.EndTime == nil && p.Location == nil && p.IsRecurring == nil &&
		p.RecurrencePattern == nil
}

// applyTo merges the patch over base and returns the result.
func (p ContentPatch) applyTo(base model.EventContent) model.EventContent {
	merged := base
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.StartTime != nil {
		merged.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		merged.EndTime = p.EndTime.UTC()
	}
	if p.Location != nil {
		merged.Location = *p.Location
	}
	if p.IsRecurring != nil {
		merged.IsRecurring = *p.IsRecurring
	}
	if p.RecurrencePattern != nil {
		merged.RecurrencePattern = *p.RecurrencePattern
	}
	return merged
}

// validateContent checks the invariants every version must satisfy. It
// runs on creation and on the merged result of every update, so a patch
// that is valid in isolation still fails when it breaks an invariant
// against carried-over fields.
func validateContent(c model.EventContent) error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if len(c.Title) > maxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, maxTitleLen)
	}
	if c.StartTime.IsZero() || c.EndTime.IsZero() {
		return fmt.Errorf("%w: start_time and end_time are required", ErrValidation)
	}
	if !c.EndTime.After(c.StartTime) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrValidation)
	}
	if c.IsRecurring && c.RecurrencePattern == "" {
		return fmt.Errorf("%w: recurrence_pattern is required for a recurring event", ErrValidation)
	}
	if !c.IsRecurring && c.RecurrencePattern != "" {
		return fmt.Errorf("%w: recurrence_pattern must be empty for a non-recurring event", ErrValidation)
	}
	return nil
}

// normalizeContent pins all timestamps to UTC before they reach storage.
func normalizeContent(c model.EventContent) model.EventContent {
	c.StartTime = c.StartTime.UTC()
	c.EndTime = c.EndTime.UTC()
	return c
}

// contentEqual compares the user-editable fields of two versions.
// Identity and change metadata are excluded: they describe the snapshot,
// not the event.
func contentEqual(a, b model.EventContent) bool {
	return a.Title == b.Title &&
		a.Description == b.Description &&
		a.StartTime.Equal(b.StartTime) &&
		a.EndTime.Equal(b.EndTime) &&
		a.Location == b.Location &&
		a.IsRecurring == b.IsRecurring &&
		a.RecurrencePattern == b.RecurrencePattern
}
