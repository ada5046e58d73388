// Package recurrence turns a recurring event definition and a time window
// into concrete occurrences.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"calshare/internal/model"
)

// maxOccurrences caps expansion of a single event within one window.
// A pathological or unbounded rule gets truncated, never looped on.
const maxOccurrences = 1000

// Expand materializes the occurrences of one event's content within the
// half-open UTC window [from, to). A non-recurring event yields at most
// its own interval. A recurring event yields one occurrence per rule hit
// whose start lies in the window, each carrying the original duration.
// All timestamps are normalized to UTC before comparison; naive rule
// timestamps are taken as UTC.
//
// A malformed recurrence pattern returns an error; callers are expected
// to isolate it per event rather than fail a whole listing.
func Expand(eventID string, content model.EventContent, from, to time.Time) ([]model.Occurrence, error) {
	from, to = from.UTC(), to.UTC()
	start, end := content.StartTime.UTC(), content.EndTime.UTC()

	if !content.IsRecurring || content.RecurrencePattern == "" {
		if start.Before(to) && end.After(from) {
			return []model.Occurrence{makeOccurrence(eventID, content, start, end)}, nil
		}
		return nil, nil
	}

	rule, err := parseRule(content.RecurrencePattern, start)
	if err != nil {
		return nil, err
	}

	duration := end.Sub(start)
	starts := rule.Between(from, to, true)
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
	}

	occurrences := make([]model.Occurrence, 0, len(starts))
	for _, occStart := range starts {
		occStart = occStart.UTC()
		occEnd := occStart.Add(duration)
		if occStart.Before(to) && occEnd.After(from) {
			occurrences = append(occurrences, makeOccurrence(eventID, content, occStart, occEnd))
		}
	}
	return occurrences, nil
}

// parseRule parses an RFC 5545 RRULE string anchored at the event's
// original start time.
func parseRule(pattern string, dtstart time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(strings.TrimPrefix(pattern, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parsing recurrence rule: %w", err)
	}
	opt.Dtstart = dtstart

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("building recurrence rule: %w", err)
	}
	return rule, nil
}

func makeOccurrence(eventID string, content model.EventContent, start, end time.Time) model.Occurrence {
	return model.Occurrence{
		EventID:     eventID,
		Title:       content.Title,
		Location:    content.Location,
		Start:       start,
		End:         end,
		IsRecurring: content.IsRecurring,
	}
}
