package core

import (
	"fmt"
	"sort"
	"time"

	"calshare/internal/model"
	"calshare/internal/recurrence"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 200
)

// ListOptions controls pagination and the optional occurrence window for
// event listing. From/To form a half-open UTC window [From, To); both
// must be set together.
type ListOptions struct {
	Limit  int
	Offset int
	From   *time.Time
	To     *time.Time
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListEvents returns occurrences of every event the caller holds any
// permission on, plus the total count before pagination.
//
// Without a window each event contributes exactly one entry carrying its
// current version's interval, ordered by start time, paginated in the
// store. With a window, recurring events are expanded into concrete
// occurrences; since one event can yield many occurrences, sorting and
// pagination happen in memory after expansion.
func (s *EventService) ListEvents(callerID string, opts ListOptions) ([]model.Occurrence, int, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	if opts.From == nil || opts.To == nil {
		if opts.From != nil || opts.To != nil {
			return nil, 0, fmt.Errorf("%w: a time window requires both from and to", ErrValidation)
		}
		return s.listPlain(callerID, limit, offset)
	}

	from, to := opts.From.UTC(), opts.To.UTC()
	if !to.After(from) {
		return nil, 0, fmt.Errorf("%w: window end must be after window start", ErrValidation)
	}
	return s.listWindowed(callerID, from, to, limit, offset)
}

func (s *EventService) listPlain(callerID string, limit, offset int) ([]model.Occurrence, int, error) {
	entries, total, err := s.store.ListEventsForUser(callerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing events: %w", err)
	}

	occurrences := make([]model.Occurrence, len(entries))
	for i, entry := range entries {
		occurrences[i] = model.Occurrence{
			EventID:     entry.EventID,
			Title:       entry.Title,
			Location:    entry.Location,
			Start:       entry.StartTime,
			End:         entry.EndTime,
			IsRecurring: entry.IsRecurring,
		}
	}
	return occurrences, total, nil
}

func (s *EventService) listWindowed(callerID string, from, to time.Time, limit, offset int) ([]model.Occurrence, int, error) {
	candidates, err := s.store.ListCandidateEvents(callerID, from, to)
	if err != nil {
		return nil, 0, fmt.Errorf("listing candidate events: %w", err)
	}

	var all []model.Occurrence
	for _, entry := range candidates {
		occurrences, err := recurrence.Expand(entry.EventID, entry.EventContent, from, to)
		if err != nil {
			// One malformed recurrence rule must not abort the
			// whole listing: skip the event and keep going.
			s.logger.Warn("skipping event with unexpandable recurrence",
				"event_id", entry.EventID, "error", err)
			continue
		}
		all = append(all, occurrences...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}
