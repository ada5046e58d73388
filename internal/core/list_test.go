package core_test

import (
	"errors"
	"testing"
	"time"

	"calshare/internal/core"
	"calshare/internal/model"
	"calshare/internal/testutil"
)

func window(from, to time.Time) core.ListOptions {
	return core.ListOptions{From: &from, To: &to}
}

func TestEventService_ListEvents(t *testing.T) {
	t.Run("plain listing returns one entry per event", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		first := testutil.Content()
		second := testutil.Content()
		second.Title = "Later meeting"
		second.StartTime = second.StartTime.Add(48 * time.Hour)
		second.EndTime = second.EndTime.Add(48 * time.Hour)

		if _, err := fx.Service.CreateEvent(second, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if _, err := fx.Service.CreateEvent(first, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		occurrences, total, err := fx.Service.ListEvents("alice", core.ListOptions{})
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if total != 2 || len(occurrences) != 2 {
			t.Fatalf("got %d/%d, want 2/2", len(occurrences), total)
		}
		// ordered by start time regardless of creation order
		if occurrences[0].Title != "Team sync" || occurrences[1].Title != "Later meeting" {
			t.Errorf("order = %q, %q", occurrences[0].Title, occurrences[1].Title)
		}
	})

	t.Run("only events the caller can access appear", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "bob")

		mine, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
		if _, err := fx.Service.CreateEvent(testutil.Content(), "bob"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		occurrences, total, err := fx.Service.ListEvents("alice", core.ListOptions{})
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if total != 1 || len(occurrences) != 1 || occurrences[0].EventID != mine.Event.ID {
			t.Errorf("got %d occurrences, total %d", len(occurrences), total)
		}
	})

	t.Run("window expands weekly recurrence", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		content := model.EventContent{
			Title:             "Standup",
			StartTime:         time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			EndTime:           time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			IsRecurring:       true,
			RecurrencePattern: "FREQ=WEEKLY;BYDAY=MO,WE,FR;UNTIL=20240131T000000Z",
		}
		if _, err := fx.Service.CreateEvent(content, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		occurrences, total, err := fx.Service.ListEvents("alice", window(
			time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		))
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if total != 3 || len(occurrences) != 3 {
			t.Fatalf("got %d/%d occurrences, want 3", len(occurrences), total)
		}
		wantDays := []int{8, 10, 12}
		for i, o := range occurrences {
			want := time.Date(2024, 1, wantDays[i], 9, 0, 0, 0, time.UTC)
			if !o.Start.Equal(want) {
				t.Errorf("occurrence %d start = %v, want %v", i, o.Start, want)
			}
			if !o.End.Equal(want.Add(time.Hour)) {
				t.Errorf("occurrence %d end = %v", i, o.End)
			}
			if !o.IsRecurring {
				t.Errorf("occurrence %d not marked recurring", i)
			}
		}
	})

	t.Run("window filters non-recurring events by overlap", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		inside := testutil.Content() // Feb 1 14:00-15:00
		outside := testutil.Content()
		outside.Title = "Out of window"
		outside.StartTime = outside.StartTime.AddDate(0, 1, 0)
		outside.EndTime = outside.EndTime.AddDate(0, 1, 0)

		if _, err := fx.Service.CreateEvent(inside, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if _, err := fx.Service.CreateEvent(outside, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		occurrences, total, err := fx.Service.ListEvents("alice", window(
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
		))
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if total != 1 || len(occurrences) != 1 || occurrences[0].Title != "Team sync" {
			t.Errorf("got %d/%d: %v", len(occurrences), total, occurrences)
		}
	})

	t.Run("malformed recurrence rule skips the event, not the listing", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		broken := testutil.Content()
		broken.Title = "Broken"
		broken.IsRecurring = true
		broken.RecurrencePattern = "FREQ=NEVERLY"
		if _, err := fx.Service.CreateEvent(broken, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if _, err := fx.Service.CreateEvent(testutil.Content(), "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		occurrences, total, err := fx.Service.ListEvents("alice", window(
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
		))
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if total != 1 || len(occurrences) != 1 || occurrences[0].Title != "Team sync" {
			t.Errorf("got %d/%d: %v", len(occurrences), total, occurrences)
		}
	})

	t.Run("half-open window excludes an occurrence starting at the end", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		daily := model.EventContent{
			Title:             "Daily",
			StartTime:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndTime:           time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC),
			IsRecurring:       true,
			RecurrencePattern: "FREQ=DAILY;COUNT=10",
		}
		if _, err := fx.Service.CreateEvent(daily, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		_, total, err := fx.Service.ListEvents("alice", window(
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		))
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		// Jan 1 and Jan 2; the Jan 3 00:00 occurrence starts at the
		// exclusive boundary.
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	})

	t.Run("one-sided window is invalid", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		_, _, err := fx.Service.ListEvents("alice", core.ListOptions{From: &from})
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("ListEvents() error = %v, want ErrValidation", err)
		}
	})

	t.Run("inverted window is invalid", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		_, _, err := fx.Service.ListEvents("alice", window(
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		))
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("ListEvents() error = %v, want ErrValidation", err)
		}
	})

	t.Run("windowed pagination slices expanded occurrences", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		daily := model.EventContent{
			Title:             "Daily",
			StartTime:         time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			EndTime:           time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
			IsRecurring:       true,
			RecurrencePattern: "FREQ=DAILY;COUNT=30",
		}
		if _, err := fx.Service.CreateEvent(daily, "alice"); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}

		opts := window(
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		)
		opts.Limit = 4
		opts.Offset = 8

		occurrences, total, err := fx.Service.ListEvents("alice", opts)
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if total != 10 {
			t.Errorf("total = %d, want 10", total)
		}
		if len(occurrences) != 2 {
			t.Fatalf("page = %d, want 2 (tail)", len(occurrences))
		}
		if occurrences[0].Start.Day() != 9 || occurrences[1].Start.Day() != 10 {
			t.Errorf("tail days = %d, %d", occurrences[0].Start.Day(), occurrences[1].Start.Day())
		}
	})
}
