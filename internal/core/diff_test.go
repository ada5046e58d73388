package core_test

import (
	"errors"
	"testing"
	"time"

	"calshare/internal/core"
	"calshare/internal/model"
	"calshare/internal/testutil"
)

func TestEventService_DiffVersions(t *testing.T) {
	setup := func(t *testing.T) (*testutil.Fixture, *model.EventDetail) {
		t.Helper()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		detail, err := fx.Service.CreateEvent(testutil.Content(), "alice")
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		return fx, detail
	}

	t.Run("reports changed fields with old and new values", func(t *testing.T) {
		t.Parallel()
		fx, detail := setup(t)

		title := "Replanned sync"
		newStart := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)
		newEnd := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
		updated, err := fx.Service.UpdateEvent(detail.Event.ID, core.ContentPatch{
			Title:     &title,
			StartTime: &newStart,
			EndTime:   &newEnd,
		}, "alice")
		if err != nil {
			t.Fatalf("UpdateEvent() error = %v", err)
		}

		changes, err := fx.Service.DiffVersions(detail.Event.ID, detail.Current.ID, updated.Current.ID, "alice")
		if err != nil {
			t.Fatalf("DiffVersions() error = %v", err)
		}

		if len(changes) != 3 {
			t.Fatalf("changes = %v, want 3 entries", changes)
		}
		tc, ok := changes["title"]
		if !ok {
			t.Fatal("title change missing")
		}
		if tc.Old != "Team sync" || tc.New != "Replanned sync" {
			t.Errorf("title change = %+v", tc)
		}
		if _, ok := changes["start_time"]; !ok {
			t.Error("start_time change missing")
		}
		if _, ok := changes["end_time"]; !ok {
			t.Error("end_time change missing")
		}
		if _, ok := changes["location"]; ok {
			t.Error("unchanged location must not appear")
		}
	})

	t.Run("identical content diffs empty", func(t *testing.T) {
		t.Parallel()
		fx, detail := setup(t)

		// v2 renames, v3 rolls back to v1's content
		title := "Temp"
		if _, err := fx.Service.UpdateEvent(detail.Event.ID, core.ContentPatch{Title: &title}, "alice"); err != nil {
			t.Fatalf("UpdateEvent() error = %v", err)
		}
		rolled, err := fx.Service.RollbackEvent(detail.Event.ID, detail.Current.ID, "alice")
		if err != nil {
			t.Fatalf("RollbackEvent() error = %v", err)
		}

		changes, err := fx.Service.DiffVersions(detail.Event.ID, detail.Current.ID, rolled.Current.ID, "alice")
		if err != nil {
			t.Fatalf("DiffVersions() error = %v", err)
		}
		if len(changes) != 0 {
			t.Errorf("changes = %v, want none", changes)
		}
	})

	t.Run("self diff is invalid", func(t *testing.T) {
		t.Parallel()
		fx, detail := setup(t)

		_, err := fx.Service.DiffVersions(detail.Event.ID, detail.Current.ID, detail.Current.ID, "alice")
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("DiffVersions() error = %v, want ErrValidation", err)
		}
	})

	t.Run("missing version is not found", func(t *testing.T) {
		t.Parallel()
		fx, detail := setup(t)

		_, err := fx.Service.DiffVersions(detail.Event.ID, detail.Current.ID, "no-such-version", "alice")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("DiffVersions() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		t.Parallel()
		fx, detail := setup(t)
		testutil.SeedUser(t, fx.Store, "mallory")

		_, err := fx.Service.DiffVersions(detail.Event.ID, detail.Current.ID, "other", "mallory")
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("DiffVersions() error = %v, want ErrForbidden", err)
		}
	})
}
