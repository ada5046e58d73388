package core_test

import (
	"errors"
	"testing"

	"calshare/internal/core"
	"calshare/internal/model"
	"calshare/internal/testutil"
)

func TestEventService_GrantPermission(t *testing.T) {
	setup := func(t *testing.T) (*testutil.Fixture, string) {
		t.Helper()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "bob")
		detail, err := fx.Service.CreateEvent(testutil.Content(), "alice")
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		return fx, detail.Event.ID
	}

	t.Run("owner grants viewer", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		perm, err := fx.Service.GrantPermission(eventID, "bob", model.RoleViewer, "alice")
		if err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}
		if perm.Role != model.RoleViewer {
			t.Errorf("role = %q, want viewer", perm.Role)
		}

		role, err := fx.Service.GetRole(eventID, "bob")
		if err != nil {
			t.Fatalf("GetRole() error = %v", err)
		}
		if role != model.RoleViewer {
			t.Errorf("GetRole() = %q, want viewer", role)
		}
	})

	t.Run("identical re-grant is idempotent", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		first, err := fx.Service.GrantPermission(eventID, "bob", model.RoleViewer, "alice")
		if err != nil {
			t.Fatalf("first GrantPermission() error = %v", err)
		}
		second, err := fx.Service.GrantPermission(eventID, "bob", model.RoleViewer, "alice")
		if err != nil {
			t.Fatalf("second GrantPermission() error = %v", err)
		}
		if second.ID != first.ID {
			t.Error("re-grant created a new permission row")
		}
	})

	t.Run("different role on existing grant is a conflict", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		if _, err := fx.Service.GrantPermission(eventID, "bob", model.RoleViewer, "alice"); err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}
		_, err := fx.Service.GrantPermission(eventID, "bob", model.RoleEditor, "alice")
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("GrantPermission() error = %v, want ErrConflict", err)
		}
	})

	t.Run("owner role cannot go to another user", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		_, err := fx.Service.GrantPermission(eventID, "bob", model.RoleOwner, "alice")
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("GrantPermission() error = %v, want ErrConflict", err)
		}
	})

	t.Run("unknown role is invalid", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		_, err := fx.Service.GrantPermission(eventID, "bob", model.Role("admin"), "alice")
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("GrantPermission() error = %v, want ErrValidation", err)
		}
	})

	t.Run("unknown grantee is not found", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		_, err := fx.Service.GrantPermission(eventID, "ghost", model.RoleViewer, "alice")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GrantPermission() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("viewer cannot manage sharing", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)
		testutil.SeedUser(t, fx.Store, "carol")

		if _, err := fx.Service.GrantPermission(eventID, "carol", model.RoleViewer, "alice"); err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}
		_, err := fx.Service.GrantPermission(eventID, "bob", model.RoleViewer, "carol")
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("GrantPermission() error = %v, want ErrForbidden", err)
		}
	})
}

func TestEventService_UpdatePermission(t *testing.T) {
	setup := func(t *testing.T) (*testutil.Fixture, string) {
		t.Helper()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "bob")
		detail, err := fx.Service.CreateEvent(testutil.Content(), "alice")
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		return fx, detail.Event.ID
	}

	t.Run("promotes viewer to editor", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		if _, err := fx.Service.GrantPermission(eventID, "bob", model.RoleViewer, "alice"); err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}
		perm, err := fx.Service.UpdatePermission(eventID, "bob", model.RoleEditor, "alice")
		if err != nil {
			t.Fatalf("UpdatePermission() error = %v", err)
		}
		if perm.Role != model.RoleEditor {
			t.Errorf("role = %q, want editor", perm.Role)
		}
	})

	t.Run("owner role is immutable", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		_, err := fx.Service.UpdatePermission(eventID, "alice", model.RoleEditor, "alice")
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("UpdatePermission() error = %v, want ErrConflict", err)
		}
	})

	t.Run("missing grant is not found", func(t *testing.T) {
		t.Parallel()
		fx, eventID := setup(t)

		_, err := fx.Service.UpdatePermission(eventID, "bob", model.RoleEditor, "alice")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("UpdatePermission() error = %v, want ErrNotFound", err)
		}
	})
}

func TestEventService_RevokePermission(t *testing.T) {
	t.Run("revokes an existing grant", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "bob")

		detail, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
		if _, err := fx.Service.GrantPermission(detail.Event.ID, "bob", model.RoleViewer, "alice"); err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}

		deleted, err := fx.Service.RevokePermission(detail.Event.ID, "bob", "alice")
		if err != nil {
			t.Fatalf("RevokePermission() error = %v", err)
		}
		if !deleted {
			t.Error("RevokePermission() = false, want true")
		}

		_, err = fx.Service.GetEvent(detail.Event.ID, "bob")
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("GetEvent() after revoke error = %v, want ErrForbidden", err)
		}
	})

	t.Run("revoking nothing reports false", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "bob")

		detail, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
		deleted, err := fx.Service.RevokePermission(detail.Event.ID, "bob", "alice")
		if err != nil {
			t.Fatalf("RevokePermission() error = %v", err)
		}
		if deleted {
			t.Error("RevokePermission() = true, want false")
		}
	})

	t.Run("owner row cannot be revoked", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")

		detail, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
		_, err := fx.Service.RevokePermission(detail.Event.ID, "alice", "alice")
		if !errors.Is(err, core.ErrConflict) {
			t.Errorf("RevokePermission() error = %v, want ErrConflict", err)
		}
	})
}

func TestEventService_ShareEvent(t *testing.T) {
	t.Run("grants and updates in one call", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "bob")
		testutil.SeedUser(t, fx.Store, "carol")

		detail, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
		if _, err := fx.Service.GrantPermission(detail.Event.ID, "bob", model.RoleViewer, "alice"); err != nil {
			t.Fatalf("GrantPermission() error = %v", err)
		}

		grants, err := fx.Service.ShareEvent(detail.Event.ID, []core.ShareGrant{
			{UserID: "bob", Role: model.RoleEditor},   // existing: update
			{UserID: "carol", Role: model.RoleViewer}, // new: grant
		}, "alice")
		if err != nil {
			t.Fatalf("ShareEvent() error = %v", err)
		}

		roles := make(map[string]model.Role, len(grants))
		for _, g := range grants {
			roles[g.UserID] = g.Role
		}
		if roles["alice"] != model.RoleOwner || roles["bob"] != model.RoleEditor || roles["carol"] != model.RoleViewer {
			t.Errorf("roles = %v", roles)
		}
	})

	t.Run("stranger cannot share", func(t *testing.T) {
		t.Parallel()
		fx := testutil.NewFixture(t)
		testutil.SeedUser(t, fx.Store, "alice")
		testutil.SeedUser(t, fx.Store, "mallory")

		detail, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
		_, err := fx.Service.ShareEvent(detail.Event.ID, []core.ShareGrant{
			{UserID: "mallory", Role: model.RoleOwner},
		}, "mallory")
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("ShareEvent() error = %v, want ErrForbidden", err)
		}
	})
}

func TestEventService_ListPermissions(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture(t)
	testutil.SeedUser(t, fx.Store, "alice")
	testutil.SeedUser(t, fx.Store, "bob")

	detail, _ := fx.Service.CreateEvent(testutil.Content(), "alice")
	if _, err := fx.Service.GrantPermission(detail.Event.ID, "bob", model.RoleViewer, "alice"); err != nil {
		t.Fatalf("GrantPermission() error = %v", err)
	}

	// a viewer may see the sharing list
	grants, err := fx.Service.ListPermissions(detail.Event.ID, "bob")
	if err != nil {
		t.Fatalf("ListPermissions() error = %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("grants = %d, want 2", len(grants))
	}
	for _, g := range grants {
		if g.User.Username == "" {
			t.Errorf("grant for %s misses user identity", g.UserID)
		}
	}
}
