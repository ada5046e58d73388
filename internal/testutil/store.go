// Package testutil provides shared test fixtures: an in-memory store,
// deterministic clock and ID generation, and seeded users/events.
package testutil

import (
	"testing"
	"time"

	"calshare/internal/core"
	"calshare/internal/database"
	"calshare/internal/model"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) core.Store {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	store := database.NewSQLiteStoreFromDB(sqlDB)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// SeedUser inserts a user with deterministic fields derived from the id.
func SeedUser(t *testing.T, store core.Store, id string) *model.User {
	t.Helper()

	user := &model.User{
		ID:             id,
		Username:       id,
		Email:          id + "@example.com",
		HashedPassword: "x",
		IsActive:       true,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
	return user
}

// Content returns a valid event content for tests: a one-hour meeting on
// 2024-02-01 starting at 14:00 UTC.
func Content() model.EventContent {
	return model.EventContent{
		Title:     "Team sync",
		StartTime: time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC),
		Location:  "Room 4",
	}
}
