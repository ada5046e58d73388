package database_test

import (
	"path/filepath"
	"testing"

	"calshare/internal/config"
	"calshare/internal/database"
	"calshare/internal/testutil"
)

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("memory store is migrated and usable", func(t *testing.T) {
		t.Parallel()
		store, err := database.NewStoreFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()

		testutil.SeedUser(t, store, "alice")
		user, err := store.GetUser("alice")
		if err != nil {
			t.Fatalf("GetUser() error = %v", err)
		}
		if user == nil {
			t.Error("seeded user not found")
		}
	})

	t.Run("sqlite store persists to the data dir", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		store, err := database.NewStoreFromConfig(config.DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(dir, "data"),
		})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		defer store.Close()

		s, ok := store.(*database.SQLiteStore)
		if !ok {
			t.Fatalf("store type = %T", store)
		}
		if err := s.MigrateUp(); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}
		if err := s.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite without data_dir fails", func(t *testing.T) {
		t.Parallel()
		_, err := database.NewStoreFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			t.Error("expected error for missing data_dir")
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		t.Parallel()
		_, err := database.NewStoreFromConfig(config.DatabaseConfig{Type: "postgres"})
		if err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
