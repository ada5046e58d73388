package vault

import (
	"testing"

	"calshare/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		v, err := NewVaultFromConfig(config.VaultConfig{Type: "memory", Name: "m"})
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, ok := v.(*MemoryVault); !ok {
			t.Errorf("vault type = %T, want *MemoryVault", v)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		t.Parallel()
		v, err := NewVaultFromConfig(config.VaultConfig{
			Type:        "filesystem",
			Name:        "fs",
			FSVaultRoot: t.TempDir(),
		})
		if err != nil {
			t.Fatalf("NewVaultFromConfig() error = %v", err)
		}
		if _, ok := v.(*FileSystemVault); !ok {
			t.Errorf("vault type = %T, want *FileSystemVault", v)
		}
	})

	t.Run("filesystem without root fails", func(t *testing.T) {
		t.Parallel()
		if _, err := NewVaultFromConfig(config.VaultConfig{Type: "filesystem"}); err == nil {
			t.Error("expected error for missing fs_vault_root")
		}
	})

	t.Run("s3 without bucket fails", func(t *testing.T) {
		t.Parallel()
		if _, err := NewVaultFromConfig(config.VaultConfig{Type: "s3"}); err == nil {
			t.Error("expected error for missing s3_bucket")
		}
	})

	t.Run("unknown type fails", func(t *testing.T) {
		t.Parallel()
		if _, err := NewVaultFromConfig(config.VaultConfig{Type: "tape"}); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
