package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFSVault(t *testing.T) *FileSystemVault {
	t.Helper()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	return v
}

func TestFileSystemVault_PutGet(t *testing.T) {
	t.Parallel()
	v := newFSVault(t)

	data := []byte(`{"event":"ev-1"}`)
	if err := v.Put("events/ev-1/a.json", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var out bytes.Buffer
	if err := v.Get("events/ev-1/a.json", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("Get() = %q, want %q", out.Bytes(), data)
	}
}

func TestFileSystemVault_SizeMismatchLeavesNothing(t *testing.T) {
	t.Parallel()
	v := newFSVault(t)

	if err := v.Put("events/ev-1/a.json", strings.NewReader("abc"), 99); err == nil {
		t.Fatal("Put() expected size mismatch error")
	}

	var out bytes.Buffer
	if err := v.Get("events/ev-1/a.json", &out); err == nil {
		t.Error("failed Put() left a readable archive behind")
	}

	// no stray temp files either
	entries, err := os.ReadDir(filepath.Join(v.root, "events", "ev-1"))
	if err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".tmp-") {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	}
}

func TestFileSystemVault_RejectsTraversal(t *testing.T) {
	t.Parallel()
	v := newFSVault(t)

	if err := v.Put("../escape.json", strings.NewReader("x"), 1); err == nil {
		t.Error("Put() accepted a path traversal key")
	}
	var out bytes.Buffer
	if err := v.Get("../../etc/passwd", &out); err == nil {
		t.Error("Get() accepted a path traversal key")
	}
}

func TestFileSystemVault_List(t *testing.T) {
	t.Parallel()
	v := newFSVault(t)

	for _, key := range []string{"events/ev-1/b.json", "events/ev-1/a.json", "events/ev-2/c.json"} {
		if err := v.Put(key, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}

	keys, err := v.List("events/ev-1/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "events/ev-1/a.json" || keys[1] != "events/ev-1/b.json" {
		t.Errorf("List() = %v", keys)
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Parallel()
	v := newFSVault(t)

	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	os.RemoveAll(v.root)
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error after root removal")
	}
}
