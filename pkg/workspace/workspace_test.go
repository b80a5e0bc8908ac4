package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateUniquePaths(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		path, err := m.Create()
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[path] {
			t.Fatalf("duplicate workspace path %q", path)
		}
		seen[path] = true

		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			t.Fatalf("workspace %q not created as directory: %v", path, err)
		}
	}
}

func TestDestroyRemovesContents(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	path, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := m.Destroy(path); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("workspace still present after Destroy: %v", err)
	}
}

func TestDestroyMissingIsNoop(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := m.Destroy(filepath.Join(m.Root(), "never-created")); err != nil {
		t.Errorf("Destroy of missing workspace returned error: %v", err)
	}
}

func TestClearSweepsRoot(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.Create(); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	entries, err := os.ReadDir(m.Root())
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty root after Clear, found %d entries", len(entries))
	}
}
