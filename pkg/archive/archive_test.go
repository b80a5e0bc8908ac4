package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.png"), "alpha")
	writeFile(t, filepath.Join(src, "sub", "b.png"), "beta")
	writeFile(t, filepath.Join(src, "sub", "deep", "c.txt"), "gamma")
	if err := os.MkdirAll(filepath.Join(src, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir empty: %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	if err := Pack(src, archivePath); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "restored")
	if err := Unpack(archivePath, dest); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}

	for path, want := range map[string]string{
		"a.png":                              "alpha",
		filepath.Join("sub", "b.png"):        "beta",
		filepath.Join("sub", "deep", "c.txt"): "gamma",
	} {
		got, err := os.ReadFile(filepath.Join(dest, path))
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}

	info, err := os.Stat(filepath.Join(dest, "empty"))
	if err != nil {
		t.Fatalf("empty directory not restored: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("empty is not a directory")
	}
}

func TestPackEmptyDir(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "empty.zip")
	if err := Pack(t.TempDir(), archivePath); err != nil {
		t.Fatalf("Pack of empty dir failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out")
	if err := Unpack(archivePath, dest); err != nil {
		t.Fatalf("Unpack of empty archive failed: %v", err)
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty tree, got %d entries", len(entries))
	}
}

func TestPackReplacesExistingArchive(t *testing.T) {
	first := t.TempDir()
	writeFile(t, filepath.Join(first, "old.txt"), "old")
	second := t.TempDir()
	writeFile(t, filepath.Join(second, "new.txt"), "new")

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	if err := Pack(first, archivePath); err != nil {
		t.Fatalf("first Pack failed: %v", err)
	}
	if err := Pack(second, archivePath); err != nil {
		t.Fatalf("second Pack failed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "restored")
	if err := Unpack(archivePath, dest); err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "old.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale entry survived repack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "new.txt")); err != nil {
		t.Errorf("new entry missing: %v", err)
	}
}

func TestPackMissingSource(t *testing.T) {
	err := Pack(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out.zip"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	var archErr *Error
	if !errors.As(err, &archErr) {
		t.Fatalf("expected *archive.Error, got %T", err)
	}
	if archErr.Op != "pack" {
		t.Errorf("Op = %q, want pack", archErr.Op)
	}
}
