// Package archive packs a directory tree into a single zip artifact and
// unpacks such an artifact back into a directory tree. It knows nothing about
// volumes, databases, or remote storage.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Error wraps a packing or unpacking failure with the operation and the
// archive path involved.
type Error struct {
	Op   string // "pack" or "unpack"
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Pack archives every file and directory under sourceDir into destPath,
// preserving relative paths. An existing archive at destPath is deleted first
// so stale entries are never merged into the new artifact. Directory entries
// are written explicitly so empty directories survive a round trip.
func Pack(sourceDir, destPath string) error {
	if err := pack(sourceDir, destPath); err != nil {
		return &Error{Op: "pack", Path: destPath, Err: err}
	}
	return nil
}

func pack(sourceDir, destPath string) error {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("stat source dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %q is not a directory", sourceDir)
	}

	if err := os.Remove(destPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale archive: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	err = filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %q: %w", path, err)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, err := zw.Create(rel + "/"); err != nil {
				return fmt.Errorf("write directory entry %q: %w", rel, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		w, err := zw.Create(rel)
		if err != nil {
			return fmt.Errorf("write header for %q: %w", rel, err)
		}
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %q: %w", rel, err)
		}
		_, err = io.Copy(w, file)
		file.Close()
		if err != nil {
			return fmt.Errorf("copy %q: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalise archive: %w", err)
	}
	return out.Close()
}

// Unpack extracts the archive at archivePath into destDir, recreating the
// original relative-path tree. destDir is expected to be empty or absent; it
// is created if missing. Entries that would escape destDir are rejected.
func Unpack(archivePath, destDir string) error {
	if err := unpack(archivePath, destDir); err != nil {
		return &Error{Op: "unpack", Path: archivePath, Err: err}
	}
	return nil
}

func unpack(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	root := filepath.Clean(destDir)
	for _, entry := range zr.File {
		name := filepath.FromSlash(entry.Name)
		target := filepath.Join(root, name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes destination", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("mkdir %q: %w", entry.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("mkdir parent of %q: %w", entry.Name, err)
		}
		if err := extractFile(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %q: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %q: %w", entry.Name, err)
	}
	return out.Close()
}
