package volume

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a volume backed by a local directory tree.
type Dir struct {
	handle string
	root   string
}

// NewDir returns a directory-backed volume with the given handle.
func NewDir(handle, root string) (*Dir, error) {
	if handle == "" {
		return nil, fmt.Errorf("volume handle is required")
	}
	if root == "" {
		return nil, fmt.Errorf("volume %s: root directory is required", handle)
	}
	return &Dir{handle: handle, root: root}, nil
}

// Handle returns the volume's identifier.
func (d *Dir) Handle() string { return d.handle }

// List enumerates the volume's files and directories recursively.
func (d *Dir) List(_ context.Context) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(d.root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if !de.IsDir() && !de.Type().IsRegular() {
			return nil
		}
		entries = append(entries, Entry{Path: filepath.ToSlash(rel), IsDir: de.IsDir()})
		return nil
	})
	if err != nil {
		return nil, &Error{Handle: d.handle, Op: "list", Err: err}
	}
	return entries, nil
}

// Read opens the file at relPath.
func (d *Dir) Read(_ context.Context, relPath string) (io.ReadCloser, error) {
	path, err := d.resolve(relPath)
	if err != nil {
		return nil, &Error{Handle: d.handle, Op: "read", Path: relPath, Err: err}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Handle: d.handle, Op: "read", Path: relPath, Err: err}
	}
	return file, nil
}

// Write stores the reader's content at relPath, creating parent directories
// as needed.
func (d *Dir) Write(_ context.Context, relPath string, r io.Reader) error {
	path, err := d.resolve(relPath)
	if err != nil {
		return &Error{Handle: d.handle, Op: "write", Path: relPath, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Error{Handle: d.handle, Op: "write", Path: relPath, Err: err}
	}
	out, err := os.Create(path)
	if err != nil {
		return &Error{Handle: d.handle, Op: "write", Path: relPath, Err: err}
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return &Error{Handle: d.handle, Op: "write", Path: relPath, Err: err}
	}
	if err := out.Close(); err != nil {
		return &Error{Handle: d.handle, Op: "write", Path: relPath, Err: err}
	}
	return nil
}

func (d *Dir) resolve(relPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("path %q escapes volume root", relPath)
	}
	return filepath.Join(d.root, clean), nil
}

var _ Backend = (*Dir)(nil)
