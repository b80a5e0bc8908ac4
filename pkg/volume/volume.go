// Package volume abstracts the named file-storage containers ("volumes") a
// deployment keeps its media in, and mirrors them to and from local staging
// directories for archiving.
package volume

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry is one item in a volume listing. Path is relative to the volume root
// and slash-separated.
type Entry struct {
	Path  string
	IsDir bool
}

// Backend is the read/write surface of a single volume. Implementations wrap
// whatever file-storage service actually holds the bytes.
type Backend interface {
	// Handle returns the volume's stable identifier.
	Handle() string

	// List enumerates every entry in the volume, recursively.
	List(ctx context.Context) ([]Entry, error)

	// Read opens the file at the given relative path.
	Read(ctx context.Context, relPath string) (io.ReadCloser, error)

	// Write stores the reader's content at the given relative path,
	// replacing any existing file.
	Write(ctx context.Context, relPath string, r io.Reader) error
}

// Error wraps a volume read/write failure.
type Error struct {
	Handle string
	Op     string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("volume %s %s %s: %v", e.Handle, e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Collector mirrors the configured volumes into a staging directory and
// re-uploads a restored mirror back into them.
type Collector struct {
	volumes []Backend
}

// NewCollector returns a Collector over the given volumes. An empty set is
// valid; MirrorTo then reports that there is nothing to back up.
func NewCollector(volumes []Backend) *Collector {
	return &Collector{volumes: volumes}
}

// Handles returns the configured volume handles in order.
func (c *Collector) Handles() []string {
	handles := make([]string, 0, len(c.volumes))
	for _, v := range c.volumes {
		handles = append(handles, v.Handle())
	}
	return handles
}

// MirrorTo materialises a byte-identical local copy of every configured
// volume under dir, one subdirectory per volume handle. It returns dir, or ""
// when no volumes are configured, which callers must treat as "nothing to
// back up" rather than a failure. A single file copy failure aborts the whole
// mirror.
func (c *Collector) MirrorTo(ctx context.Context, dir string) (string, error) {
	if len(c.volumes) == 0 {
		return "", nil
	}

	for _, vol := range c.volumes {
		if err := c.mirrorVolume(ctx, vol, filepath.Join(dir, vol.Handle())); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (c *Collector) mirrorVolume(ctx context.Context, vol Backend, dest string) error {
	wrap := func(op, path string, err error) error {
		return &Error{Handle: vol.Handle(), Op: op, Path: path, Err: err}
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return wrap("mirror", dest, err)
	}

	entries, err := vol.List(ctx)
	if err != nil {
		return wrap("list", "", err)
	}

	for _, entry := range entries {
		target := filepath.Join(dest, filepath.FromSlash(entry.Path))
		if entry.IsDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return wrap("mirror", entry.Path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return wrap("mirror", entry.Path, err)
		}
		if err := copyFromVolume(ctx, vol, entry.Path, target); err != nil {
			return wrap("mirror", entry.Path, err)
		}
	}
	return nil
}

func copyFromVolume(ctx context.Context, vol Backend, relPath, target string) error {
	rc, err := vol.Read(ctx, relPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// RestoreFrom walks dir and uploads each file under a top-level subdirectory
// whose name matches a configured volume handle. Subdirectories matching no
// configured volume are skipped silently, so artifacts containing volumes no
// longer configured on the restoring system remain usable. A single upload
// failure aborts the restore; files already written stay written.
func (c *Collector) RestoreFrom(ctx context.Context, dir string) error {
	byHandle := make(map[string]Backend, len(c.volumes))
	for _, vol := range c.volumes {
		byHandle[vol.Handle()] = vol
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &Error{Op: "restore", Path: dir, Err: err}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		vol, ok := byHandle[entry.Name()]
		if !ok {
			continue
		}
		if err := c.restoreVolume(ctx, vol, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) restoreVolume(ctx context.Context, vol Backend, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &Error{Handle: vol.Handle(), Op: "restore", Path: path, Err: err}
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return &Error{Handle: vol.Handle(), Op: "restore", Path: path, Err: err}
		}
		rel = filepath.ToSlash(rel)

		file, err := os.Open(path)
		if err != nil {
			return &Error{Handle: vol.Handle(), Op: "restore", Path: rel, Err: err}
		}
		defer file.Close()

		if err := vol.Write(ctx, rel, file); err != nil {
			return &Error{Handle: vol.Handle(), Op: "restore", Path: rel, Err: err}
		}
		return nil
	})
}
