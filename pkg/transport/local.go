package transport

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalTransport stores artifacts as plain files in a directory. It exists
// for air-gapped deployments and for exercising the full pipeline in tests
// without a remote service.
type LocalTransport struct {
	dir string
}

// NewLocalTransport returns a transport rooted at dir, creating it if needed.
func NewLocalTransport(dir string) (*LocalTransport, error) {
	if dir == "" {
		return nil, errors.New("directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Backend: "local", Op: "init", Err: err}
	}
	return &LocalTransport{dir: dir}, nil
}

func (t *LocalTransport) wrap(op, key string, err error) error {
	return &Error{Backend: "local", Op: op, Key: key, Err: err}
}

// IsConfigured reports whether a directory has been set.
func (t *LocalTransport) IsConfigured() bool {
	return t != nil && t.dir != ""
}

// IsAuthenticated verifies the directory is still present and writable.
func (t *LocalTransport) IsAuthenticated(_ context.Context) (bool, error) {
	info, err := os.Stat(t.dir)
	if err != nil || !info.IsDir() {
		return false, nil
	}
	return true, nil
}

// List returns stored file names ending with ext, sorted.
func (t *LocalTransport) List(_ context.Context, ext string) ([]string, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, t.wrap("list", "", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Push copies the file at localPath into the store under its base name.
func (t *LocalTransport) Push(_ context.Context, localPath string) error {
	name := filepath.Base(localPath)
	return t.copyFile(localPath, filepath.Join(t.dir, name), "push", name)
}

// Pull copies the stored file named remoteKey to localPath.
func (t *LocalTransport) Pull(_ context.Context, remoteKey, localPath string) error {
	return t.copyFile(filepath.Join(t.dir, remoteKey), localPath, "pull", remoteKey)
}

// Delete removes the stored file named remoteKey.
func (t *LocalTransport) Delete(_ context.Context, remoteKey string) error {
	if err := os.Remove(filepath.Join(t.dir, remoteKey)); err != nil {
		return t.wrap("delete", remoteKey, err)
	}
	return nil
}

func (t *LocalTransport) copyFile(src, dest, op, key string) error {
	in, err := os.Open(src)
	if err != nil {
		return t.wrap(op, key, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return t.wrap(op, key, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return t.wrap(op, key, err)
	}
	if err := out.Close(); err != nil {
		return t.wrap(op, key, err)
	}
	return nil
}

var _ Transport = (*LocalTransport)(nil)
