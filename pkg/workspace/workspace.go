// Package workspace manages uniquely-named temporary staging directories
// under an explicit scratch root.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Error wraps a staging directory failure.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workspace %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Manager creates and tears down staging directories under a single root.
// Each workspace belongs to exactly one operation; the creator is responsible
// for calling Destroy on every exit path.
type Manager struct {
	root string
}

// NewManager creates the scratch root if needed and returns a Manager bound
// to it.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &Error{Op: "init", Path: root, Err: err}
	}
	return &Manager{root: root}, nil
}

// Root returns the scratch root all workspaces live under.
func (m *Manager) Root() string { return m.root }

// Create makes a fresh collision-resistant staging directory and returns its
// absolute path.
func (m *Manager) Create() (string, error) {
	path := filepath.Join(m.root, uuid.NewString())
	if err := os.Mkdir(path, 0o755); err != nil {
		return "", &Error{Op: "create", Path: path, Err: err}
	}
	return path, nil
}

// Destroy recursively removes a workspace. A workspace that is already gone
// is not an error; restore flows may have migrated its contents out.
func (m *Manager) Destroy(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return &Error{Op: "destroy", Path: path, Err: err}
	}
	return nil
}

// Clear removes every leftover workspace directory under the root, keeping
// the root itself.
func (m *Manager) Clear() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &Error{Op: "clear", Path: m.root, Err: err}
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
			return &Error{Op: "clear", Path: m.root, Err: err}
		}
	}
	return nil
}
