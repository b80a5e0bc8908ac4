// Package transport defines the capability set a remote storage backend must
// provide to hold backup artifacts, plus concrete S3 and local-filesystem
// backends. The orchestrator only ever holds the interface, so new backends
// are additive.
package transport

import (
	"context"
	"fmt"
)

// Transport is implemented once per remote storage backend. Push, Pull and
// Delete operate on whole files; partial or resumable transfer is not part of
// the contract.
type Transport interface {
	// IsConfigured reports whether the backend has the settings it needs to
	// attempt any remote operation.
	IsConfigured() bool

	// IsAuthenticated verifies the backend's credentials against the remote
	// service.
	IsAuthenticated(ctx context.Context) (bool, error)

	// List returns the names of remote objects whose name ends with ext.
	List(ctx context.Context, ext string) ([]string, error)

	// Push uploads the file at localPath, keyed by its base name.
	Push(ctx context.Context, localPath string) error

	// Pull downloads the remote object named remoteKey to localPath.
	Pull(ctx context.Context, remoteKey, localPath string) error

	// Delete removes the remote object named remoteKey.
	Delete(ctx context.Context, remoteKey string) error
}

// Error wraps a transfer failure with the backend name, operation, and the
// remote key involved (empty for list operations).
type Error struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("transport %s %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
