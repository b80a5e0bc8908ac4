// Package database defines the dump/restore contract the backup engine
// consumes, plus a Postgres implementation.
package database

import (
	"context"
	"fmt"
)

// Engine produces and consumes full database dumps. Implementations are
// backend specific and opaque to the rest of the system.
type Engine interface {
	// DumpTo writes a complete dump of the database to path.
	DumpTo(ctx context.Context, path string) error

	// RestoreFrom replaces the database contents with the dump at path.
	RestoreFrom(ctx context.Context, path string) error
}

// Error wraps a dump or restore failure.
type Error struct {
	Op  string // "dump" or "restore"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
