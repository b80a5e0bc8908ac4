package database

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 10 * time.Second

// Postgres dumps and restores a PostgreSQL database. Connectivity and
// credentials are validated eagerly through a pgx pool; the dump itself is
// produced by pg_dump and replayed with psql, since those own the dump format.
type Postgres struct {
	dsn           string
	serverVersion string
	dumpBin       string
	restoreBin    string
}

// NewPostgres validates the DSN by connecting and probing the server version,
// then returns an engine bound to it.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("database dsn is required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// Simple protocol keeps the probe compatible with connection poolers.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	var version string
	if err := pgxscan.Get(ctx, pool, &version, "SELECT version()"); err != nil {
		return nil, fmt.Errorf("probe server version: %w", err)
	}

	return &Postgres{
		dsn:           dsn,
		serverVersion: version,
		dumpBin:       "pg_dump",
		restoreBin:    "psql",
	}, nil
}

// ServerVersion returns the version string reported by the server at
// construction time.
func (p *Postgres) ServerVersion() string { return p.serverVersion }

// DumpTo writes a plain-format dump of the database to path.
func (p *Postgres) DumpTo(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.dumpBin,
		"--format=plain",
		"--no-owner",
		"--no-privileges",
		"--file", path,
		"--dbname", p.dsn,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &Error{Op: "dump", Err: fmt.Errorf("%s: %s", err, firstLine(out))}
	}
	return nil
}

// RestoreFrom replays the dump at path against the database in a single
// transaction.
func (p *Postgres) RestoreFrom(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, p.restoreBin,
		"--single-transaction",
		"--set", "ON_ERROR_STOP=on",
		"--file", path,
		"--dbname", p.dsn,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &Error{Op: "restore", Err: fmt.Errorf("%s: %s", err, firstLine(out))}
	}
	return nil
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

var _ Engine = (*Postgres)(nil)
