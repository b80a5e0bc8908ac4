// Package backup sequences database and volume backups: staging, packaging,
// transfer to remote storage, and the reverse restore path.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tremby/craft-remote-core/pkg/archive"
	"github.com/tremby/craft-remote-core/pkg/config"
	"github.com/tremby/craft-remote-core/pkg/database"
	"github.com/tremby/craft-remote-core/pkg/queue"
	"github.com/tremby/craft-remote-core/pkg/transport"
	"github.com/tremby/craft-remote-core/pkg/volume"
	"github.com/tremby/craft-remote-core/pkg/workspace"
)

// Kind distinguishes the two artifact families.
type Kind string

const (
	KindDatabase Kind = "database"
	KindVolumes  Kind = "volumes"
)

// Ext returns the artifact file extension for the kind.
func (k Kind) Ext() string {
	if k == KindDatabase {
		return ".sql"
	}
	return ".zip"
}

// emergencyName is the fixed filename of the local safety copy taken before
// a destructive restore.
const emergencyName = "emergency-backup"

// Item is one remote artifact in a listing: the bare filename plus a
// display label recovered from the naming scheme.
type Item struct {
	Filename string `json:"filename"`
	Label    string `json:"label"`
}

// Options wires an Orchestrator's collaborators. Transport, Volumes and
// Workspaces are required; Database may be nil when only volume operations
// are used; Queue defaults to a no-op.
type Options struct {
	Config     config.Config
	Transport  transport.Transport
	Database   database.Engine
	Volumes    *volume.Collector
	Workspaces *workspace.Manager
	Queue      queue.Queue
	Logger     *log.Logger
	Registry   prometheus.Registerer
	Now        func() time.Time
}

// Orchestrator runs the backup and restore pipelines. It assumes at most one
// operation in flight at a time against a given staging directory and remote
// namespace; it holds no locks of its own.
type Orchestrator struct {
	cfg        config.Config
	transport  transport.Transport
	db         database.Engine
	volumes    *volume.Collector
	workspaces *workspace.Manager
	queue      queue.Queue
	logger     *log.Logger
	metrics    *metrics
	now        func() time.Time
}

// New validates the options and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if opts.Volumes == nil {
		return nil, errors.New("volume collector is required")
	}
	if opts.Workspaces == nil {
		return nil, errors.New("workspace manager is required")
	}
	if opts.Queue == nil {
		opts.Queue = queue.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		cfg:        opts.Config,
		transport:  opts.Transport,
		db:         opts.Database,
		volumes:    opts.Volumes,
		workspaces: opts.Workspaces,
		queue:      opts.Queue,
		logger:     opts.Logger,
		metrics:    newMetrics(opts.Registry),
		now:        opts.Now,
	}, nil
}

// CheckTransport verifies the remote backend is configured and its
// credentials work.
func (o *Orchestrator) CheckTransport(ctx context.Context) error {
	if !o.transport.IsConfigured() {
		return errors.New("remote storage backend is not configured")
	}
	ok, err := o.transport.IsAuthenticated(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("remote storage backend rejected the credentials")
	}
	return nil
}

// PushDatabase dumps the database to a freshly named local artifact, pushes
// it to remote storage, and returns the artifact filename. The local copy is
// deleted after a successful push unless keep-local is set, and always
// deleted when any step fails.
func (o *Orchestrator) PushDatabase(ctx context.Context) (filename string, err error) {
	start := o.now()
	defer func() { o.metrics.observe("push_database", start, err) }()

	if o.db == nil {
		return "", errors.New("no database engine configured")
	}

	name, err := newName(o.cfg.SystemName, o.cfg.Environment, o.cfg.Version, o.now())
	if err != nil {
		return "", err
	}
	dir, err := o.ensureArtifactDir()
	if err != nil {
		return "", err
	}

	local := filepath.Join(dir, name.String()+KindDatabase.Ext())
	o.logger.Printf("INFO dumping database to %s", local)
	if err := o.db.DumpTo(ctx, local); err != nil {
		os.Remove(local)
		return "", err
	}

	if err := o.pushAndSettle(ctx, local); err != nil {
		return "", err
	}
	return name.String(), nil
}

// PushVolumes mirrors every configured volume into a staging workspace,
// packs the mirror into a zip artifact, pushes it, and returns the artifact
// filename. With zero volumes configured an empty archive is still produced
// and pushed, so the operation always yields a filename.
func (o *Orchestrator) PushVolumes(ctx context.Context) (filename string, err error) {
	start := o.now()
	defer func() { o.metrics.observe("push_volumes", start, err) }()

	name, err := newName(o.cfg.SystemName, o.cfg.Environment, o.cfg.Version, o.now())
	if err != nil {
		return "", err
	}
	dir, err := o.ensureArtifactDir()
	if err != nil {
		return "", err
	}

	ws, err := o.workspaces.Create()
	if err != nil {
		return "", err
	}
	defer o.workspaces.Destroy(ws)

	mirrored, err := o.volumes.MirrorTo(ctx, ws)
	if err != nil {
		return "", err
	}
	if mirrored == "" {
		o.logger.Printf("INFO no volumes configured, packing empty archive")
	}

	local := filepath.Join(dir, name.String()+KindVolumes.Ext())
	packErr := archive.Pack(ws, local)
	// The workspace is gone before the upload starts, whatever pack did.
	if derr := o.workspaces.Destroy(ws); derr != nil && packErr == nil {
		packErr = derr
	}
	if packErr != nil {
		os.Remove(local)
		return "", packErr
	}

	if err := o.pushAndSettle(ctx, local); err != nil {
		return "", err
	}
	return name.String(), nil
}

// pushAndSettle uploads a staged artifact and applies the keep-local policy.
// On upload failure the staged file is deleted before the error propagates;
// nothing already on the remote is ever touched.
func (o *Orchestrator) pushAndSettle(ctx context.Context, local string) error {
	o.logger.Printf("INFO pushing %s", filepath.Base(local))
	if err := o.transport.Push(ctx, local); err != nil {
		os.Remove(local)
		return err
	}
	if !o.cfg.KeepLocal {
		if err := os.Remove(local); err != nil {
			return fmt.Errorf("remove staged artifact: %w", err)
		}
	}
	return nil
}

// PullDatabase downloads the named database artifact and restores it. When
// keep-emergency-backup is set a local safety dump is taken first; if that
// fails the pull is aborted before any remote transfer. The pulled dump file
// is always deleted, on success and on failure.
func (o *Orchestrator) PullDatabase(ctx context.Context, filename string) (err error) {
	start := o.now()
	defer func() { o.metrics.observe("pull_database", start, err) }()

	if o.db == nil {
		return errors.New("no database engine configured")
	}
	dir, err := o.ensureArtifactDir()
	if err != nil {
		return err
	}

	if o.cfg.KeepEmergencyBackup {
		safety := filepath.Join(dir, emergencyName+KindDatabase.Ext())
		o.logger.Printf("INFO taking emergency database backup at %s", safety)
		if err := o.db.DumpTo(ctx, safety); err != nil {
			return err
		}
	}

	local := filepath.Join(dir, filename+KindDatabase.Ext())
	defer os.Remove(local)

	if err := o.transport.Pull(ctx, filename+KindDatabase.Ext(), local); err != nil {
		return err
	}
	if err := o.db.RestoreFrom(ctx, local); err != nil {
		return err
	}

	if o.cfg.UseQueue {
		// Queued jobs reference pre-restore state and are no longer valid.
		o.logger.Printf("INFO flushing pending queue jobs")
		if err := o.queue.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PullVolume downloads the named volume artifact, unpacks it into a staging
// workspace, and re-uploads its contents to the matching volumes. When
// keep-emergency-backup is set the current volumes are packed into a local
// safety archive first; if that fails the pull is aborted before any remote
// transfer. Files already re-uploaded before a later failure stay in place:
// the restore fails forward rather than rolling back volume writes. The
// pulled archive is always deleted.
func (o *Orchestrator) PullVolume(ctx context.Context, filename string) (err error) {
	start := o.now()
	defer func() { o.metrics.observe("pull_volume", start, err) }()

	dir, err := o.ensureArtifactDir()
	if err != nil {
		return err
	}

	if o.cfg.KeepEmergencyBackup {
		if err := o.emergencyVolumeBackup(ctx, dir); err != nil {
			return err
		}
	}

	local := filepath.Join(dir, filename+KindVolumes.Ext())
	defer os.Remove(local)

	if err := o.transport.Pull(ctx, filename+KindVolumes.Ext(), local); err != nil {
		return err
	}

	ws, err := o.workspaces.Create()
	if err != nil {
		return err
	}
	defer o.workspaces.Destroy(ws)

	if err := archive.Unpack(local, ws); err != nil {
		return err
	}
	if err := o.volumes.RestoreFrom(ctx, ws); err != nil {
		return err
	}

	// Sweep any leftover staging directories from earlier runs.
	return o.workspaces.Clear()
}

func (o *Orchestrator) emergencyVolumeBackup(ctx context.Context, dir string) error {
	ws, err := o.workspaces.Create()
	if err != nil {
		return err
	}
	defer o.workspaces.Destroy(ws)

	if _, err := o.volumes.MirrorTo(ctx, ws); err != nil {
		return err
	}
	safety := filepath.Join(dir, emergencyName+KindVolumes.Ext())
	o.logger.Printf("INFO taking emergency volume backup at %s", safety)
	return archive.Pack(ws, safety)
}

// DeleteDatabase removes the named database artifact from remote storage.
// There are no local side effects.
func (o *Orchestrator) DeleteDatabase(ctx context.Context, filename string) error {
	return o.transport.Delete(ctx, filename+KindDatabase.Ext())
}

// DeleteVolume removes the named volume artifact from remote storage.
func (o *Orchestrator) DeleteVolume(ctx context.Context, filename string) error {
	return o.transport.Delete(ctx, filename+KindVolumes.Ext())
}

// ListDatabases lists remote database artifacts, newest first.
func (o *Orchestrator) ListDatabases(ctx context.Context) ([]Item, error) {
	return o.list(ctx, KindDatabase)
}

// ListVolumes lists remote volume artifacts, newest first.
func (o *Orchestrator) ListVolumes(ctx context.Context) ([]Item, error) {
	return o.list(ctx, KindVolumes)
}

func (o *Orchestrator) list(ctx context.Context, kind Kind) ([]Item, error) {
	remote, err := o.transport.List(ctx, kind.Ext())
	if err != nil {
		return nil, err
	}

	type entry struct {
		item Item
		at   time.Time
	}
	entries := make([]entry, 0, len(remote))
	for _, key := range remote {
		base := strings.TrimSuffix(key, kind.Ext())
		e := entry{item: Item{Filename: base, Label: base}}
		if name, err := ParseName(base); err == nil {
			e.item.Label = name.Label()
			e.at = name.CreatedAt
		}
		entries = append(entries, e)
	}

	// Newest first; artifacts with unparseable names sort last.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})

	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	return items, nil
}

// Prune deletes all but the keep most recent remote artifacts of the given
// kind, judged by the timestamp embedded in their filenames. Artifacts whose
// names do not parse are left untouched. It returns the deleted filenames.
func (o *Orchestrator) Prune(ctx context.Context, kind Kind, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep count must be non-negative, got %d", keep)
	}

	remote, err := o.transport.List(ctx, kind.Ext())
	if err != nil {
		return nil, err
	}

	type dated struct {
		filename string
		at       time.Time
	}
	var candidates []dated
	for _, key := range remote {
		base := strings.TrimSuffix(key, kind.Ext())
		name, err := ParseName(base)
		if err != nil {
			continue
		}
		candidates = append(candidates, dated{filename: base, at: name.CreatedAt})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].at.After(candidates[j].at)
	})

	var deleted []string
	for _, victim := range candidates[min(keep, len(candidates)):] {
		if err := o.transport.Delete(ctx, victim.filename+kind.Ext()); err != nil {
			return deleted, err
		}
		o.logger.Printf("INFO pruned %s", victim.filename)
		deleted = append(deleted, victim.filename)
	}
	return deleted, nil
}

func (o *Orchestrator) ensureArtifactDir() (string, error) {
	dir := o.cfg.ArtifactDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	return dir, nil
}
