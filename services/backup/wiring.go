package backup

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tremby/craft-remote-core/pkg/config"
	"github.com/tremby/craft-remote-core/pkg/database"
	"github.com/tremby/craft-remote-core/pkg/queue"
	"github.com/tremby/craft-remote-core/pkg/transport"
	"github.com/tremby/craft-remote-core/pkg/volume"
	"github.com/tremby/craft-remote-core/pkg/workspace"
)

// FromConfig assembles an Orchestrator and its collaborators from loaded
// configuration. The database engine is only constructed when a DSN is set,
// and the NATS queue only when the use-queue flag is on.
func FromConfig(ctx context.Context, cfg config.Config, logger *log.Logger, reg prometheus.Registerer) (*Orchestrator, error) {
	var remote transport.Transport
	var err error
	switch cfg.Transport.Kind {
	case "s3":
		remote, err = transport.NewS3Transport(ctx, transport.S3Options{
			Endpoint:       cfg.Transport.S3Endpoint,
			Region:         cfg.Transport.S3Region,
			Bucket:         cfg.Transport.S3Bucket,
			Prefix:         cfg.Transport.S3Prefix,
			AccessKey:      cfg.Transport.S3AccessKey,
			SecretKey:      cfg.Transport.S3SecretKey,
			DisableTLS:     cfg.Transport.S3DisableTLS,
			ForcePathStyle: cfg.Transport.S3ForcePathStyle,
		})
	case "local":
		remote, err = transport.NewLocalTransport(cfg.Transport.LocalDir)
	default:
		err = fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("init transport: %w", err)
	}

	var engine database.Engine
	if cfg.Database.DSN != "" {
		pg, err := database.NewPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("init database engine: %w", err)
		}
		engine = pg
	}

	volumes := make([]volume.Backend, 0, len(cfg.Volumes))
	for _, vc := range cfg.Volumes {
		vol, err := volume.NewDir(vc.Handle, vc.Path)
		if err != nil {
			return nil, fmt.Errorf("init volume %s: %w", vc.Handle, err)
		}
		volumes = append(volumes, vol)
	}

	workspaces, err := workspace.NewManager(cfg.TempRoot)
	if err != nil {
		return nil, fmt.Errorf("init workspace root: %w", err)
	}

	var jobs queue.Queue = queue.Noop{}
	if cfg.UseQueue {
		nq, err := queue.NewNATS(cfg.Queue.URL, cfg.Queue.Stream)
		if err != nil {
			return nil, fmt.Errorf("init queue: %w", err)
		}
		jobs = nq
	}

	return New(Options{
		Config:     cfg,
		Transport:  remote,
		Database:   engine,
		Volumes:    volume.NewCollector(volumes),
		Workspaces: workspaces,
		Queue:      jobs,
		Logger:     logger,
		Registry:   reg,
	})
}
