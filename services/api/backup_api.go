// Package api exposes the backup engine over HTTP so backups and restores
// can be triggered and inspected remotely.
package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tremby/craft-remote-core/services/backup"
)

// API wires the orchestrator and logger behind the HTTP handlers.
type API struct {
	orch   *backup.Orchestrator
	logger *log.Logger
}

// New initialises the API layer.
func New(orch *backup.Orchestrator, logger *log.Logger) (*API, error) {
	if orch == nil {
		return nil, errors.New("orchestrator is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &API{orch: orch, logger: logger}, nil
}

// Routes constructs the chi router containing all API endpoints. Restore and
// push operations can block for as long as the underlying transfer does, so
// no request timeout is applied to them.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Timeout(10 * time.Second)).Get("/backups/database", a.handleListDatabases)
		r.With(middleware.Timeout(10 * time.Second)).Get("/backups/volumes", a.handleListVolumes)

		r.Post("/backups/database", a.handlePushDatabase)
		r.Post("/backups/volumes", a.handlePushVolumes)
		r.Post("/restore/database", a.handlePullDatabase)
		r.Post("/restore/volumes", a.handlePullVolume)
		r.Post("/prune", a.handlePrune)

		r.Delete("/backups/database/{filename}", a.handleDeleteDatabase)
		r.Delete("/backups/volumes/{filename}", a.handleDeleteVolume)
	})

	return r, nil
}
