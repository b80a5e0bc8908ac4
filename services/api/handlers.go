package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tremby/craft-remote-core/services/backup"
)

func (a *API) handlePushDatabase(w http.ResponseWriter, r *http.Request) {
	filename, err := a.orch.PushDatabase(r.Context())
	if err != nil {
		a.logger.Printf("ERROR push database: %v", err)
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"filename": filename})
}

func (a *API) handlePushVolumes(w http.ResponseWriter, r *http.Request) {
	filename, err := a.orch.PushVolumes(r.Context())
	if err != nil {
		a.logger.Printf("ERROR push volumes: %v", err)
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"filename": filename})
}

type restoreRequest struct {
	Filename string `json:"filename"`
}

func (a *API) handlePullDatabase(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil || req.Filename == "" {
		respondError(w, http.StatusBadRequest, errors.New("filename is required"))
		return
	}
	if err := a.orch.PullDatabase(r.Context(), req.Filename); err != nil {
		a.logger.Printf("ERROR restore database %s: %v", req.Filename, err)
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"restored": req.Filename})
}

func (a *API) handlePullVolume(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil || req.Filename == "" {
		respondError(w, http.StatusBadRequest, errors.New("filename is required"))
		return
	}
	if err := a.orch.PullVolume(r.Context(), req.Filename); err != nil {
		a.logger.Printf("ERROR restore volumes %s: %v", req.Filename, err)
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"restored": req.Filename})
}

func (a *API) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	items, err := a.orch.ListDatabases(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"backups": items})
}

func (a *API) handleListVolumes(w http.ResponseWriter, r *http.Request) {
	items, err := a.orch.ListVolumes(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"backups": items})
}

func (a *API) handleDeleteDatabase(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := a.orch.DeleteDatabase(r.Context(), filename); err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": filename})
}

func (a *API) handleDeleteVolume(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := a.orch.DeleteVolume(r.Context(), filename); err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": filename})
}

type pruneRequest struct {
	Kind string `json:"kind"`
	Keep int    `json:"keep"`
}

func (a *API) handlePrune(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var kind backup.Kind
	switch req.Kind {
	case "database":
		kind = backup.KindDatabase
	case "volumes":
		kind = backup.KindVolumes
	default:
		respondError(w, http.StatusBadRequest, errors.New("kind must be database or volumes"))
		return
	}

	deleted, err := a.orch.Prune(r.Context(), kind, req.Keep)
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
