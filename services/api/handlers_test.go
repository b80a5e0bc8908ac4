package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tremby/craft-remote-core/pkg/config"
	"github.com/tremby/craft-remote-core/pkg/transport"
	"github.com/tremby/craft-remote-core/pkg/volume"
	"github.com/tremby/craft-remote-core/pkg/workspace"
	"github.com/tremby/craft-remote-core/services/backup"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	remote, err := transport.NewLocalTransport(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalTransport failed: %v", err)
	}
	workspaces, err := workspace.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	orch, err := backup.New(backup.Options{
		Config: config.Config{
			SystemName:  "test",
			Environment: "ci",
			Version:     "1",
			TempRoot:    workspaces.Root(),
			StoragePath: t.TempDir(),
			Handle:      "remote-backup",
		},
		Transport:  remote,
		Volumes:    volume.NewCollector(nil),
		Workspaces: workspaces,
	})
	if err != nil {
		t.Fatalf("backup.New failed: %v", err)
	}

	a, err := New(orch, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}
	routes, err := a.Routes()
	if err != nil {
		t.Fatalf("Routes failed: %v", err)
	}

	srv := httptest.NewServer(routes)
	t.Cleanup(srv.Close)
	return srv
}

func TestPushVolumesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/backups/volumes", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var body struct {
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Filename == "" {
		t.Error("expected a filename in the response")
	}

	// The freshly pushed artifact shows up in the listing.
	listResp, err := http.Get(srv.URL + "/v1/backups/volumes")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer listResp.Body.Close()

	var listing struct {
		Backups []backup.Item `json:"backups"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Backups) != 1 || listing.Backups[0].Filename != body.Filename {
		t.Errorf("listing = %v, want the pushed artifact", listing.Backups)
	}
}

func TestRestoreRequiresFilename(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/restore/database", "application/json", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestPruneRejectsUnknownKind(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/prune", "application/json",
		jsonBody(t, map[string]any{"kind": "snapshots", "keep": 3}))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func jsonBody(t *testing.T, payload any) io.Reader {
	t.Helper()
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(json.NewEncoder(pw).Encode(payload))
	}()
	return pr
}
