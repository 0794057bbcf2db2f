// Package gateway implements C7: the HTTP surface of §6 — config listing,
// run/job/progress inspection, job submission, and static artifact
// serving — routed with gorilla/mux the way the pack's mock SLURM server
// routes its REST surface.
package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"simbench/pkg/apierr"
	"simbench/pkg/models"
)

// RunStore is the subset of runstore.Store the gateway needs.
type RunStore interface {
	Root() string
	Open(runID string) (string, error)
	ReadFile(runID, relPath string) ([]byte, error)
	List(kinds ...models.RunKind) ([]models.RunListEntry, error)
}

// Journal is the subset of progress.Journal the gateway needs.
type Journal interface {
	Snapshot(runID string) (models.ProgressRecord, error)
	Subscribe(runID string) (<-chan models.ProgressRecord, func())
}

// Scheduler is the subset of scheduler.Scheduler the gateway needs.
type Scheduler interface {
	SubmitSim(req models.SimJobRequest) (models.JobSubmission, error)
	SubmitRis(req models.RisJobRequest) (models.JobSubmission, error)
	Jobs(kind models.RunKind) []models.Job
}

// Gateway is the concrete JobGateway (§4.7).
type Gateway struct {
	store     RunStore
	journal   Journal
	scheduler Scheduler
	configDir string
	upgrader  Upgrader
}

// Upgrader abstracts the optional websocket upgrade hook (§4.2's live
// broadcast supplement) so handler code depends only on this interface;
// GorillaUpgrader (websocket.go) is the gorilla/websocket implementation,
// and a nil Upgrader disables the endpoint.
type Upgrader interface {
	Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error)
}

// Conn is the minimal websocket connection surface the gateway writes to.
type Conn interface {
	WriteJSON(v any) error
	Close() error
	ReadMessage() (messageType int, p []byte, err error)
}

// New constructs a Gateway. configDir is where named starter configs
// (GET /api/configs) are read from; upgrader may be nil to disable the
// live progress websocket endpoint.
func New(store RunStore, journal Journal, scheduler Scheduler, configDir string, upgrader Upgrader) *Gateway {
	return &Gateway{store: store, journal: journal, scheduler: scheduler, configDir: configDir, upgrader: upgrader}
}

// Router builds the full mux.Router for §6's endpoint set.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/configs", g.handleConfigs).Methods(http.MethodGet)
	r.HandleFunc("/api/runs", g.handleRunsList).Methods(http.MethodGet)
	r.HandleFunc("/api/run/{run_id}", g.handleRunDetail).Methods(http.MethodGet)
	r.HandleFunc("/api/progress/{run_id}", g.handleProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/progress/{run_id}/ws", g.handleProgressWS).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", g.handleJobsList).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", g.handleJobsSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/ris/jobs", g.handleRisJobsList).Methods(http.MethodGet)
	r.HandleFunc("/api/ris/jobs", g.handleRisJobsSubmit).Methods(http.MethodPost)
	r.PathPrefix("/runs/{run_id}/").HandlerFunc(g.handleRunFile)
	return r
}

func (g *Gateway) handleConfigs(w http.ResponseWriter, r *http.Request) {
	var configs []models.NamedConfig
	if g.configDir != "" {
		entries, err := os.ReadDir(g.configDir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml") {
					continue
				}
				path := filepath.Join(g.configDir, e.Name())
				configs = append(configs, models.NamedConfig{
					Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
					Path: path,
				})
			}
		}
	}
	writeJSON(w, http.StatusOK, models.ConfigsResponse{Configs: configs})
}

func (g *Gateway) handleRunsList(w http.ResponseWriter, r *http.Request) {
	var kinds []models.RunKind
	if k := r.URL.Query().Get("kind"); k != "" {
		kinds = append(kinds, models.RunKind(k))
	}
	runs, err := g.store.List(kinds...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.RunsResponse{Runs: runs})
}

func (g *Gateway) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	if _, err := g.store.Open(runID); err != nil {
		writeError(w, err)
		return
	}

	resp := models.RunDetailResponse{}

	if data, err := g.store.ReadFile(runID, "config.json"); err == nil {
		var cfg any
		if json.Unmarshal(data, &cfg) == nil {
			resp.Config = cfg
		}
	}
	if data, err := g.store.ReadFile(runID, "summary.json"); err == nil {
		var summary models.RunSummary
		if json.Unmarshal(data, &summary) == nil {
			resp.Summary = &summary
		}
	}
	if rec, err := g.journal.Snapshot(runID); err == nil {
		resp.Progress = &rec
	}

	writeJSON(w, http.StatusOK, resp)
}

func (g *Gateway) handleProgress(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	rec, err := g.journal.Snapshot(runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleProgressWS streams ProgressRecord updates as they happen, the live
// complement to the polling GET /api/progress/{run_id} endpoint (§4.2, §9).
// It is a no-op 501 when no Upgrader was wired in.
func (g *Gateway) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	if g.upgrader == nil {
		http.Error(w, "live progress streaming not enabled", http.StatusNotImplemented)
		return
	}
	runID := mux.Vars(r)["run_id"]

	conn, err := g.upgrader.Upgrade(w, r)
	if err != nil {
		log.Printf("gateway: websocket upgrade failed for run %s: %v", runID, err)
		return
	}
	defer conn.Close()

	if rec, err := g.journal.Snapshot(runID); err == nil {
		if err := conn.WriteJSON(rec); err != nil {
			return
		}
	}

	ch, unsub := g.journal.Subscribe(runID)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case rec, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
			if rec.Status.Terminal() {
				return
			}
		case <-done:
			return
		}
	}
}

func (g *Gateway) handleJobsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.JobsResponse{Jobs: g.scheduler.Jobs(models.KindSim)})
}

func (g *Gateway) handleJobsSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SimJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &apierr.InvalidConfig{Reason: err.Error()})
		return
	}
	sub, err := g.scheduler.SubmitSim(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sub)
}

func (g *Gateway) handleRisJobsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.JobsResponse{Jobs: g.scheduler.Jobs(models.KindRis)})
}

func (g *Gateway) handleRisJobsSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.RisJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &apierr.InvalidConfig{Reason: err.Error()})
		return
	}
	sub, err := g.scheduler.SubmitRis(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sub)
}

// handleRunFile serves files from a run's directory (§6 GET
// /runs/{run_id}/{rel_path}), rejecting any path that escapes the run
// directory after cleaning (traversal via "../" or an absolute path).
func (g *Gateway) handleRunFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["run_id"]

	runDir, err := g.store.Open(runID)
	if err != nil {
		writeError(w, err)
		return
	}

	prefix := "/runs/" + runID + "/"
	relPath := strings.TrimPrefix(r.URL.Path, prefix)
	cleaned := filepath.Clean("/" + relPath) // anchor, then strip the leading "/"
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || strings.HasPrefix(cleaned, "..") {
		writeError(w, &apierr.NotFound{What: relPath})
		return
	}

	fullPath := filepath.Join(runDir, cleaned)
	resolvedDir, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		writeError(w, &apierr.NotFound{What: relPath})
		return
	}
	resolvedFile, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		writeError(w, &apierr.NotFound{What: relPath})
		return
	}
	if !strings.HasPrefix(resolvedFile, resolvedDir+string(filepath.Separator)) && resolvedFile != resolvedDir {
		writeError(w, &apierr.NotFound{What: relPath})
		return
	}

	http.ServeFile(w, r, resolvedFile)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a pkg/apierr category to its HTTP status (§7).
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, new(*apierr.NotFound)):
		status = http.StatusNotFound
	case errors.As(err, new(*apierr.InvalidConfig)), errors.As(err, new(*apierr.InvalidGrid)):
		status = http.StatusBadRequest
	case errors.As(err, new(*apierr.Collision)):
		status = http.StatusConflict
	case errors.As(err, new(*apierr.BackendUnavailable)):
		status = http.StatusUnprocessableEntity
	case errors.As(err, new(*apierr.WorkerCrash)), errors.As(err, new(*apierr.IoError)):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
