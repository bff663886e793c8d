package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"uiforge/internal/filestore"
	"uiforge/internal/oracle"
	"uiforge/internal/pipeline"
	"uiforge/internal/store"
)

// API exposes the generation pipeline over HTTP. Jobs run in the
// background; clients poll the job record or stream progress over
// the events websocket.
type API struct {
	Jobs  *store.JobStore
	Files filestore.Store
	Hub   *Hub

	// NewPipeline builds a pipeline bound to one job id.
	NewPipeline func(jobID string) *pipeline.Pipeline

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewAPI(jobs *store.JobStore, files filestore.Store, hub *Hub, newPipeline func(jobID string) *pipeline.Pipeline) *API {
	return &API{
		Jobs:        jobs,
		Files:       files,
		Hub:         hub,
		NewPipeline: newPipeline,
		cancels:     map[string]context.CancelFunc{},
	}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /v1/generate", a.handleGenerate)
	mux.HandleFunc("GET /v1/jobs/{id}", a.handleGetJob)
	mux.HandleFunc("GET /v1/jobs/{id}/result", a.handleGetResult)
	mux.HandleFunc("DELETE /v1/jobs/{id}", a.handleCancelJob)
	mux.HandleFunc("GET /v1/jobs/{id}/events", a.handleEvents)
	return CORS(RequestLog(mux))
}

type generateRequest struct {
	Design  json.RawMessage `json:"design"`
	Options oracle.Options  `json:"options"`
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(req.Design) == 0 {
		http.Error(w, "design document is required", http.StatusBadRequest)
		return
	}

	jobID := fmt.Sprintf("job-%d", time.Now().UnixNano())
	if err := a.Jobs.Put(r.Context(), store.Job{ID: jobID, Status: store.JobQueued}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.cancels[jobID] = cancel
	a.mu.Unlock()

	go a.runJob(ctx, jobID, req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"jobId": jobID, "status": store.JobQueued})
}

func (a *API) runJob(ctx context.Context, jobID string, req generateRequest) {
	defer func() {
		a.mu.Lock()
		delete(a.cancels, jobID)
		a.mu.Unlock()
	}()

	bg := context.Background()
	_ = a.Jobs.SetStatus(bg, jobID, store.JobRunning, "")

	p := a.NewPipeline(jobID)
	res, err := p.Run(ctx, req.Design, req.Options)
	if err != nil {
		log.Printf("job %s failed: %v", jobID, err)
		_ = a.Jobs.SetStatus(bg, jobID, store.JobFailed, err.Error())
		return
	}

	if err := a.Jobs.SaveResult(bg, jobID, res); err != nil {
		log.Printf("job %s: save result: %v", jobID, err)
	}
	if a.Files != nil {
		if err := filestore.SaveResult(bg, a.Files, jobID, res); err != nil {
			log.Printf("job %s: persist artifacts: %v", jobID, err)
		}
	}

	status := store.JobSucceeded
	switch {
	case res.Stats.ScreensSucceeded == 0:
		status = store.JobFailed
	case res.Stats.ScreensFailed > 0 || res.Stats.ScreensSkipped > 0:
		status = store.JobPartial
	}
	_ = a.Jobs.SetStatus(bg, jobID, status, "")
	log.Printf("job %s done: %s (%d/%d screens)", jobID, status,
		res.Stats.ScreensSucceeded, res.Stats.ScreensAttempted)
}

func (a *API) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(job)
}

func (a *API) handleGetResult(w http.ResponseWriter, r *http.Request) {
	res, err := a.Jobs.GetResult(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (a *API) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a.mu.Lock()
	cancel, ok := a.cancels[id]
	a.mu.Unlock()
	if !ok {
		http.Error(w, "job is not running", http.StatusConflict)
		return
	}
	cancel()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jobId": id, "cancelled": true})
}
