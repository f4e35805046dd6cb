// Package monitor exposes a small HTTP interface over a running study:
// live runner progress as JSON and the discovery report as HTML.
package monitor

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/scenariolab/workbench/internal/discovery"
	"github.com/scenariolab/workbench/internal/ensemble"
	"github.com/scenariolab/workbench/internal/httputil"
	"github.com/scenariolab/workbench/internal/report"
)

// WebServer handles the HTTP interface for monitoring a study run.
type WebServer struct {
	address string
	server  *http.Server

	mu       sync.RWMutex
	runID    string
	progress ensemble.ProgressEvent
	seen     bool
	boxes    []discovery.Box
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	RunID   string
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		runID:   config.RunID,
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start begins the HTTP server in a goroutine and handles graceful
// shutdown when the context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

// TrackProgress returns a progress sink for the runner. Chain it with
// other sinks if console logging is also wanted.
func (ws *WebServer) TrackProgress() func(ensemble.ProgressEvent) {
	return func(ev ensemble.ProgressEvent) {
		ws.mu.Lock()
		ws.progress = ev
		ws.seen = true
		ws.mu.Unlock()
	}
}

// SetBoxes publishes the discovery output to the report endpoints.
func (ws *WebServer) SetBoxes(boxes []discovery.Box) {
	ws.mu.Lock()
	ws.boxes = boxes
	ws.mu.Unlock()
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/run/progress", ws.handleProgress)
	mux.HandleFunc("/api/run/boxes", ws.handleBoxes)
	mux.HandleFunc("/report", ws.handleReport)
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type progressResponse struct {
	RunID        string `json:"run_id,omitempty"`
	Started      bool   `json:"started"`
	ExperimentID int64  `json:"experiment_id"`
	Status       string `json:"status"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	Cancelled    int    `json:"cancelled"`
	Total        int    `json:"total"`
}

func (ws *WebServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	ev, seen, runID := ws.progress, ws.seen, ws.runID
	ws.mu.RUnlock()

	resp := progressResponse{RunID: runID, Started: seen}
	if seen {
		resp.ExperimentID = ev.ExperimentID
		resp.Status = ev.Status.String()
		resp.Completed = ev.Completed
		resp.Failed = ev.Failed
		resp.Cancelled = ev.Cancelled
		resp.Total = ev.Total
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type boxResponse struct {
	Restriction string  `json:"restriction"`
	Density     float64 `json:"density"`
	Coverage    float64 `json:"coverage"`
	Mass        float64 `json:"mass"`
}

func (ws *WebServer) handleBoxes(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	boxes := ws.boxes
	ws.mu.RUnlock()

	out := make([]boxResponse, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, boxResponse{
			Restriction: b.String(),
			Density:     b.Density,
			Coverage:    b.Coverage,
			Mass:        b.Mass,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (ws *WebServer) handleReport(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	boxes := ws.boxes
	ws.mu.RUnlock()

	if len(boxes) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no discovery output yet")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteBoxReport(w, boxes); err != nil {
		log.Printf("failed to render box report: %v", err)
	}
}
