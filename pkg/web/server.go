package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/processfirst/flowdash/pkg/catalog"
	"github.com/processfirst/flowdash/pkg/flow"
	"github.com/processfirst/flowdash/pkg/logging"
	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/pubsub"
	"github.com/processfirst/flowdash/pkg/report"
	"github.com/processfirst/flowdash/pkg/views"
)

//go:embed static/*
var staticFiles embed.FS

// Server represents the web server
type Server struct {
	router    *mux.Router
	store     *flow.Store
	catalog   *catalog.Catalog
	builder   *report.Builder
	publisher *pubsub.SSEPublisher
	validate  *validator.Validate
	now       func() time.Time

	mu          sync.RWMutex
	results     *report.Results
	resultsPath string
	resultsErr  error
}

// NewServer creates a new web server around the shared flow store
func NewServer(store *flow.Store, cat *catalog.Catalog, builder *report.Builder) *Server {
	if cat == nil {
		cat = catalog.New()
	}
	if builder == nil {
		builder = report.NewBuilder(nil)
	}

	s := &Server{
		router:    mux.NewRouter(),
		store:     store,
		catalog:   cat,
		builder:   builder,
		publisher: pubsub.NewDashboardPublisher(),
		validate:  validator.New(),
		now:       time.Now,
	}

	store.OnChange(s.publishChange)
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler with request logging applied
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Publisher exposes the live-update publisher
func (s *Server) Publisher() *pubsub.SSEPublisher {
	return s.publisher
}

// SetResults replaces the analytics results served by the report and analytics endpoints
func (s *Server) SetResults(path string, r *report.Results, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultsPath = path
	if err != nil {
		// Keep serving the last good results
		s.resultsErr = err
		return
	}
	s.results = r
	s.resultsErr = nil
}

// Results returns the current analytics results, or an error when none could be loaded
func (s *Server) Results() (*report.Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.results == nil {
		if s.resultsErr != nil {
			return nil, s.resultsErr
		}
		return nil, errors.New("no results loaded")
	}
	return s.results, nil
}

// PublishSnapshot announces the full current graph, for subscribers joining late
func (s *Server) PublishSnapshot() error {
	g := s.store.Snapshot()
	change := pubsub.FlowGraphChange{
		Version: s.store.Version(),
		Action:  string(flow.ActionNone),
		Hash:    views.Hash(g),
		Diff:    views.ComputeDiff(nil, g),
	}
	return s.publisher.Publish(pubsub.TopicFlowGraph, "snapshot", change)
}

// PublishDataStatus publishes a data file status event
func (s *Server) PublishDataStatus(source, path, state, message string) error {
	status := pubsub.DataStatus{
		Source:  source,
		Path:    path,
		State:   state,
		Message: message,
	}
	return s.publisher.Publish(pubsub.TopicDataStatus, state, status)
}

func (s *Server) publishChange(prev, next model.Graph, a flow.Action, version int) {
	change := pubsub.FlowGraphChange{
		Version: version,
		Action:  a.String(),
		Hash:    views.Hash(next),
		Diff:    views.ComputeDiff(&prev, next),
	}
	if err := s.publisher.Publish(pubsub.TopicFlowGraph, "diff", change); err != nil {
		logging.Warn("failed to publish flow change", "version", version, "error", err)
	}
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// SSE subscription endpoint
	api.HandleFunc("/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// Flow editor
	api.HandleFunc("/flow", s.handleFlow).Methods("GET")
	api.HandleFunc("/flow/actions", s.handleFlowAction).Methods("POST")
	api.HandleFunc("/flow/resolve", s.handleResolve).Methods("POST")
	api.HandleFunc("/flow/topology", s.handleTopology).Methods("GET")

	// Data views
	api.HandleFunc("/components", s.handleComponents).Methods("GET")
	api.HandleFunc("/analytics", s.handleAnalytics).Methods("GET")
	api.HandleFunc("/report/preview", s.handleReportPreview).Methods("POST")
	api.HandleFunc("/report/pdf", s.handleReportPDF).Methods("POST")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("static files missing", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

// Start serves HTTP on the given port until the context is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Close event streams first so Shutdown does not wait on them
	s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}
