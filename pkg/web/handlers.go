package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/processfirst/flowdash/pkg/analytics"
	"github.com/processfirst/flowdash/pkg/catalog"
	"github.com/processfirst/flowdash/pkg/flow"
	"github.com/processfirst/flowdash/pkg/logging"
	"github.com/processfirst/flowdash/pkg/pubsub"
	"github.com/processfirst/flowdash/pkg/report"
	"github.com/processfirst/flowdash/pkg/topology"
	"github.com/processfirst/flowdash/pkg/views"
)

// maxBodyBytes bounds request bodies; flow snapshots are small
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
	ID     string `json:"id,omitempty"`
}

// FlowResponse is the editor state after a read or a write
type FlowResponse struct {
	Version int `json:"version"`
	views.View
}

// ResolveRequest carries one action plus the editor's current views
type ResolveRequest struct {
	Action     flow.Action         `json:"action"`
	TableNodes []views.NodeRow     `json:"tableNodes"`
	TableEdges []views.EdgeRow     `json:"tableEdges"`
	StoreNodes []views.NodeElement `json:"storeNodes"`
	StoreEdges []views.EdgeElement `json:"storeEdges"`
}

// ComponentsResponse is one catalog page and its column definitions
type ComponentsResponse struct {
	catalog.Page
	Columns []catalog.Column `json:"columns"`
	Source  string           `json:"source"`
}

// PreviewResponse describes what a report with the given filter would contain
type PreviewResponse struct {
	report.Preview
	Results *report.Results `json:"results"`
}

// ReportRequest selects the report content. Insights default to on.
type ReportRequest struct {
	report.Filter
	IncludeAI *bool `json:"include_ai,omitempty"`
}

var (
	errBadRequest     = errors.New("malformed request")
	errInvalidRequest = errors.New("invalid request")
)

// errorCodes maps domain errors onto stable codes and HTTP statuses
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{errBadRequest, "bad_request", http.StatusBadRequest},
	{errInvalidRequest, "invalid_request", http.StatusUnprocessableEntity},
	{flow.ErrNodeNotFound, "node_not_found", http.StatusNotFound},
	{flow.ErrEdgeNotFound, "edge_not_found", http.StatusNotFound},
	{flow.ErrDuplicateNode, "duplicate_node", http.StatusConflict},
	{flow.ErrDuplicateEdge, "duplicate_edge", http.StatusConflict},
	{flow.ErrDanglingReference, "dangling_reference", http.StatusConflict},
	{flow.ErrRepresentationDrift, "representation_drift", http.StatusConflict},
	{flow.ErrInsufficientNodes, "insufficient_nodes", http.StatusConflict},
	{flow.ErrAllocationExhausted, "allocation_exhausted", http.StatusConflict},
	{flow.ErrUnknownField, "unknown_field", http.StatusUnprocessableEntity},
	{flow.ErrInvalidValue, "invalid_value", http.StatusUnprocessableEntity},
	{flow.ErrUnknownAction, "unknown_action", http.StatusUnprocessableEntity},
	{report.ErrInvalidFilter, "invalid_filter", http.StatusUnprocessableEntity},
	{catalog.ErrUnknownField, "unknown_field", http.StatusUnprocessableEntity},
	{catalog.ErrInvalidFilter, "invalid_filter", http.StatusUnprocessableEntity},
	{report.ErrGenerationFailed, "generation_failed", http.StatusBadGateway},
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			resp := ErrorResponse{Error: err.Error(), Code: e.code}
			var actionErr *flow.ActionError
			if errors.As(err, &actionErr) {
				resp.Action = string(actionErr.Action)
				resp.ID = actionErr.ID
			}
			logging.DebugContext(r.Context(), "request rejected", "code", e.code, "error", err)
			writeErrorResponse(w, e.status, resp)
			return
		}
	}
	logging.ErrorContext(r.Context(), "request failed", "error", err)
	writeErrorResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "internal"})
}

// writeErrorResponse also exposes the code to the request logger
func writeErrorResponse(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set(logging.ErrorCodeHeader, resp.Code)
	writeJSON(w, status, resp)
}

// decode reads a JSON body into v and validates its struct tags
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return nil
}

// decodeReport reads a report request. Missing fields take the form defaults.
func (s *Server) decodeReport(w http.ResponseWriter, r *http.Request) (ReportRequest, error) {
	req := ReportRequest{Filter: report.DefaultFilter()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, req.Validate()
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	// Create subscription before committing to a streaming response
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "unknown_topic"})
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	flusher, _ := w.(http.Flusher)

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	// Stream events
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FlowResponse{Version: s.store.Version(), View: s.store.View()})
}

func (s *Server) handleFlowAction(w http.ResponseWriter, r *http.Request) {
	var a flow.Action
	if err := s.decode(w, r, &a); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.store.Apply(a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FlowResponse{Version: s.store.Version(), View: view})
}

// handleResolve runs one editor round trip without touching the shared store
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := flow.Resolve(req.Action, req.TableNodes, req.TableEdges, req.StoreNodes, req.StoreEdges)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, topology.Analyze(s.store.Snapshot()))
}

// handleComponents serves one catalog page.
// Query parameters: sort, desc, page, page_size and filter.<field>=<expr>.
func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := catalog.Query{
		Sort:   params.Get("sort"),
		Filter: make(map[string]string),
	}

	var err error
	if v := params.Get("desc"); v != "" {
		if q.Desc, err = strconv.ParseBool(v); err != nil {
			writeError(w, r, fmt.Errorf("%w: desc=%q", errInvalidRequest, v))
			return
		}
	}
	for name, dst := range map[string]*int{"page": &q.Page, "page_size": &q.PageSize} {
		if v := params.Get(name); v != "" {
			if *dst, err = strconv.Atoi(v); err != nil {
				writeError(w, r, fmt.Errorf("%w: %s=%q", errInvalidRequest, name, v))
				return
			}
		}
	}
	for key, values := range params {
		if field, ok := strings.CutPrefix(key, "filter."); ok && len(values) > 0 {
			q.Filter[field] = values[0]
		}
	}

	page, err := s.catalog.Query(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ComponentsResponse{
		Page:    page,
		Columns: catalog.Columns,
		Source:  s.catalog.Source(),
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	results, err := s.Results()
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "results_unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, analytics.Build(results))
}

func (s *Server) handleReportPreview(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeReport(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := s.Results()
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "results_unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Preview: req.Preview(), Results: req.Apply(results)})
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeReport(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := s.Results()
	if err != nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "results_unavailable"})
		return
	}

	includeAI := req.IncludeAI == nil || *req.IncludeAI
	data, err := s.builder.PDF(r.Context(), req.Filter.Apply(results), includeAI)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.WarnContext(r.Context(), "failed to write report", "error", err)
	}
}
