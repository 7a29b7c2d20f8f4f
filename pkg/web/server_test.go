package web

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/processfirst/flowdash/pkg/catalog"
	"github.com/processfirst/flowdash/pkg/flow"
	"github.com/processfirst/flowdash/pkg/model"
	"github.com/processfirst/flowdash/pkg/pubsub"
	"github.com/processfirst/flowdash/pkg/report"
	"github.com/processfirst/flowdash/pkg/views"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(flow.NewStore(model.Seed()), catalog.New(), report.NewBuilder(nil))
	s.now = func() time.Time { return time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestGetFlow(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, "GET", "/api/flow", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("Expected request id header")
	}

	var resp FlowResponse
	decodeBody(t, rec, &resp)
	if resp.Version != 0 || len(resp.Nodes) != 2 || len(resp.Edges) != 1 || len(resp.Elements) != 3 {
		t.Errorf("Unexpected initial flow: %+v", resp)
	}
}

func TestFlowActions(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"add node", flow.AddNode(), http.StatusOK, ""},
		{"rename node", flow.NodeCellEdited("A", flow.FieldName, "Reactor"), http.StatusOK, ""},
		{"duplicate edge", flow.AddEdge(), http.StatusConflict, "duplicate_edge"},
		{"unknown node", flow.NodeCellEdited("Z", flow.FieldName, "x"), http.StatusNotFound, "node_not_found"},
		{"bad node type", flow.NodeCellEdited("A", flow.FieldType, "type9"), http.StatusUnprocessableEntity, "invalid_value"},
		{"unknown action type", map[string]string{"type": "explode"}, http.StatusUnprocessableEntity, "invalid_request"},
		{"malformed body", "{not json", http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := do(t, s, "POST", "/api/flow/actions", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				var resp ErrorResponse
				decodeBody(t, rec, &resp)
				if resp.Code != tt.wantCode {
					t.Errorf("Expected code %q, got %q (%s)", tt.wantCode, resp.Code, resp.Error)
				}
				if tt.wantStatus == http.StatusNotFound && (resp.Action != "node_cell_edited" || resp.ID != "Z") {
					t.Errorf("Expected failing action and id in response, got %+v", resp)
				}
			}
		})
	}
}

func TestFlowActionUpdatesStoreAndPublishes(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := s.Publisher().Subscribe(ctx, pubsub.TopicFlowGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	rec := do(t, s, "POST", "/api/flow/actions", flow.AddNode())
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp FlowResponse
	decodeBody(t, rec, &resp)
	if resp.Version != 1 || len(resp.Nodes) != 3 || resp.Nodes[2].ID != "C" {
		t.Errorf("Unexpected flow after add: %+v", resp)
	}

	select {
	case event := <-sub.Events():
		if event.Type != "diff" || event.Version != 1 {
			t.Errorf("Unexpected event: %+v", event)
		}
		var change struct {
			Version int             `json:"version"`
			Diff    views.GraphDiff `json:"diff"`
		}
		if err := json.Unmarshal(event.Data, &change); err != nil {
			t.Fatalf("Failed to decode change: %v", err)
		}
		if change.Version != 1 || len(change.Diff.AddedNodes) != 1 || change.Diff.AddedNodes[0].ID != "C" {
			t.Errorf("Unexpected change payload: %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("No flow_graph event published")
	}
}

func TestResolveIsStateless(t *testing.T) {
	s := newTestServer(t)
	g := model.Seed()
	req := ResolveRequest{
		Action:     flow.AddNode(),
		TableNodes: views.NodeRows(g),
		TableEdges: views.EdgeRows(g),
		StoreNodes: views.NodeElements(g),
		StoreEdges: views.EdgeElements(g),
	}

	rec := do(t, s, "POST", "/api/flow/resolve", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view views.View
	decodeBody(t, rec, &view)
	if len(view.Nodes) != 3 {
		t.Errorf("Expected 3 nodes in resolved view, got %d", len(view.Nodes))
	}
	if s.store.Version() != 0 {
		t.Errorf("Resolve must not touch the shared store")
	}

	// Table and store disagree
	req.StoreNodes = req.StoreNodes[:1]
	rec = do(t, s, "POST", "/api/flow/resolve", req)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for drift, got %d", rec.Code)
	}
}

func TestTopology(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, "GET", "/api/flow/topology", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Order   []string `json:"order"`
		Acyclic bool     `json:"acyclic"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Acyclic || strings.Join(resp.Order, ",") != "A,B" {
		t.Errorf("Unexpected topology: %+v", resp)
	}
}

func TestComponents(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, "GET", "/api/components?sort=molecular_weight&desc=true&page_size=5&filter.hazard=flammable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ComponentsResponse
	decodeBody(t, rec, &resp)
	if resp.Total != 5 || len(resp.Rows) != 5 || resp.Rows[0].Name != "Toluene" {
		t.Errorf("Unexpected page: total=%d rows=%+v", resp.Total, resp.Rows)
	}
	if len(resp.Columns) != 5 {
		t.Errorf("Expected column definitions, got %d", len(resp.Columns))
	}

	if rec := do(t, s, "GET", "/api/components?sort=color", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for unknown sort field, got %d", rec.Code)
	}
	if rec := do(t, s, "GET", "/api/components?page=two", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for bad page, got %d", rec.Code)
	}

	rec = do(t, s, "GET", "/api/components?filter.molecular_weight=%3Eabc", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for unparsable weight filter, got %d: %s", rec.Code, rec.Body.String())
	}
	var failure ErrorResponse
	decodeBody(t, rec, &failure)
	if failure.Code != "invalid_filter" || rec.Header().Get("X-Error-Code") != "invalid_filter" {
		t.Errorf("Expected invalid_filter code, got %+v", failure)
	}
}

func sampleResults() *report.Results {
	return &report.Results{
		TopVariables: map[string]report.Variable{
			"Temperature": {Value: 350, Unit: "K"},
			"Pressure":    {Value: 2.5, Unit: "bar"},
		},
		TopImpact: map[string]float64{"Temperature": 0.6, "Pressure": 0.4},
		SimulatedSummary: &report.SimulatedSummary{SimulatedData: []report.Scenario{
			{Scenario: "1", Equipment: "Reactor_A", KPIValue: 0.8},
			{Scenario: "2", Equipment: "Reactor_B", KPIValue: 0.7},
		}},
	}
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, "GET", "/api/analytics", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before results load, got %d", rec.Code)
	}

	s.SetResults("results.json", sampleResults(), nil)
	rec := do(t, s, "GET", "/api/analytics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Impact []struct {
			Variable string `json:"variable"`
		} `json:"impact"`
		Trend []struct{} `json:"trend"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Impact) != 2 || resp.Impact[0].Variable != "Temperature" || len(resp.Trend) != 2 {
		t.Errorf("Unexpected analytics: %+v", resp)
	}
}

func TestReportPreview(t *testing.T) {
	s := newTestServer(t)
	s.SetResults("results.json", sampleResults(), nil)

	rec := do(t, s, "POST", "/api/report/preview", map[string]interface{}{
		"equipment": "reactor_a",
		"variables": []string{"pressure"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PreviewResponse
	decodeBody(t, rec, &resp)
	if len(resp.Lines) != 4 || resp.Lines[1] != "Equipment: Reactor A" {
		t.Errorf("Unexpected preview lines: %q", resp.Lines)
	}
	if len(resp.Results.TopVariables) != 1 || len(resp.Results.Scenarios()) != 1 {
		t.Errorf("Preview results not filtered: %+v", resp.Results)
	}

	rec = do(t, s, "POST", "/api/report/preview", map[string]interface{}{"report_type": "poem"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for invalid filter, got %d", rec.Code)
	}
}

func TestReportPDF(t *testing.T) {
	s := newTestServer(t)
	s.SetResults("results.json", sampleResults(), nil)

	rec := do(t, s, "POST", "/api/report/pdf", map[string]interface{}{"include_ai": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "process_report_20240501_083000.pdf") {
		t.Errorf("Unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Errorf("Body is not a PDF")
	}
}

func TestSetResultsKeepsLastGood(t *testing.T) {
	s := newTestServer(t)
	s.SetResults("results.json", sampleResults(), nil)
	s.SetResults("results.json", nil, context.DeadlineExceeded)

	if r, err := s.Results(); err != nil || r == nil {
		t.Errorf("Expected last good results after failed reload, got %v, %v", r, err)
	}
}

func TestSubscribeUnknownTopic(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, "GET", "/api/subscribe/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown topic, got %d", rec.Code)
	}
}

func TestSubscribeStreamsEvents(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/subscribe/flow_graph", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Subscribe request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, _ := reader.ReadString('\n')
	if !strings.HasPrefix(line, ": connected") {
		t.Fatalf("Expected connection comment, got %q", line)
	}

	if err := s.PublishSnapshot(); err != nil {
		t.Fatalf("PublishSnapshot failed: %v", err)
	}

	done := make(chan string, 1)
	go func() {
		for {
			l, err := reader.ReadString('\n')
			if err != nil {
				done <- ""
				return
			}
			if strings.HasPrefix(l, "data: ") {
				done <- l
				return
			}
		}
	}()

	select {
	case l := <-done:
		if !strings.Contains(l, `"type":"snapshot"`) {
			t.Errorf("Expected snapshot event, got %q", l)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for SSE event")
	}
}

func TestStaticIndex(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, "GET", "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Process Flow Analytics Dashboard") {
		t.Errorf("Index page not served")
	}
}
