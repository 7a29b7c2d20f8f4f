package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func newTestClient(url string) *CohereClient {
	return NewCohereClient(CohereConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Timeout: 2 * time.Second,
		Retry:   2 * time.Second,
	})
}

func TestCohereGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Unexpected Authorization header %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "command" || req.MaxTokens != 800 || req.NumGenerations != 1 {
			t.Errorf("Unexpected request defaults: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"generations":[{"text":"analysis"}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "analysis" {
		t.Errorf("Generate() = %q, want %q", text, "analysis")
	}
}

func TestCohereRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"generations":[{"text":"recovered"}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "recovered" {
		t.Errorf("Generate() = %q, want %q", text, "recovered")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 calls, got %d", got)
	}
}

func TestCohereClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid api token"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Client errors should not be retried, got %d calls", got)
	}
}

func TestCohereWithoutKey(t *testing.T) {
	c := NewCohereClient(CohereConfig{})
	if _, err := c.Generate(context.Background(), "prompt"); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("Expected ErrGenerationFailed without API key, got %v", err)
	}
}

func TestCohereStopsRetryingWhenCancelled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCohereClient(CohereConfig{APIKey: "test-key", BaseURL: srv.URL, Retry: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.Generate(ctx, "prompt")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
	// The first backoff wait is at least 250ms
	if elapsed := time.Since(start); elapsed > 240*time.Millisecond {
		t.Errorf("Generate kept waiting after cancellation: %v", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single attempt, got %d", got)
	}
}
