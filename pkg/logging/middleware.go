package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrorCodeHeader carries the API error code of a rejected request
const ErrorCodeHeader = "X-Error-Code"

// RequestIDMiddleware tags each request with an id and logs its outcome.
// 4xx responses log at warn, 5xx at error.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		DebugContext(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"durationMs", time.Since(start).Milliseconds(),
		}
		if code := rec.Header().Get(ErrorCodeHeader); code != "" {
			args = append(args, "code", code)
		}
		logRequest(ctx, rec.status, args)
	})
}

// requestLevel picks the log level for a finished request
func requestLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

func logRequest(ctx context.Context, status int, args []any) {
	switch requestLevel(status) {
	case slog.LevelError:
		ErrorContext(ctx, "request failed", args...)
	case slog.LevelWarn:
		WarnContext(ctx, "request rejected", args...)
	default:
		InfoContext(ctx, "request completed", args...)
	}
}

// statusRecorder remembers the status code written by the handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets event streams pass through the recorder
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
