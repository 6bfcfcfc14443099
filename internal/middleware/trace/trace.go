// Package trace tags each request with an id and writes one access log line
// when it completes.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	applog "budgetlog/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID echoes the id back to the client.
	HeaderRequestID = "X-Request-ID"
)

// ObserveFunc receives every completed request, e.g. to feed a histogram.
type ObserveFunc func(method, path string, status int, elapsed time.Duration)

// Middleware handles request tracing and logging
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string
	observe   ObserveFunc
}

func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string, observe ObserveFunc) *Middleware {
	return &Middleware{logger: logger, extractIP: extractIP, observe: observe}
}

// Handler wraps next. The request context carries the id and a logger
// already tagged with it, see applog.FromContext.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		logger := m.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = applog.NewContext(ctx, logger)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		if m.observe != nil {
			m.observe(r.Method, r.URL.Path, rw.statusCode, elapsed)
		}
		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent")).
			WithHTTPResponse(rw.statusCode, elapsed.Milliseconds())
		fields[applog.FieldClientIP] = clientIP
		logger.LogContext(ctx, applog.StatusLevel(rw.statusCode), "HTTP request completed", fields.ToSlice()...)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
