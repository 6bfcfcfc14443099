package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	applog "budgetlog/internal/log"
)

func TestMiddleware_TagsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP, Output: &buf})

	var seenID string
	var seenStatus int
	m := NewMiddleware(logger, func(*http.Request) string { return "203.0.113.7" },
		func(method, path string, status int, elapsed time.Duration) { seenStatus = status })

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transactions", nil))

	if _, err := uuid.Parse(seenID); err != nil {
		t.Fatalf("request id %q is not a uuid", seenID)
	}
	if rec.Header().Get(HeaderRequestID) != seenID {
		t.Errorf("response header id = %q, want %q", rec.Header().Get(HeaderRequestID), seenID)
	}
	if seenStatus != http.StatusUnprocessableEntity {
		t.Errorf("observed status = %d", seenStatus)
	}

	out := buf.String()
	if strings.Count(out, "request_id="+seenID) != 2 {
		t.Errorf("both log lines should carry the request id:\n%s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "client_ip=203.0.113.7") {
		t.Errorf("completion line should be WARN with client ip:\n%s", out)
	}
}

func TestMiddleware_KeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(applog.Discard(), nil, nil)
	id := uuid.NewString()

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, id)
	h.ServeHTTP(httptest.NewRecorder(), r)

	if seen != id {
		t.Errorf("request id = %q, want %q", seen, id)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "forged\nvalue")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen == "forged\nvalue" {
		t.Error("non-uuid request ids must be replaced")
	}
}
