// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for HTMX responses: status, body and
// the HX-Trigger events the page listens for.

package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"budgetlog/internal/core"
)

// HX-Trigger events understood by app.js and htmx listeners on the page.
const (
	EventShowNotification    = "show-notification"
	EventTransactionsChanged = "transactions:changed"
	EventFormReset           = "form:reset"
)

// toast is the payload of a show-notification event.
type toast struct {
	Type     core.Level `json:"type"`
	Message  string     `json:"message"`
	Duration int        `json:"duration"`
}

// toastDuration is how long a toast of each level stays up, in milliseconds.
var toastDuration = map[core.Level]int{
	core.LevelSuccess: 3000,
	core.LevelInfo:    3000,
	core.LevelWarning: 5000,
	core.LevelError:   5000,
}

// HTMXResponseBuilder collects status, headers, body and HX-Trigger events
// and writes them in one go.
type HTMXResponseBuilder struct {
	status   int
	header   http.Header
	triggers map[string]any
	body     []byte
}

// NewHTMXResponse starts a 200 response with no body.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status:   http.StatusOK,
		header:   make(http.Header),
		triggers: make(map[string]any),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.header.Set(name, value)
	return b
}

// Trigger adds an HX-Trigger event. A later event with the same name wins.
func (b *HTMXResponseBuilder) Trigger(event string, detail any) *HTMXResponseBuilder {
	b.triggers[event] = detail
	return b
}

// TriggerTransactionsChanged announces that the list or totals changed.
func (b *HTMXResponseBuilder) TriggerTransactionsChanged(rows int) *HTMXResponseBuilder {
	return b.Trigger(EventTransactionsChanged, map[string]int{"count": rows})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// TriggerToast shows message at level. Unknown levels render as success.
func (b *HTMXResponseBuilder) TriggerToast(level core.Level, message string) *HTMXResponseBuilder {
	d, ok := toastDuration[level]
	if !ok {
		level, d = core.LevelSuccess, toastDuration[core.LevelSuccess]
	}
	return b.Trigger(EventShowNotification, toast{Type: level, Message: message, Duration: d})
}

// TriggerNotice shows a tracker notice; nil adds nothing.
func (b *HTMXResponseBuilder) TriggerNotice(n *core.Notification) *HTMXResponseBuilder {
	if n == nil {
		return b
	}
	return b.TriggerToast(n.Level, n.Message)
}

func (b *HTMXResponseBuilder) HasTriggers() bool {
	return len(b.triggers) > 0
}

// HTML sets an HTML body.
func (b *HTMXResponseBuilder) HTML(body []byte) *HTMXResponseBuilder {
	b.header.Set("Content-Type", "text/html; charset=utf-8")
	b.body = body
	return b
}

// Write sends the response. Headers must not have been written yet.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	h := w.Header()
	for name, values := range b.header {
		h[name] = values
	}
	if len(b.triggers) > 0 {
		if raw, err := json.Marshal(b.triggers); err == nil {
			h.Set("HX-Trigger", string(raw))
		}
	}

	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is a bare error fragment with message escaped.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(status).
		HTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
