package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
	"budgetlog/internal/services"
	"budgetlog/internal/view"
)

// pageData is what index.html and the "app" partial render.
type pageData struct {
	view.Page
	Notice *core.Notification
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cmd := services.View()
	if category, ok := ParseFilter(r.URL.Query()); ok {
		cmd = services.Filter(category)
	}
	s.dispatch(w, r, cmd)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	s.dispatch(w, r, services.Submit(ParseTransactionForm(r.PostForm)))
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.dispatch(w, r, services.BeginEdit(id))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.dispatch(w, r, services.Delete(id))
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, services.CancelEdit())
}

// dispatch runs cmd and renders the result: the "app" partial for htmx
// requests, the full page otherwise.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, cmd services.Command) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	res, err := s.tracker.Handle(ctx, cmd)
	if err != nil {
		logger.ErrorContext(ctx, "Command failed", applog.FieldCommand, cmd.Kind.String(), applog.FieldError, err.Error())
		InternalServerError("Something went wrong").Write(w)
		return
	}

	name := "index.html"
	if isHTMX(r) {
		name = "app"
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, pageData{Page: res.Page, Notice: res.Notice}); err != nil {
		logger.ErrorContext(ctx, "Template execution failed", applog.FieldError, err.Error(), "template", name)
		InternalServerError("Could not render page").Write(w)
		return
	}

	resp := NewHTMXResponse().Status(statusFor(res.Err)).TriggerNotice(res.Notice)
	if changed(cmd, res) {
		resp.TriggerTransactionsChanged(len(res.Page.Rows))
	}
	if isHTMX(r) && cmd.Kind == services.CmdSubmit && res.Err == nil {
		resp.TriggerFormReset()
	}
	resp.Header("Cache-Control", "no-store").HTML(buf.Bytes()).Write(w)
}

// changed reports whether cmd modified the record list.
func changed(cmd services.Command, res services.Result) bool {
	switch cmd.Kind {
	case services.CmdSubmit:
		return !core.IsValidation(res.Err) && !core.IsNotFound(res.Err)
	case services.CmdDelete:
		return res.Notice != nil
	default:
		return false
	}
}

// statusFor maps a handled command error to a status code. Failed saves
// still render 200: the change is live in memory and the notice says so.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case core.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports ready once templates are loaded
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status, code := "ready", http.StatusOK
	if s.templates == nil || s.templates.Lookup("app") == nil {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
