package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"budgetlog/internal/core"
	applog "budgetlog/internal/log"
	"budgetlog/internal/metrics"
	"budgetlog/internal/middleware/ratelimit"
	"budgetlog/internal/middleware/security"
	"budgetlog/internal/middleware/trace"
	"budgetlog/internal/services"
	appweb "budgetlog/web"
)

// Tracker runs one user command and returns the page to render.
type Tracker interface {
	Handle(ctx context.Context, cmd services.Command) (services.Result, error)
}

type Options struct {
	Tracker Tracker
	Logger  *applog.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics; the route is not mounted when nil.
	Gatherer  prometheus.Gatherer
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	templates *template.Template
	tracker   Tracker
	logger    *applog.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Tracker == nil {
		return nil, errors.New("server needs a tracker")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromSlog(slog.Default(), applog.ComponentHTTP)
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	resolver, err := security.NewResolver()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		templates: t,
		tracker:   opts.Tracker,
		logger:    logger,
		metrics:   opts.Metrics,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		started:   time.Now(),
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticCache(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /transactions", s.handleSubmit)
	mux.HandleFunc("POST /transactions/{id}/edit", s.handleBeginEdit)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /edit/cancel", s.handleCancelEdit)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	tracer := trace.NewMiddleware(logger, resolver.ClientIP, s.metrics.ObserveRequest)
	var h http.Handler = mux
	h = s.limiter.Middleware(resolver.ClientIP, s.onRateLimited)(h)
	h = s.rejectSuspicious(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = tracer.Handler(h)
	s.Handler = h

	return s, nil
}

// rejectSuspicious answers scanner probes with a bare 404 before they reach
// the tracker.
func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if security.Suspicious(r) {
			s.metrics.ObserveSuspicious()
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request, wait time.Duration) {
	s.metrics.ObserveRateLimited()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldPath, r.URL.Path, "retry_after", wait.Round(time.Second).String())
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", ratelimit.RetryAfter(wait)).
		TriggerToast(core.LevelError, "Too many requests. Please wait a moment.").
		Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
