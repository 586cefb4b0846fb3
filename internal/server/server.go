package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/mevdschee/openspec-ui/internal/metrics"
	"github.com/mevdschee/openspec-ui/internal/supervisor"
	"github.com/mevdschee/openspec-ui/pkg/changebus"
	"github.com/mevdschee/tqtemplate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultKeepAlive is the interval between keep-alive frames on event streams.
const DefaultKeepAlive = 15 * time.Second

//go:embed views/*.html
var views embed.FS

// Options configures a Server.
type Options struct {
	Config      *config.Manager
	Registry    *supervisor.SourceRegistry
	Supervisor  *supervisor.Supervisor
	Bus         *changebus.Bus
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
	FrontendDir string
	KeepAlive   time.Duration
	Now         func() time.Time
}

// Server serves the dashboard API, the live-update streams and the frontend.
type Server struct {
	config      *config.Manager
	registry    *supervisor.SourceRegistry
	supervisor  *supervisor.Supervisor
	bus         *changebus.Bus
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      *zap.Logger
	frontendDir string
	keepAlive   time.Duration
	now         func() time.Time
	tmpl        *tqtemplate.Template

	mu       sync.Mutex
	server   *http.Server
	stopped  bool
	cancelFn context.CancelFunc
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	loader := func(name string) (string, error) {
		content, err := views.ReadFile(name)
		return string(content), err
	}

	return &Server{
		config:      opts.Config,
		registry:    opts.Registry,
		supervisor:  opts.Supervisor,
		bus:         opts.Bus,
		metrics:     opts.Metrics,
		gatherer:    opts.Gatherer,
		logger:      opts.Logger,
		frontendDir: opts.FrontendDir,
		keepAlive:   opts.KeepAlive,
		now:         opts.Now,
		tmpl:        tqtemplate.NewTemplateWithLoader(loader),
	}
}

// Handler returns the full route table wrapped in CORS and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PUT /api/config/sources", s.handleUpdateSources)
	mux.HandleFunc("GET /api/sources", s.handleGetSources)
	mux.HandleFunc("GET /api/changes", s.handleGetChanges)
	mux.HandleFunc("GET /api/changes/{id...}", s.handleGetChangeDetail)
	mux.HandleFunc("GET /api/specs", s.handleGetSpecs)
	mux.HandleFunc("GET /api/specs/{id...}", s.handleGetSpecDetail)
	mux.HandleFunc("GET /api/ideas", s.handleGetIdeas)
	mux.HandleFunc("POST /api/ideas", s.handleCreateIdea)
	mux.HandleFunc("PUT /api/ideas/{id...}", s.handleUpdateIdea)
	mux.HandleFunc("DELETE /api/ideas/{id...}", s.handleDeleteIdea)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/ws", s.handleEventsWS)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/", s.handleAPINotFound)
	mux.HandleFunc("/", s.handleFrontend)

	return s.withCORS(s.withMetrics(mux))
}

// Start listens on port and serves until Shutdown is called.
func (s *Server) Start(port uint16) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	// cancelled on shutdown so open event streams end
	base, cancel := context.WithCancel(context.Background())
	s.cancelFn = cancel
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
		// no WriteTimeout: event streams stay open
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("starting server", zap.String("url", fmt.Sprintf("http://localhost:%d", port)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server. A Start that has not begun yet will not serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv, cancel := s.server, s.cancelFn
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := metrics.NewStatusCapturingWriter(w)
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(r.Method, route, sw.StatusCode, time.Since(start))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "not found")
}
