package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/store"
	appweb "cashflow/web"
)

// Tables is the session table workflow the server drives.
// *services.TableService satisfies it.
type Tables interface {
	DefaultSchema() core.Schema
	Timeline(ctx context.Context, sessionID string) (store.Snapshot, core.Aggregation, error)
	Upload(ctx context.Context, sessionID, filename string, data []byte, schema core.Schema) (store.Snapshot, error)
	AddRow(ctx context.Context, sessionID string, row core.Row) (store.Snapshot, error)
	AppendRow(ctx context.Context, sessionID string, fields map[string]string) (store.Snapshot, error)
	UpdateRow(ctx context.Context, sessionID string, index int, fields map[string]string) (store.Snapshot, error)
	DeleteRow(ctx context.Context, sessionID string, index int) (store.Snapshot, error)
	Reset(ctx context.Context, sessionID string, schema core.Schema) (store.Snapshot, error)
	Export(ctx context.Context, sessionID string, format core.ExportFormat) ([]byte, error)
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	MaxUploadBytes int64
	Currency       string
	PostsPerMinute int
	Logger         *log.Logger
}

type Server struct {
	http.Server
	tables      Tables
	templates   *template.Template
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *log.Logger

	maxUploadBytes int64
	currency       string

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, tables Tables, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.Currency == "" {
		opts.Currency = "EUR"
	}
	if opts.PostsPerMinute <= 0 {
		opts.PostsPerMinute = 60
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		tables:         tables,
		rateLimiter:    newRateLimiter(opts.PostsPerMinute, time.Minute),
		metrics:        &securityMetrics{},
		logger:         opts.Logger.WithComponent(log.ComponentHTTP),
		maxUploadBytes: opts.MaxUploadBytes,
		currency:       opts.Currency,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldComponent, log.ComponentTemplate, log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /rows", s.handleAddRow)
	mux.HandleFunc("POST /rows/{index}", s.handleUpdateRow)
	mux.HandleFunc("POST /rows/{index}/delete", s.handleDeleteRow)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /export.csv", s.handleExport(core.FormatCSV))
	mux.HandleFunc("GET /export.json", s.handleExport(core.FormatJSON))
	mux.HandleFunc("GET /api/timeline", s.handleAPITimeline)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			log.FieldOperation, log.OpShutdown,
			"rate_limit_hits", atomic.LoadInt64(&s.metrics.rateLimitHits),
			"suspicious_requests", atomic.LoadInt64(&s.metrics.suspiciousRequests),
			"oversized_uploads", atomic.LoadInt64(&s.metrics.oversizedUploads))
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds security headers, rate limiting, and request logging to responses.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := log.WithLogger(r.Context(), logger)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(ctx, "Suspicious request detected",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
		}

		// Apply rate limiting to POST requests (table edits and uploads)
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, start, s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.tables.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
