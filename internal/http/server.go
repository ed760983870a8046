package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	appweb "budget/web"
)

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure NewServer. Budget is required.
type Options struct {
	Addr               string
	Budget             *services.BudgetService
	Logger             *log.Logger
	Pinger             Pinger
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int
	// StaticMaxAge is how long browsers may cache /static/; zero disables it.
	StaticMaxAge time.Duration
}

type appMetrics struct {
	uptime      time.Time
	mutations   int64
	cacheHits   int64
	cacheMisses int64
}

// Server serves the JSON API and the month pages.
type Server struct {
	http.Server

	budget    *services.BudgetService
	logger    *log.Logger
	pinger    Pinger
	templates *template.Template

	sessions     *cache.LRUCache[services.Session]
	cacheManager *cache.Manager
	loads        singleflight.Group
	cacheMu      sync.Mutex
	generation   uint64

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 100
	}

	s := &Server{
		budget:           opts.Budget,
		logger:           logger.WithComponent(log.ComponentHTTP),
		pinger:           opts.Pinger,
		sessions:         cache.NewLRUCache[services.Session](opts.CacheSize, opts.CacheTTL),
		cacheManager:     cache.NewManager(logger),
		securityDetector: security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		appMetrics: appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(s.sessions)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(opts.StaticMaxAge)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /months/{key}", s.handleMonthPage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/months", s.handleListMonths)
	mux.HandleFunc("POST /api/months", s.handleCreateMonth)
	mux.HandleFunc("GET /api/months/{key}", s.handleGetMonth)
	mux.HandleFunc("DELETE /api/months/{key}", s.handleDeleteMonth)
	mux.HandleFunc("POST /api/months/{key}/copy", s.handleCopyMonth)
	mux.HandleFunc("POST /api/months/{key}/recompute", s.handleRecompute)
	mux.HandleFunc("GET /api/months/{key}/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/months/{key}/export.json", s.handleExportJSON)

	mux.HandleFunc("POST /api/months/{key}/{ledger}", s.handleAddRow)
	mux.HandleFunc("PUT /api/months/{key}/{ledger}/{index}", s.handleUpdateRow)
	mux.HandleFunc("DELETE /api/months/{key}/{ledger}/{index}", s.handleDeleteRow)
	mux.HandleFunc("POST /api/months/{key}/{ledger}/{index}/paid", s.handleTogglePaid)

	mux.HandleFunc("PUT /api/months/{key}/weeks/{week}/cells/{category}", s.handleSetCell)
	mux.HandleFunc("PUT /api/months/{key}/weeks/{week}/payments-due", s.handleSetPaymentsDue)

	mux.HandleFunc("POST /api/import", s.handleImport)
}

// middleware wraps the mux: tracing outermost so every response, including
// rate-limited ones, is logged with a request ID.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(ratelimit.Options{
		ExtractIP: s.securityDetector.ExtractClientIP,
		Exempt:    isUnlimitedRoute,
		OnLimit: func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldComponent, log.ComponentRateLimit)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(w)
		},
	})(next)
	h := s.securityDetector.Middleware(s.logger)(limited)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.traceMiddleware.Middleware(h)
}

func isUnlimitedRoute(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/static/")
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// session returns the recomputed month, from cache when possible.
// Concurrent misses for the same month share one load.
func (s *Server) session(ctx context.Context, key string) (services.Session, error) {
	if cached, ok := s.sessions.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		cached.Record = cached.Record.Clone()
		return cached, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	s.cacheMu.Lock()
	gen := s.generation
	s.cacheMu.Unlock()

	v, err, _ := s.loads.Do(key, func() (any, error) {
		session, err := s.budget.OpenMonth(ctx, key)
		if err != nil {
			return services.Session{}, err
		}
		// A write that landed during the load makes this result stale.
		s.cacheMu.Lock()
		if s.generation == gen {
			s.sessions.Set(key, session)
		}
		s.cacheMu.Unlock()
		return session, nil
	})
	if err != nil {
		return services.Session{}, err
	}
	session := v.(services.Session)
	session.Record = session.Record.Clone()
	return session, nil
}

// invalidate drops the cached month after a write.
func (s *Server) invalidate(key string) {
	s.cacheMu.Lock()
	s.generation++
	s.sessions.Delete(key)
	s.cacheMu.Unlock()
	s.loads.Forget(key)
	atomic.AddInt64(&s.appMetrics.mutations, 1)
}

// fail writes err as an API error and logs internal failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFromService(err)
	if resp.StatusCode() >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, log.ComponentHTTP, op, log.ErrorTypeInternal,
			log.NewFields().WithMonth(r.PathValue("key")))
	}
	resp.Write(w)
}

var templateFuncs = template.FuncMap{
	"money": core.FormatPounds,
	"cell":  core.FormatCellText,
	"title": func(rec core.MonthRecord) string { return fmt.Sprintf("%s %d", rec.MonthName, rec.Year) },
}
