package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"majorincome/internal/backend"
	"majorincome/internal/cache"
	"majorincome/internal/chart"
	"majorincome/internal/core"
	"majorincome/internal/log"
	"majorincome/internal/middleware/ratelimit"
	"majorincome/internal/middleware/security"
	"majorincome/internal/middleware/trace"
)

// Store is what the API reads from.
type Store interface {
	Summary(ctx context.Context, n int) (backend.Summary, error)
	List(ctx context.Context) ([]core.AggregatedRecord, backend.Origin, error)
	Ping(ctx context.Context) error
}

// Options configures the server. Zero values select defaults.
type Options struct {
	Logger    *log.Logger
	TopN      int
	CacheTTL  time.Duration
	RateLimit ratelimit.Config
	Chart     chart.Options
}

type Server struct {
	http.Server
	store  Store
	logger *log.Logger
	opts   Options

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	statsCache *cache.LRUCache[statisticsResponse]
	plotCache  *cache.LRUCache[plotResponse]
	caches     *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, store Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Chart.Width == 0 {
		opts.Chart = chart.DefaultOptions()
	}

	s := &Server{
		store:      store,
		logger:     opts.Logger.WithComponent(log.ComponentHTTP),
		opts:       opts,
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   security.NewDetector(),
		statsCache: cache.NewLRUCache[statisticsResponse](4, opts.CacheTTL),
		plotCache:  cache.NewLRUCache[plotResponse](32, opts.CacheTTL),
		caches:     cache.NewManager(opts.Logger),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)
	s.caches.Register(s.statsCache)
	s.caches.Register(s.plotCache)
	s.caches.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/statistics", s.handleStatistics)
	mux.HandleFunc("/api/plot", s.handlePlot)
	mux.HandleFunc("/api/majors", s.handleMajors)
	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/healthz", handleLiveness)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.flagSuspicious(handler)
	handler = security.CORSMiddleware(security.DefaultCORSConfig())(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// PurgeCaches drops every cached response. Called when a new dataset lands.
func (s *Server) PurgeCaches() int {
	return s.caches.PurgeAll()
}

// Shutdown stops background goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", strconv.Itoa(s.limiter.RetryAfter())).
		Error("rate limit exceeded").
		Write(w, r)
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := s.detector.Suspicious(r); reason != "" {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				"reason", reason,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}
