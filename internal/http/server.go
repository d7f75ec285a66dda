package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"wealthwise/internal/advice"
	"wealthwise/internal/gamification"
	"wealthwise/internal/goals"
	"wealthwise/internal/log"
	"wealthwise/internal/middleware/ratelimit"
	"wealthwise/internal/middleware/security"
	"wealthwise/internal/middleware/trace"
)

// Options configures the API server.
type Options struct {
	RateLimitPerMinute int
	// CORSAllowedOrigins enables CORS for the listed origins. Empty disables it.
	CORSAllowedOrigins []string
	TrustedProxies     []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server serves the planner JSON API.
type Server struct {
	http.Server

	goals     *goals.Repository
	tracker   *gamification.Tracker
	advisor   *advice.Advisor
	requester *advice.Requester

	logger   *log.Logger
	events   *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires the router and middleware chain. tracker, advisor and
// requester may be nil; without a requester /api/plan answers with
// fallback advice built from the advisor.
func NewServer(addr string, repo *goals.Repository, tracker *gamification.Tracker, advisor *advice.Advisor, requester *advice.Requester, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	if requester == nil {
		var ep advice.Endpoint
		if advisor.Enabled() {
			ep = advisor
		}
		requester = advice.NewRequester(ep, advice.RequesterOptions{Logger: logger.Logger})
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		goals:     repo,
		tracker:   tracker,
		advisor:   advisor,
		requester: requester,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(security.NoStore)
	api.HandleFunc("/calculate", s.handleCalculate).Methods(http.MethodPost)
	api.HandleFunc("/plan", s.handlePlan).Methods(http.MethodPost)
	api.HandleFunc("/financial-advice", s.handleFinancialAdvice).Methods(http.MethodPost)
	api.HandleFunc("/goals", s.handleListGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.handleCreateGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.handleDeleteGoal).Methods(http.MethodDelete)
	api.HandleFunc("/goals/{id}/complete", s.handleCompleteGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}/progress", s.handleUpdateProgress).Methods(http.MethodPatch)
	api.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)

	var h http.Handler = r
	if len(opts.CORSAllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", trace.RequestIDHeader, SessionHeader},
			ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
			MaxAge:         600,
		}).Handler(h)
	}
	h = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError("rate limit exceeded, please try again later").Write(w)
	}, http.MethodPost)(h)
	h = s.detector.Middleware(h)
	headers := security.DefaultHeadersOptions()
	headers.CrossOrigin = len(opts.CORSAllowedOrigins) > 0
	h = security.NewHeaders(headers).Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readiness struct {
	Status      string                    `json:"status"`
	Error       string                    `json:"error,omitempty"`
	Goals       int                       `json:"goals"`
	Advice      bool                      `json:"advice"`
	AdviceCache any                       `json:"adviceCache,omitempty"`
	RateLimit   ratelimit.Metrics         `json:"rateLimit"`
	Requests    trace.Metrics             `json:"requests"`
	Security    security.DetectionMetrics `json:"security"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := readiness{
		Status:    "ready",
		Advice:    s.advisor.Enabled(),
		RateLimit: s.limiter.GetMetrics(),
		Requests:  s.tracer.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
	if stats, ok := s.advisor.CacheStats(); ok {
		body.AdviceCache = stats
	}

	if err := s.goals.Ping(ctx); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
		body.Status = "unavailable"
		body.Error = "goal store is not readable"
		NewJSONResponse().Status(http.StatusServiceUnavailable).Body(body).Write(w)
		return
	}
	body.Goals = len(s.goals.List())
	NewJSONResponse().Body(body).Write(w)
}

