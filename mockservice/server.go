// Package mockservice is an in-process HTTP API the harness can run its
// suites against when no external target is given: a small commerce API with
// token auth, rate limiting, and endpoints that simulate slow and
// intermittently failing upstreams.
package mockservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apiharness/api-contract-tests/config"
	"github.com/apiharness/api-contract-tests/framework"
)

const startupTimeout = 10 * time.Second

type Server struct {
	cfg        config.MockConfig
	logger     framework.Logger
	store      *store
	limiter    *rateLimiter
	flaky      *flakyRegistry
	requests   *requestLog
	httpServer *http.Server
	baseURL    string
	startedAt  time.Time
}

func New(cfg config.MockConfig, logger framework.Logger) *Server {
	if logger == nil {
		logger = framework.NullLogger()
	}
	s := &Server{
		cfg:       cfg,
		logger:    framework.PrefixedLogger(logger, "[mock service] "),
		store:     newStore(cfg.Seed),
		flaky:     newFlakyRegistry(),
		requests:  newRequestLog(requestLogSize),
		startedAt: time.Now(),
	}
	if cfg.RateLimit.Limit > 0 {
		s.limiter = newRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("POST /auth/token", s.handleToken)
	mux.HandleFunc("GET /flaky/{key}", s.handleFlaky)
	mux.HandleFunc("DELETE /flaky/{key}", s.handleFlakyReset)
	mux.HandleFunc("GET /slow", s.handleSlow)

	api := http.NewServeMux()
	api.HandleFunc("GET /users", s.handleListUsers)
	api.HandleFunc("POST /users", s.handleCreateUser)
	api.HandleFunc("GET /users/{id}", s.handleGetUser)
	api.HandleFunc("PUT /users/{id}", s.handleUpdateUser)
	api.HandleFunc("PATCH /users/{id}", s.handlePatchUser)
	api.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)
	api.HandleFunc("GET /users/{id}/orders", s.handleUserOrders)

	api.HandleFunc("GET /products", s.handleListProducts)
	api.HandleFunc("POST /products", s.handleCreateProduct)
	api.HandleFunc("GET /products/admin", s.handleProductInventory)
	api.HandleFunc("GET /products/{id}", s.handleGetProduct)
	api.HandleFunc("PUT /products/{id}", s.handleUpdateProduct)
	api.HandleFunc("DELETE /products/{id}", s.handleDeleteProduct)

	api.HandleFunc("GET /orders", s.handleListOrders)
	api.HandleFunc("POST /orders", s.handleCreateOrder)
	api.HandleFunc("GET /orders/{id}", s.handleGetOrder)
	api.HandleFunc("PATCH /orders/{id}", s.handleUpdateOrderStatus)
	api.HandleFunc("DELETE /orders/{id}", s.handleDeleteOrder)
	api.HandleFunc("POST /orders/{id}/cancel", s.handleCancelOrder)
	api.HandleFunc("PATCH /orders/{id}/cancel", s.handleCancelOrder)

	protected := s.requireAuth(api)
	for _, prefix := range []string{"/users", "/products", "/orders"} {
		mux.Handle(prefix, protected)
		mux.Handle(prefix+"/", protected)
	}

	var h http.Handler = mux
	if s.limiter != nil {
		h = s.limiter.middleware(h)
	}
	h = withSecurityHeaders(h)
	h = s.logRequests(h)
	return withRequestID(h)
}

// withRequestID tags every response so a log line can be matched to the
// request that produced it.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// logRequests records every request in the server's ring and echoes it to the
// debug logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		s.requests.add(RequestRecord{
			Time:     start,
			Method:   r.Method,
			Path:     r.URL.Path,
			Status:   rec.status,
			Duration: elapsed,
		})
		s.logger.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, elapsed)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RecentRequests returns the most recent requests the service has answered,
// oldest first. The log holds the last requestLogSize entries.
func (s *Server) RecentRequests() []RequestRecord {
	return s.requests.recent()
}

// Handler returns the fully wired handler, for tests that talk to the service
// without a network listener.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// Start begins listening (a zero port picks a free one) and blocks until the
// service answers its own health probe.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("mock service could not listen: %w", err)
	}
	s.baseURL = "http://" + ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.routes()}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("stopped: %s", err)
		}
	}()

	if err := framework.WaitForCondition(ctx, 10*time.Millisecond, startupTimeout, s.probeHealth); err != nil {
		_ = s.Close(context.Background())
		return fmt.Errorf("mock service did not become ready: %w", err)
	}
	s.logger.Printf("listening at %s", s.baseURL)
	return nil
}

func (s *Server) probeHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// BaseURL is set once Start has succeeded.
func (s *Server) BaseURL() string {
	return s.baseURL
}

// Close shuts the listener down, waiting for in-flight requests to drain.
func (s *Server) Close(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// RequestRecord is one entry of the server's request log.
type RequestRecord struct {
	Time     time.Time
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}

const requestLogSize = 100

// requestLog is a fixed-size ring of the most recent requests.
type requestLog struct {
	mu      sync.Mutex
	entries []RequestRecord
	next    int
	full    bool
}

func newRequestLog(size int) *requestLog {
	return &requestLog{entries: make([]RequestRecord, size)}
}

func (l *requestLog) add(rec RequestRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = rec
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

func (l *requestLog) recent() []RequestRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]RequestRecord(nil), l.entries[:l.next]...)
	}
	out := make([]RequestRecord, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

// flakyRegistry tracks how many times each key of the flaky endpoint has been
// hit.
type flakyRegistry struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFlakyRegistry() *flakyRegistry {
	return &flakyRegistry{counts: map[string]int{}}
}

func (f *flakyRegistry) attempt(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key]
}

func (f *flakyRegistry) reset(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, key)
}
