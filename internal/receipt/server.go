package receipt

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server handles HTTP requests for receipts
type Server struct {
	service *Service
	metrics *Metrics
	router  *mux.Router
}

// NewServer creates a new Server with a default router. metrics may be
// nil, in which case /metrics is not served.
func NewServer(service *Service, metrics *Metrics) *Server {
	return NewServerWithRouter(service, metrics, mux.NewRouter())
}

// NewServerWithRouter creates a new Server with a custom router for testing
func NewServerWithRouter(service *Service, metrics *Metrics, router *mux.Router) *Server {
	s := &Server{
		service: service,
		metrics: metrics,
		router:  router,
	}
	s.registerRoutes()
	return s
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs every routed request at debug level
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all routes on the server's router
func (s *Server) registerRoutes() {
	s.router.Use(logRequests)

	s.router.HandleFunc("/receipts/process", s.handleProcessReceipt).Methods(http.MethodPost)
	s.router.HandleFunc("/receipts/{id}/points", s.handleGetPoints).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the router wrapped in the CORS middleware, so that
// preflight requests are answered before routing.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// ServeHTTP implements http.Handler with the same middleware as Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
