// Package web serves the HTML pages, the embedded static assets and the
// websocket endpoint that drives reveal and prefetch sessions.
package web

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/noaa-fisheries-web-go/internal/service/catalog"
	"github.com/kapu/noaa-fisheries-web-go/internal/session"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"go.uber.org/zap"
)

// BreakerReporter exposes the upstream circuit state for health checks.
type BreakerReporter interface {
	BreakerStatus() util.CircuitBreakerStatus
}

type Options struct {
	Addr string
	// InitialCount is the number of cards rendered with the region page.
	InitialCount int
	// EagerCount is the number of leading cards whose image loads eagerly.
	EagerCount int
}

type Server struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	breaker  BreakerReporter
	opts     Options
	logger   *zap.Logger

	upgrader   websocket.Upgrader
	httpServer *http.Server
}

func NewServer(c *catalog.Catalog, sessions *session.Manager, breaker BreakerReporter, opts Options, logger *zap.Logger) *Server {
	s := &Server{
		catalog:  c,
		sessions: sessions,
		breaker:  breaker,
		opts:     opts,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /region/{regionId}", s.handleRegion)
	mux.HandleFunc("GET /region/{regionId}/fish/{fishId}", s.handleFish)
	mux.HandleFunc("GET /about", s.handleAbout)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleSession)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFiles())))
	mux.HandleFunc("/", s.handleNotFound)
	return s.logRequests(mux)
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	s.logger.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes live sessions, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
