// Package server implements `lisfy serve`: an HTTP file server that lists,
// streams and receives files from a storage.Backend.
//
// Routes:
//
//	GET  /files/{path}     listing (JSON array) or single entry (JSON object)
//	GET  /download/{path}  file content
//	POST /upload/{path}    raw request body stored as a new file
//	GET  /healthz          liveness
//	GET  /metrics          Prometheus metrics, when enabled
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jmmpc/lisfy/internal/constants"
	"github.com/jmmpc/lisfy/internal/logging"
	"github.com/jmmpc/lisfy/internal/metrics"
	"github.com/jmmpc/lisfy/internal/storage"
)

// Options configures a Server.
type Options struct {
	Addr    string
	Gzip    bool             // compress listings for clients that accept it
	Metrics *metrics.Metrics // nil disables /metrics and request metrics
}

// Server serves one storage backend.
type Server struct {
	backend storage.Backend
	opts    Options
	logger  *logging.Logger
	router  *mux.Router
	now     func() time.Time
}

// New creates a server for backend.
func New(backend storage.Backend, opts Options, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Addr == "" {
		opts.Addr = constants.DefaultListenAddr
	}
	s := &Server{
		backend: backend,
		opts:    opts,
		logger:  logger,
		router:  mux.NewRouter(),
		now:     time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// ".." elements must reach the handlers to be rejected with 400
	s.router.SkipClean(true)

	if s.opts.Metrics != nil {
		s.router.Use(s.opts.Metrics.Middleware)
		s.router.Handle("/metrics", s.opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	var list http.Handler = handlerFunc(s.listHandler)
	if s.opts.Gzip {
		list = gzhttp.GzipHandler(list)
	}

	s.router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet, http.MethodHead)
	s.router.PathPrefix(constants.FilesPrefix + "/").
		Handler(http.StripPrefix(constants.FilesPrefix, list)).
		Methods(http.MethodGet)
	s.router.PathPrefix(constants.DownloadPrefix + "/").
		Handler(http.StripPrefix(constants.DownloadPrefix, http.HandlerFunc(s.downloadHandler))).
		Methods(http.MethodGet, http.MethodHead)
	s.router.PathPrefix(constants.UploadPrefix + "/").
		Handler(http.StripPrefix(constants.UploadPrefix, handlerFunc(s.uploadHandler))).
		Methods(http.MethodPost)
}

// Handler returns the root handler with access logging applied.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RemoteAddrHandler("remote")(h)
	h = hlog.NewHandler(s.logger.Zerolog())(h)
	return h
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully, giving in-flight requests constants.ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
	}

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("storage", s.backend.Type()).
		Msg("Start serving files")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("HTTP server shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("Server stopped")
	return nil
}

// LocalIP returns the address of the interface used for outbound traffic.
// No packet is sent; dialing UDP only selects a route.
func LocalIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}
	return addr.IP, nil
}

// requestLogger returns the per-request logger installed by hlog, falling
// back to the server logger for handlers invoked directly.
func (s *Server) requestLogger(r *http.Request) *zerolog.Logger {
	l := hlog.FromRequest(r)
	if l.GetLevel() == zerolog.Disabled {
		zl := s.logger.Zerolog()
		return &zl
	}
	return l
}
