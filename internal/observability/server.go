package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/danmuck/oestream/internal/auth"
)

// Server is the optional HTTP side server: health, metrics and the live
// record feed.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

type routerOptions struct {
	validator auth.Validator
}

type RouterOption func(*routerOptions)

// WithAuth guards /metrics and /feed. /health stays open.
func WithAuth(v auth.Validator) RouterOption {
	return func(o *routerOptions) { o.validator = v }
}

// NewRouter builds the side server routes. feed may be nil.
func NewRouter(logger zerolog.Logger, feed http.Handler, opts ...RouterOption) chi.Router {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(RequestMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Group(func(r chi.Router) {
		if o.validator != nil {
			r.Use(auth.Middleware(o.validator))
		}
		r.Handle("/metrics", promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{}))
		if feed != nil {
			r.Handle("/feed", feed)
		}
	})
	return r
}

func NewServer(addr string, logger zerolog.Logger, feed http.Handler, opts ...RouterOption) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(logger, feed, opts...),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

// Start listens on the configured address and serves in the background.
// It returns the bound address.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("observability server stopped")
		}
	}()
	s.log.Info().Str("addr", addr).Msg("observability server listening")
	return addr, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
