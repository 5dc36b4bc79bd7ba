package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campushunt/treasurehunt/internal/auth"
	"github.com/campushunt/treasurehunt/internal/hunt"
)

// Options carries what the HTTP layer needs from main.
type Options struct {
	Engine        *hunt.Engine
	Tokens        *auth.Tokens
	AdminEmail    string
	AdminPassword string
	// Nil limiters disable rate limiting.
	UnlockLimiter Limiter
	LoginLimiter  Limiter
	SPADir        string
}

// deps is shared by every handler.
type deps struct {
	Options
	logger *slog.Logger
	broker *Broker
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the server. mount, when set, adds infrastructure routes such as
// /healthz.
func New(addr string, logger *slog.Logger, opts Options, mount func(chi.Router)) *Server {
	d := &deps{Options: opts, logger: logger, broker: NewBroker()}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newRouter(d, mount),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func newRouter(d *deps, mount func(chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(d.logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, d)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
