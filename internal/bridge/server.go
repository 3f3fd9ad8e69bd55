// Package bridge serves the command surface over HTTP so that a webview or
// any local front end can invoke commands the way a desktop shell would.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/commands"
	"golang.org/x/sync/errgroup"
)

const (
	maxBodyBytes   = 1 << 20
	pingTimeout    = 2 * time.Second
	commandTimeout = 30 * time.Second
)

// Server is the HTTP invoke bridge.
type Server struct {
	commands *commands.Commands
	addr     string
	logger   *slog.Logger
}

// Config holds configuration for the bridge server.
type Config struct {
	Commands *commands.Commands
	Addr     string
	Logger   *slog.Logger
}

// NewServer creates a new bridge server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		commands: cfg.Commands,
		addr:     cfg.Addr,
		logger:   logger,
	}
}

// Handler returns the router serving the bridge endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.logRequests,
	)

	r.Get("/healthz", s.handleHealth)
	r.Get("/commands", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.commands.Names())
	})
	r.Post("/invoke/{command}", s.handleInvoke)
	return r
}

// handleHealth answers 200 while the bridge is up. Once a pool exists it is
// pinged, and an unreachable server turns the answer into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	service := s.commands.Service()
	if !service.Ready() {
		_, _ = io.WriteString(w, "ok (not connected)")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := service.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, commands.Message(err))
		return
	}
	_, _ = io.WriteString(w, "ok")
}

// Serve starts the bridge and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("bridge listening", slog.String("addr", ln.Addr().String()))

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down bridge")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "read request body: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	result, err := s.commands.Invoke(ctx, name, json.RawMessage(body))
	if err != nil {
		writeJSON(w, StatusFor(err), commands.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StatusFor maps a command error onto an HTTP status code.
func StatusFor(err error) int {
	var (
		cfgErr  *app.ErrConfig
		connErr *app.ErrConnection
		execErr *app.ErrExecution
	)
	switch {
	case errors.Is(err, commands.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotInitialized), errors.Is(err, app.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.As(err, &connErr):
		return http.StatusBadGateway
	case errors.As(err, &execErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
