// Package server exposes live tracker state, commands and stored sessions over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/store"
	"github.com/ayusman/ptrack/internal/strength"
)

// DefaultPushRate is the snapshot rate per WebSocket client, per second.
const DefaultPushRate = 30

// GripRunner runs one grip-strength window for a subject.
type GripRunner interface {
	RunGrip(ctx context.Context, subjectID string) (*strength.GripResult, error)
}

// Config holds the server's collaborators. Nil collaborators disable the
// routes that need them.
type Config struct {
	Hub      *live.Hub
	Commands *live.Queue
	DB       store.Backend
	Grip     GripRunner
	// SubjectID is used by POST /api/grip/sessions when the body names none.
	SubjectID string
	PushRate  int
	StaticDir string
}

// Server is the HTTP front end of a tracking session.
type Server struct {
	config Config
	log    *slog.Logger
	router chi.Router
	start  time.Time
}

// New creates a Server with all routes configured.
func New(config Config, log *slog.Logger) *Server {
	if config.PushRate <= 0 {
		config.PushRate = DefaultPushRate
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		config: config,
		log:    log,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/health", s.handleHealth)

	if s.config.Hub != nil {
		s.router.Get("/api/state", s.handleState)
		s.router.Get("/api/stream", s.handleStream)
		s.router.Get("/ws", s.handleWebSocket)
	}
	if s.config.Commands != nil {
		s.router.Post("/api/commands", s.handleCommand)
	}

	if s.config.DB != nil {
		s.router.Route("/api/subjects/{id}", func(r chi.Router) {
			r.Get("/flexion", s.handleListFlexion)
			r.Get("/grip", s.handleListGrip)
			r.Get("/pinch", s.handleListPinch)
			r.Get("/baseline", s.handleGetBaseline)
			r.Put("/baseline", s.handlePutBaseline)
		})
	}
	if s.config.Grip != nil {
		s.router.Post("/api/grip/sessions", s.handleStartGrip)
	}

	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("server listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// WebSocket and MJPEG handlers exit once the hub closes; Shutdown does
	// not wait on hijacked connections.
	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("shutdown error", "error", err)
		return err
	}
	s.log.Info("server stopped")
	return nil
}
