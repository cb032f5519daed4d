package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"myfirstagent/internal/agent"
	"myfirstagent/internal/channels"
	"myfirstagent/internal/history"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on /v1 routes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

type Server struct {
	runner agent.Runner
	store  *history.Store
	token  string
	mux    *http.ServeMux

	mu   sync.Mutex
	runs map[string]context.CancelFunc // session ID -> in-flight turn
}

func NewServer(runner agent.Runner, store *history.Store, chs []channels.Channel, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		store:  store,
		mux:    http.NewServeMux(),
		runs:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	for _, ch := range chs {
		ch.RegisterRoutes(s.mux)
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/chat", s.authed(s.handleChat))
	s.mux.HandleFunc("GET /v1/sessions", s.authed(s.handleListSessions))
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.authed(s.handleGetSession))
	s.mux.HandleFunc("DELETE /v1/sessions/{id}/run", s.authed(s.handleCancelRun))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.mux, "gateway")
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down gateway")
	s.cancelAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	if s.token == "" {
		return next
	}
	want := []byte("Bearer " + s.token)
	return func(w http.ResponseWriter, r *http.Request) {
		got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// track registers the in-flight turn for sessionID. It fails if the session
// already has one.
func (s *Server) track(sessionID string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.runs[sessionID]; busy {
		return false
	}
	s.runs[sessionID] = cancel
	return true
}

func (s *Server) untrack(sessionID string) {
	s.mu.Lock()
	delete(s.runs, sessionID)
	s.mu.Unlock()
}

func (s *Server) cancel(sessionID string) bool {
	s.mu.Lock()
	cancel, ok := s.runs[sessionID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *Server) cancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.runs {
		cancel()
	}
}
