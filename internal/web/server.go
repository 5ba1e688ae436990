// Package web hosts the browser review front-end. It drives the same
// session engine as the terminal loop through discrete JSON requests,
// and shuts itself down when the review is done or the user walks away.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/HartreeWorks/skill--mochi-srs/internal/session"
)

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP front-end.
type Server struct {
	engine    *session.Engine
	deckName  string
	router    chi.Router
	templates *template.Template

	idleTimeout time.Duration
	mu          sync.Mutex
	lastActive  time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewServer creates and configures a server over one review session.
// deckName is display-only; idleTimeout bounds how long the server
// lives without a request.
func NewServer(eng *session.Engine, deckName string, idleTimeout time.Duration) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		engine:      eng,
		deckName:    deckName,
		templates:   tpl,
		idleTimeout: idleTimeout,
		lastActive:  time.Now(),
		stop:        make(chan struct{}),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Done is closed when the server decides to stop: idle timeout reached
// or the front-end signalled completion.
func (s *Server) Done() <-chan struct{} {
	return s.stop
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.touch)

	r.Get("/", s.handleIndex)
	r.Get("/api/card", s.handleCard)
	r.Post("/api/reveal", s.handleReveal)
	r.Post("/api/review", s.handleReview)
	r.Get("/api/stats", s.handleStats)
	r.Post("/api/done", s.handleDone)

	s.router = r
}

// touch records request activity for the idle watcher.
func (s *Server) touch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.lastActive = time.Now()
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"DeckName": s.deckName}
	if err := s.templates.ExecuteTemplate(w, "review.html", data); err != nil {
		slog.Error("failed to render review page", "error", err)
	}
}

// handleCard returns the current card with the answer withheld until it
// has been revealed, or a done marker in any terminal state.
func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	view, ok := s.engine.Current()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"done":  true,
			"state": s.engine.State().String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"done": false,
		"card": view,
	})
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.Reveal()
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card": view})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed request body"})
		return
	}

	var grade session.Grade
	switch body.Action {
	case "good":
		grade = session.Good
	case "again":
		grade = session.Again
	case "skip":
		grade = session.Skip
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "action must be good, again or skip"})
		return
	}

	before := len(s.engine.Summary().Failures)
	if err := s.engine.Grade(r.Context(), grade); err != nil {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
		return
	}
	summary := s.engine.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"synced": len(summary.Failures) == before,
		"done":   summary.State != session.Presenting,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary := s.engine.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"reviewed":     summary.Counts.Reviewed,
		"good":         summary.Counts.Good,
		"again":        summary.Counts.Again,
		"skipped":      summary.Counts.Skipped,
		"total":        summary.Total,
		"failed_syncs": len(summary.Failures),
		"state":        summary.State.String(),
	})
}

// handleDone lets the front-end signal that the review is over. A quit
// mid-session ends the engine too. The response is written first; the
// serve loop picks up the signal.
func (s *Server) handleDone(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "shutting_down"})
	s.engine.Abort()
	s.signalStop("review complete")
}

func (s *Server) signalStop(reason string) {
	s.stopOnce.Do(func() {
		slog.Info("shutting down review server", "reason", reason)
		close(s.stop)
	})
}

// WatchIdle periodically compares elapsed idle time against the idle
// timeout and signals shutdown once it is exceeded. It is cooperative:
// in-flight requests are never cancelled, the serve loop just stops
// accepting afterwards. Runs until ctx ends or the server stops.
func (s *Server) WatchIdle(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastActive)
			s.mu.Unlock()
			if idle > s.idleTimeout {
				s.signalStop("idle timeout reached")
				return
			}
		}
	}
}

// Serve runs the front-end on addr until the session is signalled done,
// the idle timeout trips, or ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	go s.WatchIdle(ctx, 30*time.Second)

	select {
	case err := <-errc:
		return fmt.Errorf("review server failed: %w", err)
	case <-ctx.Done():
		s.signalStop("interrupted")
	case <-s.stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
