// Package httpapi serves the admin HTTP API: read-only views of the wish
// store plus backups and a manual scheduler tick, behind JWT bearer auth.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/coopco/wishbot/internal/schedule"
	"github.com/coopco/wishbot/internal/store"
	"github.com/coopco/wishbot/internal/wish"
)

// Ticker runs one scheduler tick on demand.
type Ticker interface {
	Tick(ctx context.Context) schedule.Report
}

type Server struct {
	store  *store.Store
	ticker Ticker
	tokens *Tokens
}

func New(st *store.Store, ticker Ticker, tokens *Tokens) *Server {
	return &Server{store: st, ticker: ticker, tokens: tokens}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.tokens))
			r.Get("/status", s.status)
			r.Get("/wishes", s.wishes)
			r.Get("/archives", s.archives)
			r.Get("/groups", s.groups)
			r.Post("/backups", s.backup)
			r.Post("/scheduler/tick", s.tick)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin API listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type statusResponse struct {
	Active       bool         `json:"active"`
	LastActivity time.Time    `json:"last_activity"`
	Owner        string       `json:"owner"`
	Counts       store.Counts `json:"counts"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := s.store.State()
	writeJSON(w, http.StatusOK, statusResponse{
		Active:       st.Active,
		LastActivity: st.LastActivity,
		Owner:        s.store.Owner().Address,
		Counts:       s.store.Counts(),
	})
}

func (s *Server) wishes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Wishes(r.URL.Query().Get("created_by")))
}

func (s *Server) archives(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.store.ArchivedWishes(q.Get("created_by"), wish.ArchiveReason(q.Get("reason"))))
}

func (s *Server) groups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Groups())
}

func (s *Server) backup(w http.ResponseWriter, r *http.Request) {
	name, err := s.store.Backup(r.Context())
	if err != nil {
		slog.Error("admin backup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	sub, _ := SubjectFromContext(r.Context())
	s.store.LogActivity(r.Context(), "admin_backup", map[string]any{"by": sub, "file": name})
	writeJSON(w, http.StatusCreated, map[string]string{"file": name})
}

func (s *Server) tick(w http.ResponseWriter, r *http.Request) {
	rep := s.ticker.Tick(r.Context())
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
