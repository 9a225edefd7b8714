package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomek7667/gputop/internal/nvsmi"
)

// Snapshotter produces a fresh telemetry snapshot per request.
type Snapshotter interface {
	Snapshot(ctx context.Context) nvsmi.Snapshot
}

type Server struct {
	port      int
	collector Snapshotter
	r         *chi.Mux
}

func New(port int, collector Snapshotter) *Server {
	s := &Server{
		r:         chi.NewRouter(),
		port:      port,
		collector: collector,
	}
	s.r.Use(requestLogger(os.Stderr, "/healthz"))
	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(middleware.Recoverer)
	s.r.Use(middleware.Timeout(30 * time.Second))

	s.r.Get("/api/snapshot", s.handleSnapshot)
	s.r.Get("/healthz", s.handleHealthz)
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.r
}

// Serve blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.r,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on '%s'", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.collector.Snapshot(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("encode snapshot: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
