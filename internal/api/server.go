// Package api serves the derived ranking tables as a read-only JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/huangsam/apprank/internal/contract"
	"github.com/sirupsen/logrus"
)

// Options configures the API.
type Options struct {
	Addr           string
	TopK           int
	Limit          int
	AllowedOrigins []string
	Metrics        http.Handler // served at /metrics when set
	Logger         logrus.FieldLogger
	Now            func() time.Time
}

// Server represents the HTTP server.
type Server struct {
	server *http.Server
	router *chi.Mux
	log    logrus.FieldLogger
}

// NewServer creates the HTTP server over store.
func NewServer(store contract.RankStore, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = contract.DiscardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: opts.Logger, NoColor: true}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handler{store: store, topK: opts.TopK, limit: opts.Limit, now: opts.Now, log: opts.Logger}

	router.Get("/healthz", h.health)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	router.Route("/v1", func(r chi.Router) {
		r.Get("/summary", h.getSummary)
		r.Get("/statistics", h.getStatistics)
		r.Get("/entities/{id}/history", h.getHistory)
		r.Get("/snapshots/{date}", h.getSnapshot)
	})

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: router,
		log:    opts.Logger,
	}
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.server.Addr).Info("api listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
