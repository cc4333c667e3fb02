// Package api serves the dashboard pages, chart images and JSON endpoints.
package api

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/solardash/internal/config"
	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/render"
	"github.com/lox/solardash/internal/store"
)

type Config struct {
	Addr      string
	Countries *config.Countries
	Cache     *dataset.Cache
	// Store enables the load history on /health. Optional.
	Store *store.Store
	// Images caches rendered charts on disk. Optional.
	Images *render.DiskCache
	Logger *slog.Logger
}

type Server struct {
	addr      string
	countries *config.Countries
	cache     *dataset.Cache
	store     *store.Store
	images    *render.DiskCache
	tmpl      *template.Template
	log       *slog.Logger
}

func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	countries := cfg.Countries
	if countries == nil {
		countries = config.Defaults()
	}
	return &Server{
		addr:      cfg.Addr,
		countries: countries,
		cache:     cfg.Cache,
		store:     cfg.Store,
		images:    cfg.Images,
		tmpl:      newTemplates(),
		log:       log.With("component", "api"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /charts/{kind}", s.handleChartImage)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/countries", s.handleAPICountries)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /api/charts/{kind}", s.handleAPIChart)
	return s.logRequests(mux)
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", "addr", s.addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
