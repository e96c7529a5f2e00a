// Package api exposes the prediction service over HTTP: the JSON API
// consumed by the dashboard, static file serving, Prometheus metrics,
// and a WebSocket feed of live prediction activity.
package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"evpredict/internal/dataset"
	"evpredict/internal/metrics"
	"evpredict/internal/predict"
	"evpredict/internal/registry"
)

// Config carries the server wiring.
type Config struct {
	Port         int
	StaticDir    string
	TemplatesDir string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server routes API requests to the prediction service, the model
// registry, and the historical dataset store. Store may be nil when no
// dataset is configured; the dataset endpoints then answer 404.
type Server struct {
	cfg     Config
	service *predict.Service
	reg     *registry.Registry
	store   *dataset.Store
	live    *liveHub
	server  *http.Server
}

func NewServer(cfg Config, service *predict.Service, reg *registry.Registry, store *dataset.Store, mw *metrics.Wrapper) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		reg:     reg,
		store:   store,
		live:    newLiveHub(mw),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/api/models", s.handleModels)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/feature-importance", s.handleFeatureImportance)
	mux.HandleFunc("/api/existing-predictions", s.handleExistingPredictions)
	mux.HandleFunc("/api/map", s.handleMap)
	mux.HandleFunc("/api/live", s.live.handleLive)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, CORS middleware included.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and disconnects live feed
// clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.live.closeAll()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.TemplatesDir, "index.html"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// corsMiddleware mirrors the permissive CORS policy of the original
// dashboard deployment.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
