// Package server exposes the ingestion API, the JSON read API and the HTML
// dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/and161185/health-dashboard/internal/aggregate"
	"github.com/and161185/health-dashboard/internal/charts"
	"github.com/and161185/health-dashboard/internal/config"
	"github.com/and161185/health-dashboard/internal/ingest"
	"github.com/and161185/health-dashboard/internal/recorder"
	"github.com/and161185/health-dashboard/internal/server/middleware"
	"github.com/and161185/health-dashboard/storage"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// fileStore is implemented by backends that keep their data in process and
// can dump it to disk.
type fileStore interface {
	SaveToFile(ctx context.Context, path string) error
	LoadFromFile(ctx context.Context, path string) error
}

type Server struct {
	Storage storage.Storage
	Config  *config.ServerConfig

	logger     *zap.SugaredLogger
	recorder   *recorder.Recorder
	gateway    *ingest.Gateway
	aggregator *aggregate.Aggregator
	charts     *charts.Builder
	registry   *prometheus.Registry
	metrics    *middleware.Metrics
	dashboard  *template.Template
}

// NewServer wires the service components around st. A nil config logger is
// replaced by a no-op one.
func NewServer(st storage.Storage, cfg *config.ServerConfig) *Server {
	if cfg == nil {
		cfg = &config.ServerConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	rec := recorder.New(st, logger)
	srv := &Server{
		Storage:    st,
		Config:     cfg,
		logger:     logger,
		recorder:   rec,
		gateway:    ingest.NewGateway(rec, logger),
		aggregator: aggregate.New(rec),
		charts:     charts.NewBuilder(nil, logger),
		registry:   prometheus.NewRegistry(),
		dashboard:  dashboardTemplate,
	}

	srv.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		srv.gateway.Collector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "health_dashboard_clients",
			Help: "Distinct clients with stored snapshots.",
		}, func() float64 { return float64(rec.CountDistinctClients(context.Background())) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "health_dashboard_snapshots",
			Help: "Stored snapshots.",
		}, func() float64 { return float64(rec.CountAll(context.Background())) }),
	)
	srv.metrics = middleware.NewMetrics(srv.registry)

	return srv
}

// Router builds the HTTP routes.
func (srv *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(srv.logger))
	router.Use(srv.metrics.Middleware)
	router.Use(middleware.DecompressMiddleware)
	router.Use(middleware.CompressMiddleware)

	router.Get("/", srv.DashboardHandler)
	router.Get("/health", srv.HealthHandler)
	router.Post("/api/metrics", srv.SubmitMetricsHandler)
	router.Get("/api/metrics", srv.ListMetricsHandler)
	router.Get("/api/clients", srv.ListClientsHandler)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(srv.registry, promhttp.HandlerOpts{}))

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully. In-memory
// data is restored from and flushed to Config.FileStoragePath.
func (srv *Server) Run(ctx context.Context) error {
	if fs, ok := srv.Storage.(fileStore); ok && srv.Config.FileStoragePath != "" {
		if srv.Config.Restore {
			if err := fs.LoadFromFile(ctx, srv.Config.FileStoragePath); err != nil {
				srv.logger.Errorf("failed to restore snapshots from %s: %v", srv.Config.FileStoragePath, err)
			}
		}
		if srv.Config.StoreInterval > 0 {
			go srv.flushLoop(ctx, fs, time.Duration(srv.Config.StoreInterval)*time.Second)
		}
		defer srv.flush(fs)
	}

	httpSrv := &http.Server{
		Addr:              srv.Config.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Infof("listening on %s", srv.Config.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		srv.logger.Info("server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (srv *Server) flushLoop(ctx context.Context, fs fileStore, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			srv.flush(fs)
		}
	}
}

func (srv *Server) flush(fs fileStore) {
	if err := fs.SaveToFile(context.Background(), srv.Config.FileStoragePath); err != nil {
		srv.logger.Errorf("failed to save snapshots to %s: %v", srv.Config.FileStoragePath, err)
	}
}
