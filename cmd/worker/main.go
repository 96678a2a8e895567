package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-console/internal/config"
	"github.com/jwalitptl/booking-console/internal/handler/health"
	"github.com/jwalitptl/booking-console/internal/handler/prometheus"
	"github.com/jwalitptl/booking-console/internal/worker"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/messaging/redis"
)

const healthAddr = ":8081"

type pinger interface {
	Ping(ctx context.Context) error
}

func setupHealthCheck(checks map[string]health.Check, metricsH *prometheus.Handler, metricsPath string) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks).RegisterRoutes(engine.Group(""))
	if metricsPath != "" {
		engine.GET(metricsPath, metricsH.Handler())
	}

	srv := &http.Server{Addr: healthAddr, Handler: engine}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("health check server failed")
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLog := logger.NewLogger(cfg.LoggerConfig())
	log.Logger = *appLog.Zerolog()

	if cfg.Redis.URL == "" {
		log.Fatal().Msg("redis.url is required for the events worker")
	}

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), appLog.WithFields(map[string]interface{}{"component": "redis"}))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	metricsH := prometheus.New(cfg.Monitoring.Namespace)
	checks := map[string]health.Check{}
	if p, ok := broker.(pinger); ok {
		checks["redis"] = p.Ping
	}

	metricsPath := ""
	if cfg.Monitoring.PrometheusEnabled {
		metricsPath = cfg.Monitoring.MetricsPath
	}
	healthSrv := setupHealthCheck(checks, metricsH, metricsPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	w := worker.NewBookingEventWorker(
		broker,
		worker.BookingEventWorkerConfig{RetryDelay: 5 * time.Second},
		appLog.WithFields(map[string]interface{}{"component": "worker"}),
		metricsH.Metrics(),
	)
	w.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
}
