package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-console/internal/client"
	"github.com/jwalitptl/booking-console/internal/config"
	"github.com/jwalitptl/booking-console/internal/handler"
	"github.com/jwalitptl/booking-console/internal/handler/booking"
	"github.com/jwalitptl/booking-console/internal/handler/calendar"
	"github.com/jwalitptl/booking-console/internal/handler/health"
	"github.com/jwalitptl/booking-console/internal/handler/placement"
	"github.com/jwalitptl/booking-console/internal/handler/prometheus"
	"github.com/jwalitptl/booking-console/internal/handler/slot"
	"github.com/jwalitptl/booking-console/internal/middleware"
	"github.com/jwalitptl/booking-console/internal/repository"
	"github.com/jwalitptl/booking-console/internal/repository/postgres"
	"github.com/jwalitptl/booking-console/internal/router"
	"github.com/jwalitptl/booking-console/internal/service/catalog"
	"github.com/jwalitptl/booking-console/internal/session"
	"github.com/jwalitptl/booking-console/pkg/auth"
	"github.com/jwalitptl/booking-console/pkg/geometry"
	"github.com/jwalitptl/booking-console/pkg/logger"
	"github.com/jwalitptl/booking-console/pkg/messaging"
	"github.com/jwalitptl/booking-console/pkg/messaging/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(cfg.LoggerConfig())
	log.Logger = *appLog.Zerolog()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsH := prometheus.New(cfg.Monitoring.Namespace)
	appMetrics := metricsH.Metrics()
	checks := map[string]health.Check{}

	// Booking backend
	backend := client.New(cfg.ClientConfig(), appLog.WithFields(map[string]interface{}{"component": "client"}), appMetrics)
	services := catalog.NewService(backend, catalog.Config{
		TTL:             cfg.Catalog.TTL,
		CleanupInterval: cfg.Catalog.CleanupInterval,
	}, appMetrics)

	// Calendar feed and tenant settings
	var (
		feed      repository.AppointmentFeed = backend
		settings  repository.TenantSettings
		locations session.LocationSource
	)
	if cfg.Feed.Source == config.FeedPostgres {
		db, err := postgres.NewDB(ctx, cfg.Feed.Database.ToPostgresConfig())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		repo := postgres.NewAppointmentRepository(db)
		feed, settings, locations = repo, repo, repo
		checks["database"] = dbCheck(db)
	}

	// Booking events
	var publisher *messaging.BookingPublisher
	if cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), appLog.WithFields(map[string]interface{}{"component": "redis"}))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()

		publisher = messaging.NewBookingPublisher(broker)
		if p, ok := broker.(pinger); ok {
			checks["redis"] = p.Ping
		}
	}

	deps := session.Deps{
		Fetcher:   backend,
		Submitter: backend,
		Catalog:   services,
		Locations: locations,
		Logger:    appLog.WithFields(map[string]interface{}{"component": "session"}),
		Metrics:   appMetrics,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	sessions := session.NewRegistry(deps, session.Config{
		IdleTTL:     cfg.Scheduling.SessionIdleTTL,
		Step:        cfg.Scheduling.SlotStep,
		Location:    loc,
		PhoneRegion: cfg.Scheduling.PhoneRegion,
	})
	go sessions.Run(ctx, cfg.Scheduling.SweepInterval)

	// Tenant resolution
	var verifier auth.JWTService
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	}
	tenantMiddleware := middleware.NewTenantMiddleware(verifier, cfg.Auth.DefaultTenant)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins

	security := middleware.DefaultSecurityConfig()
	security.HSTSMaxAge = cfg.Server.HSTSMaxAge

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		CORSConfig:     corsConfig,
		Security:       security,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}
	if cfg.Monitoring.PrometheusEnabled {
		routerConfig.MetricsPath = cfg.Monitoring.MetricsPath
	}

	// Setup router
	r := router.NewRouter(
		tenantMiddleware,
		metricsH,
		health.NewHandler(checks),
		[]handler.Handler{
			slot.NewHandler(cfg.Scheduling.SlotStep),
			placement.NewHandler(geometry.Options{
				Gap:    cfg.Scheduling.TooltipGap,
				Margin: cfg.Scheduling.TooltipMargin,
			}),
		},
		[]handler.Handler{
			booking.NewHandler(sessions),
			calendar.NewHandler(feed, settings, loc),
		},
		routerConfig,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("feed", cfg.Feed.Source).Msg("starting booking console")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()
	sessions.CloseAll()

	log.Info().Msg("server exited properly")
}

func dbCheck(db *sqlx.DB) health.Check {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
