package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-apotek/internal/app"
	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/billing"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/dashboard"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/health"
	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/lock"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/prescription"
	"github.com/noah-isme/backend-apotek/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "apotek-api",
			Endpoint:      cfg.TracingEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.Up(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	deps, err := app.Open(ctx, cfg, "apotek-api", logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	bus := &events.Bus{
		Store: events.PGStore{Pool: deps.DB},
		Notifiers: []events.Notifier{
			queue.EventNotifier{Client: deps.Tasks, Queue: queue.DefaultQueue},
		},
	}

	authService, err := auth.NewService(auth.Config{
		Store:          auth.PGStore{Pool: deps.DB},
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	medicineStore := inventory.PGStore{Pool: deps.DB}
	inventorySvc := &inventory.Service{
		Store:             medicineStore,
		Events:            bus,
		Logger:            obs.Component(logger, "inventory"),
		DefaultMinimum:    cfg.LowStockDefaultMinimum,
		ExpiryWarningDays: cfg.ExpiryWarningDays,
	}

	prescriptionSvc := &prescription.Service{
		Store:     prescription.PGStore{Pool: deps.DB},
		IDs:       prescription.RedisIDGenerator{R: deps.Redis, Prefix: "apotek:rx:seq"},
		Medicines: medicineStore,
		Events:    bus,
		Logger:    obs.Component(logger, "prescription"),
	}

	billingSvc := &billing.Service{
		Store:         billing.PGStore{Pool: deps.DB},
		Matcher:       inventorySvc.Matcher(),
		Stock:         inventorySvc.Adjuster(),
		Prescriptions: prescriptionSvc,
		Locks: lock.Locker{
			R:            deps.Redis,
			Prefix:       "apotek:lock",
			TTL:          cfg.LockTTL,
			RetryBackoff: cfg.LockRetryBackoff,
		},
		Events:         bus,
		Logger:         obs.Component(logger, "billing"),
		DefaultTaxRate: cfg.DefaultTaxRate,
		NewID:          uuid.NewString,
	}

	dashboardSvc := &dashboard.Service{
		Q:      dashboard.PGStore{Pool: deps.DB},
		R:      deps.Redis,
		TTL:    cfg.DashboardCacheTTL,
		Logger: obs.Component(logger, "dashboard"),
	}

	handler, err := newRouter(routerDeps{
		cfg:            cfg,
		logger:         logger,
		tracingEnabled: tracingEnabled,
		deps:           deps,
		auth:           authService,
		inventory:      inventorySvc,
		prescriptions:  prescriptionSvc,
		billing:        billingSvc,
		dashboard:      dashboardSvc,
		probes:         []health.Probe{health.Postgres(deps.DB), health.Redis(deps.Redis)},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build router")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.ShutdownTimeout <= 0 {
		return 15 * time.Second
	}
	return cfg.ShutdownTimeout
}
