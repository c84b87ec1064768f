package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oklog/ulid/v2"

	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/handlers"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/platform/config"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/platform/observability"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/repositories"
	"github.com/AleksanderSzutBackupAccount/park-app-recruitment-task/internal/services"
)

func main() {
	startedAt := time.Now().UTC()

	logger := observability.NewLogger().Named("api")
	defer func() {
		_ = logger.Sync()
	}()

	ctx := observability.WithLogger(context.Background(), logger)

	env, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("reading environment", zap.Error(err))
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("configuration rejected", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("loading configuration", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.Pricing.Timezone)
	if err != nil {
		logger.Fatal("unknown pricing timezone", zap.String("timezone", cfg.Pricing.Timezone), zap.Error(err))
	}

	engine, err := services.NewParkingFeeEngine(services.ParkingFeeEngineDeps{
		Location: location,
		Logger:   engineLogSink(logger.Named("pricing")),
	})
	if err != nil {
		logger.Fatal("building parking fee engine", zap.Error(err))
	}

	build := readBuildInfo(env, cfg.Environment, startedAt)

	health, err := wireHealthService(engine, cfg.Pricing.Timezone, build)
	if err != nil {
		logger.Warn("readiness checks disabled", zap.Error(err))
	}

	parking := handlers.NewParkingHandlers(engine,
		handlers.WithParkingRateLimit(cfg.RateLimits.PerMinute),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(logger.Named("http")),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthBuildInfo(build),
			handlers.WithHealthSystemService(health),
		)),
		handlers.WithParkingRoutes(parking.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveLogger := logger.Named("http").With(
		zap.String("addr", server.Addr),
		zap.String("instance", ulid.Make().String()),
		zap.String("environment", cfg.Environment),
	)
	go func() {
		serveLogger.Info("parking fee api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveLogger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-runCtx.Done()
	stop()
	logger.Info("signal received, draining in-flight requests")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		logger.Error("drain incomplete", zap.Error(err))
	}
}

// engineLogSink adapts the engine's structured log callback onto zap.
func engineLogSink(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zf := make([]zap.Field, 0, len(fields)+1)
		zf = append(zf, zap.String("event", event))
		for k, v := range fields {
			zf = append(zf, zap.Any(k, v))
		}
		logger.Debug("pricing event", zf...)
	}
}

func readBuildInfo(env map[string]string, environment string, started time.Time) services.BuildInfo {
	info := services.BuildInfo{
		Version:     strings.TrimSpace(env["API_BUILD_VERSION"]),
		CommitSHA:   strings.TrimSpace(env["API_BUILD_COMMIT_SHA"]),
		Environment: strings.TrimSpace(environment),
		StartedAt:   started,
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.CommitSHA == "" {
		info.CommitSHA = "unknown"
	}
	if info.Environment == "" {
		info.Environment = "local"
	}
	return info
}

// wireHealthService assembles the readiness probes behind /readyz. The
// timezone probe guards against a broken tzdata install, the engine probe
// runs a fixed one-hour calculation end to end.
func wireHealthService(engine services.ParkingFeeService, timezone string, build services.BuildInfo) (services.SystemService, error) {
	repo, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name:    "timezone",
			Timeout: time.Second,
			Check: func(context.Context) error {
				_, err := time.LoadLocation(timezone)
				return err
			},
		},
		{
			Name:    "pricing_engine",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				_, err := engine.Calculate(ctx, services.CalculateParkingFeeCommand{
					Rules:   []services.PricingRule{{Period: 60, PriceFirstPeriod: 100, PriceNextPeriods: 100}},
					StartAt: "2025-01-01T10:00:00",
					EndAt:   "2025-01-01T11:00:00",
				})
				return err
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}
