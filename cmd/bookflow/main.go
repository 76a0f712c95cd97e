package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bookflow/internal/admission"
	"bookflow/internal/api"
	"bookflow/internal/availability"
	"bookflow/internal/config"
	"bookflow/internal/database"
	"bookflow/internal/events"
	"bookflow/internal/locker"
	"bookflow/internal/metrics"
	"bookflow/internal/pricing"
	"bookflow/internal/recurring"
	"bookflow/internal/report"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BOOKFLOW_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, cfg.Booking.DefaultCapacity, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid pricing configuration")
	}

	var rdb *redis.Client
	var locks admission.Locker = admission.NewKeyedMutex()
	if cfg.Locking.Mode == config.LockingRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		locks = locker.NewRedisLocker(rdb, "bookflow:lock").WithTTL(cfg.RedisLockTTL())
		logger.Info().Str("address", cfg.Redis.Address).Msg("using redis locking")
	}

	bus := events.NewBus()
	checker := availability.NewChecker(db, db, db, registry, &logger)
	admitter := admission.NewService(db, db, checker, registry, locks, bus, &logger)
	generator := recurring.NewGenerator(db, admitter, &logger)
	exporter := report.NewExporter(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, cfg.BackupInterval(), &logger)
		go backup.Start(ctx)
	}

	server := api.NewHTTPServer(admitter, checker, generator, exporter, db,
		cfg.API.RateLimitRPS, cfg.API.RateLimitBurst, &logger)

	logger.Info().Int("port", cfg.API.Port).Msg("bookflow started")
	if err := server.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.API.Port)); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func buildRegistry(cfg *config.Config) (*pricing.Registry, error) {
	if len(cfg.Pricing.Units) == 0 {
		return pricing.DefaultRegistry(), nil
	}
	return pricing.NewRegistry(cfg.Pricing.Units)
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
