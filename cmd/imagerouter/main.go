package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/imagerouter/internal/api"
	"github.com/af-corp/imagerouter/internal/auth"
	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/filter"
	"github.com/af-corp/imagerouter/internal/filter/injection"
	"github.com/af-corp/imagerouter/internal/filter/personal"
	"github.com/af-corp/imagerouter/internal/filter/policy"
	"github.com/af-corp/imagerouter/internal/provider"
	"github.com/af-corp/imagerouter/internal/ratelimit"
	"github.com/af-corp/imagerouter/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	loader := config.NewLoader(*configDir, bootLogger)
	if err := loader.Load(); err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger := newLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	rdb := connectRedis(cfg.Redis, logger)

	// Key store. Without a database every request is rejected as unauthenticated.
	var keys auth.KeyStore = rejectAll{}
	if cfg.Database.Enabled() {
		dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		if err := dbPool.Ping(context.Background()); err != nil {
			logger.Warn("database not reachable (service will start but auth will fail)", "error", err)
		} else {
			logger.Info("database connected")
		}
		keys = auth.NewCachedKeyStore(dbPool, rdb)
	} else {
		logger.Warn("no database configured, all authenticated routes will reject")
	}

	limiter := ratelimit.NewLimiter(rdb, cfg.Limits.LocalBurst)
	quota := ratelimit.NewAssistQuota(rdb)
	logger.Info("rate limiter ready", "backend", limiter.String())

	// Routers are rebuilt on every reload; circuit state lives on.
	health := provider.NewHealthTracker(cfg.Classifier.CircuitBreaker.FailureThreshold, cfg.Classifier.CircuitBreaker.RecoveryProbeInterval)
	initial, err := api.BuildRouters(loader.Snapshot(), health, metrics, logger)
	if err != nil {
		logger.Error("failed to build routers", "error", err)
		os.Exit(1)
	}
	var routers atomic.Pointer[api.Routers]
	routers.Store(initial)

	policyEval := policy.NewEvaluator(func() config.PolicyFilterConfig { return loader.Config().Filter.Policy })
	if cfg.Filter.Policy.Enabled {
		if err := policyEval.Load(); err != nil {
			logger.Warn("failed to load policies (assisted path stays closed)", "error", err)
		}
	}

	loader.OnReload(func(snap *config.Snapshot) {
		rs, err := api.BuildRouters(snap, health, metrics, logger)
		if err != nil {
			logger.Error("router rebuild failed, keeping previous routers", "error", err)
			return
		}
		routers.Store(rs)
		if snap.Config.Filter.Policy.Enabled {
			if err := policyEval.Load(); err != nil {
				logger.Warn("policy reload failed", "error", err)
			}
		}
		logger.Info("routers reloaded", "mode", rs.Mode, "lexicon", rs.Lexicon.Source)
	})

	guard := filter.NewChain(
		personal.NewScanner(func() config.PersonalFilterConfig { return loader.Config().Filter.Personal }),
		injection.NewScanner(func() config.InjectionFilterConfig { return loader.Config().Filter.Injection }),
		policyEval,
	)

	handler := api.NewHandler(routers.Load, loader.Config, guard, quota, metrics, logger)
	r := api.NewRouter(api.ServerDeps{
		Handler:    handler,
		Keys:       keys,
		Limiter:    limiter,
		DefaultRPM: cfg.Limits.DefaultRPM,
		Metrics:    metrics,
		Health:     health,
		Version:    version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
	metricsSrv := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("imagerouter starting", "addr", addr, "version", version, "mode", initial.Mode)
		errCh <- srv.ListenAndServe()
	}()
	go func() {
		logger.Info("metrics server starting", "addr", metricsAddr)
		errCh <- metricsSrv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	metricsSrv.Shutdown(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("imagerouter stopped")
}

func newLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func connectRedis(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if len(cfg.Addresses) == 0 || cfg.Addresses[0] == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addresses[0],
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis not reachable (local limits, no key cache, no assist quota)", "error", err)
		return nil
	}
	return rdb
}

type rejectAll struct{}

func (rejectAll) Lookup(context.Context, string) (*auth.KeyMetadata, error) { return nil, nil }
