package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/scribe/internal/auth"
	"github.com/af-corp/scribe/internal/compose"
	"github.com/af-corp/scribe/internal/config"
	"github.com/af-corp/scribe/internal/history"
	"github.com/af-corp/scribe/internal/orchestrator"
	"github.com/af-corp/scribe/internal/policy"
	"github.com/af-corp/scribe/internal/quota"
	"github.com/af-corp/scribe/internal/ratelimit"
	"github.com/af-corp/scribe/internal/safety"
	"github.com/af-corp/scribe/internal/service"
	"github.com/af-corp/scribe/internal/telemetry"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()

	// Connect to PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Warn("database not reachable (service will start but auth will fail)", "error", err)
	} else {
		logger.Info("database connected")
	}

	// Connect to Redis
	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (quota tracking falls back to in-process counters)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	// Quota managers: Redis-backed when available, otherwise in-process.
	var composeQuota, assistQuota quota.Manager
	if rdb != nil {
		composeQuota = quota.NewRedisManager(rdb, "compose", nil)
		assistQuota = quota.NewRedisManager(rdb, "assist", nil)
	} else {
		composeQuota = quota.NewMemoryManager(nil)
		assistQuota = quota.NewMemoryManager(nil)
	}

	// Composition pipeline
	safetyCfg := func() config.SafetyConfig { return loader.Config().Safety }
	scanner := safety.NewScanner(safetyCfg)
	neutralizer := safety.NewNeutralizer(scanner, safetyCfg, loader.Templates)
	composer := compose.New(loader.Templates)

	orch := orchestrator.New(
		composer,
		scanner,
		neutralizer,
		composeQuota,
		assistQuota,
		history.NewMessageLog(),
		history.NewAlertLog(),
		history.NewArchive(dbPool),
		nil,
	)

	// Messaging policies
	policyCfg := func() config.PolicyConfig { return loader.Config().Policy }
	evaluator := policy.NewEvaluator(policyCfg)
	if cfg.Policy.Enabled {
		if err := evaluator.Load(); err != nil {
			logger.Error("failed to load messaging policies", "error", err)
			os.Exit(1)
		}
		loader.OnReload(func() {
			if err := evaluator.Load(); err != nil {
				logger.Error("failed to reload messaging policies", "error", err)
			}
		})
	}

	metrics := telemetry.NewMetrics()

	// Build handler
	keyStore := auth.NewCachedKeyStore(dbPool, rdb)
	handler := service.NewHandler(orch, scanner, loader.Config, evaluator, metrics)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	// Unauthenticated routes
	r.Get("/scribe/v1/health", handler.Health)

	// Authenticated routes
	limiter := ratelimit.NewLimiter(rdb)
	rpm := func() int { return loader.Config().Quota.RequestsPerMinute }
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(keyStore))
		r.Use(ratelimit.Middleware(limiter, rpm, metrics))
		r.Post("/v1/compose", handler.Compose)
		r.Post("/v1/compose/{id}/variations", handler.Variations)
		r.Post("/v1/scan", handler.Scan)
		r.Get("/v1/history", handler.History)
		r.Post("/v1/history/{id}/favorite", handler.Favorite)
		r.Get("/v1/alerts", handler.Alerts)
		r.Post("/v1/alerts/{id}/resolve", handler.ResolveAlert)
	})

	// Metrics listener on its own port
	if cfg.Telemetry.MetricsPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics listener starting", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("scribe starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("scribe stopped")
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
