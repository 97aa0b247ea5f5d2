package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
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

	"github.com/supra-heroes/zorgbot/internal/botapi"
	"github.com/supra-heroes/zorgbot/internal/cache"
	"github.com/supra-heroes/zorgbot/internal/config"
	"github.com/supra-heroes/zorgbot/internal/conversation"
	"github.com/supra-heroes/zorgbot/internal/engine"
	"github.com/supra-heroes/zorgbot/internal/ledger"
	"github.com/supra-heroes/zorgbot/internal/ratelimit"
	"github.com/supra-heroes/zorgbot/internal/telemetry"
	"github.com/supra-heroes/zorgbot/internal/upstream"
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

	// Connect the response cache. A dead Redis means no cache, not no bot.
	var store cache.Store
	if cfg.Engine.EnableCache {
		redisStore, err := cache.NewRedisStore(context.Background(), cache.RedisOptions{
			Address:     cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
			GetTimeout:  cfg.Redis.ReadTimeout,
		})
		if err != nil {
			logger.Warn("redis not reachable, response caching disabled", "error", err)
		} else {
			logger.Info("redis cache connected", "address", cfg.Redis.Address)
			store = redisStore
		}
	}

	// Budget tracking shares the Redis connection parameters with the cache
	var budgetClient *redis.Client
	if cfg.Chat.DailySpendCapCents > 0 {
		budgetClient = redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := budgetClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, budget tracking disabled", "error", err)
			budgetClient = nil
		}
	}

	// Connect PostgreSQL for the usage ledger (optional)
	var dbPool *pgxpool.Pool
	if cfg.Database.Host != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
		if err == nil {
			if pingErr := pool.Ping(context.Background()); pingErr != nil {
				logger.Warn("database not reachable, usage ledger disabled", "error", pingErr)
				pool.Close()
			} else {
				logger.Info("database connected")
				dbPool = pool
			}
		} else {
			logger.Warn("database config invalid, usage ledger disabled", "error", err)
		}
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	metrics := telemetry.NewMetrics()

	upstreamClient := upstream.NewClient(upstream.Options{
		BaseURL:          cfg.Upstream.BaseURL,
		APIKey:           cfg.Upstream.APIKey,
		Timeout:          cfg.Upstream.Timeout,
		FailureThreshold: cfg.Upstream.FailureThreshold,
		RecoveryInterval: cfg.Upstream.RecoveryInterval,
	})

	eng := engine.New(engine.Config{
		Upstream:  upstreamClient,
		Cache:     store,
		CacheTTL:  cfg.Engine.CacheTTL,
		AutoRoute: cfg.Engine.AutoRoute,
		Models:    loader.Models,
		Metrics:   metrics,
		Logger:    logger,
	})
	defer eng.Close()

	handler := botapi.NewHandler(
		eng,
		conversation.NewBuffer(cfg.Chat.MaxTurns),
		ratelimit.NewCooldown(cfg.Chat.Cooldown),
		ratelimit.NewBudgetTracker(budgetClient),
		ledger.New(dbPool),
		metrics,
		loader.Config,
	)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/zorgbot/v1/health", healthHandler)
	handler.Routes(r)

	// Metrics listener
	if cfg.Telemetry.MetricsPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
			logger.Info("metrics listening", "addr", addr)
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
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
		logger.Info("zorgbot starting", "addr", addr, "version", version, "auto_route", cfg.Engine.AutoRoute)
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
	logger.Info("zorgbot stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

// requestIDMiddleware assigns each request an ID and exposes it through the
// response header; handlers read it back from there.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
