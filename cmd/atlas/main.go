package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/config"
	dbRedis "github.com/B-Leucht/open-atlas/internal/db/redis"
	logpkg "github.com/B-Leucht/open-atlas/internal/logger"
	"github.com/B-Leucht/open-atlas/internal/metrics"
	"github.com/B-Leucht/open-atlas/internal/repository/featurecache"
	workspacerepo "github.com/B-Leucht/open-atlas/internal/repository/workspace"
	chiTransport "github.com/B-Leucht/open-atlas/internal/transport/chi"
	"github.com/B-Leucht/open-atlas/internal/transport/ckan"
	healthuc "github.com/B-Leucht/open-atlas/internal/usecase/health"
	ingestuc "github.com/B-Leucht/open-atlas/internal/usecase/ingest"
	resolveuc "github.com/B-Leucht/open-atlas/internal/usecase/resolve"
	searchuc "github.com/B-Leucht/open-atlas/internal/usecase/search"
	workspaceuc "github.com/B-Leucht/open-atlas/internal/usecase/workspace"
	"github.com/B-Leucht/open-atlas/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting open-atlas API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("catalog_url", cfg.Catalog.BaseURL),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register catalog metrics explicitly (no init())
	metrics.RegisterCatalogMetrics()

	// Catalog client, the single outbound HTTP dependency
	catalog := ckan.NewClient(&ckan.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		Timeout:    time.Duration(cfg.Catalog.TimeoutSec) * time.Second,
		SearchRows: cfg.Catalog.SearchRows,
		Logger:     logger,
	})

	// Ingestion pipeline behind the bounded feature cache
	ingestSvc := ingestuc.New(catalog, logger)
	featureCache := featurecache.New(
		ingestSvc,
		cfg.Cache.Capacity,
		time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.FeatureCacheTotal,
		logger,
	)

	// Repositories and use case services
	wsRepo := workspacerepo.New(store)
	wsSvc := workspaceuc.New(wsRepo)
	resolveSvc := resolveuc.New(catalog, logger)
	searchSvc := searchuc.New(featureCache, logger).
		WithPagination(cfg.Search.DefaultLimit, cfg.Search.MaxLimit).
		WithFetch(cfg.Search.FetchConcurrency, cfg.Search.MaxPerDataset)
	healthSvc := healthuc.New(store, catalog)

	// Create chi server
	server := chiTransport.NewServer(wsSvc, searchSvc, resolveSvc, catalog, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
