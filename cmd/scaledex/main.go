package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/app"
	"github.com/kailas-cloud/scaledex/internal/config"
	"github.com/kailas-cloud/scaledex/internal/db"
	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
	logpkg "github.com/kailas-cloud/scaledex/internal/logger"
	"github.com/kailas-cloud/scaledex/internal/metrics"
	accessrepo "github.com/kailas-cloud/scaledex/internal/repository/access"
	scalerepo "github.com/kailas-cloud/scaledex/internal/repository/scale"
	usagerepo "github.com/kailas-cloud/scaledex/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/scaledex/internal/transport/chi"
	accessuc "github.com/kailas-cloud/scaledex/internal/usecase/access"
	embeddinguc "github.com/kailas-cloud/scaledex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/scaledex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/scaledex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/scaledex/internal/usecase/usage"
	"github.com/kailas-cloud/scaledex/internal/version"
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

	logger.Info("Starting scaledex API server",
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("embedding", cfg.Embedding.Enabled()),
		zap.String("access_store", cfg.Access.Store),
	)

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdown, err := metrics.InitTracer(ctx, cfg.Tracing.ServiceName, version.Version, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Fatal("Failed to init tracing", zap.Error(err))
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	store, err := app.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	// Catalog
	scales := scalerepo.New(store,
		scalerepo.WithSnapshotTTL(time.Duration(cfg.Search.SnapshotTTLSec)*time.Second),
		scalerepo.WithLogger(logger),
	)
	if cfg.Database.CatalogPath != "" {
		importCatalog(ctx, scales, cfg.Database.CatalogPath, logger)
	}

	// Ranking engine with an optional bounded scoring pool
	var engineOpts []searchuc.Option
	if cfg.Search.ScoringWorkers > 0 {
		pool, err := ants.NewPool(cfg.Search.ScoringWorkers)
		if err != nil {
			logger.Fatal("Failed to create scoring pool", zap.Error(err))
		}
		defer pool.Release()
		engineOpts = append(engineOpts, searchuc.WithPool(pool))
	}
	engine, err := app.NewEngine(cfg.Search, logger, engineOpts...)
	if err != nil {
		logger.Fatal("Failed to build ranking engine", zap.Error(err))
	}

	// Access gate
	gate, closeGate := buildGate(cfg.Access, store, logger)
	defer closeGate()

	// Query embeddings are optional: without a provider every search is non-vector.
	// Pass nil interfaces (not typed nil pointers) when disabled.
	var (
		vectorizer searchuc.Vectorizer
		embHealth  healthuc.EmbeddingChecker
	)
	if cfg.Embedding.Enabled() {
		embedder := app.NewQueryEmbedder(cfg.Embedding, store, logger)
		vectorizer = embeddinguc.NewVectorizer(embedder, cfg.Embedding.Dimensions)
		if hc, ok := embedder.(healthuc.EmbeddingChecker); ok {
			embHealth = hc
		}
		logger.Info("Query embedder created",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
			zap.Bool("cache", cfg.Embedding.Cache.Enabled),
		)
	}

	// Usage recording
	var (
		recorder    searchuc.Recorder
		usageReader usageuc.CounterReader
	)
	if cfg.Usage.Enabled {
		counter := usagerepo.New(store, time.Duration(cfg.Usage.DailyTTLDays)*24*time.Hour)
		dispatcher, err := usageuc.NewDispatcher(
			counter, cfg.Usage.Workers, time.Duration(cfg.Usage.GraceMs)*time.Millisecond, logger,
		)
		if err != nil {
			logger.Fatal("Failed to create usage dispatcher", zap.Error(err))
		}
		defer func() {
			if err := dispatcher.Close(); err != nil {
				logger.Warn("Usage dispatcher did not drain", zap.Error(err))
			}
		}()
		recorder = dispatcher
		usageReader = counter
	}

	searchSvc := searchuc.NewService(searchuc.ServiceDeps{
		Engine:           engine,
		Provider:         scales,
		Gate:             gate,
		Vectorizer:       vectorizer,
		Recorder:         recorder,
		EmbeddingTimeout: cfg.Embedding.Timeout(),
		Logger:           logger,
	})
	usageSvc := usageuc.New(usageReader)
	healthSvc := healthuc.New(store, embHealth, scales)

	server := chiTransport.NewServer(searchSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.IdentityMiddleware(chiTransport.IdentityConfig{
		APIKeys:    cfg.Auth.APIKeys,
		UserHeader: cfg.Auth.UserHeader,
	}))
	r.Use(metrics.Middleware())
	server.Routes(r)

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// buildGate selects the access-state store. The returned func stops background work.
func buildGate(cfg config.AccessConfig, store db.KVStore, logger *zap.Logger) (*accessuc.Gate, func()) {
	policy := domaccess.Policy{
		Quota:          cfg.Quota,
		Window:         time.Duration(cfg.WindowHours) * time.Hour,
		AnonymousLimit: cfg.AnonymousLimit,
	}

	if cfg.Store == config.AccessStoreDatabase {
		return accessuc.NewGate(accessrepo.New(store), policy, logger), func() {}
	}

	mem := accessuc.NewMemoryStore(time.Duration(cfg.EvictIntervalSec) * time.Second)
	return accessuc.NewGate(mem, policy, logger), mem.Close
}

// importCatalog loads a JSON catalog file into the store. Invalid records are skipped and logged.
func importCatalog(ctx context.Context, repo *scalerepo.Repo, path string, logger *zap.Logger) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		logger.Warn("Catalog file not loaded", zap.String("path", path), zap.Error(err))
		return
	}
	defer func() { _ = f.Close() }()

	scales, decodeErr := scalerepo.DecodeCatalog(f)
	if decodeErr != nil {
		logger.Warn("Catalog has invalid records", zap.String("path", path), zap.Error(decodeErr))
	}
	n, err := repo.Import(ctx, scales)
	if err != nil {
		logger.Error("Catalog import failed", zap.String("path", path), zap.Int("imported", n), zap.Error(err))
		return
	}
	logger.Info("Catalog imported", zap.String("path", path), zap.Int("scales", n))
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("Panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":   "InternalError",
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
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
