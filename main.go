package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Itish41/ParseGuard/analysis"
	controller "github.com/Itish41/ParseGuard/controller"
	"github.com/Itish41/ParseGuard/extraction"
	"github.com/Itish41/ParseGuard/initializers"
	middleware "github.com/Itish41/ParseGuard/middleware"
	"github.com/Itish41/ParseGuard/repository"
	"github.com/Itish41/ParseGuard/search"
	services "github.com/Itish41/ParseGuard/service"
	"github.com/Itish41/ParseGuard/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := initializers.LoadEnv(); err != nil {
		log.Fatalf("[CRITICAL] Failed to load env: %s", err)
	}
	cfg, err := initializers.LoadConfig()
	if err != nil {
		log.Fatalf("[CRITICAL] Invalid configuration: %s", err)
	}
	logger, err := initializers.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("[CRITICAL] Failed to build logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initializers.ConnectDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize database connection", zap.Error(err))
	}
	if cfg.RunMigrations {
		if err := initializers.Migrate(db, cfg.MigrationsURL, logger); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}
	store := repository.NewGormStore(db)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize blob storage", zap.Error(err))
	}

	index, err := search.NewIndex(cfg.ElasticsearchURL, search.DefaultIndex, nil, logger)
	if err != nil {
		logger.Fatal("failed to initialize search index", zap.Error(err))
	}

	handlers := []extraction.Handler{extraction.PlainText{}}
	if cfg.OCRSpaceAPIKey != "" {
		handlers = append(handlers, extraction.NewOCRSpace(cfg.OCRSpaceAPIKey, cfg.OCRSpaceEndpoint, nil, logger))
	} else {
		logger.Warn("OCR_SPACE_API_KEY not set, PDF and image extraction disabled")
	}
	extractor := extraction.NewRouter(handlers...)

	analyzer, closeCache, err := newAnalyzer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize analyzer", zap.Error(err))
	}
	defer closeCache()

	opts := []services.Option{
		services.WithTimeouts(cfg.ExtractionTimeout, cfg.AnalysisTimeout),
		services.WithMaxFileSize(cfg.MaxFileSize),
	}
	lifecycle := services.NewLifecycleManager(store, logger, opts...)
	engine := services.NewScoringEngine(store, blobs, extractor, analyzer, index, lifecycle, logger, opts...)
	scores := services.NewRiskScoreService(store)
	docs := services.NewDocumentService(store, blobs, index, logger, opts...)
	dashboard := services.NewDashboardService(store, logger, opts...)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics(), middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", middleware.MetricsHandler())

	api := router.Group("/api", middleware.Auth([]byte(cfg.JWTSecret), logger))
	controller.Controllers{
		Compliance: controller.NewComplianceController(lifecycle, engine, scores, logger),
		Documents:  controller.NewDocumentController(docs, cfg.MaxFileSize, logger),
		RiskScores: controller.NewRiskScoreController(engine, scores, logger),
		Dashboard:  controller.NewDashboardController(dashboard, logger),
	}.Register(api, middleware.StrictRateLimiter.Limit())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newBlobStore(cfg *initializers.Config) (storage.BlobStore, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3Store(storage.S3Config{
			Region:    cfg.SupabaseRegion,
			Endpoint:  cfg.SupabaseEndpoint,
			AccessKey: cfg.SupabaseAccessKey,
			SecretKey: cfg.SupabaseSecretKey,
			Bucket:    cfg.SupabaseBucketName,
		})
	}
	return storage.NewDiskStore(cfg.UploadDir)
}

// newAnalyzer builds the LLM analyzer and wraps it with the configured cache.
// The returned func releases the cache connection.
func newAnalyzer(ctx context.Context, cfg *initializers.Config, logger *zap.Logger) (analysis.Analyzer, func(), error) {
	llm := analysis.NewLLMAnalyzer(analysis.LLMConfig{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		Model:             cfg.LLMModel,
		RequestsPerMinute: cfg.LLMRequestsPerMinute,
	}, logger)

	switch cfg.AnalysisCache {
	case "memory":
		return analysis.NewCachedAnalyzer(llm, analysis.NewMemoryCache(1024, cfg.AnalysisCacheTTL), logger), func() {}, nil
	case "redis":
		cache, err := analysis.NewRedisCache(ctx, cfg.RedisURL, cfg.AnalysisCacheTTL)
		if err != nil {
			return nil, nil, err
		}
		return analysis.NewCachedAnalyzer(llm, cache, logger), func() { cache.Close() }, nil
	}
	return llm, func() {}, nil
}
