package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/johnquangdev/persona-panel/internal/adapter/handler"
	"github.com/johnquangdev/persona-panel/internal/adapter/repository"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/cache"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/database"
	httpmw "github.com/johnquangdev/persona-panel/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/metrics"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/scheduler"
	"github.com/johnquangdev/persona-panel/internal/infrastructure/storage"
	aiuse "github.com/johnquangdev/persona-panel/internal/usecase/ai"
	"github.com/johnquangdev/persona-panel/internal/usecase/analysis"
	pkgai "github.com/johnquangdev/persona-panel/pkg/ai"
	"github.com/johnquangdev/persona-panel/pkg/config"
	"github.com/johnquangdev/persona-panel/pkg/jwt"
	pkgvalidator "github.com/johnquangdev/persona-panel/pkg/validator"
	"github.com/johnquangdev/persona-panel/pkg/webpage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	ctx := context.Background()

	logger.Info("🔧 Initializing dependencies...")

	// Initialize Database
	logger.Info("📦 Connecting to database...", zap.String("driver", cfg.Database.Driver))
	db, dialect, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	n, err := database.AutoMigrate(db, dialect)
	if err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	logger.Info("🔄 Migrations applied", zap.Int("count", n))

	// Progress store backend
	progress, closeProgress, err := newProgressProvider(ctx, cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize progress store", zap.Error(err))
	}
	defer closeProgress()
	logger.Info("💾 Progress store ready", zap.String("backend", cfg.Progress.Backend))

	// Model client and analyzer
	logger.Info("🤖 Initializing model client...",
		zap.String("provider", cfg.Model.Provider),
		zap.String("model", cfg.Model.ModelName()),
	)
	client, err := pkgai.NewClient(cfg.Model, logger)
	if err != nil {
		logger.Fatal("Failed to initialize model client", zap.Error(err))
	}
	analyzer := aiuse.NewModelAnalyzer(client, aiuse.NewParser(), cfg.Model.MaxTokens, logger)

	m := metrics.New()
	hub := handler.NewHub(logger)

	opts := []analysis.Option{
		analysis.WithRecorder(m),
		analysis.WithBroadcaster(hub),
	}
	if cfg.Storage.Enabled {
		logger.Info("🗄️ Connecting to report archive...", zap.String("endpoint", cfg.Storage.Endpoint))
		archive, err := storage.NewMinIOClient(ctx, &cfg.Storage)
		if err != nil {
			logger.Fatal("Failed to initialize report archive", zap.Error(err))
		}
		opts = append(opts, analysis.WithArchive(archive))
	}
	if cfg.Analysis.FetchPage {
		opts = append(opts, analysis.WithFetcher(webpage.NewFetcher(cfg.Analysis.SnapshotMaxChars, logger)))
	}

	service := analysis.NewService(analyzer, repository.NewAnalysisRepository(db), progress, cfg.Analysis, logger, opts...)

	// Scheduled purge of stale progress rows
	cron := scheduler.New(logger)
	if cfg.Progress.Backend == "database" {
		err := cron.AddPurge(cfg.Progress.PurgeSchedule, "progress", func(ctx context.Context) (int64, error) {
			return repository.PurgeExpiredProgress(ctx, db, cfg.Progress.MaxAge, time.Now())
		})
		if err != nil {
			logger.Fatal("Failed to schedule progress purge", zap.Error(err))
		}
	}
	cron.Start()

	var jwtManager *jwt.Manager
	if cfg.AuthEnabled() {
		logger.Info("🔑 Bearer token authentication enabled")
		jwtManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer)
	} else {
		logger.Warn("⚠️ Authentication disabled, all callers share the anonymous scope")
	}

	logger.Info("🛣️ Setting up routes...")
	router := handler.NewRouter(
		cfg,
		handler.NewAnalysisHandler(service, logger),
		handler.NewProgressHandler(service, hub, logger),
		m.Handler(),
		httpmw.EchoAuth(jwtManager, logger),
	)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("🚀 Starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment),
		)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Server forced to shutdown", zap.Error(err))
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Analysis jobs did not stop in time", zap.Error(err))
	}
	cron.Stop(shutdownCtx)

	logger.Info("✅ Server stopped gracefully")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newProgressProvider builds the configured backend and a matching close func
func newProgressProvider(ctx context.Context, cfg *config.Config, db *gorm.DB) (domainrepo.ProgressStoreProvider, func(), error) {
	switch cfg.Progress.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisProgressProvider(client, cfg.Progress.MaxAge), func() { _ = client.Close() }, nil
	case "database":
		return repository.NewGormProgressProvider(db, cfg.Progress.MaxAge), func() {}, nil
	default:
		mem := cache.NewMemoryStore()
		return repository.NewMemoryProgressProvider(mem, cfg.Progress.MaxAge), mem.Close, nil
	}
}
