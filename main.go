package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"safespace/internal/cache"
	"safespace/internal/classifier"
	"safespace/internal/config"
	"safespace/internal/crypto"
	"safespace/internal/extension"
	"safespace/internal/notifier"
	"safespace/internal/repository"
	"safespace/internal/server"
	"safespace/internal/service"
	"safespace/internal/telemetry"
)

const defaultConfigPath = "configs/config.yml"

func main() {
	cfgPath := os.Getenv("SAFESPACE_CONFIG")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}

	// Load configuration
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Log.Format)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	if cfg.Log.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database connection
	if cfg.Database.Driver == repository.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.URL), 0o755); err != nil {
			logger.Fatal("Failed to create database directory", zap.Error(err))
		}
	}
	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics := telemetry.NewMetrics()

	// Resource catalog, optionally behind Redis
	var resources repository.ResourceRepository = repository.NewResourceRepository(db, logger)
	if cfg.Redis.Address != "" {
		client, err := cache.NewClient(cache.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Failed to connect to Redis, serving resources without cache", zap.Error(err))
		} else {
			defer client.Close()
			resources = cache.NewResourceCache(resources, client, cfg.CacheTTL(), metrics, logger)
			logger.Info("Resource cache enabled", zap.String("address", cfg.Redis.Address))
		}
	}
	if !cfg.Resources.SkipSeed {
		if _, err := repository.SeedResources(context.Background(), resources, logger); err != nil {
			logger.Fatal("Failed to seed resources", zap.Error(err))
		}
	}

	// Classifier
	lexicon, err := loadLexicon(cfg.Classifier.LexiconPath)
	if err != nil {
		logger.Fatal("Failed to load lexicon", zap.Error(err))
	}
	clf := classifier.New(lexicon)
	logger.Info("Classifier ready", zap.Int("categories", len(lexicon.Categories)))

	codec, err := crypto.NewCodec(cfg.Evidence.Codec, cfg.Evidence.Passphrase)
	if err != nil {
		logger.Fatal("Failed to initialize evidence codec", zap.Error(err))
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid analytics timezone", zap.Error(err))
	}
	analytics := service.NewAnalyticsService(repository.NewAnalyticsRepository(db, logger), loc, metrics, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Telegram alerts (optional)
	var alerts notifier.Notifier = notifier.Nop{}
	if cfg.Telegram.Enabled {
		bot, err := notifier.NewTelegramNotifier(notifier.TelegramConfig{
			BotToken:    cfg.Telegram.BotToken,
			ChatID:      cfg.Telegram.ChatID,
			APIEndpoint: cfg.Telegram.APIEndpoint,
		}, analytics, logger)
		if err != nil {
			logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		} else {
			alerts = bot
			go func() {
				if err := bot.Start(ctx); err != nil {
					logger.Error("Telegram bot failed", zap.Error(err))
				}
			}()
		}
	}

	bridge := extension.NewBridge(extension.Dependencies{
		Classifier: clf,
		Evidence:   repository.NewEvidenceRepository(db, logger),
		State:      repository.NewExtensionStateRepository(db, logger),
		Analytics:  analytics,
		Codec:      codec,
		Notifier:   alerts,
		Metrics:    metrics,
		SupportURL: cfg.Extension.SupportURL,
		Logger:     logger,
	})

	// Initialize and run the server
	srv := server.NewServer(server.Options{
		DB:              db,
		Classifier:      clf,
		Analytics:       analytics,
		Resources:       resources,
		Bridge:          bridge,
		Metrics:         metrics,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		Logger:          logger,
	})
	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}

	logger.Info("Application stopped.")
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func loadLexicon(path string) (*classifier.Lexicon, error) {
	if path == "" {
		return classifier.DefaultLexicon()
	}
	return classifier.LoadLexicon(path)
}
