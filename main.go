package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"content-hub/config"
	"content-hub/events"
	"content-hub/models"
	"content-hub/providers"
	"content-hub/providers/n8n"
	"content-hub/providers/openai"
	"content-hub/providers/semrush"
	"content-hub/services"
	"content-hub/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to content database", zap.Error(err))
	}
	logging.Info("Successfully connected to content database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.ContentItem{}, &models.Keyword{}, &models.WebhookRun{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	bus := events.NewBus(logging.Named("events"))

	// Setup Generators
	generators := setupGenerators(cfg, logging)
	if len(generators) == 0 {
		logging.Warn("No content generator configured. Check ENABLED_GENERATORS in .env")
	}
	contentService := services.NewContentService(db, bus, logging, generators)
	if cfg.N8NAdjustmentWebhookURL != "" {
		contentService.SetAdjuster(n8n.NewClient("n8n-adjust", cfg.N8NAdjustmentWebhookURL, logging,
			n8n.WithTimeout(cfg.WebhookTimeout), n8n.WithSource(cfg.WebhookSource)))
	}
	logging.Info("Active generators loaded", zap.Strings("generators", contentService.Generators()))

	// Setup Services
	libraryService := services.NewLibraryService(db, bus, logging)

	var keywordSource providers.KeywordSource
	if cfg.SemrushAPIKey != "" {
		keywordSource = semrush.NewSource(cfg, logging)
	} else {
		logging.Warn("SEMRUSH_API_KEY not set, keyword research disabled")
	}
	keywordService := services.NewKeywordService(db, keywordSource, bus, logging)

	var exportService *services.ExportService
	if cfg.S3Enabled() {
		s3Client, err := storage.NewS3Client(context.Background(), cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		store := storage.NewStore(s3Client, cfg.S3Bucket, cfg.S3Endpoint, logging)
		exportService = services.NewExportService(libraryService, store, logging)
	} else {
		logging.Warn("S3 not configured, library export disabled")
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupHealthRoutes(router, db)
	setupContentRoutes(router, contentService, logging)
	setupLibraryRoutes(router, libraryService, exportService, logging)
	setupKeywordRoutes(router, keywordService, logging)
	setupEventRoutes(router, bus, logging)

	// Setup Cron
	cronScheduler := cron.New()
	if cfg.KeywordRefreshSchedule != "" && keywordSource != nil {
		_, err := cronScheduler.AddFunc(cfg.KeywordRefreshSchedule, func() {
			logging.Info("Running scheduled keyword refresh...")
			count, err := keywordService.RefreshAll(context.Background())
			if err != nil {
				logging.Error("Keyword refresh job failed", zap.Int("keywords", count), zap.Error(err))
				return
			}
			logging.Info("Keyword refresh job completed", zap.Int("keywords", count))
		})
		if err != nil {
			logging.Fatal("Invalid KEYWORD_REFRESH_SCHEDULE", zap.Error(err))
		}
	}
	if cfg.ExportSchedule != "" && exportService != nil {
		_, err := cronScheduler.AddFunc(cfg.ExportSchedule, func() {
			logging.Info("Running scheduled library export...")
			res, err := exportService.Export(context.Background())
			if err != nil {
				logging.Error("Export job failed", zap.Error(err))
				return
			}
			logging.Info("Export job completed", zap.String("link", res.Link), zap.Int("items", res.Items))
		})
		if err != nil {
			logging.Fatal("Invalid EXPORT_SCHEDULE", zap.Error(err))
		}
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Kein WriteTimeout: Webhooks dürfen 180s brauchen, /events streamt unbegrenzt.
		IdleTimeout: 120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// setupGenerators baut die in ENABLED_GENERATORS genannten Generatoren, sofern konfiguriert.
func setupGenerators(cfg *config.Config, logging *zap.Logger) []providers.Generator {
	var generators []providers.Generator
	for _, name := range cfg.Generators() {
		switch name {
		case "n8n":
			if cfg.N8NContentWebhookURL == "" {
				logging.Warn("N8N_CONTENT_WEBHOOK_URL not set, skipping generator", zap.String("generator", name))
				continue
			}
			generators = append(generators, n8n.NewClient("n8n", cfg.N8NContentWebhookURL, logging,
				n8n.WithTimeout(cfg.WebhookTimeout), n8n.WithSource(cfg.WebhookSource)))
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				logging.Warn("OPENAI_API_KEY not set, skipping generator", zap.String("generator", name))
				continue
			}
			generators = append(generators, openai.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.WebhookTimeout, logging))
		default:
			logging.Warn("Unknown generator in config", zap.String("generator_name", name))
		}
	}
	return generators
}
