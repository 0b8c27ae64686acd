package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aegis-sentinel/aegis/pkg/app/classification"
	"github.com/aegis-sentinel/aegis/pkg/app/filescan"
	"github.com/aegis-sentinel/aegis/pkg/app/webscan"
	"github.com/aegis-sentinel/aegis/pkg/cache"
	"github.com/aegis-sentinel/aegis/pkg/common"
	"github.com/aegis-sentinel/aegis/pkg/config"
	handlers "github.com/aegis-sentinel/aegis/pkg/handlers/http"
	"github.com/aegis-sentinel/aegis/pkg/infra/auth"
	"github.com/aegis-sentinel/aegis/pkg/infra/database"
	"github.com/aegis-sentinel/aegis/pkg/infra/geoip"
	infraLogger "github.com/aegis-sentinel/aegis/pkg/infra/logger"
	"github.com/aegis-sentinel/aegis/pkg/infra/prometheus"
	"github.com/aegis-sentinel/aegis/pkg/infra/providers/factory"
	"github.com/aegis-sentinel/aegis/pkg/infra/ratelimit"
	"github.com/aegis-sentinel/aegis/pkg/infra/repository"
	"github.com/aegis-sentinel/aegis/pkg/infra/virustotal"
	"github.com/aegis-sentinel/aegis/pkg/middleware"
	"github.com/aegis-sentinel/aegis/pkg/server"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config"
	}
	if err := config.Load(configPath); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	prometheus.Initialize()

	db, err := database.NewDB(logger, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	cacheInstance, err := cache.NewCache(common.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheInstance.Close()

	// repository
	scanLogRepository := repository.NewScanLogRepository(db.DB)
	websiteScanRepository := repository.NewWebsiteScanRepository(db.DB)

	// classification pipeline
	providerLocator := factory.NewProviderLocator()
	classifierRouter := classification.NewRouter(providerLocator, cfg.Providers.LLM, logger)
	pipeline := classification.NewPipeline(classifierRouter, scanLogRepository, logger)

	// scanners
	virusTotalClient := virustotal.NewClient(cfg.Providers.VirusTotal.APIKey)
	fileScanner := filescan.NewScanner(pipeline, virusTotalClient, scanLogRepository, logger)
	geoResolver := geoip.NewResolver(logger)
	websiteScanner := webscan.NewScanner(websiteScanRepository, geoResolver, logger)

	// auth + rate limiting
	verifier := auth.NewJWTVerifier(&cfg.Auth)
	limiter := ratelimit.NewLimiter(cacheInstance.Client(), cfg.RateLimits.Window, nil)

	middlewareTransport := middleware.Transport{
		AuthMiddleware:         middleware.NewAuthMiddleware(logger, verifier),
		RateLimitMiddleware:    middleware.NewRateLimitMiddleware(logger, limiter, cfg.RateLimits),
		CORSMiddleware:         middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins),
		MetricsMiddleware:      middleware.NewMetricsMiddleware(logger),
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
	}

	handlerTransport := handlers.HandlerTransport{
		AnalyzePromptHandler:   handlers.NewAnalyzePromptHandler(logger, pipeline),
		ScanFileHandler:        handlers.NewScanFileHandler(logger, fileScanner),
		ScanWebsiteHandler:     handlers.NewScanWebsiteHandler(logger, websiteScanner),
		ListScanLogsHandler:    handlers.NewListScanLogsHandler(logger, scanLogRepository),
		ListScanHistoryHandler: handlers.NewListScanHistoryHandler(logger, websiteScanRepository),
		GetVersionHandler:      handlers.NewGetVersionHandler(logger),
	}

	aegisServer := server.NewAegisServer(server.AegisServerDI{
		MiddlewareTransport: middlewareTransport,
		HandlerTransport:    handlerTransport,
		Config:              cfg,
		Logger:              logger,
	})

	go func() {
		if err := aegisServer.Run(); err != nil {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := aegisServer.Shutdown(); err != nil {
		logger.WithError(err).Error("failed to shut down server cleanly")
	}
}
