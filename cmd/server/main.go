package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ugc-video-service/conf"
	"ugc-video-service/controller"
	"ugc-video-service/database"
	"ugc-video-service/mediaplatform"
	"ugc-video-service/model/dao"
	"ugc-video-service/service/upload_service"
	"ugc-video-service/service/video_service"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to config file (default: CONFIG_PATH env or ./config.yaml)")
}

func main() {
	// Initialize all components
	cleanupProcessor, srv, cleanup := initAll()
	defer cleanup()

	// Start session cleanup processor
	cleanupProcessor.Start()

	// Start HTTP API service (in goroutine)
	go startServer(srv)
	log.Println("UGC video service started successfully")

	// Wait for shutdown signal
	waitForShutdown()

	log.Println("Shutting down UGC video service...")

	// Stop cleanup processor
	cleanupProcessor.Stop()

	// Gracefully shutdown HTTP service
	shutdownServer(srv)

	log.Println("Server exited")
}

// initAll initialize all components
func initAll() (*upload_service.CleanupProcessor, *http.Server, func()) {
	// Parse command line parameters
	flag.Parse()

	// Initialize configuration
	if err := conf.InitConfig(configPath); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	log.Printf("Configuration loaded: port=%s", conf.Cfg.Port)

	// Initialize database
	if err := database.InitMySQL(&database.MySQLConfig{
		DSN:          conf.Cfg.Database.Dsn,
		MaxOpenConns: conf.Cfg.Database.MaxOpenConns,
		MaxIdleConns: conf.Cfg.Database.MaxIdleConns,
	}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (optional, won't fail if disabled or unavailable)
	if err := database.InitRedis(); err != nil {
		log.Printf("Redis initialization failed (cache will be disabled): %v", err)
	}

	// Create media platform client
	platform := mediaplatform.NewClient(
		conf.Cfg.Platform.Endpoint,
		conf.Cfg.Platform.AccessToken,
		time.Duration(conf.Cfg.Platform.TimeoutSeconds)*time.Second,
	)

	// Create services
	videoService := video_service.NewVideoService(dao.NewUgcVideoDAO())
	uploadService := upload_service.NewUploadService(platform, videoService, dao.NewUploadSessionDAO())
	uploadService.SetPollPolicy(
		time.Duration(conf.Cfg.Uploader.PollIntervalMs)*time.Millisecond,
		conf.Cfg.Uploader.PollMaxAttempts,
	)

	// Create session cleanup processor
	cleanupProcessor := upload_service.NewCleanupProcessor(
		uploadService,
		time.Duration(conf.Cfg.Uploader.CleanupIntervalMin)*time.Minute,
		time.Duration(conf.Cfg.Uploader.RetentionHours)*time.Hour,
	)

	// Setup router
	router := controller.SetupRouter(videoService, uploadService)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + conf.Cfg.Port,
		Handler: router,
	}

	// Return processor, server and cleanup function
	cleanup := func() {
		if err := database.CloseMySQL(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
		if err := database.CloseRedis(); err != nil {
			log.Printf("Failed to close Redis: %v", err)
		}
	}

	return cleanupProcessor, srv, cleanup
}

// startServer start HTTP server
func startServer(srv *http.Server) {
	log.Printf("UGC video API service starting on port %s...", conf.Cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// waitForShutdown wait for shutdown signal
func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

// shutdownServer gracefully shutdown server
func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
