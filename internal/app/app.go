package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signserver/internal/config"
	"signserver/internal/logger"
	"signserver/internal/monitor"
	"signserver/internal/repository/sqlite"
	"signserver/internal/routes"
	"signserver/internal/services"
	"signserver/internal/services/ai"
	"signserver/internal/services/storage"
	"signserver/internal/services/websocket"
	"signserver/internal/services/weights"
	"signserver/internal/session"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config         *config.Config
	logger         *logger.Logger
	db             *sqlite.DB
	detector       *ai.DetectorService
	storeService   *storage.StoreService
	hubService     *websocket.HubService
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	manager        *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Fetch missing model files before the engine loads them. A failed
	// download leaves the engine unavailable, not the server down.
	fetcher := weights.NewFetcher(log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := fetcher.EnsureModel(ctx, cfg); err != nil {
		log.Warning("Model download failed: %v", err)
	}

	db, err := sqlite.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := storage.NewStoreService(cfg.ImageDirectory, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create image store: %w", err)
	}

	detector := ai.NewDetectorService(cfg, log)
	if detector.Ready() {
		if err := detector.Warmup(); err != nil {
			log.Warning("Engine warmup failed: %v", err)
		}
	}

	sessions := session.NewManager(time.Duration(cfg.SessionTTLMinutes)*time.Minute, log)
	hub := websocket.NewHubService(log)
	mon := monitor.New(log)

	manager := services.NewManager(
		detector,
		store,
		hub,
		sessions,
		sqlite.NewAnalysisRepository(db),
		sqlite.NewDetectionRepository(db),
		mon,
		cfg,
		log,
	)

	return &App{
		config:         cfg,
		logger:         log,
		db:             db,
		detector:       detector,
		storeService:   store,
		hubService:     hub,
		sessionManager: sessions,
		monitor:        mon,
		manager:        manager,
	}, nil
}

func (a *App) Run() error {
	// Start background services
	go a.hubService.Run()
	go a.sessionManager.Run(time.Duration(a.config.CleanupIntervalSeconds) * time.Second)
	go a.manager.RunCleanup(a.config.CleanupIntervalSeconds)
	go a.monitor.Run(a.config.MonitorPort)

	router := routes.SetupRoutes(a.manager, a.config, a.logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("🚀 Traffic Sign Detection Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Images: %s\n", a.config.ImageDirectory)
	fmt.Printf("🤖 Model: %s (ready: %v)\n", a.config.ModelPath, a.manager.EngineReady())
	fmt.Printf("📊 Metrics: http://localhost:%d/metrics\n", a.config.MonitorPort)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.Info("Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error: %v", err)
	}

	a.manager.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Database close error: %v", err)
	}
	a.logger.Sync()

	return nil
}
