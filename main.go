package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"aposta-be/internal/config"
	"aposta-be/internal/handler"
	"aposta-be/internal/middleware"
	"aposta-be/internal/repository"
	"aposta-be/internal/service"
	"aposta-be/pkg/database"
	"aposta-be/pkg/logger"
	"aposta-be/pkg/metrics"
	"aposta-be/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db            *database.PostgresDB
	redisClient   *redis.Client
	server        *http.Server
	metricsServer *http.Server
	log           *logger.Logger
	mu            sync.Mutex
	closed        bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown metrics server")
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("Redis close: %w", err))
		}
	}

	if r.db != nil {
		r.db.Close()
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"storage":     cfg.StorageDriver,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting aposta-be server")

	ctx := context.Background()
	resources := &Resources{log: log}

	// Pick the storage driver
	var repo repository.BetRepository
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		resources.db = db
		repo = repository.NewPostgresRepository(db)
	case config.StorageFile:
		fileRepo, err := repository.NewFileRepository(cfg.DataDir, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to open data directory")
		}
		repo = fileRepo
	default:
		log.WithField("driver", cfg.StorageDriver).Fatal("Unknown storage driver")
	}

	// Summary cache is optional: without Redis every summary is computed
	// from the store
	var summaryCache *service.SummaryCache
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to Redis, proceeding without summary cache")
		} else {
			resources.redisClient = redisClient
			summaryCache = service.NewSummaryCache(redisClient, log)
		}
	}

	betService := service.NewBetService(repo, summaryCache, log, nil)

	router := setupRouter(cfg, log, betService)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	resources.server = server

	if cfg.MetricsPort != "" {
		resources.metricsServer = metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
			if resources.db != nil {
				return resources.db.Health(ctx)
			}
			return nil
		})
		log.WithField("metrics_port", cfg.MetricsPort).Info("Metrics server started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server listening on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}
}

// setupRouter configures and returns the HTTP router
func setupRouter(cfg *config.Config, log *logger.Logger, betService *service.BetService) *chi.Mux {
	r := chi.NewRouter()

	corsConfig := &middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400,
	}

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	healthHandler := handler.NewHealthHandler(log)
	betHandler := handler.NewBetHandler(betService, log)

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		betHandler.RegisterRoutes(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","code":"NOT_FOUND","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
