package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mealsync/server/internal/caldav"
	"github.com/mealsync/server/internal/config"
	"github.com/mealsync/server/internal/crypto"
	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/handlers"
	custommw "github.com/mealsync/server/internal/middleware"
	"github.com/mealsync/server/internal/observability"
	"github.com/mealsync/server/internal/repository"
	"github.com/mealsync/server/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry
	ctx := context.Background()
	telemetry, err := observability.Initialize(ctx, observability.NewConfig("mealsync-server", serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	logger := observability.GetLogger()

	// Initialize database
	var db *sql.DB
	if cfg.UsePostgres() {
		logger.Info("Using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
	} else {
		logger.Info("Using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	householdRepo := repository.NewHouseholdRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	itemRepo := repository.NewPlannedItemRepository(db)
	accountRepo := repository.NewCaldavAccountRepository(db)
	statusRepo := repository.NewSyncStatusRepository(db)

	// Credential cipher and CalDAV client factory
	cipher, err := crypto.NewCipher(cfg.Caldav.CredentialSecret)
	if err != nil {
		log.Fatalf("Failed to initialize credential cipher: %v", err)
	}
	requestTimeout := time.Duration(cfg.Caldav.RequestTimeoutSeconds) * time.Second
	clientFactory := caldav.NewClientFactory(cipher, requestTimeout)

	// Events bus and websocket hub
	bus := events.NewBus()
	hub := services.NewWebSocketHub()
	hub.ForwardBusEvents(bus)
	go hub.Run()

	// Sync engine
	syncMetrics, err := observability.NewSyncMetrics()
	if err != nil {
		logger.Warnf("failed to create sync metrics: %v", err)
	}
	syncManager := services.NewSyncManager(accountRepo, statusRepo, householdRepo, clientFactory, bus, cfg.AppBaseURL)
	syncManager.SetMetrics(syncMetrics)

	trigger := services.NewEventTrigger(syncManager, itemRepo, statusRepo, bus)
	trigger.Register()

	retryInterval := time.Duration(cfg.Caldav.RetryIntervalMinutes) * time.Minute
	scheduler := services.NewRetryScheduler(syncManager, statusRepo, itemRepo, services.NewRetryPolicy(), retryInterval)
	scheduler.SetMetrics(syncMetrics)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start retry scheduler: %v", err)
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler()
	caldavHandler := handlers.NewCaldavHandler(accountRepo, statusRepo, trigger, cipher, bus, requestTimeout)
	itemHandler := handlers.NewPlannedItemHandler(itemRepo, recipeRepo, bus)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(observability.TracingMiddleware("mealsync-server"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	r.Use(custommw.UserAPIKeyAuth(userRepo, cfg.Security.APIKeyHeader, []string{
		"/health", "/api/health", "/api/version", "/swagger/*",
	}))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/api/version", handlers.VersionHandler)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/ws", wsHandler.HandleConnection)

	r.Route("/api/caldav", func(r chi.Router) {
		r.Get("/config", caldavHandler.GetConfig)
		r.Put("/config", caldavHandler.SaveConfig)
		r.Delete("/config", caldavHandler.DeleteConfig)
		r.Post("/test", caldavHandler.TestConnection)
		r.Post("/sync", caldavHandler.TriggerSync)
		r.Post("/retry", caldavHandler.RetrySync)
		r.Get("/status", caldavHandler.ListStatus)
		r.Get("/status/summary", caldavHandler.StatusSummary)
	})

	r.Route("/api/items", func(r chi.Router) {
		r.Post("/", itemHandler.PlanItem)
		r.Get("/", itemHandler.ListItems)
		r.Put("/{id}", itemHandler.UpdateItem)
		r.Delete("/{id}", itemHandler.DeleteItem)
	})

	r.Route("/api/recipes", func(r chi.Router) {
		r.Post("/", itemHandler.CreateRecipe)
		r.Post("/{id}/rename", itemHandler.RenameRecipe)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("MealSync Server starting on %s", cfg.ServerAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop()
	bus.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("telemetry shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
