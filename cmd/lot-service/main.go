package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pharmadisti/pharmadisti-backend/internal/lots/consumers"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/events"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/handler"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/repository"
	"github.com/pharmadisti/pharmadisti-backend/internal/lots/service"
	"github.com/pharmadisti/pharmadisti-backend/pkg/auth"
	"github.com/pharmadisti/pharmadisti-backend/pkg/config"
	"github.com/pharmadisti/pharmadisti-backend/pkg/database"
	"github.com/pharmadisti/pharmadisti-backend/pkg/httputil"
	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
	"github.com/pharmadisti/pharmadisti-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("lot-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("lot-service", cfg.Server.Environment)
	log.Info().Msg("starting Lot Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewLotEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	lotRepo := repository.NewLotRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	noteRepo := repository.NewReceivedNoteRepository(db)
	checkRepo := repository.NewNoteCheckRepository(db)
	userCacheRepo := repository.NewUserCacheRepository(db)

	// Initialize services
	lotService := service.NewLotService(db, lotRepo, roomRepo, catalogRepo, publisher, log)
	receivingService := service.NewReceivingService(db, noteRepo, poRepo, lotRepo, publisher, log)
	stockCheckService := service.NewStockCheckService(db, checkRepo, lotRepo, roomRepo, publisher, log)

	// Initialize handlers
	lotHandler := handler.NewLotHandler(lotService, log)
	receivingHandler := handler.NewReceivingHandler(receivingService, log)
	stockCheckHandler := handler.NewStockCheckHandler(stockCheckService, log)

	// Start user event consumer
	userConsumer, err := consumers.NewUserEventConsumer(rmq, userCacheRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	// Start expiry scheduler
	scheduler := service.NewExpiryScheduler(lotService, cfg.Scheduler.ExpirySweepInterval, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.Auth(auth.NewManager(&cfg.JWT)))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "lot-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Lot routes
		r.Route("/lots", func(r chi.Router) {
			r.Post("/", lotHandler.Create)
			r.Get("/{id}", lotHandler.Get)
			r.Put("/{id}", lotHandler.Update)
		})

		// Room-scoped lot listing
		r.Get("/rooms/{id}/lots", lotHandler.ListByRoom)

		// Receiving routes
		r.Route("/received-notes", func(r chi.Router) {
			r.Post("/", receivingHandler.Create)
			r.Get("/{id}", receivingHandler.Get)
		})

		// Stock check routes
		r.Route("/note-checks", func(r chi.Router) {
			r.Post("/", stockCheckHandler.Create)
			r.Get("/{id}", stockCheckHandler.Get)
			r.Get("/{id}/damaged", stockCheckHandler.ListDamaged)
			r.Put("/details/{id}/process", stockCheckHandler.Process)
		})

		// Damaged items across all checks
		r.Get("/damaged-items", stockCheckHandler.ListAllDamaged)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the consumer and scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
