package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/cache"
	"github.com/fixpoint-io/fixpoint-api/internal/config"
	"github.com/fixpoint-io/fixpoint-api/internal/handlers"
	"github.com/fixpoint-io/fixpoint-api/internal/middleware"
	"github.com/fixpoint-io/fixpoint-api/internal/migration"
	"github.com/fixpoint-io/fixpoint-api/internal/notification"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
	"github.com/fixpoint-io/fixpoint-api/internal/routes"
	"github.com/fixpoint-io/fixpoint-api/internal/statusfeed"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	db            *sql.DB
	cache         *cache.Cache
	hub           *statusfeed.Hub
	logger        zerolog.Logger
	notifications notification.Service
}

func main() {
	// Optional .env for local development; real deployments set env vars.
	godotenv.Load() //nolint:errcheck

	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	goose.SetLogger(migration.NewGooseAdapter(logger))

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Live status feed hub and the system snapshot collector feeding it.
	hub := statusfeed.NewHub()
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	go statusfeed.NewCollector(db, hub, cfg.Feed.Interval, logger).Run(collectorCtx)

	// Shared TTL cache for reference data.
	refCache := cache.New()

	// Notification fan-out: in-app rows always, email and feed as side
	// channels. A missing SMTP config only disables email delivery.
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	notifiers := []notification.Notifier{notification.NewFeedNotifier(hub, logger)}
	if emailNotifier, err := notification.NewEmailNotifier(cfg.Email, logger); err != nil {
		logger.Warn().Err(err).Msg("email notifications disabled")
	} else {
		notifiers = append(notifiers, emailNotifier)
	}
	notificationService := notification.NewService(notificationRepo, userRepo, refCache, cfg.Cache.ReferenceTTL, logger, notifiers...)

	app := &application{
		config:        cfg,
		db:            db,
		cache:         refCache,
		hub:           hub,
		logger:        logger,
		notifications: notificationService,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(userRepo, logger)
	loggedRouter := middleware.Logging(logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORSOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(userRepo repository.UserRepository, logger zerolog.Logger) http.Handler {
	// Repositories
	locationRepo := repository.NewLocationRepository(app.db)
	customerRepo := repository.NewCustomerRepository(app.db)
	deviceRepo := repository.NewDeviceRepository(app.db)
	saleRepo := repository.NewSaleRepository(app.db)
	inventoryRepo := repository.NewInventoryRepository(app.db)
	poRepo := repository.NewPurchaseOrderRepository(app.db)
	expenseRepo := repository.NewExpenseRepository(app.db)
	feedbackRepo := repository.NewFeedbackRepository(app.db)

	return routes.NewRouter(routes.Handlers{
		Auth:          handlers.NewAuthHandler(userRepo, app.config.JWTSecret, logger),
		User:          handlers.NewUserHandler(userRepo, logger),
		Location:      handlers.NewLocationHandler(locationRepo, logger),
		Customer:      handlers.NewCustomerHandler(customerRepo, logger),
		Device:        handlers.NewDeviceHandler(deviceRepo, customerRepo, app.notifications, logger),
		Sale:          handlers.NewSaleHandler(saleRepo, app.notifications, logger),
		Inventory:     handlers.NewInventoryHandler(inventoryRepo, app.notifications, logger),
		PurchaseOrder: handlers.NewPurchaseOrderHandler(poRepo, app.notifications, logger),
		Expense:       handlers.NewExpenseHandler(expenseRepo, logger),
		Feedback:      handlers.NewFeedbackHandler(feedbackRepo, app.notifications, logger),
		Notification:  handlers.NewNotificationHandler(app.notifications, logger),
		Preference:    handlers.NewPreferenceHandler(app.notifications, logger),
		Landing:       handlers.NewLandingHandler(locationRepo, app.cache, app.config.Cache.ReferenceTTL, logger),
		Health:        handlers.HealthCheck(app.db),
		Feed:          statusfeed.NewHandler(app.hub, logger),
	})
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
