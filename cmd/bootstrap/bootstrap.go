package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle-service-scheduling/config"
	deliveryHttp "vehicle-service-scheduling/internal/delivery/http"
	"vehicle-service-scheduling/internal/delivery/http/handler"
	"vehicle-service-scheduling/internal/delivery/http/middleware"
	"vehicle-service-scheduling/internal/infrastructure/cache"
	"vehicle-service-scheduling/internal/infrastructure/database"
	"vehicle-service-scheduling/internal/infrastructure/lookup"
	"vehicle-service-scheduling/internal/infrastructure/notifier"
	"vehicle-service-scheduling/internal/repository"
	"vehicle-service-scheduling/internal/service"
	"vehicle-service-scheduling/internal/usecase"
	"vehicle-service-scheduling/pkg/jwt"
	"vehicle-service-scheduling/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Dispatcher  *service.NotificationDispatcher
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initializeServer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// SetupLogger configures the logrus logger
func SetupLogger(cfg *config.Config) *logrus.Logger {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return logrus.StandardLogger()
}

// NewSlotLedger builds the ledger on its own, for commands that only seed slots
func NewSlotLedger(cfg *config.Config, db *gorm.DB, log *logrus.Logger) (*service.SlotLedger, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling time zone %q: %w", cfg.Scheduling.TimeZone, err)
	}

	return service.NewSlotLedger(
		db,
		log,
		repository.NewTimeSlotRepository(),
		repository.NewBusinessHoursRepository(),
		loc,
		cfg.Scheduling.SlotPageSize,
	), nil
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() error {
	cfg := app.Config
	db := app.DB
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	slotRepo := repository.NewTimeSlotRepository()
	hoursRepo := repository.NewBusinessHoursRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	historyRepo := repository.NewAppointmentHistoryRepository()

	// Initialize external collaborators
	httpLookup := lookup.NewHTTPClient(map[lookup.Kind]string{
		lookup.KindCustomer: cfg.Lookup.CustomerURL,
		lookup.KindVehicle:  cfg.Lookup.VehicleURL,
		lookup.KindEmployee: cfg.Lookup.EmployeeURL,
	}, cfg.Lookup.Timeout, log)
	entityLookup := lookup.NewCachedClient(httpLookup, app.RedisClient, cfg.Lookup.CacheTTL, log)

	publisher := notifier.NewRedisPublisher(app.RedisClient, cfg.Notify.Channel)
	app.Dispatcher = service.NewNotificationDispatcher(publisher, log, cfg.Notify.QueueSize)

	// Initialize services
	ledger, err := NewSlotLedger(cfg, db, log)
	if err != nil {
		return err
	}
	history := service.NewHistoryRecorder(db, log, historyRepo)
	stateMachine := service.NewAppointmentStateMachine(db, log, appointmentRepo, ledger, history, app.Dispatcher)
	bookingValidator := service.NewBookingValidator(db, log, entityLookup, appointmentRepo, ledger)

	// Initialize usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, appointmentRepo, historyRepo, ledger, bookingValidator, stateMachine, history, entityLookup, cfg.Scheduling.DefaultDurationMinutes)
	timeSlotUsecase := usecase.NewTimeSlotUsecase(db, log, slotRepo, hoursRepo, ledger)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator, log)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotUsecase, customValidator, log)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigin)

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, timeSlotHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close flushes queued notifications, then closes all connections
func (app *App) Close() {
	// Drain notifications while Redis is still open
	if app.Dispatcher != nil {
		app.Dispatcher.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
