// @title Bus Booking API
// @version 1.0
// @description Seat booking, cancellation and staff reservation for scheduled bus trips.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/smarttransit/bus-booking-backend/docs"
	"github.com/smarttransit/bus-booking-backend/internal/cache"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/handlers"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/services"
	"github.com/smarttransit/bus-booking-backend/pkg/jwt"
	"github.com/smarttransit/bus-booking-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting bus booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Log.File != "" {
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		}))
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	binding.EnableDecoderDisallowUnknownFields = true
	if err := validator.RegisterBindingValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(context.Background(), db, logger)
		if err != nil {
			logger.Fatalf("Failed to apply migrations: %v", err)
		}
		logger.WithField("applied", applied).Info("Migrations up to date")
	}

	// Repositories
	userRepository := database.NewUserRepository(db)
	busRepository := database.NewBusRepository(db)
	routeRepository := database.NewRouteRepository(db)
	scheduleRepository := database.NewScheduleRepository(db)
	bookingRepository := database.NewBookingRepository(db)
	transactor := database.NewTransactor(db, cfg.Ledger.LockTimeout)

	var auditor services.Auditor
	var auditService *services.AuditService
	if cfg.Security.EnableAuditLog {
		auditService = services.NewAuditService(db, logger)
		auditor = auditService
	}

	// Redis backs the seat-map cache, the booking limiter and live seat events.
	// Without it every read goes to Postgres and the limiter is off.
	var (
		seatMaps    services.SeatMapCache
		notifier    services.ScheduleNotifier
		events      handlers.ScheduleEvents
		rateLimiter gin.HandlerFunc
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		logger.WithField("addr", cfg.Redis.Addr).Info("Redis connection established")

		seatMapCache := cache.NewSeatMapCache(rdb, cfg.Redis.SeatMapTTL, logger)
		pubsub := cache.NewSchedulePubSub(rdb)
		seatMaps = seatMapCache
		notifier = cache.NewNotifier(seatMapCache, pubsub, logger)
		events = pubsub
		rateLimiter = bookingRateLimit(rdb, cfg.Redis, auditService, logger)
	} else {
		logger.Warn("REDIS_ADDR not set: seat-map cache, booking rate limit and seat events disabled")
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authService := services.NewAuthService(
		userRepository,
		jwtService,
		auditor,
		logger,
		cfg.Security.BcryptCost,
		int64(cfg.JWT.Expiry.Seconds()),
	)
	scheduleService := services.NewScheduleService(
		transactor,
		scheduleRepository,
		busRepository,
		routeRepository,
		seatMaps,
		notifier,
		auditor,
		logger,
	)
	bookingService := services.NewBookingService(transactor, scheduleRepository, bookingRepository, notifier, auditor, logger)
	reservationService := services.NewReservationService(transactor, scheduleRepository, notifier, auditor, logger)
	dashboardService := services.NewDashboardService(busRepository, routeRepository, scheduleRepository, bookingRepository)

	cronService := services.NewCronService(scheduleService, cfg.Cron.CompleteSchedulesSpec, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	busHandler := handlers.NewBusHandler(busRepository)
	routeHandler := handlers.NewRouteHandler(routeRepository)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, reservationService, events, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	docs.SwaggerInfo.Version = version
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	registerRoutes(router, routeHandlers{
		auth:      authHandler,
		buses:     busHandler,
		routes:    routeHandler,
		schedules: scheduleHandler,
		bookings:  bookingHandler,
		dashboard: dashboardHandler,
	}, middleware.AuthMiddleware(jwtService, logger), rateLimiter)

	// Create HTTP server. WriteTimeout stays off: seat event streams are long-lived.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// bookingRateLimit limits booking attempts per user and audits every rejection
func bookingRateLimit(rdb *redis.Client, cfg config.RedisConfig, audit *services.AuditService, logger *logrus.Logger) gin.HandlerFunc {
	limiter := cache.NewSlidingWindowLimiter(rdb, cache.KeyRateLimit("booking"), cfg.BookingRateLimit, cfg.BookingRateWindow)

	onLimited := func(c *gin.Context, key string, current int64) {
		if audit == nil {
			return
		}
		actor := services.Actor{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()}
		if user, ok := middleware.GetUserContext(c); ok {
			actor.UserID = user.UserID
			actor.Email = user.Email
			actor.Role = user.Role
		}
		event := services.EventFor(actor, services.AuditRateLimitExceeded, "booking", 0, map[string]interface{}{
			"key":     key,
			"current": current,
			"limit":   cfg.BookingRateLimit,
		})
		if err := audit.Record(c.Request.Context(), event); err != nil {
			logger.WithError(err).Warn("Failed to audit rate limit violation")
		}
	}

	return middleware.RateLimit(limiter, logger, onLimited)
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
