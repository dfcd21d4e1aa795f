// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"rently/internal/bookings"
	"rently/internal/fees"
	"rently/internal/gateways"
	"rently/internal/listings"
	"rently/internal/notifications"
	"rently/internal/reservations"
	"rently/internal/shared/config"
	"rently/internal/shared/database"
	"rently/internal/users"
	"rently/pkg/cache"
	"rently/pkg/logger"
	"rently/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	db      *database.DB
	logger  *logger.Logger
	emitter notifications.Emitter

	sweeper *bookings.Sweeper
}

// NewRouter creates a new router instance. The emitter is built in main so
// its lifecycle (Close on shutdown) stays with the process.
func NewRouter(cfg *config.Config, db *database.DB, log *logger.Logger, emitter notifications.Emitter) *Router {
	return &Router{
		config:  cfg,
		db:      db,
		logger:  log,
		emitter: emitter,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Rate limiting applies to everything, callbacks included
	limiter := ratelimit.NewRateLimiter(r.db.GetRedisClient(), &ratelimit.Config{
		Enabled:         r.config.RateLimit.Enabled,
		WindowDuration:  r.config.RateLimit.WindowDuration,
		DefaultRequests: r.config.RateLimit.DefaultRequests,
		PublicRequests:  r.config.RateLimit.PublicRequests,
		BookingRequests: r.config.RateLimit.BookingRequests,
		WebhookRequests: r.config.RateLimit.WebhookRequests,
		HealthRequests:  r.config.RateLimit.PublicRequests,
		WhitelistedIPs:  r.config.RateLimit.WhitelistedIPs,
	})
	engine.Use(ratelimit.Middleware(limiter))

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupBookingRoutes(api)
	}
}

// Sweeper returns the background reconciliation sweeper, available after
// SetupRoutes has run.
func (r *Router) Sweeper() *bookings.Sweeper {
	return r.sweeper
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "rently-booking-engine",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "rently-booking-engine",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupBookingRoutes wires the reconciliation engine and its collaborators
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	gormDB := r.db.GetPostgreSQL()
	redisClient := r.db.GetRedisClient()

	// Reservation store: Redis when available, in-process otherwise.
	// The memory store is single-replica only; fine for development.
	var store reservations.Store
	if redisClient != nil {
		store = reservations.NewRedisStore(redisClient)
	} else {
		r.logger.Warn("redis disabled, using in-memory reservation store")
		store = reservations.NewMemoryStore()
	}

	// Listing snapshot cache rides the same Redis
	var cacheService cache.Service
	if redisClient != nil {
		cacheService = cache.NewService(redisClient)
	}

	registry := gateways.NewRegistry(
		gateways.NewRazorpayGateway(
			r.config.Gateways.Razorpay.KeyID,
			r.config.Gateways.Razorpay.KeySecret,
		),
		gateways.NewStripeGateway(
			r.config.Gateways.Stripe.SecretKey,
			r.config.Gateways.Stripe.WebhookSecret,
			r.config.Gateways.Stripe.SuccessURL,
			r.config.Gateways.Stripe.CancelURL,
		),
	)

	listingService := listings.NewService(gormDB, cacheService, r.config.Redis.ListingCacheTTL)
	userService := users.NewService(gormDB)

	policy := fees.NewPolicy(r.config.Booking.FeePercent, r.config.Booking.MinimumFee)

	repo := bookings.NewRepository(gormDB)
	engineService := bookings.NewService(
		repo,
		store,
		registry,
		listingService,
		userService,
		r.emitter,
		policy,
		bookings.ServiceConfig{
			DefaultGateway:    r.config.Gateways.Default,
			Currency:          "INR",
			ReservationTTL:    r.config.Booking.ReservationTTL,
			PollThreshold:     r.config.Booking.PollThreshold,
			OrderRetries:      r.config.Booking.OrderRetries,
			OrderRetryBackoff: r.config.Booking.OrderRetryBackoff,
			IdempotencyTTL:    r.config.Booking.IdempotencyTTL,
		},
		r.logger,
	)

	r.sweeper = bookings.NewSweeper(engineService, bookings.SweeperConfig{
		Interval: r.config.Booking.SweepInterval,
	}, r.logger)

	controller := bookings.NewController(engineService, "INR", r.logger)
	bookings.SetupBookingRoutes(rg, controller, r.config)
}
