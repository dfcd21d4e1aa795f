package bookings

import (
	"rently/internal/shared/config"
	"rently/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	// Booking routes
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		bookings.POST("", controller.CreateBooking)            // POST /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)            // GET  /api/v1/bookings/:id
		bookings.POST("/:id/cancel", controller.CancelBooking) // POST /api/v1/bookings/:id/cancel
	}

	// User-specific booking routes
	users := rg.Group("/users")
	users.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireRoles("USER", "ADMIN"))
	{
		users.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings
	}

	// Gateway callbacks are unauthenticated: the provider cannot carry our
	// JWTs, so trust rests entirely on signature verification inside the
	// handler.
	payments := rg.Group("/payments")
	{
		payments.POST("/callback/:gateway", controller.HandleGatewayCallback) // POST /api/v1/payments/callback/:gateway
	}
}

// Route definitions for reference:
//
// BOOKING CREATION
// POST   /api/v1/bookings                              - Create a booking and open a payment order
// Request body: { "listing_id": "uuid", "gateway": "razorpay", "idempotency_key": "..." }
//
// BOOKING RETRIEVAL
// GET    /api/v1/bookings/:id                          - Get specific booking
// GET    /api/v1/users/bookings                        - Get the caller's bookings
//
// BOOKING CANCELLATION
// POST   /api/v1/bookings/:id/cancel                   - Cancel a PENDING booking
//
// GATEWAY CALLBACKS
// POST   /api/v1/payments/callback/:gateway            - Signed payment resolution (no auth)
//
// Key Flow:
// 1. User creates a booking; the listing is held and a gateway order opens
// 2. Client runs checkout against the returned order/session reference
// 3. Gateway posts a signed callback; the engine verifies and settles
// 4. The sweep polls quiet orders and expires lapsed holds
