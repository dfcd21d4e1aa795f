package bookings

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rently/internal/gateways"
	"rently/internal/shared/utils/response"
	"rently/internal/users"
	"rently/pkg/logger"
)

// maxCallbackBody bounds inbound callback payloads (64 KiB is generous for
// both providers).
const maxCallbackBody = 64 << 10

type Controller struct {
	service  Service
	currency string
	logger   *logger.Logger
}

func NewController(service Service, currency string, log *logger.Logger) *Controller {
	return &Controller{service: service, currency: currency, logger: log}
}

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid listing ID", nil, nil)
		return
	}

	// Header wins over body so retry libraries that only set headers work
	idempotencyKey := ctx.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = req.IdempotencyKey
	}

	result, err := c.service.CreateBooking(ctx.Request.Context(), userID, listingID, req.Gateway, idempotencyKey)
	if err != nil {
		c.respondCreateError(ctx, err)
		return
	}

	status := http.StatusCreated
	message := "Booking created, awaiting payment"
	if result.Replayed {
		status = http.StatusOK
		message = "Booking already exists for this idempotency key"
	}
	response.RespondJSON(ctx, "success", status, message, toCreateResponse(result, c.currency), nil)
}

func (c *Controller) respondCreateError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrListingUnavailable):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Listing is not available for booking", nil, nil)
	case errors.Is(err, ErrContactRequired):
		response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "A contact phone number is required before booking", nil, nil)
	case errors.Is(err, gateways.ErrUnknownGateway):
		response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, "Unknown payment gateway", nil, nil)
	case errors.Is(err, ErrGatewayUnavailable):
		response.RespondJSON(ctx, "error", http.StatusBadGateway, "Payment gateway is unavailable, please retry", nil, nil)
	case errors.Is(err, ErrConflict):
		response.RespondJSON(ctx, "error", http.StatusConflict, "Booking state changed, please retry", nil, nil)
	default:
		c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to create booking", nil, nil)
	}
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, nil)
		return
	}

	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Booking not found", nil, nil)
			return
		}
		c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get booking", nil, nil)
		return
	}

	// Non-admin users only see their own bookings
	role, _ := ctx.Get("user_role")
	if roleStr, _ := role.(string); roleStr != string(users.RoleAdmin) && booking.UserID != userID {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "Booking not found", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved", toBookingResponse(booking), nil)
}

// GetUserBookings handles GET /api/v1/users/bookings
func (c *Controller) GetUserBookings(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	bookingsList, err := c.service.ListUserBookings(ctx.Request.Context(), userID)
	if err != nil {
		c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list bookings", nil, nil)
		return
	}

	views := make([]BookingResponse, len(bookingsList))
	for i := range bookingsList {
		views[i] = toBookingResponse(&bookingsList[i])
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Bookings retrieved", gin.H{
		"bookings": views,
		"count":    len(views),
	}, nil)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid booking ID", nil, nil)
		return
	}

	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	booking, err := c.service.CancelBooking(ctx.Request.Context(), bookingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Booking not found", nil, nil)
		case errors.Is(err, ErrCancelNotAllowed):
			response.RespondJSON(ctx, "error", http.StatusConflict, "Booking can no longer be cancelled", nil, nil)
		default:
			c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
			response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to cancel booking", nil, nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Booking cancelled", toBookingResponse(booking), nil)
}

// HandleGatewayCallback handles POST /api/v1/payments/callback/:gateway.
// The route is unauthenticated; trust comes from signature verification.
// Anything verified is acknowledged with 200 even when it resolves nothing,
// because a non-200 makes the gateway retry.
func (c *Controller) HandleGatewayCallback(ctx *gin.Context) {
	gatewayName := ctx.Param("gateway")

	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxCallbackBody))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Unreadable payload", nil, nil)
		return
	}

	err = c.service.HandleCallback(ctx.Request.Context(), gatewayName, payload, callbackSignature(ctx))
	if err != nil {
		if errors.Is(err, gateways.ErrInvalidSignature) {
			hash := sha256.Sum256(payload)
			c.logger.LogSignatureRejected(ctx.Request.Context(), gatewayName,
				hex.EncodeToString(hash[:]), ctx.ClientIP())
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Signature verification failed", nil, nil)
			return
		}
		if errors.Is(err, gateways.ErrUnknownGateway) {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Unknown payment gateway", nil, nil)
			return
		}
		c.logger.LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to process callback", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Callback accepted", nil, nil)
}

// callbackSignature pulls the provider signature header. Each provider uses
// its own header name; an in-page checkout handler may also post it in a
// header of our choosing.
func callbackSignature(ctx *gin.Context) string {
	if sig := ctx.GetHeader("X-Razorpay-Signature"); sig != "" {
		return sig
	}
	return ctx.GetHeader("Stripe-Signature")
}

// currentUserID pulls the authenticated user id set by the JWT middleware.
// Writes the error response itself and returns false when absent.
func currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	raw, exists := ctx.Get("user_id")
	if !exists {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return uuid.Nil, false
	}
	str, ok := raw.(string)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Invalid user ID format", nil, nil)
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(str)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, nil)
		return uuid.Nil, false
	}
	return userID, true
}
