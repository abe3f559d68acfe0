package bookings

import (
	"errors"
	"net/http"

	"visitly/internal/shared/apperrors"
	"visitly/internal/shared/constants"
	"visitly/internal/shared/middleware"
	"visitly/internal/shared/utils/response"
	"visitly/pkg/cache"
	"visitly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyHeader lets clients retry CreateBooking safely.
const IdempotencyHeader = "Idempotency-Key"

type Controller struct {
	service     Service
	idempotency *cache.Idempotency
}

// NewController builds the booking controller. idempotency may be nil, in
// which case Idempotency-Key headers are ignored.
func NewController(service Service, idempotency *cache.Idempotency) *Controller {
	return &Controller{service: service, idempotency: idempotency}
}

// CreateBooking handles POST /api/v1/slots/:id/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	visitorID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	slotID, ok := parseID(ctx, "invalid slot id")
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	key := ctx.GetHeader(IdempotencyHeader)
	if key != "" && c.idempotency != nil {
		key = constants.BuildIdempotencyKey(visitorID.String(), key)
		stored, err := c.idempotency.Begin(ctx.Request.Context(), key)
		switch {
		case errors.Is(err, cache.ErrRequestInFlight):
			response.RespondError(ctx, apperrors.Conflict(apperrors.CodeInvalidInput, "a request with this Idempotency-Key is still being processed"))
			return
		case err != nil:
			// Redis trouble should not block bookings; the ledger still rejects duplicates
			logger.GetDefault().WithError(err).Warn("idempotency lookup failed", "key", key)
			key = ""
		case stored != nil:
			ctx.Header("Idempotent-Replayed", "true")
			ctx.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			return
		}
	} else {
		key = ""
	}

	booking, err := c.service.CreateBooking(ctx.Request.Context(), slotID, visitorID, req.VisitorContact, req.NumberOfVisitors)
	if err != nil {
		if key != "" {
			if err := c.idempotency.Abandon(ctx.Request.Context(), key); err != nil {
				logger.GetDefault().WithError(err).Warn("failed to release idempotency key", "key", key)
			}
		}
		response.RespondError(ctx, err)
		return
	}

	body := response.StandardApiResponse{
		Status:     "success",
		StatusCode: http.StatusCreated,
		Message:    "Booking created successfully",
		Data:       booking.ToCreateResponse(),
	}
	if key != "" {
		if err := c.idempotency.Complete(ctx.Request.Context(), key, http.StatusCreated, body); err != nil {
			logger.GetDefault().WithError(err).Warn("failed to store idempotent response", "key", key)
		}
	}
	ctx.JSON(http.StatusCreated, body)
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	callerID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	bookingID, ok := parseID(ctx, "invalid booking id")
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID, callerID, middleware.CurrentUserRole(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Booking retrieved successfully", booking, nil)
}

// PayBooking handles POST /api/v1/bookings/:id/pay
func (c *Controller) PayBooking(ctx *gin.Context) {
	visitorID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	bookingID, ok := parseID(ctx, "invalid booking id")
	if !ok {
		return
	}

	var req PayBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := c.service.PayBooking(ctx.Request.Context(), bookingID, visitorID, req.SourceToken)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Payment captured successfully", booking, nil)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	visitorID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	bookingID, ok := parseID(ctx, "invalid booking id")
	if !ok {
		return
	}

	booking, err := c.service.CancelBooking(ctx.Request.Context(), bookingID, visitorID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Booking cancelled successfully", booking, nil)
}

// CompleteVisit handles POST /api/v1/bookings/:id/complete
func (c *Controller) CompleteVisit(ctx *gin.Context) {
	organizerID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	bookingID, ok := parseID(ctx, "invalid booking id")
	if !ok {
		return
	}

	booking, err := c.service.CompleteVisit(ctx.Request.Context(), bookingID, organizerID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Visit completed", booking, nil)
}

// CancelSlot handles POST /api/v1/slots/:id/cancel
func (c *Controller) CancelSlot(ctx *gin.Context) {
	organizerID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	slotID, ok := parseID(ctx, "invalid slot id")
	if !ok {
		return
	}

	result, err := c.service.CancelSlot(ctx.Request.Context(), slotID, organizerID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Slot cancelled successfully", result, nil)
}

func parseID(ctx *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeInvalidInput, msg))
		return uuid.Nil, false
	}
	return id, true
}
