package slots

import (
	"net/http"

	"visitly/internal/shared/apperrors"
	"visitly/internal/shared/middleware"
	"visitly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateSlot handles POST /api/v1/slots
func (c *Controller) CreateSlot(ctx *gin.Context) {
	organizerID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	slot, err := c.service.CreateSlot(ctx.Request.Context(), organizerID, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Slot created successfully", slot.ToResponse(), nil)
}

// GetSlot handles GET /api/v1/slots/:id
func (c *Controller) GetSlot(ctx *gin.Context) {
	slotID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondError(ctx, apperrors.Validation(apperrors.CodeInvalidInput, "invalid slot id"))
		return
	}

	slot, err := c.service.GetSlot(ctx.Request.Context(), slotID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slot retrieved successfully", slot.ToResponse(), nil)
}
