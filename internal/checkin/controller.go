package checkin

import (
	"net/http"

	"visitly/internal/shared/middleware"
	"visitly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CheckIn handles POST /api/v1/checkins
func (c *Controller) CheckIn(ctx *gin.Context) {
	organizerID, err := middleware.CurrentUserID(ctx)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := c.service.CheckIn(ctx.Request.Context(), req.ScanPayload, organizerID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	message := "Visitor checked in"
	if result.AlreadyCheckedIn {
		message = "Visitor was already checked in"
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, result, nil)
}
