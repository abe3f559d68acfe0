package slots

import (
	"visitly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupSlotRoutes registers slot publishing and lookup
func SetupSlotRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	slots := rg.Group("/slots")
	slots.Use(auth)
	{
		slots.POST("", middleware.RequireRoles(middleware.RoleOrganizer), controller.CreateSlot) // POST /api/v1/slots
		slots.GET("/:id", controller.GetSlot)                                                       // GET /api/v1/slots/:id
	}
}
