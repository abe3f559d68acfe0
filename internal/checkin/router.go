package checkin

import (
	"visitly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCheckInRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	checkins := rg.Group("/checkins")
	checkins.Use(auth, middleware.RequireRoles(middleware.RoleOrganizer))
	{
		checkins.POST("", controller.CheckIn) // POST /api/v1/checkins
	}
}
