package refunds

import (
	"visitly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRefundRoutes registers the visitor refund claim and the admin decision route
func SetupRefundRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("/:id/refund", middleware.RequireRoles(middleware.RoleVisitor), controller.RequestRefund) // POST /api/v1/bookings/:id/refund
	}

	admin := rg.Group("/admin/refunds")
	admin.Use(auth, middleware.RequireRoles(middleware.RoleAdmin))
	{
		admin.POST("/:id/decision", controller.DecideRefund) // POST /api/v1/admin/refunds/:id/decision
	}
}
