package bookings

import (
	"visitly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes, including the
// slot routes that act on a slot's bookings.
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	slots := rg.Group("/slots")
	slots.Use(auth)
	{
		slots.POST("/:id/bookings", middleware.RequireRoles(middleware.RoleVisitor), controller.CreateBooking) // POST /api/v1/slots/:id/bookings
		slots.POST("/:id/cancel", middleware.RequireRoles(middleware.RoleOrganizer), controller.CancelSlot)    // POST /api/v1/slots/:id/cancel
	}

	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.GET("/:id", middleware.RequireRoles(middleware.RoleVisitor, middleware.RoleOrganizer, middleware.RoleAdmin), controller.GetBooking) // GET /api/v1/bookings/:id
		bookings.POST("/:id/pay", middleware.RequireRoles(middleware.RoleVisitor), controller.PayBooking)                                            // POST /api/v1/bookings/:id/pay
		bookings.POST("/:id/cancel", middleware.RequireRoles(middleware.RoleVisitor), controller.CancelBooking)                                      // POST /api/v1/bookings/:id/cancel
		bookings.POST("/:id/complete", middleware.RequireRoles(middleware.RoleOrganizer), controller.CompleteVisit)                                  // POST /api/v1/bookings/:id/complete
	}
}

// Visit flow:
// 1. Organizer publishes a slot with POST /slots
// 2. Visitor books it with POST /slots/:id/bookings and pays with POST /bookings/:id/pay when a fee applies
// 3. Organizer scans the visitor's code with POST /checkins
// 4. Organizer closes the visit with POST /bookings/:id/complete, or the sweep marks a no-show
