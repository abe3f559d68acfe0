// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"visitly/internal/bookings"
	"visitly/internal/checkin"
	"visitly/internal/refunds"
	"visitly/internal/shared/config"
	"visitly/internal/shared/middleware"
	"visitly/internal/slots"

	"github.com/gin-gonic/gin"
)

// JobReporter is implemented by the background loops.
type JobReporter interface {
	GetJobStatus() map[string]interface{}
}

// Controllers are the HTTP handlers mounted under the API base path.
type Controllers struct {
	Slots    *slots.Controller
	Bookings *bookings.Controller
	CheckIn  *checkin.Controller
	Refunds  *refunds.Controller
}

// Router holds all route dependencies
type Router struct {
	config      *config.Config
	health      func(*gin.Context) error
	controllers Controllers
	jobs        map[string]JobReporter
}

// NewRouter creates a new router instance. health may be nil.
func NewRouter(cfg *config.Config, health func(*gin.Context) error, controllers Controllers, jobs map[string]JobReporter) *Router {
	return &Router{
		config:      cfg,
		health:      health,
		controllers: controllers,
		jobs:        jobs,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	auth := middleware.JWTAuthWithConfig(r.config)
	api := engine.Group(r.config.GetAPIBasePath())
	{
		slots.SetupSlotRoutes(api, r.controllers.Slots, auth)
		bookings.SetupBookingRoutes(api, r.controllers.Bookings, auth)
		checkin.SetupCheckInRoutes(api, r.controllers.CheckIn, auth)
		refunds.SetupRefundRoutes(api, r.controllers.Refunds, auth)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if r.health != nil {
			if err := r.health(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "visitly",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "visitly",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		jobs := make(map[string]interface{}, len(r.jobs))
		for name, j := range r.jobs {
			jobs[name] = j.GetJobStatus()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
			"jobs":        jobs,
		})
	})
}
