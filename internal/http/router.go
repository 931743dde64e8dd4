// README: HTTP route wiring.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"nosh/internal/http/handlers"
	"nosh/internal/http/middleware"
)

type Handlers struct {
	Orders   *handlers.OrderHandler
	Dispatch *handlers.DispatchHandler
	Drivers  *handlers.DriverHandler
}

func NewRouter(h Handlers, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.Auth())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", h.Orders.Create)
			orders.GET("/:id", h.Orders.Get)
			orders.GET("/:id/history", h.Orders.History)

			orders.POST("/:id/confirm", h.Orders.Confirm)
			orders.POST("/:id/prepare", h.Orders.Prepare)
			orders.POST("/:id/ready", h.Orders.Ready)
			orders.POST("/:id/deliver", h.Orders.Deliver)
			orders.POST("/:id/complete", h.Orders.Complete)
			orders.POST("/:id/cancel", h.Orders.Cancel)
			orders.POST("/:id/notes", h.Orders.AddNote)

			orders.POST("/:id/refund-eligibility", h.Orders.RefundEligibility)
			orders.PUT("/:id/refund-window", h.Orders.ExtendRefundWindow)

			orders.POST("/:id/assign-driver", h.Dispatch.Assign)
			orders.GET("/:id/assignment", h.Dispatch.GetAssignment)
		}

		drivers := v1.Group("/drivers")
		{
			drivers.GET("/:id", h.Drivers.Get)
			drivers.PUT("/:id/location", h.Drivers.UpdateLocation)
			drivers.POST("/:id/availability", h.Drivers.SetAvailability)
		}
	}

	return r
}
