// README: Delivery assignment handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nosh/internal/modules/dispatch"
	"nosh/internal/types"
)

type DispatchHandler struct {
	dispatch *dispatch.Service
	store    dispatch.Store
}

func NewDispatchHandler(svc *dispatch.Service, store dispatch.Store) *DispatchHandler {
	return &DispatchHandler{dispatch: svc, store: store}
}

// Assign triggers driver assignment for a ready order on demand, for retries
// after the automatic attempt failed.
func (h *DispatchHandler) Assign(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}
	a, err := h.dispatch.AssignDriver(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDispatchError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"driver_assigned": true,
		"assignment":      assignmentView(a),
	})
}

func (h *DispatchHandler) GetAssignment(c *gin.Context) {
	a, err := h.store.GetByOrder(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to load assignment")
		return
	}
	if a == nil {
		writeError(c, http.StatusNotFound, "no assignment for order")
		return
	}
	writeJSON(c, http.StatusOK, assignmentView(a))
}

func assignmentView(a *dispatch.Assignment) gin.H {
	return gin.H{
		"assignment_id":           a.ID,
		"order_id":                a.OrderID,
		"driver_id":               a.DriverID,
		"status":                  a.Status,
		"assigned_at":             a.AssignedAt.UnixMilli(),
		"estimated_pickup_time":   a.EstimatedPickupTime.UnixMilli(),
		"estimated_delivery_time": a.EstimatedDeliveryTime.UnixMilli(),
		"pickup_location":         a.Pickup,
		"delivery_location":       a.Delivery,
		"metadata":                a.Metadata,
	}
}
