// README: Driver location and availability handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nosh/internal/modules/driver"
	"nosh/internal/modules/location"
	"nosh/internal/types"
)

type DriverHandler struct {
	drivers   *driver.PGStore
	locations *location.Service
}

func NewDriverHandler(drivers *driver.PGStore, locations *location.Service) *DriverHandler {
	return &DriverHandler{drivers: drivers, locations: locations}
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if _, err := h.drivers.Get(c.Request.Context(), id); err != nil {
		writeDriverError(c, err)
		return
	}
	err := h.locations.Update(c.Request.Context(), location.Update{
		DriverID: id,
		Position: types.Point{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "updated"})
}

type availabilityReq struct {
	Availability string `json:"availability"`
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a := driver.Availability(req.Availability)
	if !a.Valid() {
		writeError(c, http.StatusBadRequest, "unknown availability")
		return
	}
	id := types.ID(c.Param("id"))
	if err := h.drivers.SetAvailability(c.Request.Context(), id, a); err != nil {
		writeDriverError(c, err)
		return
	}
	// Offline drivers leave the GEO index so the dispatcher never sees them.
	if a == driver.AvailabilityOffline {
		if err := h.locations.Forget(c.Request.Context(), id); err != nil {
			writeDriverError(c, err)
			return
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"availability": a})
}

func (h *DriverHandler) Get(c *gin.Context) {
	d, err := h.drivers.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDriverError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"driver_id":        d.ID,
		"name":             d.Name,
		"status":           d.Status,
		"availability":     d.Availability,
		"rating":           d.Rating,
		"total_deliveries": d.TotalDeliveries,
	})
}
