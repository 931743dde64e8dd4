// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nosh/internal/http/middleware"
	"nosh/internal/modules/dispatch"
	"nosh/internal/modules/driver"
	"nosh/internal/modules/location"
	"nosh/internal/modules/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, order.ErrBadReason):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeDispatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, dispatch.ErrMissingDeliveryLocation),
		errors.Is(err, dispatch.ErrNoAvailableDrivers),
		errors.Is(err, dispatch.ErrNoSuitableDriver):
		// Assignment failures are operational conditions, not order faults.
		writeJSON(c, http.StatusConflict, gin.H{
			"driver_assigned": false,
			"reason":          err.Error(),
		})
	case errors.Is(err, dispatch.ErrOrderNotReady), errors.Is(err, dispatch.ErrAlreadyAssigned):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeDriverError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, driver.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, location.ErrBadCoordinates):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// requireActor resolves the acting user or rejects the request. Role checks
// happen upstream; an absent actor means the gateway did not authenticate.
func requireActor(c *gin.Context) (string, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "missing actor")
		return "", false
	}
	return actor, true
}
