// README: Order lifecycle handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nosh/internal/modules/order"
	"nosh/internal/types"
)

type OrderHandler struct {
	orders *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{orders: svc}
}

type createOrderReq struct {
	CustomerID          string         `json:"customer_id"`
	ChefID              string         `json:"chef_id"`
	Items               []createItem   `json:"items"`
	DeliveryAddress     *types.Address `json:"delivery_address"`
	SpecialInstructions *string        `json:"special_instructions"`
	PaymentID           *string        `json:"payment_id"`
}

type createItem struct {
	DishID   string `json:"dish_id"`
	Quantity int    `json:"quantity"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.CustomerID == "" || req.ChefID == "" || len(req.Items) == 0 {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	items := make([]order.CreateItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.CreateItem{DishID: types.ID(it.DishID), Quantity: it.Quantity}
	}
	o, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		CustomerID:          types.ID(req.CustomerID),
		ChefID:              types.ID(req.ChefID),
		Items:               items,
		DeliveryAddress:     req.DeliveryAddress,
		SpecialInstructions: req.SpecialInstructions,
		PaymentID:           req.PaymentID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, orderView(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

func (h *OrderHandler) History(c *gin.Context) {
	entries, err := h.orders.History(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	out := make([]gin.H, len(entries))
	for i, e := range entries {
		out[i] = gin.H{
			"action":       e.Action,
			"performed_by": e.PerformedBy,
			"description":  e.Description,
			"metadata":     e.Metadata,
			"performed_at": e.PerformedAt.UnixMilli(),
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"history": out})
}

type transitionReq struct {
	Notes       *string `json:"notes"`
	PrepMinutes *int    `json:"prep_minutes"`
}

func (h *OrderHandler) Confirm(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionReq
	_ = c.ShouldBindJSON(&req)
	o, err := h.orders.Confirm(c.Request.Context(), order.ConfirmCommand{
		OrderID:     types.ID(c.Param("id")),
		ActorID:     types.ID(actor),
		Notes:       req.Notes,
		PrepMinutes: req.PrepMinutes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

func (h *OrderHandler) Prepare(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionReq
	_ = c.ShouldBindJSON(&req)
	o, err := h.orders.Prepare(c.Request.Context(), order.PrepareCommand{
		OrderID:     types.ID(c.Param("id")),
		ActorID:     types.ID(actor),
		Notes:       req.Notes,
		PrepMinutes: req.PrepMinutes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

// Ready marks the order ready for delivery. Driver assignment runs as a side
// effect; its failure never fails this call, so the response reports whether
// a driver was attached.
func (h *OrderHandler) Ready(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionReq
	_ = c.ShouldBindJSON(&req)
	o, err := h.orders.MarkReady(c.Request.Context(), order.ReadyCommand{
		OrderID: types.ID(c.Param("id")),
		ActorID: types.ID(actor),
		Notes:   req.Notes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionReq
	_ = c.ShouldBindJSON(&req)
	o, err := h.orders.MarkDelivered(c.Request.Context(), order.DeliverCommand{
		OrderID: types.ID(c.Param("id")),
		ActorID: types.ID(actor),
		Notes:   req.Notes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

func (h *OrderHandler) Complete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionReq
	_ = c.ShouldBindJSON(&req)
	o, err := h.orders.Complete(c.Request.Context(), order.CompleteCommand{
		OrderID: types.ID(c.Param("id")),
		ActorID: types.ID(actor),
		Notes:   req.Notes,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

type cancelReq struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.orders.Cancel(c.Request.Context(), order.CancelCommand{
		OrderID:     types.ID(c.Param("id")),
		ActorID:     types.ID(actor),
		Reason:      order.CancelReason(req.Reason),
		Description: req.Description,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

type noteReq struct {
	Note     string `json:"note"`
	NoteType string `json:"note_type"`
}

func (h *OrderHandler) AddNote(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req noteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.orders.AddNote(c.Request.Context(), order.NoteCommand{
		OrderID:  types.ID(c.Param("id")),
		ActorID:  types.ID(actor),
		Note:     req.Note,
		NoteType: req.NoteType,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"status": "noted"})
}

func (h *OrderHandler) RefundEligibility(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	dec, err := h.orders.RecomputeRefundEligibility(c.Request.Context(), order.RecomputeRefundCommand{
		OrderID: types.ID(c.Param("id")),
		ActorID: types.ID(actor),
		Reason:  c.DefaultQuery("reason", "On-demand eligibility check"),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"is_refundable": dec.Refundable,
		"reason":        dec.Reason,
	})
}

type refundWindowReq struct {
	NewDeadlineMs int64  `json:"new_deadline_ms"`
	Reason        string `json:"reason"`
}

func (h *OrderHandler) ExtendRefundWindow(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req refundWindowReq
	if err := c.ShouldBindJSON(&req); err != nil || req.NewDeadlineMs <= 0 {
		writeError(c, http.StatusBadRequest, "invalid refund window payload")
		return
	}
	o, err := h.orders.ExtendRefundWindow(c.Request.Context(), order.ExtendRefundWindowCommand{
		OrderID:     types.ID(c.Param("id")),
		ActorID:     types.ID(actor),
		NewDeadline: time.UnixMilli(req.NewDeadlineMs),
		Reason:      req.Reason,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, orderView(o))
}

// orderView shapes an order for API responses; timestamps are epoch ms.
func orderView(o *order.Order) gin.H {
	v := gin.H{
		"order_id":       o.ID,
		"customer_id":    o.CustomerID,
		"chef_id":        o.ChefID,
		"order_status":   o.Status,
		"payment_status": o.PaymentStatus,
		"order_items":    o.Items,
		"total_amount":   o.TotalAmount,
		"currency":       o.Currency,
		"is_refundable":  o.IsRefundable,
		"created_at":     o.CreatedAt.UnixMilli(),
		"updated_at":     o.UpdatedAt.UnixMilli(),
	}
	if o.DeliveryAddress != nil {
		v["delivery_address"] = o.DeliveryAddress
	}
	if o.RefundEligibleUntil != nil {
		v["refund_eligible_until"] = o.RefundEligibleUntil.UnixMilli()
	}
	if o.DeliveredAt != nil {
		v["delivered_at"] = o.DeliveredAt.UnixMilli()
	}
	if o.CompletedAt != nil {
		v["completed_at"] = o.CompletedAt.UnixMilli()
	}
	if o.CancelledAt != nil {
		v["cancelled_at"] = o.CancelledAt.UnixMilli()
		v["cancellation_reason"] = o.CancelReason
	}
	return v
}
