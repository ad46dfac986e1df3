package handler

import (
	"errors"
	"net/http"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct{ svc service.OrderService }

func NewOrderHandler(svc service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Place answers 201 for completed and partially fulfilled orders. An order
// with no reservable line is 409 and still carries the cancelled order.
func (h *OrderHandler) Place(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	o, err := h.svc.PlaceOrder(c.Request.Context(), middleware.GetTenant(c), req)
	if err != nil {
		if errors.Is(err, apierror.ErrNoStockAvailable) && o != nil {
			env := apierror.FromError(err)
			c.JSON(http.StatusConflict, gin.H{
				"detail": env.Detail,
				"kind":   env.Kind,
				"order":  dto.OrderFromModel(o),
			})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.OrderFromModel(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := h.svc.GetOrder(c.Request.Context(), middleware.GetTenant(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderFromModel(o))
}

func (h *OrderHandler) List(c *gin.Context) {
	var filter dto.OrderFilter
	if !bindQuery(c, &filter) {
		return
	}
	orders, total, err := h.svc.ListOrders(c.Request.Context(), middleware.GetTenant(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	page, limit := repository.NormalizePage(filter.Page, filter.Limit)
	resp := dto.OrderListResponse{
		Data:  make([]dto.OrderResponse, 0, len(orders)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range orders {
		resp.Data = append(resp.Data, dto.OrderFromModel(&orders[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := h.svc.CancelOrder(c.Request.Context(), middleware.GetTenant(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderFromModel(o))
}

func (h *OrderHandler) Fulfill(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := h.svc.FulfillRemaining(c.Request.Context(), middleware.GetTenant(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderFromModel(o))
}
