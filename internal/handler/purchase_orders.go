package handler

import (
	"context"
	"net/http"

	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PurchaseOrderHandler struct{ svc service.PurchaseOrderService }

func NewPurchaseOrderHandler(svc service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{svc: svc}
}

func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	po, err := h.svc.Create(c.Request.Context(), middleware.GetTenant(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.PurchaseOrderFromModel(po))
}

func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	h.byID(c, h.svc.Get)
}

func (h *PurchaseOrderHandler) Send(c *gin.Context) {
	h.byID(c, h.svc.Send)
}

func (h *PurchaseOrderHandler) Confirm(c *gin.Context) {
	h.byID(c, h.svc.Confirm)
}

func (h *PurchaseOrderHandler) AddItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.PurchaseOrderItemInput
	if !bindAndValidate(c, &req) {
		return
	}
	po, err := h.svc.AddItem(c.Request.Context(), middleware.GetTenant(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurchaseOrderFromModel(po))
}

func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.ReceiveItemsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	po, err := h.svc.ReceiveItems(c.Request.Context(), middleware.GetTenant(c), id, req.Receipts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurchaseOrderFromModel(po))
}

func (h *PurchaseOrderHandler) PriceVariance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.PriceVariance(c.Request.Context(), middleware.GetTenant(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type poOp func(ctx context.Context, tenantID tenant.ID, id uuid.UUID) (*model.PurchaseOrder, error)

func (h *PurchaseOrderHandler) byID(c *gin.Context, op poOp) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	po, err := op(c.Request.Context(), middleware.GetTenant(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurchaseOrderFromModel(po))
}
