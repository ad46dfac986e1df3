package handler

import (
	"net/http"

	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/gin-gonic/gin"
)

type ProductHandler struct{ svc service.InventoryService }

func NewProductHandler(svc service.InventoryService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	p, err := h.svc.CreateProduct(c.Request.Context(), middleware.GetTenant(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ProductFromModel(p))
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(c.Request.Context(), middleware.GetTenant(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProductFromModel(p))
}

func (h *ProductHandler) List(c *gin.Context) {
	var filter dto.ProductFilter
	if !bindQuery(c, &filter) {
		return
	}
	products, total, err := h.svc.ListProducts(c.Request.Context(), middleware.GetTenant(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	page, limit := repository.NormalizePage(filter.Page, filter.Limit)
	resp := dto.ProductListResponse{
		Data:  make([]dto.ProductResponse, 0, len(products)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range products {
		resp.Data = append(resp.Data, dto.ProductFromModel(&products[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) SetThreshold(c *gin.Context) {
	var req dto.SetThresholdRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.SetReorderThreshold(c.Request.Context(), middleware.GetTenant(c), c.Param("sku"), req.ReorderThreshold); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SupplierHandler struct{ svc service.SupplierService }

func NewSupplierHandler(svc service.SupplierService) *SupplierHandler {
	return &SupplierHandler{svc: svc}
}

func (h *SupplierHandler) Create(c *gin.Context) {
	var req dto.CreateSupplierRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s, err := h.svc.Create(c.Request.Context(), middleware.GetTenant(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SupplierFromModel(s))
}

func (h *SupplierHandler) List(c *gin.Context) {
	suppliers, err := h.svc.List(c.Request.Context(), middleware.GetTenant(c))
	if err != nil {
		fail(c, err)
		return
	}
	resp := make([]dto.SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		resp = append(resp, dto.SupplierFromModel(&suppliers[i]))
	}
	c.JSON(http.StatusOK, resp)
}
