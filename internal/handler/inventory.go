package handler

import (
	"encoding/json"
	"net/http"

	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// flushEvery bounds how many NDJSON rows are buffered before a flush.
const flushEvery = 100

type InventoryHandler struct {
	inventory service.InventoryService
	ledger    service.LedgerService
	lowStock  service.LowStockService
}

func NewInventoryHandler(inventory service.InventoryService, ledger service.LedgerService, lowStock service.LowStockService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, ledger: ledger, lowStock: lowStock}
}

func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	mv, err := h.inventory.Adjust(c.Request.Context(), middleware.GetTenant(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MovementFromModel(mv))
}

// Movements streams the ledger as NDJSON, one movement per line, oldest
// first. Rows are read lazily in batches so large histories never sit in
// memory. An error after the first row truncates the stream.
func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	seq := h.ledger.QueryMovements(c.Request.Context(), middleware.GetTenant(c), service.MovementQuery{
		SKU:  filter.SKU,
		Type: model.MovementType(filter.Type),
		From: filter.From,
		To:   filter.To,
	})

	enc := json.NewEncoder(c.Writer)
	written := 0
	for m, err := range seq {
		if err != nil {
			if written == 0 {
				fail(c, err)
				return
			}
			log.Error().Err(err).
				Str("request_id", c.GetString(middleware.RequestIDKey)).
				Int("rows_written", written).
				Msg("movement stream aborted")
			return
		}
		if written == 0 {
			c.Header("Content-Type", "application/x-ndjson")
			c.Status(http.StatusOK)
		}
		if err := enc.Encode(dto.MovementFromModel(&m)); err != nil {
			// client went away
			return
		}
		written++
		if written%flushEvery == 0 {
			c.Writer.Flush()
		}
	}
	if written == 0 {
		c.Header("Content-Type", "application/x-ndjson")
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}
	c.Writer.Flush()
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	alerts, err := h.lowStock.Evaluate(c.Request.Context(), middleware.GetTenant(c))
	if err != nil {
		fail(c, err)
		return
	}
	resp := make([]dto.LowStockAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, dto.LowStockAlertResponse{
			SKU:              a.SKU,
			Stock:            a.Stock,
			PendingQty:       a.PendingQty,
			ReorderThreshold: a.ReorderThreshold,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Reconciliation(c *gin.Context) {
	diffs, err := h.inventory.Reconcile(c.Request.Context(), middleware.GetTenant(c))
	if err != nil {
		fail(c, err)
		return
	}
	resp := dto.ReconciliationResponse{
		Consistent:    len(diffs) == 0,
		Discrepancies: make([]dto.DiscrepancyResponse, 0, len(diffs)),
	}
	for _, d := range diffs {
		resp.Discrepancies = append(resp.Discrepancies, dto.DiscrepancyResponse{
			SKU:         d.SKU,
			Stock:       d.Stock,
			LedgerTotal: d.LedgerTotal,
		})
	}
	c.JSON(http.StatusOK, resp)
}
