package repository

import (
	"context"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"gorm.io/gorm"
)

type movementRepo struct{ db *gorm.DB }

func (r *movementRepo) Append(ctx context.Context, m *model.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *movementRepo) Page(ctx context.Context, f MovementFilter, after *MovementCursor, limit int) ([]model.StockMovement, error) {
	q := r.db.WithContext(ctx).Model(&model.StockMovement{}).Where("tenant_id = ?", f.TenantID)
	if f.SKU != "" {
		q = q.Where("sku = ?", f.SKU)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	if after != nil {
		q = q.Where("(created_at, id) > (?, ?)", after.CreatedAt, after.ID)
	}

	var movements []model.StockMovement
	err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&movements).Error
	return movements, err
}

func (r *movementRepo) SumBySKU(ctx context.Context, tenantID tenant.ID) (map[string]int, error) {
	var rows []struct {
		SKU   string `gorm:"column:sku"`
		Total int
	}
	err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select("sku, COALESCE(SUM(quantity), 0) AS total").
		Where("tenant_id = ?", tenantID).
		Group("sku").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]int, len(rows))
	for _, row := range rows {
		sums[row.SKU] = row.Total
	}
	return sums, nil
}
