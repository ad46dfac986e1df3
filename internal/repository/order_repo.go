package repository

import (
	"context"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct{ db *gorm.DB }

func linesByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Preload("Lines", linesByPosition).First(&o, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "order", id.String())
	}
	return &o, nil
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines", linesByPosition).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "order", id.String())
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, tenantID tenant.ID, f OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(f.Page, f.Limit)
	err := q.Preload("Lines", linesByPosition).
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", id, tenantID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}

func (r *orderRepo) UpdateLineReserved(ctx context.Context, lineID uuid.UUID, reservedQty int) error {
	return r.db.WithContext(ctx).Model(&model.OrderLine{}).
		Where("id = ?", lineID).
		Update("reserved_qty", reservedQty).Error
}
