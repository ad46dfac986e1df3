package repository

import (
	"context"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type supplierRepo struct{ db *gorm.DB }

func (r *supplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *supplierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "supplier", id.String())
	}
	return &s, nil
}

func (r *supplierRepo) List(ctx context.Context, tenantID tenant.ID) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND active = ?", tenantID, true).Order("name ASC").Find(&suppliers).Error
	return suppliers, err
}
