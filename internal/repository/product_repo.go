package repository

import (
	"context"
	"errors"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepo struct{ db *gorm.DB }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apierror.Conflict("a variant with the same SKU already exists")
	}
	return err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Variants", linesByPosition).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "product", id.String())
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, tenantID tenant.ID, f ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("tenant_id = ?", tenantID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Name != "" {
		q = q.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := NormalizePage(f.Page, f.Limit)
	err := q.Preload("Variants", linesByPosition).
		Order("name ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&products).Error
	return products, total, err
}
