package repository

import (
	"context"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type variantRepo struct{ db *gorm.DB }

func (r *variantRepo) FindBySKU(ctx context.Context, tenantID tenant.ID, sku string) (*model.Variant, error) {
	var v model.Variant
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND sku = ?", tenantID, sku).First(&v).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, apierror.SKUNotFound(sku)
		}
		return nil, err
	}
	return &v, nil
}

func (r *variantRepo) List(ctx context.Context, tenantID tenant.ID) ([]model.Variant, error) {
	var variants []model.Variant
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("sku ASC").Find(&variants).Error
	return variants, err
}

// Decrement is the check-and-decrement primitive: one UPDATE whose WHERE
// clause carries the stock >= qty condition, so two concurrent sales of the
// last unit cannot both match the row.
func (r *variantRepo) Decrement(ctx context.Context, tenantID tenant.ID, sku string, qty int) (int, error) {
	var v model.Variant
	res := r.db.WithContext(ctx).Model(&v).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock"}}}).
		Where("tenant_id = ? AND sku = ? AND stock >= ?", tenantID, sku, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// Only tells NotFound from a failed condition. The stock read here is
		// not the one the update saw, so it is not reported.
		if _, err := r.FindBySKU(ctx, tenantID, sku); err != nil {
			return 0, err
		}
		return 0, apierror.InsufficientStockFor(sku, qty)
	}
	return v.Stock, nil
}

func (r *variantRepo) Increment(ctx context.Context, tenantID tenant.ID, sku string, qty int) (int, error) {
	var v model.Variant
	res := r.db.WithContext(ctx).Model(&v).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "stock"}}}).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, apierror.SKUNotFound(sku)
	}
	return v.Stock, nil
}

func (r *variantRepo) SetReorderThreshold(ctx context.Context, tenantID tenant.ID, sku string, threshold int) error {
	res := r.db.WithContext(ctx).Model(&model.Variant{}).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		Update("reorder_threshold", threshold)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.SKUNotFound(sku)
	}
	return nil
}

func (r *variantRepo) LockSKUs(ctx context.Context, tenantID tenant.ID, skus []string) error {
	if len(skus) == 0 {
		return nil
	}
	// The locking clause sits above the sort, so rows are locked in sku order.
	var ids []uuid.UUID
	return r.db.WithContext(ctx).Model(&model.Variant{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND sku IN ?", tenantID, skus).
		Order("sku ASC").
		Pluck("id", &ids).Error
}

func (r *variantRepo) Tenants(ctx context.Context) ([]tenant.ID, error) {
	var ids []tenant.ID
	err := r.db.WithContext(ctx).Model(&model.Variant{}).Distinct().Order("tenant_id").Pluck("tenant_id", &ids).Error
	return ids, err
}
