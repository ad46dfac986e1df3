package repository

import (
	"context"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseOrderRepo struct{ db *gorm.DB }

func (r *purchaseOrderRepo) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("Supplier").Create(po).Error
}

func (r *purchaseOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return r.find(ctx, r.db.WithContext(ctx), id)
}

func (r *purchaseOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return r.find(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *purchaseOrderRepo) find(_ context.Context, q *gorm.DB, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := q.Preload("Items", linesByPosition).
		Preload("Supplier").
		First(&po, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "purchase order", id.String())
	}
	return &po, nil
}

func (r *purchaseOrderRepo) AddItem(ctx context.Context, item *model.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *purchaseOrderRepo) UpdateStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, from []model.PurchaseOrderStatus, to model.PurchaseOrderStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to, "updated_at": at}
	switch to {
	case model.PurchaseOrderSent:
		updates["sent_at"] = at
	case model.PurchaseOrderConfirmed:
		updates["confirmed_at"] = at
	case model.PurchaseOrderReceived:
		updates["received_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", id, tenantID, from).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// ReceiveItem folds the receipt into the item with a single conditional
// UPDATE; the SET expressions read the pre-update row, so the weighted
// price uses the previous received_qty.
func (r *purchaseOrderRepo) ReceiveItem(ctx context.Context, itemID uuid.UUID, qty int, unitPrice decimal.Decimal) (int, bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.PurchaseOrderItem{}).
		Where("id = ? AND received_qty + ? <= ordered_qty", itemID, qty).
		Updates(map[string]interface{}{
			"received_unit_price": gorm.Expr(
				"(COALESCE(received_unit_price, 0) * received_qty + CAST(? AS numeric) * CAST(? AS integer)) / (received_qty + CAST(? AS integer))",
				unitPrice, qty, qty),
			"received_qty": gorm.Expr("received_qty + ?", qty),
		})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var received int
	err := db.Model(&model.PurchaseOrderItem{}).Where("id = ?", itemID).Pluck("received_qty", &received).Error
	return received, true, err
}

func (r *purchaseOrderRepo) AppendReceipt(ctx context.Context, rc *model.PurchaseOrderReceipt) error {
	return r.db.WithContext(ctx).Create(rc).Error
}

func (r *purchaseOrderRepo) ListReceipts(ctx context.Context, poID uuid.UUID) ([]model.PurchaseOrderReceipt, error) {
	var receipts []model.PurchaseOrderReceipt
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", poID).
		Order("created_at ASC, id ASC").
		Find(&receipts).Error
	return receipts, err
}

func (r *purchaseOrderRepo) PendingBySKU(ctx context.Context, tenantID tenant.ID) (map[string]int, error) {
	var rows []struct {
		SKU     string `gorm:"column:sku"`
		Pending int
	}
	err := r.db.WithContext(ctx).
		Table("purchase_order_items AS i").
		Select("i.sku AS sku, COALESCE(SUM(i.ordered_qty - i.received_qty), 0) AS pending").
		Joins("JOIN purchase_orders AS po ON po.id = i.purchase_order_id").
		Where("po.tenant_id = ? AND po.status <> ?", tenantID, model.PurchaseOrderReceived).
		Group("i.sku").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	pending := make(map[string]int, len(rows))
	for _, row := range rows {
		pending[row.SKU] = row.Pending
	}
	return pending, nil
}
