package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func cloneOrder(o *model.Order) model.Order {
	out := *o
	out.Lines = slices.Clone(o.Lines)
	return out
}

type orderRepo struct{ base }

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.s.write(ctx, r.sc, o.TenantID, func(undo func(func())) error {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		if _, dup := r.s.orders[o.ID]; dup {
			return apierror.Conflict("order already exists")
		}
		ts := now()
		o.CreatedAt, o.UpdatedAt = ts, ts
		for i := range o.Lines {
			if o.Lines[i].ID == uuid.Nil {
				o.Lines[i].ID = uuid.New()
			}
			o.Lines[i].OrderID = o.ID
		}
		stored := cloneOrder(o)
		r.s.orders[o.ID] = &stored
		id := o.ID
		undo(func() { delete(r.s.orders, id) })
		return nil
	})
}

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	var out model.Order
	err := r.readByID(func() tenant.ID {
		if o, ok := r.s.orders[id]; ok {
			return o.TenantID
		}
		return ""
	}, func() error {
		o, ok := r.s.orders[id]
		if !ok {
			return apierror.NotFound("order", id.String())
		}
		out = cloneOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByIDForUpdate needs no extra locking: the scope already holds the
// owning tenant's lock.
func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepo) List(_ context.Context, tenantID tenant.ID, f repository.OrderFilter) ([]model.Order, int64, error) {
	var matched []model.Order
	_ = r.read(tenantID, func() error {
		for _, o := range r.s.orders {
			if o.TenantID != tenantID || (f.Status != "" && o.Status != f.Status) {
				continue
			}
			matched = append(matched, cloneOrder(o))
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus) (bool, error) {
	var updated bool
	err := r.s.write(ctx, r.sc, tenantID, func(undo func(func())) error {
		o, ok := r.s.orders[id]
		if !ok || o.TenantID != tenantID || !slices.Contains(from, o.Status) {
			return nil
		}
		prev, prevAt := o.Status, o.UpdatedAt
		o.Status, o.UpdatedAt = to, now()
		undo(func() { o.Status, o.UpdatedAt = prev, prevAt })
		updated = true
		return nil
	})
	return updated, err
}

func (r *orderRepo) UpdateLineReserved(ctx context.Context, lineID uuid.UUID, reservedQty int) error {
	r.s.mu.RLock()
	var owner *model.Order
	for _, o := range r.s.orders {
		if slices.ContainsFunc(o.Lines, func(l model.OrderLine) bool { return l.ID == lineID }) {
			owner = o
			break
		}
	}
	r.s.mu.RUnlock()
	if owner == nil {
		return apierror.NotFound("order line", lineID.String())
	}

	return r.s.write(ctx, r.sc, owner.TenantID, func(undo func(func())) error {
		for i := range owner.Lines {
			if owner.Lines[i].ID == lineID {
				line := &owner.Lines[i]
				prev := line.ReservedQty
				line.ReservedQty = reservedQty
				undo(func() { line.ReservedQty = prev })
			}
		}
		return nil
	})
}

func clonePurchaseOrder(po *model.PurchaseOrder) model.PurchaseOrder {
	out := *po
	out.Items = slices.Clone(po.Items)
	for i := range out.Items {
		if p := out.Items[i].ReceivedUnitPrice; p != nil {
			cp := *p
			out.Items[i].ReceivedUnitPrice = &cp
		}
	}
	out.Supplier = nil
	return out
}

type purchaseOrderRepo struct{ base }

func (r *purchaseOrderRepo) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return r.s.write(ctx, r.sc, po.TenantID, func(undo func(func())) error {
		if po.ID == uuid.Nil {
			po.ID = uuid.New()
		}
		ts := now()
		po.CreatedAt, po.UpdatedAt = ts, ts
		for i := range po.Items {
			if po.Items[i].ID == uuid.Nil {
				po.Items[i].ID = uuid.New()
			}
			po.Items[i].PurchaseOrderID = po.ID
		}
		stored := clonePurchaseOrder(po)
		r.s.pos[po.ID] = &stored
		id := po.ID
		undo(func() { delete(r.s.pos, id) })
		return nil
	})
}

func (r *purchaseOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var out model.PurchaseOrder
	err := r.readByID(r.poTenant(id), func() error {
		po, ok := r.s.pos[id]
		if !ok {
			return apierror.NotFound("purchase order", id.String())
		}
		out = clonePurchaseOrder(po)
		if sup, ok := r.s.suppliers[po.SupplierID]; ok {
			cp := *sup
			out.Supplier = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *purchaseOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return r.FindByID(ctx, id)
}

// poTenant reports the owning tenant of purchase order id. Caller holds mu.
func (r *purchaseOrderRepo) poTenant(id uuid.UUID) func() tenant.ID {
	return func() tenant.ID {
		if po, ok := r.s.pos[id]; ok {
			return po.TenantID
		}
		return ""
	}
}

func (r *purchaseOrderRepo) owner(id uuid.UUID) (*model.PurchaseOrder, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	po, ok := r.s.pos[id]
	return po, ok
}

func (r *purchaseOrderRepo) AddItem(ctx context.Context, item *model.PurchaseOrderItem) error {
	po, ok := r.owner(item.PurchaseOrderID)
	if !ok {
		return apierror.NotFound("purchase order", item.PurchaseOrderID.String())
	}
	return r.s.write(ctx, r.sc, po.TenantID, func(undo func(func())) error {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		po.Items = append(po.Items, *item)
		id := item.ID
		undo(func() {
			po.Items = slices.DeleteFunc(po.Items, func(it model.PurchaseOrderItem) bool { return it.ID == id })
		})
		return nil
	})
}

func (r *purchaseOrderRepo) UpdateStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, from []model.PurchaseOrderStatus, to model.PurchaseOrderStatus, at time.Time) (bool, error) {
	var updated bool
	err := r.s.write(ctx, r.sc, tenantID, func(undo func(func())) error {
		po, ok := r.s.pos[id]
		if !ok || po.TenantID != tenantID || !slices.Contains(from, po.Status) {
			return nil
		}
		prev := *po
		po.Status, po.UpdatedAt = to, at
		switch to {
		case model.PurchaseOrderSent:
			po.SentAt = &at
		case model.PurchaseOrderConfirmed:
			po.ConfirmedAt = &at
		case model.PurchaseOrderReceived:
			po.ReceivedAt = &at
		}
		undo(func() {
			po.Status, po.UpdatedAt = prev.Status, prev.UpdatedAt
			po.SentAt, po.ConfirmedAt, po.ReceivedAt = prev.SentAt, prev.ConfirmedAt, prev.ReceivedAt
		})
		updated = true
		return nil
	})
	return updated, err
}

func (r *purchaseOrderRepo) itemOwner(itemID uuid.UUID) *model.PurchaseOrder {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, po := range r.s.pos {
		for _, it := range po.Items {
			if it.ID == itemID {
				return po
			}
		}
	}
	return nil
}

func (r *purchaseOrderRepo) ReceiveItem(ctx context.Context, itemID uuid.UUID, qty int, unitPrice decimal.Decimal) (int, bool, error) {
	po := r.itemOwner(itemID)
	if po == nil {
		return 0, false, apierror.NotFound("purchase order item", itemID.String())
	}

	var received int
	var ok bool
	err := r.s.write(ctx, r.sc, po.TenantID, func(undo func(func())) error {
		idx := slices.IndexFunc(po.Items, func(it model.PurchaseOrderItem) bool { return it.ID == itemID })
		if idx < 0 {
			return apierror.NotFound("purchase order item", itemID.String())
		}
		it := &po.Items[idx]
		if it.ReceivedQty+qty > it.OrderedQty {
			return nil
		}
		prevQty, prevPrice := it.ReceivedQty, it.ReceivedUnitPrice

		total := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
		if prevPrice != nil {
			total = total.Add(prevPrice.Mul(decimal.NewFromInt(int64(prevQty))))
		}
		avg := total.Div(decimal.NewFromInt(int64(prevQty + qty))).Round(4)
		it.ReceivedQty += qty
		it.ReceivedUnitPrice = &avg
		undo(func() {
			// AddItem may have reallocated the slice.
			if i := slices.IndexFunc(po.Items, func(x model.PurchaseOrderItem) bool { return x.ID == itemID }); i >= 0 {
				po.Items[i].ReceivedQty, po.Items[i].ReceivedUnitPrice = prevQty, prevPrice
			}
		})
		received, ok = it.ReceivedQty, true
		return nil
	})
	return received, ok, err
}

func (r *purchaseOrderRepo) AppendReceipt(ctx context.Context, rc *model.PurchaseOrderReceipt) error {
	return r.s.write(ctx, r.sc, rc.TenantID, func(undo func(func())) error {
		if rc.ID == uuid.Nil {
			rc.ID = uuid.New()
		}
		if rc.CreatedAt.IsZero() {
			rc.CreatedAt = now()
		}
		r.s.receipts[rc.PurchaseOrderID] = append(r.s.receipts[rc.PurchaseOrderID], *rc)
		poID, id := rc.PurchaseOrderID, rc.ID
		undo(func() {
			r.s.receipts[poID] = slices.DeleteFunc(r.s.receipts[poID], func(x model.PurchaseOrderReceipt) bool { return x.ID == id })
		})
		return nil
	})
}

func (r *purchaseOrderRepo) ListReceipts(_ context.Context, poID uuid.UUID) ([]model.PurchaseOrderReceipt, error) {
	var out []model.PurchaseOrderReceipt
	_ = r.readByID(r.poTenant(poID), func() error {
		out = slices.Clone(r.s.receipts[poID])
		return nil
	})
	return out, nil
}

func (r *purchaseOrderRepo) PendingBySKU(_ context.Context, tenantID tenant.ID) (map[string]int, error) {
	pending := make(map[string]int)
	_ = r.read(tenantID, func() error {
		for _, po := range r.s.pos {
			if po.TenantID != tenantID || po.Status == model.PurchaseOrderReceived {
				continue
			}
			for _, it := range po.Items {
				pending[it.SKU] += it.Pending()
			}
		}
		return nil
	})
	return pending, nil
}

type supplierRepo struct{ base }

func (r *supplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	return r.s.write(ctx, r.sc, s.TenantID, func(undo func(func())) error {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		ts := now()
		s.CreatedAt, s.UpdatedAt = ts, ts
		stored := *s
		r.s.suppliers[s.ID] = &stored
		id := s.ID
		undo(func() { delete(r.s.suppliers, id) })
		return nil
	})
}

func (r *supplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	var out model.Supplier
	err := r.readByID(func() tenant.ID {
		if s, ok := r.s.suppliers[id]; ok {
			return s.TenantID
		}
		return ""
	}, func() error {
		s, ok := r.s.suppliers[id]
		if !ok {
			return apierror.NotFound("supplier", id.String())
		}
		out = *s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *supplierRepo) List(_ context.Context, tenantID tenant.ID) ([]model.Supplier, error) {
	var out []model.Supplier
	_ = r.read(tenantID, func() error {
		for _, s := range r.s.suppliers {
			if s.TenantID == tenantID && s.Active {
				out = append(out, *s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
