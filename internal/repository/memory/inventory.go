package memory

import (
	"bytes"
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

func cloneVariant(v *model.Variant) model.Variant {
	out := *v
	out.Attributes = datatypes.NewJSONType(maps.Clone(v.Attributes.Data()))
	return out
}

type variantRepo struct{ base }

func (r *variantRepo) FindBySKU(_ context.Context, tenantID tenant.ID, sku string) (*model.Variant, error) {
	var out model.Variant
	err := r.read(tenantID, func() error {
		v, ok := r.s.variants[tenantID][sku]
		if !ok {
			return apierror.SKUNotFound(sku)
		}
		out = cloneVariant(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *variantRepo) List(_ context.Context, tenantID tenant.ID) ([]model.Variant, error) {
	var out []model.Variant
	_ = r.read(tenantID, func() error {
		out = make([]model.Variant, 0, len(r.s.variants[tenantID]))
		for _, v := range r.s.variants[tenantID] {
			out = append(out, cloneVariant(v))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *variantRepo) Decrement(ctx context.Context, tenantID tenant.ID, sku string, qty int) (int, error) {
	var after int
	err := r.s.write(ctx, r.sc, tenantID, func(undo func(func())) error {
		v, ok := r.s.variants[tenantID][sku]
		if !ok {
			return apierror.SKUNotFound(sku)
		}
		if v.Stock < qty {
			return apierror.InsufficientStock(sku, qty, v.Stock)
		}
		prev, prevAt := v.Stock, v.UpdatedAt
		v.Stock -= qty
		v.UpdatedAt = now()
		undo(func() { v.Stock, v.UpdatedAt = prev, prevAt })
		after = v.Stock
		return nil
	})
	return after, err
}

func (r *variantRepo) Increment(ctx context.Context, tenantID tenant.ID, sku string, qty int) (int, error) {
	var after int
	err := r.s.write(ctx, r.sc, tenantID, func(undo func(func())) error {
		v, ok := r.s.variants[tenantID][sku]
		if !ok {
			return apierror.SKUNotFound(sku)
		}
		prev, prevAt := v.Stock, v.UpdatedAt
		v.Stock += qty
		v.UpdatedAt = now()
		undo(func() { v.Stock, v.UpdatedAt = prev, prevAt })
		after = v.Stock
		return nil
	})
	return after, err
}

func (r *variantRepo) SetReorderThreshold(ctx context.Context, tenantID tenant.ID, sku string, threshold int) error {
	return r.s.write(ctx, r.sc, tenantID, func(undo func(func())) error {
		v, ok := r.s.variants[tenantID][sku]
		if !ok {
			return apierror.SKUNotFound(sku)
		}
		prev := v.ReorderThreshold
		v.ReorderThreshold = threshold
		undo(func() { v.ReorderThreshold = prev })
		return nil
	})
}

// LockSKUs has nothing to do: a scope already holds its tenant's lock.
func (r *variantRepo) LockSKUs(context.Context, tenant.ID, []string) error { return nil }

func (r *variantRepo) Tenants(_ context.Context) ([]tenant.ID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]tenant.ID, 0, len(r.s.variants))
	for id, vs := range r.s.variants {
		if len(vs) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type movementRepo struct{ base }

func (r *movementRepo) Append(ctx context.Context, m *model.StockMovement) error {
	return r.s.write(ctx, r.sc, m.TenantID, func(undo func(func())) error {
		if m.ID == uuid.Nil {
			m.ID = uuid.Must(uuid.NewV7())
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now()
		}
		r.s.movements[m.TenantID] = append(r.s.movements[m.TenantID], *m)
		id, tid := m.ID, m.TenantID
		undo(func() {
			list := r.s.movements[tid]
			for i := len(list) - 1; i >= 0; i-- {
				if list[i].ID == id {
					r.s.movements[tid] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
		return nil
	})
}

func movementLess(a, b model.StockMovement) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func (r *movementRepo) Page(_ context.Context, f repository.MovementFilter, after *repository.MovementCursor, limit int) ([]model.StockMovement, error) {
	var matched []model.StockMovement
	_ = r.read(f.TenantID, func() error {
		for _, m := range r.s.movements[f.TenantID] {
			switch {
			case f.SKU != "" && m.SKU != f.SKU,
				f.Type != "" && m.Type != f.Type,
				f.From != nil && m.CreatedAt.Before(*f.From),
				f.To != nil && !m.CreatedAt.Before(*f.To):
				continue
			}
			if after != nil && !movementLess(model.StockMovement{CreatedAt: after.CreatedAt, ID: after.ID}, m) {
				continue
			}
			matched = append(matched, m)
		}
		return nil
	})

	sort.Slice(matched, func(i, j int) bool { return movementLess(matched[i], matched[j]) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *movementRepo) SumBySKU(_ context.Context, tenantID tenant.ID) (map[string]int, error) {
	sums := make(map[string]int)
	_ = r.read(tenantID, func() error {
		for _, m := range r.s.movements[tenantID] {
			sums[m.SKU] += m.Quantity
		}
		return nil
	})
	return sums, nil
}

type productRepo struct{ base }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.s.write(ctx, r.sc, p.TenantID, func(undo func(func())) error {
		existing := r.s.variants[p.TenantID]
		seen := make(map[string]bool, len(p.Variants))
		for _, v := range p.Variants {
			if _, dup := existing[v.SKU]; dup || seen[v.SKU] {
				return apierror.Conflict("a variant with the same SKU already exists")
			}
			seen[v.SKU] = true
		}

		ts := now()
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt, p.UpdatedAt = ts, ts
		if existing == nil {
			existing = make(map[string]*model.Variant)
			r.s.variants[p.TenantID] = existing
		}
		for i := range p.Variants {
			v := &p.Variants[i]
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			v.TenantID, v.ProductID = p.TenantID, p.ID
			v.CreatedAt, v.UpdatedAt = ts, ts
			stored := cloneVariant(v)
			existing[v.SKU] = &stored
		}
		stored := *p
		stored.Variants = nil
		r.s.products[p.ID] = &stored

		id, skus := p.ID, maps.Keys(seen)
		undo(func() {
			delete(r.s.products, id)
			for sku := range skus {
				delete(existing, sku)
			}
		})
		return nil
	})
}

// assemble attaches the product's variants ordered by position. Caller holds mu.
func (r *productRepo) assemble(p *model.Product) model.Product {
	out := *p
	out.Variants = nil
	for _, v := range r.s.variants[p.TenantID] {
		if v.ProductID == p.ID {
			out.Variants = append(out.Variants, cloneVariant(v))
		}
	}
	sort.Slice(out.Variants, func(i, j int) bool { return out.Variants[i].Position < out.Variants[j].Position })
	return out
}

func (r *productRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	var out model.Product
	err := r.readByID(func() tenant.ID {
		if p, ok := r.s.products[id]; ok {
			return p.TenantID
		}
		return ""
	}, func() error {
		p, ok := r.s.products[id]
		if !ok {
			return apierror.NotFound("product", id.String())
		}
		out = r.assemble(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *productRepo) List(_ context.Context, tenantID tenant.ID, f repository.ProductFilter) ([]model.Product, int64, error) {
	name := strings.ToLower(f.Name)
	var matched []model.Product
	_ = r.read(tenantID, func() error {
		for _, p := range r.s.products {
			if p.TenantID != tenantID ||
				(f.Category != "" && p.Category != f.Category) ||
				(name != "" && !strings.Contains(strings.ToLower(p.Name), name)) {
				continue
			}
			matched = append(matched, r.assemble(p))
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}
