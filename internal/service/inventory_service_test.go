package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct_OpeningStockGoesThroughLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.inventory.CreateProduct(ctx, tenantA, dto.CreateProductRequest{
		Name:     "Hoodie",
		Category: "apparel",
		Variants: []dto.VariantInput{
			{SKU: "HOODIE-S-RED", Attributes: map[string]string{"size": "S", "color": "red"}, Price: decimal.NewFromFloat(39.9), InitialStock: 4},
			{SKU: "HOODIE-M-RED", Attributes: map[string]string{"size": "M", "color": "red"}, Price: decimal.NewFromFloat(39.9)},
		},
	})
	require.NoError(t, err)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "HOODIE-S-RED", p.Variants[0].SKU)
	assert.Equal(t, "red", p.Variants[0].AttributeMap()["color"])
	assert.Equal(t, 4, p.Variants[0].Stock)

	opening := f.movements(t, tenantA, service.MovementQuery{})
	require.Len(t, opening, 1, "zero opening stock writes no movement")
	assert.Equal(t, model.MovementAdjustment, opening[0].Type)
	assert.Equal(t, 4, opening[0].Quantity)
	assert.Equal(t, p.ID, opening[0].ReferenceID)

	got, err := f.inventory.GetProduct(ctx, tenantA, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, err = f.inventory.GetProduct(ctx, tenantB, p.ID)
	assert.True(t, errors.Is(err, apierror.ErrCrossTenantViolation))
}

func TestCreateProduct_SKUUniquePerTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "DUP", 1, 0)

	_, err := f.inventory.CreateProduct(ctx, tenantA, dto.CreateProductRequest{
		Name:     "Other",
		Variants: []dto.VariantInput{{SKU: "DUP"}},
	})
	assert.True(t, errors.Is(err, apierror.ErrConflict))

	_, err = f.inventory.CreateProduct(ctx, tenantA, dto.CreateProductRequest{
		Name:     "Twice",
		Variants: []dto.VariantInput{{SKU: "X"}, {SKU: "X"}},
	})
	assert.True(t, errors.Is(err, apierror.ErrConflict))

	// Another tenant may reuse the SKU.
	f.seedVariant(t, tenantB, "DUP", 7, 0)
	assert.Equal(t, 1, f.stock(t, tenantA, "DUP"))
	assert.Equal(t, 7, f.stock(t, tenantB, "DUP"))
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 1, 0)
	f.seedVariant(t, tenantA, "B", 1, 0)
	f.seedVariant(t, tenantB, "C", 1, 0)

	products, total, err := f.inventory.ListProducts(ctx, tenantA, dto.ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, products, 2)

	products, total, err = f.inventory.ListProducts(ctx, tenantA, dto.ProductFilter{Name: "product b"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "B", products[0].Variants[0].SKU)

	products, _, err = f.inventory.ListProducts(ctx, tenantA, dto.ProductFilter{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestAdjust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 3, 0)

	_, err := f.inventory.Adjust(ctx, tenantA, dto.AdjustStockRequest{SKU: "A", Delta: -4, Reason: "shrinkage"})
	assert.True(t, errors.Is(err, apierror.ErrInsufficientStock), "negative adjustments are conditional")
	assert.Equal(t, 3, f.stock(t, tenantA, "A"))

	mv, err := f.inventory.Adjust(ctx, tenantA, dto.AdjustStockRequest{SKU: "A", Delta: -3, Reason: "shrinkage"})
	require.NoError(t, err)
	assert.Equal(t, "shrinkage", mv.Reason)
	assert.Equal(t, 0, f.stock(t, tenantA, "A"))

	_, err = f.inventory.Adjust(ctx, tenantA, dto.AdjustStockRequest{SKU: "A", Delta: 1, Reason: "  "})
	assert.True(t, errors.Is(err, apierror.ErrValidation))
}

func TestSetReorderThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 3, 0)

	require.NoError(t, f.inventory.SetReorderThreshold(ctx, tenantA, "A", 8))
	v, err := f.store.Variants().FindBySKU(ctx, tenantA, "A")
	require.NoError(t, err)
	assert.Equal(t, 8, v.ReorderThreshold)

	assert.True(t, errors.Is(f.inventory.SetReorderThreshold(ctx, tenantA, "A", -1), apierror.ErrValidation))
	assert.True(t, errors.Is(f.inventory.SetReorderThreshold(ctx, tenantB, "A", 1), apierror.ErrNotFound))
}
