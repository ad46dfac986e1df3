package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receipt(sku string, qty int, price int64) dto.ReceiptInput {
	return dto.ReceiptInput{SKU: sku, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

func TestPurchaseOrder_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 0, 0)
	f.seedVariant(t, tenantA, "B", 0, 0)

	po, err := f.pos.Create(ctx, tenantA, dto.CreatePurchaseOrderRequest{
		SupplierID: f.supplier(t, tenantA).String(),
		Items:      []dto.PurchaseOrderItemInput{{SKU: "A", Quantity: 10, UnitPrice: decimal.NewFromInt(3)}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderDraft, po.Status)
	require.NotNil(t, po.Supplier)

	po, err = f.pos.AddItem(ctx, tenantA, po.ID, dto.PurchaseOrderItemInput{SKU: "B", Quantity: 4, UnitPrice: decimal.NewFromInt(7)})
	require.NoError(t, err)
	require.Len(t, po.Items, 2)

	_, err = f.pos.Confirm(ctx, tenantA, po.ID)
	assert.True(t, errors.Is(err, apierror.ErrInvalidTransition), "draft cannot be confirmed")

	po, err = f.pos.Send(ctx, tenantA, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderSent, po.Status)
	assert.NotNil(t, po.SentAt)
	assert.Equal(t, []uuid.UUID{po.ID}, f.publisher.sent)

	_, err = f.pos.AddItem(ctx, tenantA, po.ID, dto.PurchaseOrderItemInput{SKU: "A", Quantity: 1})
	assert.True(t, errors.Is(err, apierror.ErrInvalidTransition), "items only on drafts")

	po, err = f.pos.Confirm(ctx, tenantA, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderConfirmed, po.Status)
	assert.Equal(t, 0, f.stock(t, tenantA, "A"), "paperwork transitions never move stock")
	assert.Empty(t, f.movements(t, tenantA, service.MovementQuery{Type: model.MovementPurchase}))
}

func TestPurchaseOrder_SendRequiresItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	po, err := f.pos.Create(ctx, tenantA, dto.CreatePurchaseOrderRequest{SupplierID: f.supplier(t, tenantA).String()})
	require.NoError(t, err)

	_, err = f.pos.Send(ctx, tenantA, po.ID)
	assert.True(t, errors.Is(err, apierror.ErrInvalidTransition))
	assert.Empty(t, f.publisher.sent)
}

func TestReceiveItems_SixtyThenForty_Received(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "SKU-P", 0, 0)
	po := f.sentPO(t, tenantA, map[string]int{"SKU-P": 100})

	po, err := f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("SKU-P", 60, 5)})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderConfirmed, po.Status, "a partial receipt confirms a sent order")
	assert.Equal(t, 60, po.Items[0].ReceivedQty)

	po, err = f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("SKU-P", 40, 5)})
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderReceived, po.Status)
	assert.Equal(t, 100, po.Items[0].ReceivedQty)
	assert.NotNil(t, po.ReceivedAt)
	assert.Equal(t, 100, f.stock(t, tenantA, "SKU-P"))

	purchases := f.movements(t, tenantA, service.MovementQuery{Type: model.MovementPurchase})
	require.Len(t, purchases, 2)
	assert.Equal(t, 60, purchases[0].Quantity)
	assert.Equal(t, 40, purchases[1].Quantity)
	assert.Equal(t, po.ID, purchases[1].ReferenceID)

	receipts, err := f.store.PurchaseOrders().ListReceipts(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.Equal(t, purchases[0].ID, receipts[0].MovementID)

	_, err = f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("SKU-P", 1, 5)})
	assert.True(t, errors.Is(err, apierror.ErrInvalidTransition), "received is terminal")
}

func TestReceiveItems_OverReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "SKU-P", 0, 0)
	po := f.sentPO(t, tenantA, map[string]int{"SKU-P": 100})

	_, err := f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("SKU-P", 70, 5)})
	require.NoError(t, err)

	_, err = f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("SKU-P", 40, 5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierror.ErrOverReceipt))

	po, err = f.pos.Get(ctx, tenantA, po.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, po.Items[0].ReceivedQty)
	assert.Equal(t, model.PurchaseOrderConfirmed, po.Status)
	assert.Equal(t, 70, f.stock(t, tenantA, "SKU-P"))
}

func TestReceiveItems_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 0, 0)
	f.seedVariant(t, tenantA, "B", 0, 0)
	po := f.sentPO(t, tenantA, map[string]int{"A": 10, "B": 5})

	_, err := f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("A", 10, 5), receipt("B", 6, 5)})
	assert.True(t, errors.Is(err, apierror.ErrOverReceipt))

	po, err = f.pos.Get(ctx, tenantA, po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PurchaseOrderSent, po.Status)
	for _, it := range po.Items {
		assert.Zero(t, it.ReceivedQty)
		assert.Nil(t, it.ReceivedUnitPrice)
	}
	assert.Equal(t, 0, f.stock(t, tenantA, "A"))
	assert.Empty(t, f.movements(t, tenantA, service.MovementQuery{Type: model.MovementPurchase}))
}

func TestReceiveItems_MonotonicAndBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 0, 0)
	po := f.sentPO(t, tenantA, map[string]int{"A": 20})

	last := 0
	for _, qty := range []int{3, 9, 1, 12, 4, 8, 2, 5} {
		_, err := f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("A", qty, 5)})
		if err != nil {
			assert.True(t, errors.Is(err, apierror.ErrOverReceipt) || errors.Is(err, apierror.ErrInvalidTransition))
		}
		cur, err := f.pos.Get(ctx, tenantA, po.ID)
		require.NoError(t, err)
		got := cur.Items[0].ReceivedQty
		assert.GreaterOrEqual(t, got, last)
		assert.LessOrEqual(t, got, cur.Items[0].OrderedQty)
		last = got
	}
	assert.Equal(t, last, f.stock(t, tenantA, "A"))
}

func TestReceiveItems_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 0, 0)

	draft, err := f.pos.Create(ctx, tenantA, dto.CreatePurchaseOrderRequest{
		SupplierID: f.supplier(t, tenantA).String(),
		Items:      []dto.PurchaseOrderItemInput{{SKU: "A", Quantity: 5, UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	_, err = f.pos.ReceiveItems(ctx, tenantA, draft.ID, []dto.ReceiptInput{receipt("A", 1, 1)})
	assert.True(t, errors.Is(err, apierror.ErrInvalidTransition), "drafts accept no receipts")

	po := f.sentPO(t, tenantA, map[string]int{"A": 5})
	_, err = f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("NOT-ON-PO", 1, 1)})
	assert.True(t, errors.Is(err, apierror.ErrNotFound))

	_, err = f.pos.ReceiveItems(ctx, tenantB, po.ID, []dto.ReceiptInput{receipt("A", 1, 1)})
	assert.True(t, errors.Is(err, apierror.ErrCrossTenantViolation))
	assert.Equal(t, 0, f.stock(t, tenantA, "A"))
}

func TestCreatePurchaseOrder_TenantScopedReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 0, 0)
	f.seedVariant(t, tenantB, "B-ONLY", 0, 0)

	_, err := f.pos.Create(ctx, tenantA, dto.CreatePurchaseOrderRequest{SupplierID: f.supplier(t, tenantB).String()})
	assert.True(t, errors.Is(err, apierror.ErrCrossTenantViolation), "supplier of another tenant")

	_, err = f.pos.Create(ctx, tenantA, dto.CreatePurchaseOrderRequest{
		SupplierID: f.supplier(t, tenantA).String(),
		Items:      []dto.PurchaseOrderItemInput{{SKU: "B-ONLY", Quantity: 1}},
	})
	assert.True(t, errors.Is(err, apierror.ErrNotFound), "sku of another tenant")

	_, err = f.pos.Create(ctx, tenantA, dto.CreatePurchaseOrderRequest{
		SupplierID: f.supplier(t, tenantA).String(),
		Items: []dto.PurchaseOrderItemInput{
			{SKU: "A", Quantity: 1},
			{SKU: "A", Quantity: 2},
		},
	})
	assert.True(t, errors.Is(err, apierror.ErrValidation), "duplicate sku on one order")
}

func TestPriceVariance_WeightedReceivedPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedVariant(t, tenantA, "A", 0, 0)
	po := f.sentPO(t, tenantA, map[string]int{"A": 10}) // agreed at 5

	_, err := f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("A", 4, 5)})
	require.NoError(t, err)
	po, err = f.pos.ReceiveItems(ctx, tenantA, po.ID, []dto.ReceiptInput{receipt("A", 6, 10)})
	require.NoError(t, err)

	// (4×5 + 6×10) / 10 = 8
	require.NotNil(t, po.Items[0].ReceivedUnitPrice)
	assert.True(t, po.Items[0].ReceivedUnitPrice.Equal(decimal.NewFromInt(8)), po.Items[0].ReceivedUnitPrice.String())

	report, err := f.pos.PriceVariance(ctx, tenantA, po.ID)
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	// (8 − 5) × 10 = 30
	assert.True(t, report.Total.Equal(decimal.NewFromInt(30)), report.Total.String())
}
