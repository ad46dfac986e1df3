package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PurchaseOrderReader is satisfied by service.PurchaseOrderService.
type PurchaseOrderReader interface {
	Get(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error)
}

type DocumentMailer interface {
	SendPurchaseOrder(to string, po *model.PurchaseOrder, pdfPath string) error
}

// DocumentWorker renders the purchase-order PDF once a PO is sent and
// e-mails it to the supplier.
type DocumentWorker struct {
	orders      PurchaseOrderReader
	mailer      DocumentMailer
	storagePath string
	render      func(po *model.PurchaseOrder, storagePath string) (string, error)
}

func NewDocumentWorker(orders PurchaseOrderReader, mailer DocumentMailer, storagePath string) *DocumentWorker {
	return &DocumentWorker{
		orders:      orders,
		mailer:      mailer,
		storagePath: storagePath,
		render:      infra.GeneratePurchaseOrderPDF,
	}
}

// Process handles a JobPurchaseOrderSent payload.
func (w *DocumentWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p PurchaseOrderSentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Permanent(fmt.Errorf("document_worker: invalid payload: %w", err))
	}

	po, err := w.orders.Get(ctx, p.TenantID, p.PurchaseOrderID)
	if err != nil {
		if errors.Is(err, apierror.ErrNotFound) || errors.Is(err, apierror.ErrCrossTenantViolation) {
			return Permanent(err)
		}
		return err
	}

	path, err := w.render(po, w.storagePath)
	if err != nil {
		return fmt.Errorf("document_worker: render: %w", err)
	}
	log.Info().Str("purchase_order_id", po.ID.String()).Str("path", path).Msg("document_worker: PDF generated")

	if po.Supplier == nil || po.Supplier.Email == nil || *po.Supplier.Email == "" {
		log.Warn().Str("purchase_order_id", po.ID.String()).Msg("document_worker: supplier has no e-mail, skipping send")
		return nil
	}
	err = w.mailer.SendPurchaseOrder(*po.Supplier.Email, po, path)
	switch {
	case errors.Is(err, infra.ErrMailerDisabled):
		log.Warn().Str("purchase_order_id", po.ID.String()).Msg("document_worker: mailer disabled, PO not e-mailed")
		return nil
	case err != nil:
		return fmt.Errorf("document_worker: send: %w", err)
	}
	log.Info().Str("purchase_order_id", po.ID.String()).Str("to", *po.Supplier.Email).Msg("document_worker: PO sent to supplier")
	return nil
}
