package service

import (
	"context"

	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventPublisher receives post-commit notifications. Implementations must not
// block the caller for long; delivery is best-effort.
type EventPublisher interface {
	StockChanged(ctx context.Context, tenantID tenant.ID, skus []string) error
	PurchaseOrderSent(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) error
}

// publishStockChanged is fire & forget: a lost event only delays an alert,
// the periodic low-stock scan catches up.
func publishStockChanged(ctx context.Context, p EventPublisher, tenantID tenant.ID, skus []string) {
	if p == nil || len(skus) == 0 {
		return
	}
	if err := p.StockChanged(ctx, tenantID, skus); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("stock_changed event not published")
	}
}

func uniqueSKUs(skus []string) []string {
	seen := make(map[string]bool, len(skus))
	out := make([]string, 0, len(skus))
	for _, s := range skus {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// guardTenant rejects an entity loaded by id that belongs to another tenant.
// Reaching it means a caller passed an id it never got from its own tenant.
func guardTenant(expected, actual tenant.ID, entity string) error {
	if err := tenant.Guard(expected, actual, entity); err != nil {
		log.Error().
			Str("tenant_id", expected.String()).
			Str("owner_tenant_id", actual.String()).
			Str("entity", entity).
			Msg("cross-tenant access rejected")
		return err
	}
	return nil
}
