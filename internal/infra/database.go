package infra

import (
	"fmt"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, migrates the
// inventory tables and then applies the idempotent SQL patches GORM tags
// cannot express (CHECK constraints, the ledger keyset index).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table and applies the schema patches.
// Integration tests call it directly against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Variant{},
		&model.StockMovement{},
		&model.Order{},
		&model.OrderLine{},
		&model.Supplier{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderItem{},
		&model.PurchaseOrderReceipt{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements. Each one is guarded by an
// existence check so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// stock can never go negative, whatever path writes it
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_variants_stock_non_negative') THEN
		    ALTER TABLE variants ADD CONSTRAINT chk_variants_stock_non_negative CHECK (stock >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_variants_threshold_non_negative') THEN
		    ALTER TABLE variants ADD CONSTRAINT chk_variants_threshold_non_negative CHECK (reorder_threshold >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_po_items_received_bounds') THEN
		    ALTER TABLE purchase_order_items ADD CONSTRAINT chk_po_items_received_bounds
		      CHECK (received_qty >= 0 AND received_qty <= ordered_qty);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_order_lines_reserved_bounds') THEN
		    ALTER TABLE order_lines ADD CONSTRAINT chk_order_lines_reserved_bounds
		      CHECK (reserved_qty >= 0 AND reserved_qty <= quantity);
		  END IF;
		END $$`,
		// keyset pagination of the ledger: (tenant_id, created_at, id)
		`CREATE INDEX IF NOT EXISTS idx_movements_tenant_created_id
		    ON stock_movements (tenant_id, created_at, id)`,
		// one item per SKU on a purchase order
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_po_items_po_sku
		    ON purchase_order_items (purchase_order_id, sku)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
