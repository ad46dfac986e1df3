package repository

import (
	"context"
	"errors"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"gorm.io/gorm"
)

// pgStore implements Store on top of GORM/Postgres. The same struct serves
// the top-level store and every transaction: only the *gorm.DB differs.
type pgStore struct{ db *gorm.DB }

// NewPostgresStore wraps a GORM connection opened by infra.NewDatabase.
func NewPostgresStore(db *gorm.DB) Store { return &pgStore{db: db} }

// Atomically runs fn inside db.Transaction. Stock counters are protected by
// row-level conditional updates, so tenants and SKUs never contend on a
// lock wider than the rows they touch.
func (s *pgStore) Atomically(ctx context.Context, tenantID tenant.ID, fn func(tx Tx) error) error {
	if err := tenant.Require(tenantID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}

func (s *pgStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *pgStore) Variants() VariantRepository             { return &variantRepo{db: s.db} }
func (s *pgStore) Movements() MovementRepository           { return &movementRepo{db: s.db} }
func (s *pgStore) Orders() OrderRepository                 { return &orderRepo{db: s.db} }
func (s *pgStore) PurchaseOrders() PurchaseOrderRepository { return &purchaseOrderRepo{db: s.db} }
func (s *pgStore) Products() ProductRepository             { return &productRepo{db: s.db} }
func (s *pgStore) Suppliers() SupplierRepository           { return &supplierRepo{db: s.db} }

// notFound converts gorm.ErrRecordNotFound into the core NotFound kind.
func notFound(err error, entity, id string) error {
	if isRecordNotFound(err) {
		return apierror.NotFound(entity, id)
	}
	return err
}

func isRecordNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
