package service

import (
	"context"
	"strings"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
)

type SupplierService interface {
	Create(ctx context.Context, tenantID tenant.ID, req dto.CreateSupplierRequest) (*model.Supplier, error)
	List(ctx context.Context, tenantID tenant.ID) ([]model.Supplier, error)
}

type supplierService struct {
	store repository.Store
}

func NewSupplierService(store repository.Store) SupplierService {
	return &supplierService{store: store}
}

func (s *supplierService) Create(ctx context.Context, tenantID tenant.ID, req dto.CreateSupplierRequest) (*model.Supplier, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierror.Validation("supplier name is required")
	}
	sup := &model.Supplier{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Email:    req.Email,
		Phone:    req.Phone,
		Active:   true,
	}
	if err := s.store.Suppliers().Create(ctx, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *supplierService) List(ctx context.Context, tenantID tenant.ID) ([]model.Supplier, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	return s.store.Suppliers().List(ctx, tenantID)
}
