package service

import (
	"context"
	"fmt"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"

	"github.com/google/uuid"
)

type SupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
	LicenseNumber string `json:"license_number"`
	IsActive      *bool  `json:"is_active"`
}

type SupplierService interface {
	ListSuppliers(ctx context.Context, page, limit int, search string) ([]model.Supplier, int64, error)
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
	CreateSupplier(ctx context.Context, req SupplierRequest) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, req SupplierRequest) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error
}

type supplierService struct {
	repo repository.SupplierRepository
}

func NewSupplierService(repo repository.SupplierRepository) SupplierService {
	return &supplierService{repo: repo}
}

func (s *supplierService) ListSuppliers(ctx context.Context, page, limit int, search string) ([]model.Supplier, int64, error) {
	return s.repo.List(ctx, page, limit, search)
}

func (s *supplierService) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid supplier id")
	}
	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("supplier not found")
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, req SupplierRequest) (*model.Supplier, error) {
	supplier := &model.Supplier{IsActive: true}
	applySupplier(supplier, req)
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id string, req SupplierRequest) (*model.Supplier, error) {
	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	applySupplier(supplier, req)
	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

// DeleteSupplier soft-deletes; batches keep their supplier reference
func (s *supplierService) DeleteSupplier(ctx context.Context, id string) error {
	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, supplier.ID)
}

func applySupplier(s *model.Supplier, req SupplierRequest) {
	s.Name = req.Name
	s.ContactPerson = req.ContactPerson
	s.Phone = req.Phone
	s.Email = req.Email
	s.Address = req.Address
	s.LicenseNumber = req.LicenseNumber
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
}
