package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CreateMedicineRequest struct {
	Name        string `json:"name" binding:"required"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type MedicineService interface {
	ListMedicines(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error)
	GetMedicine(ctx context.Context, id string) (*model.Medicine, error)
	CreateMedicine(ctx context.Context, userID string, req CreateMedicineRequest) (*model.Medicine, error)
}

type medicineService struct {
	repo      repository.MedicineRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	matcher   MedicineMatcher
}

func NewMedicineService(repo repository.MedicineRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, matcher MedicineMatcher) MedicineService {
	return &medicineService{repo: repo, auditRepo: auditRepo, txManager: txManager, matcher: matcher}
}

func (s *medicineService) ListMedicines(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	return s.repo.List(ctx, page, limit, strings.TrimSpace(search))
}

func (s *medicineService) GetMedicine(ctx context.Context, id string) (*model.Medicine, error) {
	medID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid medicine id")
	}
	med, err := s.repo.FindByID(ctx, medID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("medicine not found")
		}
		return nil, fmt.Errorf("failed to load medicine: %w", err)
	}
	return med, nil
}

// CreateMedicine adds a master record; names are unique ignoring case
func (s *medicineService) CreateMedicine(ctx context.Context, userID string, req CreateMedicineRequest) (*model.Medicine, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}

	med := &model.Medicine{
		Name:        name,
		Brand:       firstNonEmpty(strings.TrimSpace(req.Brand), model.UnknownBrand),
		Description: req.Description,
		Category:    req.Category,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByNameInsensitive(txCtx, name); err == nil {
			return conflict("medicine %q already exists", name)
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("failed to check medicine name: %w", err)
		}

		if err := s.repo.Create(txCtx, med); err != nil {
			if repository.IsUniqueViolation(err) {
				return conflict("medicine %q already exists", name)
			}
			return fmt.Errorf("failed to create medicine: %w", err)
		}

		summary, _ := json.Marshal(map[string]string{"brand": med.Brand, "category": med.Category})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseOptionalUUID(userID),
			Action:     model.ActionMedicineCreate,
			EntityID:   med.ID.String(),
			EntityName: med.Name,
			Summary:    datatypes.JSON(summary),
		})
	})
	if err != nil {
		return nil, err
	}

	s.matcher.Invalidate()
	return med, nil
}
