package repository

import (
	"context"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	Count(ctx context.Context) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
	FindByNameInsensitive(ctx context.Context, name string) (*model.Medicine, error)
	FindLinkedToInventoryByName(ctx context.Context, name string) (*model.Medicine, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error)
	ListAll(ctx context.Context) ([]model.Medicine, error)
}

type medicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Create(medicine).Error
}

func (r *medicineRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.Medicine{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *medicineRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).First(&medicine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) FindByNameInsensitive(ctx context.Context, name string) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).Where("LOWER(name) = LOWER(?)", name).First(&medicine).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

// FindLinkedToInventoryByName returns the first medicine that has stock batches
// and whose name contains the given text (case-insensitive)
func (r *medicineRepository) FindLinkedToInventoryByName(ctx context.Context, name string) (*model.Medicine, error) {
	var medicine model.Medicine
	err := GetDB(ctx, r.db).
		Where("name ILIKE ?", "%"+escapeLike(name)+"%").
		Where("EXISTS (SELECT 1 FROM inventory_batches b WHERE b.medicine_id = medicines.id)").
		Order("name asc").
		First(&medicine).Error
	if err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	var medicines []model.Medicine
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Medicine{})
	if search != "" {
		db = db.Where("name ILIKE ? OR brand ILIKE ?", "%"+escapeLike(search)+"%", "%"+escapeLike(search)+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&medicines).Error; err != nil {
		return nil, 0, err
	}

	return medicines, total, nil
}

// ListAll returns every medicine ordered by name; used to build the matcher snapshot
func (r *medicineRepository) ListAll(ctx context.Context) ([]model.Medicine, error) {
	var medicines []model.Medicine
	if err := GetDB(ctx, r.db).Order("name asc").Find(&medicines).Error; err != nil {
		return nil, err
	}
	return medicines, nil
}
