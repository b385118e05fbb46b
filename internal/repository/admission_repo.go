package repository

import (
	"context"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdmissionRepository interface {
	Create(ctx context.Context, admission *model.Admission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Admission, error)
	Update(ctx context.Context, admission *model.Admission) error
	List(ctx context.Context, status string, page, limit int) ([]model.Admission, int64, error)
}

type admissionRepository struct {
	db *gorm.DB
}

func NewAdmissionRepository(db *gorm.DB) AdmissionRepository {
	return &admissionRepository{db: db}
}

func (r *admissionRepository) Create(ctx context.Context, admission *model.Admission) error {
	return GetDB(ctx, r.db).Create(admission).Error
}

func (r *admissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Admission, error) {
	var admission model.Admission
	if err := GetDB(ctx, r.db).First(&admission, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &admission, nil
}

func (r *admissionRepository) Update(ctx context.Context, admission *model.Admission) error {
	return GetDB(ctx, r.db).Save(admission).Error
}

func (r *admissionRepository) List(ctx context.Context, status string, page, limit int) ([]model.Admission, int64, error) {
	var admissions []model.Admission
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Admission{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("admitted_at desc").Offset(offset).Limit(limit).Find(&admissions).Error; err != nil {
		return nil, 0, err
	}
	return admissions, total, nil
}
