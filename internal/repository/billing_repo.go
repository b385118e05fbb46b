package repository

import (
	"context"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingRepository interface {
	Create(ctx context.Context, billing *model.Billing) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Billing, error)
	List(ctx context.Context, status string, page, limit int) ([]model.Billing, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	LockPrefix(ctx context.Context, prefix string) error
}

type billingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

// Create inserts the billing together with its line items
func (r *billingRepository) Create(ctx context.Context, billing *model.Billing) error {
	return GetDB(ctx, r.db).Create(billing).Error
}

func (r *billingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Billing, error) {
	var billing model.Billing
	if err := GetDB(ctx, r.db).Preload("LineItems").Preload("BilledByUser").
		First(&billing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &billing, nil
}

func (r *billingRepository) List(ctx context.Context, status string, page, limit int) ([]model.Billing, int64, error) {
	var billings []model.Billing
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Billing{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("LineItems").Preload("BilledByUser")
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at desc").Offset(offset).Limit(limit).Find(&billings).Error; err != nil {
		return nil, 0, err
	}

	return billings, total, nil
}

func (r *billingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := GetDB(ctx, r.db).Model(&model.Billing{}).Where("id = ?", id).UpdateColumn("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *billingRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Billing{}).Where("invoice_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// LockPrefix serializes invoice numbering for one day until the transaction ends
func (r *billingRepository) LockPrefix(ctx context.Context, prefix string) error {
	return GetDB(ctx, r.db).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error
}
