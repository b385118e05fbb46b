package repository

import (
	"context"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.InvoiceReview) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InvoiceReview, error)
	ListByStatus(ctx context.Context, status string, page, limit int) ([]model.InvoiceReview, int64, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewer *uuid.UUID, appliedBatchID *uuid.UUID, at time.Time) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.InvoiceReview) error {
	return GetDB(ctx, r.db).Create(review).Error
}

func (r *reviewRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InvoiceReview, error) {
	var review model.InvoiceReview
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ListByStatus(ctx context.Context, status string, page, limit int) ([]model.InvoiceReview, int64, error) {
	var reviews []model.InvoiceReview
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.InvoiceReview{}).Where("status = ?", status).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("CandidateMatches.Medicine").
		Where("status = ?", status).
		Order("created_at asc").Offset(offset).Limit(limit).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *reviewRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewer *uuid.UUID, appliedBatchID *uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.InvoiceReview{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":           status,
		"reviewed_by":      reviewer,
		"reviewed_at":      at,
		"applied_batch_id": appliedBatchID,
	}).Error
}
