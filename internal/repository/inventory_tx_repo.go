package repository

import (
	"context"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryTxRepository interface {
	Create(ctx context.Context, tx *model.InventoryTransaction) error
	ListByBatch(ctx context.Context, batchID uuid.UUID, page, limit int) ([]model.InventoryTransaction, int64, error)
}

type inventoryTxRepository struct {
	db *gorm.DB
}

func NewInventoryTxRepository(db *gorm.DB) InventoryTxRepository {
	return &inventoryTxRepository{db: db}
}

func (r *inventoryTxRepository) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *inventoryTxRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, page, limit int) ([]model.InventoryTransaction, int64, error) {
	var txs []model.InventoryTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryTransaction{}).Where("batch_id = ?", batchID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
