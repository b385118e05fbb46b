package repository

import (
	"context"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	Create(ctx context.Context, batch *model.InventoryBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	List(ctx context.Context, page, limit int, medicineID *uuid.UUID) ([]model.InventoryBatch, int64, error)
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	// Restock lookups, each row-locked for the rest of the transaction
	FindByExactExpiry(ctx context.Context, medicineID uuid.UUID, batchNumber string, expiry time.Time) (*model.InventoryBatch, error)
	FindByExpiryRange(ctx context.Context, medicineID uuid.UUID, batchNumber string, from, to time.Time) (*model.InventoryBatch, error)
	FindByBatch(ctx context.Context, medicineID uuid.UUID, batchNumber string) (*model.InventoryBatch, error)
	IncrementQuantity(ctx context.Context, id uuid.UUID, qty int) (int, error)

	ListAvailableFIFO(ctx context.Context, medicineID uuid.UUID) ([]model.InventoryBatch, error)
	DecrementIfAvailable(ctx context.Context, id uuid.UUID, take int) (int, bool, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, batch *model.InventoryBatch) error {
	return GetDB(ctx, r.db).Create(batch).Error
}

func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	var batch model.InventoryBatch
	if err := GetDB(ctx, r.db).Preload("Medicine").Preload("Supplier").First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *inventoryRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	var batch model.InventoryBatch
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *inventoryRepository) List(ctx context.Context, page, limit int, medicineID *uuid.UUID) ([]model.InventoryBatch, int64, error) {
	var batches []model.InventoryBatch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryBatch{})
	if medicineID != nil {
		db = db.Where("medicine_id = ?", *medicineID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Medicine").Preload("Supplier").
		Order("expiry_date asc nulls last").Order("created_at asc").
		Offset(offset).Limit(limit).Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *inventoryRepository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.InventoryBatch{}).Where("id = ?", id).Update("quantity", quantity).Error
}

func (r *inventoryRepository) findLocked(ctx context.Context, query *gorm.DB) (*model.InventoryBatch, error) {
	var batch model.InventoryBatch
	if err := query.Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("created_at asc").First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *inventoryRepository) FindByExactExpiry(ctx context.Context, medicineID uuid.UUID, batchNumber string, expiry time.Time) (*model.InventoryBatch, error) {
	return r.findLocked(ctx, GetDB(ctx, r.db).
		Where("medicine_id = ? AND batch_number = ? AND expiry_date = ?", medicineID, batchNumber, expiry))
}

func (r *inventoryRepository) FindByExpiryRange(ctx context.Context, medicineID uuid.UUID, batchNumber string, from, to time.Time) (*model.InventoryBatch, error) {
	return r.findLocked(ctx, GetDB(ctx, r.db).
		Where("medicine_id = ? AND batch_number = ? AND expiry_date >= ? AND expiry_date <= ?", medicineID, batchNumber, from, to))
}

func (r *inventoryRepository) FindByBatch(ctx context.Context, medicineID uuid.UUID, batchNumber string) (*model.InventoryBatch, error) {
	return r.findLocked(ctx, GetDB(ctx, r.db).
		Where("medicine_id = ? AND batch_number = ?", medicineID, batchNumber))
}

// IncrementQuantity adds qty to the batch and returns the new stock level
func (r *inventoryRepository) IncrementQuantity(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	batch := model.InventoryBatch{ID: id}
	res := GetDB(ctx, r.db).Model(&batch).Clauses(clause.Returning{}).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return batch.Quantity, nil
}

// ListAvailableFIFO returns batches with stock, soonest expiry first; undated batches go last
func (r *inventoryRepository) ListAvailableFIFO(ctx context.Context, medicineID uuid.UUID) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	if err := GetDB(ctx, r.db).
		Where("medicine_id = ? AND quantity > 0", medicineID).
		Order("expiry_date asc nulls last").Order("created_at asc").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// DecrementIfAvailable takes `take` units only if the batch still holds at least that many.
// It returns the stock left and false when a concurrent writer got there first.
func (r *inventoryRepository) DecrementIfAvailable(ctx context.Context, id uuid.UUID, take int) (int, bool, error) {
	batch := model.InventoryBatch{ID: id}
	res := GetDB(ctx, r.db).Model(&batch).Clauses(clause.Returning{}).
		Where("quantity >= ?", take).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", take))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}
	return batch.Quantity, true, nil
}
