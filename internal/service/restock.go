package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"

	"github.com/google/uuid"
)

// Restock strategies, in the order they are tried
const (
	StrategyExactExpiry = "exact_expiry"
	StrategySameMonth   = "same_month"
	StrategyBatch       = "batch_number"
	StrategyCreated     = "created"
)

type restockInput struct {
	MedicineID  uuid.UUID
	BatchNumber string
	Expiry      *time.Time
	Quantity    int
	SupplierID  *uuid.UUID
	Source      string
	UserID      *uuid.UUID
}

// RestockResult says which batch received the stock
type RestockResult struct {
	BatchID    uuid.UUID `json:"inventoryId"`
	Strategy   string    `json:"strategy"`
	StockAfter int       `json:"stockAfter"`
}

// restocker adds incoming stock to the best matching batch. It must run
// inside a transaction: lookups lock the batch they return.
type restocker struct {
	inventoryRepo repository.InventoryRepository
	invTxRepo     repository.InventoryTxRepository
}

func (r *restocker) apply(ctx context.Context, in restockInput) (*RestockResult, error) {
	if in.BatchNumber == "" {
		in.BatchNumber = model.DefaultBatchNumber
	}

	batch, strategy, err := r.findExisting(ctx, in)
	if err != nil {
		return nil, err
	}

	res := &RestockResult{Strategy: strategy}
	if batch != nil {
		stock, err := r.inventoryRepo.IncrementQuantity(ctx, batch.ID, in.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to increment batch %s: %w", batch.ID, err)
		}
		res.BatchID = batch.ID
		res.StockAfter = stock
	} else {
		created := &model.InventoryBatch{
			MedicineID:  in.MedicineID,
			BatchNumber: in.BatchNumber,
			ExpiryDate:  in.Expiry,
			Quantity:    in.Quantity,
			SupplierID:  in.SupplierID,
		}
		if err := r.inventoryRepo.Create(ctx, created); err != nil {
			return nil, fmt.Errorf("failed to create batch: %w", err)
		}
		res.BatchID = created.ID
		res.StockAfter = created.Quantity
		res.Strategy = StrategyCreated
	}

	if err := r.invTxRepo.Create(ctx, &model.InventoryTransaction{
		BatchID:         res.BatchID,
		MedicineID:      in.MedicineID,
		Source:          in.Source,
		TransactionType: model.TxTypeIn,
		QuantityChanged: in.Quantity,
		StockAfter:      res.StockAfter,
		UserID:          in.UserID,
	}); err != nil {
		return nil, fmt.Errorf("failed to record inventory transaction: %w", err)
	}

	return res, nil
}

func (r *restocker) findExisting(ctx context.Context, in restockInput) (*model.InventoryBatch, string, error) {
	if in.Expiry != nil {
		b, err := r.inventoryRepo.FindByExactExpiry(ctx, in.MedicineID, in.BatchNumber, *in.Expiry)
		if found, err := present(b, err); err != nil || found {
			return b, StrategyExactExpiry, err
		}

		from, to := monthBounds(*in.Expiry)
		b, err = r.inventoryRepo.FindByExpiryRange(ctx, in.MedicineID, in.BatchNumber, from, to)
		if found, err := present(b, err); err != nil || found {
			return b, StrategySameMonth, err
		}
	}

	b, err := r.inventoryRepo.FindByBatch(ctx, in.MedicineID, in.BatchNumber)
	if found, err := present(b, err); err != nil || found {
		return b, StrategyBatch, err
	}
	return nil, "", nil
}

// present folds "record not found" into found=false
func present(b *model.InventoryBatch, err error) (bool, error) {
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return b != nil, nil
}

func parseOptionalUUID(s string) *uuid.UUID {
	if id, err := uuid.Parse(s); err == nil {
		return &id
	}
	return nil
}
