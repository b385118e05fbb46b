package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefaultOCRIntakeQuantity is stocked when the intake form gives no quantity
const DefaultOCRIntakeQuantity = 50

// DTOs
type CreateBatchRequest struct {
	MedicineID  string `json:"medicine_id" binding:"required,uuid"`
	BatchNumber string `json:"batch_number"`
	ExpiryDate  string `json:"expiry_date"`
	Quantity    int    `json:"quantity" binding:"min=0"`
	SupplierID  string `json:"supplier_id" binding:"omitempty,uuid"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

type OCRIntakeRequest struct {
	FileName    string
	ContentType string
	File        io.Reader
	MedicineID  string
	Quantity    int
	SupplierID  string
}

type OCRIntakeResult struct {
	Msg      string                `json:"msg"`
	Item     *model.InventoryBatch `json:"item"`
	Strategy string                `json:"strategy"`
	OCR      *upstream.OCRResult   `json:"ocr"`
}

type InventoryService interface {
	ListBatches(ctx context.Context, page, limit int, medicineID string) ([]model.InventoryBatch, int64, error)
	CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*model.InventoryBatch, error)
	UpdateQuantity(ctx context.Context, userID, id string, req UpdateQuantityRequest) (*model.InventoryBatch, error)
	ListTransactions(ctx context.Context, id string, page, limit int) ([]model.InventoryTransaction, int64, error)
	OCRIntake(ctx context.Context, userID string, req OCRIntakeRequest) (*OCRIntakeResult, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	invTxRepo     repository.InventoryTxRepository
	medicineRepo  repository.MedicineRepository
	supplierRepo  repository.SupplierRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	ocr           LabelReader
	events        EventPublisher
	lowStock      int
	restock       *restocker
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	invTxRepo repository.InventoryTxRepository,
	medicineRepo repository.MedicineRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	ocr LabelReader,
	events EventPublisher,
	lowStockThreshold int,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		invTxRepo:     invTxRepo,
		medicineRepo:  medicineRepo,
		supplierRepo:  supplierRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		ocr:           ocr,
		events:        events,
		lowStock:      lowStockThreshold,
		restock:       &restocker{inventoryRepo: inventoryRepo, invTxRepo: invTxRepo},
	}
}

func (s *inventoryService) ListBatches(ctx context.Context, page, limit int, medicineID string) ([]model.InventoryBatch, int64, error) {
	var filter *uuid.UUID
	if medicineID != "" {
		id, err := uuid.Parse(medicineID)
		if err != nil {
			return nil, 0, invalid("invalid medicine_id")
		}
		filter = &id
	}
	return s.inventoryRepo.List(ctx, page, limit, filter)
}

func (s *inventoryService) CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*model.InventoryBatch, error) {
	med, err := s.loadMedicine(ctx, req.MedicineID)
	if err != nil {
		return nil, err
	}
	supplierID, err := s.loadSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}

	batch := &model.InventoryBatch{
		MedicineID:  med.ID,
		BatchNumber: firstNonEmpty(req.BatchNumber, model.DefaultBatchNumber),
		Quantity:    req.Quantity,
		SupplierID:  supplierID,
	}
	if req.ExpiryDate != "" {
		t, ok := ParseExpiry(req.ExpiryDate)
		if !ok {
			return nil, invalid("unrecognised expiry_date %q", req.ExpiryDate)
		}
		batch.ExpiryDate = &t
	}

	uid := parseOptionalUUID(userID)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.inventoryRepo.Create(txCtx, batch); err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}
		if err := s.invTxRepo.Create(txCtx, &model.InventoryTransaction{
			BatchID:         batch.ID,
			MedicineID:      med.ID,
			Source:          model.TxSourceManual,
			TransactionType: model.TxTypeIn,
			QuantityChanged: batch.Quantity,
			StockAfter:      batch.Quantity,
			UserID:          uid,
		}); err != nil {
			return fmt.Errorf("failed to record inventory transaction: %w", err)
		}
		return s.audit(txCtx, uid, model.ActionInventoryAdjst, batch, med.Name, map[string]interface{}{
			"batchNumber": batch.BatchNumber,
			"quantity":    batch.Quantity,
			"created":     true,
		})
	})
	if err != nil {
		return nil, err
	}

	batch.Medicine = med
	return batch, nil
}

// UpdateQuantity sets the counted stock of a batch and records the difference
func (s *inventoryService) UpdateQuantity(ctx context.Context, userID, id string, req UpdateQuantityRequest) (*model.InventoryBatch, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid inventory id")
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return nil, invalid("quantity must be a non-negative whole number")
	}
	qty := *req.Quantity
	uid := parseOptionalUUID(userID)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err := s.inventoryRepo.FindByIDForUpdate(txCtx, batchID)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound("Inventory item not found")
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := s.inventoryRepo.SetQuantity(txCtx, batchID, qty); err != nil {
			return fmt.Errorf("failed to update quantity: %w", err)
		}
		if err := s.invTxRepo.Create(txCtx, &model.InventoryTransaction{
			BatchID:         batch.ID,
			MedicineID:      batch.MedicineID,
			Source:          model.TxSourceManual,
			TransactionType: model.TxTypeAdjust,
			QuantityChanged: qty - batch.Quantity,
			StockAfter:      qty,
			UserID:          uid,
		}); err != nil {
			return fmt.Errorf("failed to record inventory transaction: %w", err)
		}
		return s.audit(txCtx, uid, model.ActionInventoryAdjst, batch, batch.BatchNumber, map[string]interface{}{
			"from": batch.Quantity,
			"to":   qty,
		})
	})
	if err != nil {
		return nil, err
	}

	batch, err := s.inventoryRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload batch: %w", err)
	}
	s.alertIfLow(batch)
	return batch, nil
}

func (s *inventoryService) ListTransactions(ctx context.Context, id string, page, limit int) ([]model.InventoryTransaction, int64, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, 0, invalid("invalid inventory id")
	}
	return s.invTxRepo.ListByBatch(ctx, batchID, page, limit)
}

// OCRIntake reads batch and expiry off a package photo and stocks it
func (s *inventoryService) OCRIntake(ctx context.Context, userID string, req OCRIntakeRequest) (*OCRIntakeResult, error) {
	med, err := s.loadMedicine(ctx, req.MedicineID)
	if err != nil {
		return nil, err
	}
	supplierID, err := s.loadSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	qty := req.Quantity
	if qty == 0 {
		qty = DefaultOCRIntakeQuantity
	}
	if qty < 0 {
		return nil, invalid("quantity must be a positive whole number")
	}

	ocr, err := s.ocr.Extract(ctx, req.FileName, req.ContentType, req.File)
	if err != nil {
		return nil, err
	}
	if ocr.BatchNumber == "" || ocr.ExpiryDate == "" {
		return nil, &Error{Kind: KindInvalid, Message: "OCR failed to extract required information.", Details: ocr}
	}
	expiry, ok := ParseOCRExpiry(ocr.ExpiryDate)
	if !ok {
		return nil, &Error{Kind: KindInvalid, Message: fmt.Sprintf("OCR expiry %q is not a date", ocr.ExpiryDate), Details: ocr}
	}

	uid := parseOptionalUUID(userID)
	var res *RestockResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = s.restock.apply(txCtx, restockInput{
			MedicineID:  med.ID,
			BatchNumber: ocr.BatchNumber,
			Expiry:      &expiry,
			Quantity:    qty,
			SupplierID:  supplierID,
			Source:      model.TxSourceOCRIntake,
			UserID:      uid,
		})
		if err != nil {
			return err
		}
		return s.audit(txCtx, uid, model.ActionOCRIntake, &model.InventoryBatch{ID: res.BatchID}, med.Name, map[string]interface{}{
			"batchNumber": ocr.BatchNumber,
			"expiry":      ocr.ExpiryDate,
			"quantity":    qty,
			"strategy":    res.Strategy,
		})
	})
	if err != nil {
		return nil, err
	}

	batch, err := s.inventoryRepo.FindByID(ctx, res.BatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload batch: %w", err)
	}
	return &OCRIntakeResult{Msg: "Inventory item added via OCR", Item: batch, Strategy: res.Strategy, OCR: ocr}, nil
}

func (s *inventoryService) alertIfLow(batch *model.InventoryBatch) {
	if s.events == nil || batch.Quantity >= s.lowStock {
		return
	}
	s.events.Publish(EventLowStock, LowStockAlert{
		BatchID:     batch.ID.String(),
		MedicineID:  batch.MedicineID.String(),
		BatchNumber: batch.BatchNumber,
		Quantity:    batch.Quantity,
		Threshold:   s.lowStock,
	})
}

func (s *inventoryService) loadMedicine(ctx context.Context, raw string) (*model.Medicine, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("invalid or missing medicineId")
	}
	med, err := s.medicineRepo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("medicine not found")
		}
		return nil, fmt.Errorf("failed to load medicine: %w", err)
	}
	return med, nil
}

func (s *inventoryService) loadSupplier(ctx context.Context, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("invalid supplierId")
	}
	if _, err := s.supplierRepo.FindByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("supplier not found")
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return &id, nil
}

func (s *inventoryService) audit(ctx context.Context, uid *uuid.UUID, action string, batch *model.InventoryBatch, name string, details map[string]interface{}) error {
	summary, _ := json.Marshal(details)
	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   batch.ID.String(),
		EntityName: name,
		Summary:    datatypes.JSON(summary),
	}); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
