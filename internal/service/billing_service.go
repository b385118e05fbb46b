package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/normalize"
	"github.com/Sayyed-Ali/MediSys/internal/repository"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// --- DTOs ---

// InventoryUpdate is one batch decrement made for a bill
type InventoryUpdate struct {
	ItemDescription     string    `json:"itemDescription"`
	MedicineID          uuid.UUID `json:"medicineId"`
	BatchID             uuid.UUID `json:"batchId"`
	BatchNumber         string    `json:"batchNumber"`
	Taken               int       `json:"taken"`
	RemainingQtyInBatch int       `json:"remainingQtyInBatch"`
}

// BillingWarning explains a line that was billed without (full) stock, or dropped
type BillingWarning struct {
	Item   interface{} `json:"item"`
	Reason string      `json:"reason"`
}

type CreateBillingResult struct {
	Msg              string            `json:"msg"`
	Invoice          *model.Billing    `json:"invoice"`
	InventoryUpdates []InventoryUpdate `json:"inventoryUpdates"`
	Warnings         []BillingWarning  `json:"warnings"`
}

type UpdateBillingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type lineItemView struct {
	Description string `json:"description"`
	Qty         int    `json:"qty"`
	Rate        string `json:"rate"`
}

// --- Interface ---

type BillingService interface {
	CreateBilling(ctx context.Context, userID string, payload map[string]interface{}) (*CreateBillingResult, error)
	ListBillings(ctx context.Context, status string, page, limit int) ([]model.Billing, int64, error)
	GetBilling(ctx context.Context, id string) (*model.Billing, error)
	UpdateStatus(ctx context.Context, userID, id string, req UpdateBillingStatusRequest) (*model.Billing, error)
}

type billingService struct {
	billingRepo   repository.BillingRepository
	medicineRepo  repository.MedicineRepository
	inventoryRepo repository.InventoryRepository
	invTxRepo     repository.InventoryTxRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	analytics     AnalyticsNotifier
	events        EventPublisher
	lowStock      int
	now           func() time.Time
}

func NewBillingService(
	billingRepo repository.BillingRepository,
	medicineRepo repository.MedicineRepository,
	inventoryRepo repository.InventoryRepository,
	invTxRepo repository.InventoryTxRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	analytics AnalyticsNotifier,
	events EventPublisher,
	lowStockThreshold int,
) BillingService {
	return &billingService{
		billingRepo:   billingRepo,
		medicineRepo:  medicineRepo,
		inventoryRepo: inventoryRepo,
		invTxRepo:     invTxRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		analytics:     analytics,
		events:        events,
		lowStock:      lowStockThreshold,
		now:           time.Now,
	}
}

// CreateBilling writes the bill and draws its medicines from stock in one
// transaction. Missing stock does not block billing; it is reported in Warnings.
func (s *billingService) CreateBilling(ctx context.Context, userID string, payload map[string]interface{}) (*CreateBillingResult, error) {
	p, err := normalize.ParseBilling(payload)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}
	if len(p.Items) == 0 {
		return nil, &Error{
			Kind:    KindInvalid,
			Message: "Invoice must contain at least one valid line item",
			Details: p.Rejected,
		}
	}

	status := p.Status
	if status == "" {
		status = model.BillingStatusUnpaid
	}
	if !model.IsValidBillingStatus(status) {
		return nil, invalid("invalid status %q: must be one of %v", status, model.BillingStatuses)
	}

	uid := parseOptionalUUID(userID)
	result := &CreateBillingResult{
		Msg:              "Invoice created",
		InventoryUpdates: []InventoryUpdate{},
		Warnings:         []BillingWarning{},
	}
	for _, rej := range p.Rejected {
		result.Warnings = append(result.Warnings, BillingWarning{Item: rej.Item, Reason: "line item skipped: " + rej.Reason})
	}

	billing := &model.Billing{
		ID:          uuid.New(),
		PatientName: p.PatientName,
		BilledBy:    uid,
		Tax:         p.Tax,
		PaidAmount:  p.PaidAmount,
		Status:      status,
		Notes:       p.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoiceNo, err := s.generateInvoiceNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}
		billing.InvoiceNumber = invoiceNo

		for _, li := range p.Items {
			line := model.BillingLineItem{
				BillingID:   billing.ID,
				Description: li.Description,
				Quantity:    li.Quantity,
				Rate:        li.Rate,
			}

			out, err := s.decrement(txCtx, billing.ID, uid, li)
			if err != nil {
				return err
			}
			line.MedicineID = out.medicineID
			result.InventoryUpdates = append(result.InventoryUpdates, out.updates...)
			if out.warning != "" {
				result.Warnings = append(result.Warnings, BillingWarning{Item: viewOf(li), Reason: out.warning})
			}
			billing.LineItems = append(billing.LineItems, line)
		}

		billing.Recalculate()
		if err := s.billingRepo.Create(txCtx, billing); err != nil {
			return fmt.Errorf("failed to create billing: %w", err)
		}

		summary, _ := json.Marshal(map[string]interface{}{
			"invoiceNumber": billing.InvoiceNumber,
			"patientName":   billing.PatientName,
			"total":         billing.Total.StringFixed(2),
			"lineItems":     len(billing.LineItems),
			"warnings":      len(result.Warnings),
		})
		if err := s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionBillingCreate,
			EntityID:   billing.ID.String(),
			EntityName: billing.InvoiceNumber,
			Summary:    datatypes.JSON(summary),
		}); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("billing")
	log.Info().
		Str("invoice_number", billing.InvoiceNumber).
		Str("total", billing.Total.StringFixed(2)).
		Int("warnings", len(result.Warnings)).
		Msg("billing created")

	result.Invoice = billing
	s.afterCommit(billing, result.InventoryUpdates)
	return result, nil
}

// afterCommit fires the non-transactional side effects of a new bill
func (s *billingService) afterCommit(billing *model.Billing, updates []InventoryUpdate) {
	month := billing.CreatedAt
	if month.IsZero() {
		month = s.now()
	}
	events := make([]upstream.DemandEvent, 0, len(billing.LineItems))
	for _, li := range billing.LineItems {
		events = append(events, upstream.DemandEvent{
			Month:     month.UTC().Format("2006-01"),
			Medicine:  li.Description,
			Quantity:  li.Quantity,
			InvoiceID: billing.ID.String(),
		})
	}
	if s.analytics != nil && len(events) > 0 {
		s.analytics.Notify(upstream.NewDemandBatch(events))
	}

	if s.events == nil {
		return
	}
	for _, u := range updates {
		if u.RemainingQtyInBatch < s.lowStock {
			s.events.Publish(EventLowStock, LowStockAlert{
				BatchID:     u.BatchID.String(),
				MedicineID:  u.MedicineID.String(),
				BatchNumber: u.BatchNumber,
				Quantity:    u.RemainingQtyInBatch,
				Threshold:   s.lowStock,
			})
		}
	}
}

func (s *billingService) generateInvoiceNo(ctx context.Context) (string, error) {
	today := s.now().Format("20060102")
	prefix := "INV-" + today + "-"

	if err := s.billingRepo.LockPrefix(ctx, prefix); err != nil {
		return "", err
	}
	count, err := s.billingRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *billingService) ListBillings(ctx context.Context, status string, page, limit int) ([]model.Billing, int64, error) {
	if status != "" && !model.IsValidBillingStatus(status) {
		return nil, 0, invalid("invalid status %q", status)
	}
	return s.billingRepo.List(ctx, status, page, limit)
}

func (s *billingService) GetBilling(ctx context.Context, id string) (*model.Billing, error) {
	billingID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid billing id")
	}
	billing, err := s.billingRepo.FindByID(ctx, billingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Invoice not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return billing, nil
}

func (s *billingService) UpdateStatus(ctx context.Context, userID, id string, req UpdateBillingStatusRequest) (*model.Billing, error) {
	billingID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid billing id")
	}
	if !model.IsValidBillingStatus(req.Status) {
		return nil, invalid("invalid status %q: must be one of %v", req.Status, model.BillingStatuses)
	}

	var billing *model.Billing
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.billingRepo.UpdateStatus(txCtx, billingID, req.Status); err != nil {
			if repository.IsNotFound(err) {
				return notFound("Invoice not found")
			}
			return fmt.Errorf("failed to update status: %w", err)
		}
		b, err := s.billingRepo.FindByID(txCtx, billingID)
		if err != nil {
			return fmt.Errorf("failed to reload billing: %w", err)
		}
		billing = b

		summary, _ := json.Marshal(map[string]string{"status": req.Status})
		if err := s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     parseOptionalUUID(userID),
			Action:     model.ActionBillingStatus,
			EntityID:   b.ID.String(),
			EntityName: b.InvoiceNumber,
			Summary:    datatypes.JSON(summary),
		}); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return billing, nil
}

func viewOf(li normalize.LineItem) lineItemView {
	return lineItemView{Description: li.Description, Qty: li.Quantity, Rate: li.Rate.String()}
}
