package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ApproveReviewRequest picks the medicine for a queued row. Empty fields keep
// the values read from the invoice.
type ApproveReviewRequest struct {
	MedicineID string `json:"medicineId" binding:"required,uuid"`
	Batch      string `json:"batch"`
	Expiry     string `json:"expiry"`
	Quantity   *int   `json:"quantity" binding:"omitempty,gt=0"`
}

type ReviewDecision struct {
	Review  *model.InvoiceReview `json:"review"`
	Restock *RestockResult       `json:"restock,omitempty"`
}

type ReviewService interface {
	ListPending(ctx context.Context, page, limit int) ([]model.InvoiceReview, int64, error)
	Approve(ctx context.Context, userID, id string, req ApproveReviewRequest) (*ReviewDecision, error)
	Reject(ctx context.Context, userID, id string) (*ReviewDecision, error)
}

type reviewService struct {
	reviewRepo   repository.ReviewRepository
	medicineRepo repository.MedicineRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	restock      *restocker
	now          func() time.Time
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	medicineRepo repository.MedicineRepository,
	inventoryRepo repository.InventoryRepository,
	invTxRepo repository.InventoryTxRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ReviewService {
	return &reviewService{
		reviewRepo:   reviewRepo,
		medicineRepo: medicineRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		restock:      &restocker{inventoryRepo: inventoryRepo, invTxRepo: invTxRepo},
		now:          time.Now,
	}
}

func (s *reviewService) ListPending(ctx context.Context, page, limit int) ([]model.InvoiceReview, int64, error) {
	return s.reviewRepo.ListByStatus(ctx, model.ReviewStatusPending, page, limit)
}

// Approve applies the reviewed row to inventory with the same strategies as
// an automatic import and closes the review.
func (s *reviewService) Approve(ctx context.Context, userID, id string, req ApproveReviewRequest) (*ReviewDecision, error) {
	reviewID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid review id")
	}
	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		return nil, invalid("invalid medicineId")
	}
	uid := parseOptionalUUID(userID)

	var decision ReviewDecision
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		review, err := s.lockPending(txCtx, reviewID)
		if err != nil {
			return err
		}

		med, err := s.medicineRepo.FindByID(txCtx, medicineID)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound("medicine not found")
			}
			return fmt.Errorf("failed to load medicine: %w", err)
		}

		in := restockInput{
			MedicineID:  med.ID,
			BatchNumber: firstNonEmpty(req.Batch, review.Batch),
			Quantity:    review.Quantity,
			SupplierID:  review.SupplierID,
			Source:      model.TxSourceReviewApprove,
			UserID:      uid,
		}
		if req.Quantity != nil {
			in.Quantity = *req.Quantity
		}
		if in.Quantity <= 0 {
			return invalid("quantity must be a positive whole number")
		}
		expiryText := firstNonEmpty(req.Expiry, review.Expiry)
		if t, ok := ParseExpiry(expiryText); ok {
			in.Expiry = &t
		} else if req.Expiry != "" {
			return invalid("unrecognised expiry %q", req.Expiry)
		}

		res, err := s.restock.apply(txCtx, in)
		if err != nil {
			return err
		}

		at := s.now()
		if err := s.reviewRepo.MarkReviewed(txCtx, review.ID, model.ReviewStatusApproved, uid, &res.BatchID, at); err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}
		review.Status = model.ReviewStatusApproved
		review.ReviewedBy = uid
		review.ReviewedAt = &at
		review.AppliedBatchID = &res.BatchID

		if err := s.audit(txCtx, uid, model.ActionReviewApprove, review, map[string]interface{}{
			"medicineId": med.ID.String(),
			"medicine":   med.Name,
			"quantity":   in.Quantity,
			"batchId":    res.BatchID.String(),
			"strategy":   res.Strategy,
		}); err != nil {
			return err
		}

		decision = ReviewDecision{Review: review, Restock: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

func (s *reviewService) Reject(ctx context.Context, userID, id string) (*ReviewDecision, error) {
	reviewID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid review id")
	}
	uid := parseOptionalUUID(userID)

	var decision ReviewDecision
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		review, err := s.lockPending(txCtx, reviewID)
		if err != nil {
			return err
		}

		at := s.now()
		if err := s.reviewRepo.MarkReviewed(txCtx, review.ID, model.ReviewStatusRejected, uid, nil, at); err != nil {
			return fmt.Errorf("failed to update review: %w", err)
		}
		review.Status = model.ReviewStatusRejected
		review.ReviewedBy = uid
		review.ReviewedAt = &at

		if err := s.audit(txCtx, uid, model.ActionReviewReject, review, nil); err != nil {
			return err
		}
		decision = ReviewDecision{Review: review}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

func (s *reviewService) lockPending(ctx context.Context, id uuid.UUID) (*model.InvoiceReview, error) {
	review, err := s.reviewRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("review not found")
		}
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	if review.Status != model.ReviewStatusPending {
		return nil, conflict("review is already %s", review.Status)
	}
	return review, nil
}

func (s *reviewService) audit(ctx context.Context, uid *uuid.UUID, action string, review *model.InvoiceReview, extra map[string]interface{}) error {
	details := map[string]interface{}{"description": review.Description, "status": review.Status}
	for k, v := range extra {
		details[k] = v
	}
	summary, _ := json.Marshal(details)
	if err := s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   review.ID.String(),
		EntityName: review.Description,
		Summary:    datatypes.JSON(summary),
	}); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
