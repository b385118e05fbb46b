package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
	"github.com/Sayyed-Ali/MediSys/internal/matcher"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/normalize"
	"github.com/Sayyed-Ali/MediSys/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Match confidence routing
const (
	AutoMatchThreshold = 0.80
	ReviewThreshold    = 0.60
)

// Review reasons
const (
	ReasonLowConfidence = "match below auto-accept threshold"
	ReasonNoMatch       = "no confident medicine match"
)

// --- DTOs ---

type ImportInvoiceRequest struct {
	FileName    string
	ContentType string
	File        io.Reader
	SupplierID  string
	UserID      string
}

type CandidateMatch struct {
	MedicineID uuid.UUID `json:"medicineId"`
	Name       string    `json:"name"`
	Rating     float64   `json:"rating"`
}

type AutoAddedRow struct {
	Row         map[string]interface{} `json:"row"`
	InventoryID uuid.UUID              `json:"inventoryId"`
	MedicineID  uuid.UUID              `json:"medicineId"`
	Medicine    string                 `json:"medicine"`
	Rating      float64                `json:"rating"`
	Strategy    string                 `json:"strategy"`
	StockAfter  int                    `json:"stockAfter"`
}

type ReviewRow struct {
	Row              map[string]interface{} `json:"row"`
	Reason           string                 `json:"reason"`
	Rating           float64                `json:"rating"`
	CandidateMatches []CandidateMatch       `json:"candidateMatches"`
	ReviewID         *uuid.UUID             `json:"reviewId,omitempty"`

	parsed normalize.InvoiceRow
}

type SkippedRow struct {
	Row    map[string]interface{} `json:"row"`
	Reason string                 `json:"reason"`
}

// ImportResult reports what happened to every parsed row.
// len(AutoAdded)+NeedsReviewCount+len(Skipped) == TotalRows.
type ImportResult struct {
	Msg              string         `json:"msg"`
	TotalRows        int            `json:"totalRows"`
	AutoAdded        []AutoAddedRow `json:"autoAdded"`
	NeedsReviewCount int            `json:"needsReviewCount"`
	NeedsReview      []ReviewRow    `json:"needsReview"`
	Skipped          []SkippedRow   `json:"skipped"`
	AuditID          *uuid.UUID     `json:"auditId"`
	CreatedMedicines []string       `json:"createdMedicines,omitempty"`
	SideEffectErrors []string       `json:"sideEffectErrors,omitempty"`
}

// --- Interface ---

type InvoiceService interface {
	ImportInvoice(ctx context.Context, req ImportInvoiceRequest) (*ImportResult, error)
}

type invoiceService struct {
	parser       InvoiceParser
	matcher      MedicineMatcher
	medicineRepo repository.MedicineRepository
	supplierRepo repository.SupplierRepository
	reviewRepo   repository.ReviewRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	restock      *restocker
}

func NewInvoiceService(
	parser InvoiceParser,
	matcher MedicineMatcher,
	medicineRepo repository.MedicineRepository,
	supplierRepo repository.SupplierRepository,
	inventoryRepo repository.InventoryRepository,
	invTxRepo repository.InventoryTxRepository,
	reviewRepo repository.ReviewRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InvoiceService {
	return &invoiceService{
		parser:       parser,
		matcher:      matcher,
		medicineRepo: medicineRepo,
		supplierRepo: supplierRepo,
		reviewRepo:   reviewRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		restock:      &restocker{inventoryRepo: inventoryRepo, invTxRepo: invTxRepo},
	}
}

// ImportInvoice sends the file to the parser and reconciles every row against
// inventory. Rows are independent: one row failing never undoes another.
func (s *invoiceService) ImportInvoice(ctx context.Context, req ImportInvoiceRequest) (*ImportResult, error) {
	log := logger.WithComponent("invoice")

	supplierID, err := s.resolveSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.Parse(ctx, req.FileName, req.ContentType, req.File)
	if err != nil {
		return nil, err
	}

	count, err := s.medicineRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count medicines: %w", err)
	}

	run := &importRun{
		svc:        s,
		bootstrap:  count == 0,
		supplierID: supplierID,
		userID:     parseOptionalUUID(req.UserID),
		result: &ImportResult{
			Msg:         "Invoice processed",
			TotalRows:   len(parsed.Rows),
			AutoAdded:   []AutoAddedRow{},
			NeedsReview: []ReviewRow{},
			Skipped:     []SkippedRow{},
		},
	}
	if run.bootstrap {
		log.Info().Str("file", req.FileName).Msg("medicine master list is empty, importing in bootstrap mode")
	}

	for _, raw := range parsed.Rows {
		run.process(ctx, raw)
	}

	res := run.result
	res.NeedsReviewCount = len(res.NeedsReview)
	s.saveReviews(ctx, res, supplierID)
	s.writeImportAudit(ctx, req.FileName, run.userID, parsed.Raw, res)

	log.Info().
		Str("file", req.FileName).
		Int("rows", res.TotalRows).
		Int("auto_added", len(res.AutoAdded)).
		Int("needs_review", res.NeedsReviewCount).
		Int("skipped", len(res.Skipped)).
		Msg("invoice processed")

	return res, nil
}

func (s *invoiceService) resolveSupplier(ctx context.Context, raw string) (*uuid.UUID, error) {
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

// saveReviews is best-effort: a row that cannot be stored is reported, not fatal
func (s *invoiceService) saveReviews(ctx context.Context, res *ImportResult, supplierID *uuid.UUID) {
	log := logger.WithComponent("invoice")
	for i := range res.NeedsReview {
		n := &res.NeedsReview[i]
		review := n.toModel(supplierID)
		if err := s.reviewRepo.Create(ctx, review); err != nil {
			log.Warn().Err(err).Str("description", n.parsed.Description).Msg("failed to save review row")
			res.SideEffectErrors = append(res.SideEffectErrors, fmt.Sprintf("review row %q not saved", n.parsed.Description))
			continue
		}
		n.ReviewID = &review.ID
	}
}

func (s *invoiceService) writeImportAudit(ctx context.Context, fileName string, userID *uuid.UUID, raw json.RawMessage, res *ImportResult) {
	summary, _ := json.Marshal(map[string]interface{}{
		"fileName":         fileName,
		"autoAddedCount":   len(res.AutoAdded),
		"needsReviewCount": res.NeedsReviewCount,
		"skippedCount":     len(res.Skipped),
		"createdMedicines": len(res.CreatedMedicines),
	})
	audit := &model.AuditLog{
		UserID:       userID,
		Action:       model.ActionInvoiceImport,
		EntityName:   fileName,
		Summary:      datatypes.JSON(summary),
		RawRowsCount: res.TotalRows,
		RawResponse:  datatypes.JSON(raw),
	}
	if err := s.auditRepo.Log(ctx, audit); err != nil {
		log := logger.WithComponent("invoice")
		log.Warn().Err(err).Msg("failed to write invoice import audit log")
		res.SideEffectErrors = append(res.SideEffectErrors, "audit log not written")
		return
	}
	res.AuditID = &audit.ID
}

// bootstrapMedicine finds a medicine by exact name or creates it
func (s *invoiceService) bootstrapMedicine(ctx context.Context, name string) (*model.Medicine, bool, error) {
	med, err := s.medicineRepo.FindByNameInsensitive(ctx, name)
	if err == nil {
		return med, false, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, err
	}

	med = &model.Medicine{Name: name, Brand: model.UnknownBrand}
	if err := s.medicineRepo.Create(ctx, med); err != nil {
		if repository.IsUniqueViolation(err) {
			// created concurrently by another import
			existing, findErr := s.medicineRepo.FindByNameInsensitive(ctx, name)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	s.matcher.Invalidate()
	return med, true, nil
}

// importRun carries the state of one ImportInvoice call
type importRun struct {
	svc        *invoiceService
	bootstrap  bool
	supplierID *uuid.UUID
	userID     *uuid.UUID
	result     *ImportResult
}

// masterListEmpty is checked per row so later rows match against medicines
// created by earlier rows of the same import
func (r *importRun) masterListEmpty(ctx context.Context) (bool, error) {
	if !r.bootstrap {
		return false, nil
	}
	count, err := r.svc.medicineRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		r.bootstrap = false
	}
	return r.bootstrap, nil
}

func (r *importRun) process(ctx context.Context, raw map[string]interface{}) {
	row, err := normalize.ParseInvoiceRow(raw)
	if err != nil {
		r.review(row, err.Error(), 0, nil)
		return
	}

	var (
		med       *model.Medicine
		rating    float64
		candidate *matcher.Match
	)
	empty, err := r.masterListEmpty(ctx)
	if err != nil {
		r.skip(raw, "failed to count medicines", err)
		return
	}
	if empty {
		m, created, err := r.svc.bootstrapMedicine(ctx, row.Description)
		if err != nil {
			r.skip(raw, "failed to resolve medicine", err)
			return
		}
		if created {
			r.result.CreatedMedicines = append(r.result.CreatedMedicines, m.Name)
		}
		med, rating = m, 1
	} else {
		m, err := r.svc.matcher.Match(ctx, row.Description)
		if err != nil {
			r.skip(raw, "medicine matcher unavailable", err)
			return
		}
		if m != nil {
			med, rating, candidate = &m.Medicine, m.Rating, m
		}
	}

	switch {
	case rating >= AutoMatchThreshold && med != nil:
		r.autoApply(ctx, row, med, rating)
	case rating >= ReviewThreshold && med != nil:
		r.review(row, ReasonLowConfidence, rating, candidate)
	default:
		// the low-confidence candidate is still shown to the reviewer
		r.review(row, ReasonNoMatch, rating, candidate)
	}
}

func (r *importRun) autoApply(ctx context.Context, row normalize.InvoiceRow, med *model.Medicine, rating float64) {
	in := restockInput{
		MedicineID:  med.ID,
		BatchNumber: row.Batch,
		Quantity:    row.Quantity,
		SupplierID:  r.supplierID,
		Source:      model.TxSourceInvoiceImport,
		UserID:      r.userID,
	}
	if t, ok := ParseExpiry(row.Expiry); ok {
		in.Expiry = &t
	}

	var out *RestockResult
	err := r.svc.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		out, err = r.svc.restock.apply(txCtx, in)
		return err
	})
	if err != nil {
		r.skip(row.Raw, "inventory update failed", err)
		return
	}

	r.result.AutoAdded = append(r.result.AutoAdded, AutoAddedRow{
		Row:         row.Raw,
		InventoryID: out.BatchID,
		MedicineID:  med.ID,
		Medicine:    med.Name,
		Rating:      rating,
		Strategy:    out.Strategy,
		StockAfter:  out.StockAfter,
	})
}

func (r *importRun) review(row normalize.InvoiceRow, reason string, rating float64, candidate *matcher.Match) {
	n := ReviewRow{
		Row:              row.Raw,
		Reason:           reason,
		Rating:           rating,
		CandidateMatches: []CandidateMatch{},
		parsed:           row,
	}
	if candidate != nil {
		n.CandidateMatches = append(n.CandidateMatches, CandidateMatch{
			MedicineID: candidate.Medicine.ID,
			Name:       candidate.Medicine.Name,
			Rating:     candidate.Rating,
		})
	}
	r.result.NeedsReview = append(r.result.NeedsReview, n)
}

func (r *importRun) skip(raw map[string]interface{}, reason string, err error) {
	log := logger.WithComponent("invoice")
	log.Error().Err(err).Str("reason", reason).Msg("invoice row skipped")

	var se *Error
	if errors.As(err, &se) {
		reason = reason + ": " + se.Message
	}
	r.result.Skipped = append(r.result.Skipped, SkippedRow{Row: raw, Reason: reason})
}

func (n *ReviewRow) toModel(supplierID *uuid.UUID) *model.InvoiceReview {
	raw, _ := json.Marshal(n.Row)
	review := &model.InvoiceReview{
		Description: n.parsed.Description,
		Batch:       n.parsed.Batch,
		Expiry:      n.parsed.Expiry,
		Quantity:    n.parsed.Quantity,
		Price:       n.parsed.Price,
		Reason:      n.Reason,
		Rating:      n.Rating,
		Raw:         datatypes.JSON(raw),
		SupplierID:  supplierID,
		Status:      model.ReviewStatusPending,
	}
	for _, c := range n.CandidateMatches {
		review.CandidateMatches = append(review.CandidateMatches, model.ReviewCandidate{
			MedicineID: c.MedicineID,
			Rating:     c.Rating,
		})
	}
	return review
}
