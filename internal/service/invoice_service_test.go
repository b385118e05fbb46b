package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"
)

func importRows(t *testing.T, f *fixture, rows ...map[string]interface{}) *ImportResult {
	t.Helper()
	f.parser.rows = rows
	res, err := f.invoices.ImportInvoice(context.Background(), ImportInvoiceRequest{
		FileName:    "invoice.pdf",
		ContentType: "application/pdf",
		File:        strings.NewReader("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("ImportInvoice: %v", err)
	}
	return res
}

func assertRowsAccounted(t *testing.T, res *ImportResult) {
	t.Helper()
	got := len(res.AutoAdded) + res.NeedsReviewCount + len(res.Skipped)
	if got != res.TotalRows {
		t.Errorf("autoAdded+needsReview+skipped = %d, want totalRows %d", got, res.TotalRows)
	}
}

func TestImportInvoice_IncrementsBatchInSameMonth(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Paracetamol 500mg")
	b1 := f.store.addBatch(med.ID, "B1", datePtr(2025, time.October, 15), 40)

	res := importRows(t, f, map[string]interface{}{
		"description": "Paracetamol 500mg",
		"quantity":    100,
		"batch":       "B1",
		"expiry":      "10/2025",
	})

	if len(res.AutoAdded) != 1 {
		t.Fatalf("autoAdded = %d, want 1 (review: %+v, skipped: %+v)", len(res.AutoAdded), res.NeedsReview, res.Skipped)
	}
	added := res.AutoAdded[0]
	if added.InventoryID != b1.ID {
		t.Errorf("row applied to batch %s, want existing %s", added.InventoryID, b1.ID)
	}
	if added.Strategy != StrategySameMonth {
		t.Errorf("strategy = %q, want %q", added.Strategy, StrategySameMonth)
	}
	if got := f.store.batch(b1.ID).Quantity; got != 140 {
		t.Errorf("batch quantity = %d, want 140", got)
	}
	if n := f.store.batchCount(); n != 1 {
		t.Errorf("batch count = %d, want 1", n)
	}

	txs := f.store.inventoryTxs()
	if len(txs) != 1 || txs[0].TransactionType != model.TxTypeIn || txs[0].QuantityChanged != 100 || txs[0].Source != model.TxSourceInvoiceImport {
		t.Errorf("unexpected inventory transactions: %+v", txs)
	}

	logs := f.store.auditLogs()
	if len(logs) != 1 || logs[0].Action != model.ActionInvoiceImport || logs[0].RawRowsCount != 1 {
		t.Fatalf("unexpected audit logs: %+v", logs)
	}
	if res.AuditID == nil || *res.AuditID != logs[0].ID {
		t.Errorf("auditId = %v, want %s", res.AuditID, logs[0].ID)
	}
	assertRowsAccounted(t, res)
}

func TestImportInvoice_StrategiesInOrder(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Ibuprofen 400mg")
	exact := f.store.addBatch(med.ID, "E1", datePtr(2026, time.January, 31), 5)
	undated := f.store.addBatch(med.ID, "U1", nil, 5)

	res := importRows(t, f,
		map[string]interface{}{"description": "Ibuprofen 400mg", "quantity": 1, "batch": "E1", "expiry": "01/2026"},
		map[string]interface{}{"description": "Ibuprofen 400mg", "quantity": 2, "batch": "U1", "expiry": "not printed"},
		map[string]interface{}{"description": "Ibuprofen 400mg", "quantity": 3, "batch": "N1", "expiry": "2027-05-01"},
		map[string]interface{}{"description": "Ibuprofen 400mg", "quantity": 4},
	)

	if len(res.AutoAdded) != 4 {
		t.Fatalf("autoAdded = %d, want 4", len(res.AutoAdded))
	}
	want := []string{StrategyExactExpiry, StrategyBatch, StrategyCreated, StrategyCreated}
	for i, w := range want {
		if res.AutoAdded[i].Strategy != w {
			t.Errorf("row %d strategy = %q, want %q", i, res.AutoAdded[i].Strategy, w)
		}
	}
	if res.AutoAdded[0].InventoryID != exact.ID || res.AutoAdded[1].InventoryID != undated.ID {
		t.Errorf("rows applied to the wrong batches: %+v", res.AutoAdded)
	}

	created := f.store.batch(res.AutoAdded[3].InventoryID)
	if created.BatchNumber != model.DefaultBatchNumber || created.ExpiryDate != nil {
		t.Errorf("blank batch row created %+v, want batch %q without expiry", created, model.DefaultBatchNumber)
	}
	dated := f.store.batch(res.AutoAdded[2].InventoryID)
	if dated.ExpiryDate == nil || !dated.ExpiryDate.Equal(time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created batch expiry = %v, want 2027-05-01", dated.ExpiryDate)
	}
}

func TestImportInvoice_LowSimilarityGoesToReview(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Paracetamol")
	b := f.store.addBatch(med.ID, "B1", nil, 10)

	res := importRows(t, f, map[string]interface{}{"description": "Amoxicillin", "quantity": 5, "batch": "B1"})

	if len(res.AutoAdded) != 0 || res.NeedsReviewCount != 1 {
		t.Fatalf("autoAdded=%d needsReview=%d, want 0/1", len(res.AutoAdded), res.NeedsReviewCount)
	}
	row := res.NeedsReview[0]
	if row.Reason != ReasonNoMatch {
		t.Errorf("reason = %q, want %q", row.Reason, ReasonNoMatch)
	}
	if row.Rating >= ReviewThreshold {
		t.Errorf("rating = %v, want below %v", row.Rating, ReviewThreshold)
	}
	if row.ReviewID == nil {
		t.Fatal("review row was not persisted")
	}
	if got := f.store.review(*row.ReviewID); got.Status != model.ReviewStatusPending || got.Quantity != 5 {
		t.Errorf("stored review = %+v", got)
	}

	if got := f.store.batch(b.ID).Quantity; got != 10 {
		t.Errorf("batch quantity changed to %d", got)
	}
	if n := len(f.store.inventoryTxs()); n != 0 {
		t.Errorf("%d inventory transactions written, want 0", n)
	}
}

func TestImportInvoice_MidSimilarityCarriesCandidate(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Paracetamol")

	res := importRows(t, f, map[string]interface{}{"description": "Paracetamol Syrup Kids", "quantity": 5})

	if res.NeedsReviewCount != 1 {
		t.Fatalf("needsReview = %d, want 1", res.NeedsReviewCount)
	}
	row := res.NeedsReview[0]
	if row.Rating < ReviewThreshold || row.Rating >= AutoMatchThreshold {
		t.Fatalf("rating = %v, want in [%v, %v)", row.Rating, ReviewThreshold, AutoMatchThreshold)
	}
	if row.Reason != ReasonLowConfidence {
		t.Errorf("reason = %q, want %q", row.Reason, ReasonLowConfidence)
	}
	if len(row.CandidateMatches) != 1 || row.CandidateMatches[0].MedicineID != med.ID {
		t.Errorf("candidates = %+v, want the Paracetamol record", row.CandidateMatches)
	}
	stored := f.store.review(*row.ReviewID)
	if len(stored.CandidateMatches) != 1 || stored.CandidateMatches[0].MedicineID != med.ID {
		t.Errorf("stored candidates = %+v", stored.CandidateMatches)
	}
}

func TestImportInvoice_EveryRowAccountedFor(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Cetirizine 10mg")
	f.store.addBatch(med.ID, "C1", nil, 1)

	res := importRows(t, f,
		map[string]interface{}{"description": "Cetirizine 10mg", "qty": "12", "batch_no": "C1"},
		map[string]interface{}{"description": "", "quantity": 3},
		map[string]interface{}{"description": "Cetirizine 10mg", "quantity": 0},
		map[string]interface{}{"name": "Zzzz unknown", "quantity": 2},
	)

	if res.TotalRows != 4 {
		t.Fatalf("totalRows = %d, want 4", res.TotalRows)
	}
	if len(res.AutoAdded) != 1 || res.NeedsReviewCount != 3 {
		t.Errorf("autoAdded=%d needsReview=%d, want 1/3", len(res.AutoAdded), res.NeedsReviewCount)
	}
	for _, r := range res.NeedsReview[:2] {
		if !strings.Contains(r.Reason, "missing description or non-positive quantity") {
			t.Errorf("invalid row reason = %q", r.Reason)
		}
	}
	assertRowsAccounted(t, res)
}

func TestImportInvoice_FailedRowIsSkippedOthersKept(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Metformin 500mg")
	b := f.store.addBatch(med.ID, "M1", nil, 10)
	f.store.failOn["inventory.create"] = errors.New("disk full")

	res := importRows(t, f,
		map[string]interface{}{"description": "Metformin 500mg", "quantity": 5, "batch": "M1"},
		map[string]interface{}{"description": "Metformin 500mg", "quantity": 7, "batch": "NEW"},
	)

	if len(res.AutoAdded) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("autoAdded=%d skipped=%d, want 1/1", len(res.AutoAdded), len(res.Skipped))
	}
	if res.Skipped[0].Reason != "inventory update failed" {
		t.Errorf("skip reason = %q", res.Skipped[0].Reason)
	}
	if got := f.store.batch(b.ID).Quantity; got != 15 {
		t.Errorf("first row not kept: quantity = %d, want 15", got)
	}
	if n := f.store.batchCount(); n != 1 {
		t.Errorf("batch count = %d, want 1", n)
	}
	assertRowsAccounted(t, res)
}

func TestImportInvoice_RepeatedImportIncrementsSameBatch(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Azithromycin 250mg")
	b := f.store.addBatch(med.ID, "AZ9", datePtr(2026, time.June, 3), 0)

	row := map[string]interface{}{"description": "Azithromycin 250mg", "quantity": 6, "batch": "AZ9", "expiry": "06/2026"}
	importRows(t, f, row)
	importRows(t, f, row)

	if n := f.store.batchCount(); n != 1 {
		t.Errorf("batch count = %d, want 1", n)
	}
	if got := f.store.batch(b.ID).Quantity; got != 12 {
		t.Errorf("quantity = %d, want 12", got)
	}
}

func TestImportInvoice_BootstrapCreatesMedicines(t *testing.T) {
	f := newFixture(t)

	res := importRows(t, f,
		map[string]interface{}{"description": "Aspirin 75mg", "quantity": 10, "batch": "A1"},
		map[string]interface{}{"description": "aspirin 75mg", "quantity": 5, "batch": "A1"},
		map[string]interface{}{"description": "Omeprazole 20mg", "quantity": 3},
	)

	if len(res.CreatedMedicines) != 1 || res.CreatedMedicines[0] != "Aspirin 75mg" {
		t.Errorf("createdMedicines = %v, want only the first row", res.CreatedMedicines)
	}
	if len(res.AutoAdded) != 2 {
		t.Fatalf("autoAdded = %d, want 2 (review: %+v)", len(res.AutoAdded), res.NeedsReview)
	}
	for _, a := range res.AutoAdded {
		if a.Rating != 1 {
			t.Errorf("rating = %v, want 1", a.Rating)
		}
	}
	if res.AutoAdded[0].InventoryID != res.AutoAdded[1].InventoryID {
		t.Error("case-insensitive duplicate created a second batch")
	}
	if got := f.store.batch(res.AutoAdded[0].InventoryID).Quantity; got != 15 {
		t.Errorf("aspirin quantity = %d, want 15", got)
	}

	// once the first row created a medicine, later rows go through the matcher
	if len(res.NeedsReview) != 1 || res.NeedsReview[0].Reason != ReasonNoMatch {
		t.Errorf("needsReview = %+v, want omeprazole as no match", res.NeedsReview)
	}

	aspirin, err := memMedicines{f.store}.FindByNameInsensitive(context.Background(), "ASPIRIN 75MG")
	if err != nil {
		t.Fatalf("bootstrap medicine missing: %v", err)
	}
	if aspirin.Brand != model.UnknownBrand {
		t.Errorf("brand = %q, want %q", aspirin.Brand, model.UnknownBrand)
	}
}

func TestImportInvoice_BootstrapMatchesNearDuplicates(t *testing.T) {
	f := newFixture(t)

	res := importRows(t, f,
		map[string]interface{}{"description": "Paracetamol 500mg", "quantity": 10},
		map[string]interface{}{"description": "Paracetamol 500 mg", "quantity": 4},
	)

	if len(res.CreatedMedicines) != 1 {
		t.Fatalf("createdMedicines = %v, want 1", res.CreatedMedicines)
	}
	if len(res.AutoAdded) != 2 {
		t.Fatalf("autoAdded = %d, want 2 (review: %+v)", len(res.AutoAdded), res.NeedsReview)
	}
	if res.AutoAdded[0].MedicineID != res.AutoAdded[1].MedicineID {
		t.Error("near-duplicate description created a second medicine")
	}
	if n, _ := (memMedicines{f.store}).Count(context.Background()); n != 1 {
		t.Errorf("medicines = %d, want 1", n)
	}
}

func TestImportInvoice_ParserFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.addMedicine("Paracetamol")
	f.parser.err = &upstream.Error{Service: "invoice parser", StatusCode: 500, Body: "boom"}

	_, err := f.invoices.ImportInvoice(context.Background(), ImportInvoiceRequest{FileName: "x.pdf", File: strings.NewReader("x")})

	var ue *upstream.Error
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *upstream.Error", err)
	}
	if f.store.batchCount() != 0 || f.store.reviewCount() != 0 || len(f.store.auditLogs()) != 0 {
		t.Error("parser failure left writes behind")
	}
}

func TestImportInvoice_UnknownSupplier(t *testing.T) {
	f := newFixture(t)

	_, err := f.invoices.ImportInvoice(context.Background(), ImportInvoiceRequest{
		FileName:   "x.pdf",
		File:       strings.NewReader("x"),
		SupplierID: "8d0a3c4e-3f0b-4f9e-9f57-5f8f5c1d2a11",
	})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
	if f.parser.calls != 0 {
		t.Error("parser was called for an unknown supplier")
	}

	_, err = f.invoices.ImportInvoice(context.Background(), ImportInvoiceRequest{File: strings.NewReader("x"), SupplierID: "nope"})
	if !IsKind(err, KindInvalid) {
		t.Fatalf("error = %v, want invalid", err)
	}
}

func TestImportInvoice_SupplierAttachedToNewBatch(t *testing.T) {
	f := newFixture(t)
	med := f.store.addMedicine("Losartan 50mg")
	sup := f.store.addSupplier("MedLine Traders")
	f.parser.rows = []map[string]interface{}{{"description": "Losartan 50mg", "quantity": 30, "batch": "L7"}}

	res, err := f.invoices.ImportInvoice(context.Background(), ImportInvoiceRequest{
		FileName:   "x.pdf",
		File:       strings.NewReader("x"),
		SupplierID: sup.ID.String(),
	})
	if err != nil {
		t.Fatal(err)
	}
	b := f.store.batch(res.AutoAdded[0].InventoryID)
	if b.MedicineID != med.ID || b.SupplierID == nil || *b.SupplierID != sup.ID {
		t.Errorf("batch = %+v, want supplier %s", b, sup.ID)
	}
}

func TestImportInvoice_SideEffectFailuresAreReported(t *testing.T) {
	f := newFixture(t)
	f.store.addMedicine("Paracetamol")
	f.store.failOn["review.create"] = errors.New("timeout")
	f.store.failOn["audit.log"] = errors.New("timeout")

	res := importRows(t, f, map[string]interface{}{"description": "Vitamin D3", "quantity": 1})

	if res.NeedsReviewCount != 1 || res.NeedsReview[0].ReviewID != nil {
		t.Errorf("needsReview = %+v", res.NeedsReview)
	}
	if res.AuditID != nil {
		t.Error("auditId set although the audit write failed")
	}
	if len(res.SideEffectErrors) != 2 {
		t.Errorf("sideEffectErrors = %v, want 2 entries", res.SideEffectErrors)
	}
}
