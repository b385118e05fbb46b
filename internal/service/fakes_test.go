package service

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/matcher"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database behind every repository.
// Failure injection: set failOn["<op>"] to make that operation return the error.
// drainBefore[batchID] removes that many units right before the next conditional
// decrement of the batch, as a concurrent bill would.
type memStore struct {
	mu    sync.Mutex
	clock time.Time

	medicines  map[uuid.UUID]model.Medicine
	batches    map[uuid.UUID]model.InventoryBatch
	txs        []model.InventoryTransaction
	billings   map[uuid.UUID]model.Billing
	reviews    map[uuid.UUID]model.InvoiceReview
	audits     []model.AuditLog
	suppliers  map[uuid.UUID]model.Supplier
	admissions map[uuid.UUID]model.Admission
	users      map[uuid.UUID]model.User

	failOn      map[string]error
	drainBefore map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		clock:      time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		medicines:  map[uuid.UUID]model.Medicine{},
		batches:    map[uuid.UUID]model.InventoryBatch{},
		billings:   map[uuid.UUID]model.Billing{},
		reviews:    map[uuid.UUID]model.InvoiceReview{},
		suppliers:  map[uuid.UUID]model.Supplier{},
		admissions: map[uuid.UUID]model.Admission{},
		users:      map[uuid.UUID]model.User{},
		failOn:     map[string]error{},

		drainBefore: map[uuid.UUID]int{},
	}
}

// tick advances the fake clock so created_at ordering is deterministic. Caller holds mu.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

type memSnapshot struct {
	medicines  map[uuid.UUID]model.Medicine
	batches    map[uuid.UUID]model.InventoryBatch
	txs        []model.InventoryTransaction
	billings   map[uuid.UUID]model.Billing
	reviews    map[uuid.UUID]model.InvoiceReview
	audits     []model.AuditLog
	suppliers  map[uuid.UUID]model.Supplier
	admissions map[uuid.UUID]model.Admission
	users      map[uuid.UUID]model.User
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		medicines:  copyMap(s.medicines),
		batches:    copyMap(s.batches),
		txs:        append([]model.InventoryTransaction(nil), s.txs...),
		billings:   copyMap(s.billings),
		reviews:    copyMap(s.reviews),
		audits:     append([]model.AuditLog(nil), s.audits...),
		suppliers:  copyMap(s.suppliers),
		admissions: copyMap(s.admissions),
		users:      copyMap(s.users),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medicines = snap.medicines
	s.batches = snap.batches
	s.txs = snap.txs
	s.billings = snap.billings
	s.reviews = snap.reviews
	s.audits = snap.audits
	s.suppliers = snap.suppliers
	s.admissions = snap.admissions
	s.users = snap.users
}

// --- seeding and inspection helpers ---

func (s *memStore) addMedicine(name string) model.Medicine {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := model.Medicine{ID: uuid.New(), Name: name, Brand: "Acme", CreatedAt: s.tick()}
	s.medicines[m.ID] = m
	return m
}

func (s *memStore) addBatch(medicineID uuid.UUID, batchNo string, expiry *time.Time, qty int) model.InventoryBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := model.InventoryBatch{
		ID:          uuid.New(),
		MedicineID:  medicineID,
		BatchNumber: batchNo,
		ExpiryDate:  expiry,
		Quantity:    qty,
		CreatedAt:   s.tick(),
	}
	s.batches[b.ID] = b
	return b
}

func (s *memStore) addSupplier(name string) model.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup := model.Supplier{ID: uuid.New(), Name: name, IsActive: true, CreatedAt: s.tick()}
	s.suppliers[sup.ID] = sup
	return sup
}

func (s *memStore) batch(id uuid.UUID) model.InventoryBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[id]
}

func (s *memStore) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func (s *memStore) inventoryTxs() []model.InventoryTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InventoryTransaction(nil), s.txs...)
}

func (s *memStore) auditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.audits...)
}

func (s *memStore) billingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.billings)
}

func (s *memStore) review(id uuid.UUID) model.InvoiceReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviews[id]
}

func (s *memStore) reviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// --- transaction manager ---

// memTx models a transaction by restoring the store when fn fails
type memTx struct {
	s *memStore
}

func (m memTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	snap := m.s.snapshot()
	if err := fn(ctx); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

// --- medicines ---

type memMedicines struct{ s *memStore }

func (r memMedicines) Create(ctx context.Context, m *model.Medicine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("medicine.create"); err != nil {
		return err
	}
	for _, existing := range r.s.medicines {
		if strings.EqualFold(existing.Name, m.Name) {
			return gorm.ErrDuplicatedKey
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = r.s.tick()
	r.s.medicines[m.ID] = *m
	return nil
}

func (r memMedicines) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("medicine.count"); err != nil {
		return 0, err
	}
	return int64(len(r.s.medicines)), nil
}

func (r memMedicines) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.medicines[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r memMedicines) FindByNameInsensitive(ctx context.Context, name string) (*model.Medicine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.medicines {
		if strings.EqualFold(m.Name, name) {
			m := m
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memMedicines) FindLinkedToInventoryByName(ctx context.Context, name string) (*model.Medicine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stocked := map[uuid.UUID]bool{}
	for _, b := range r.s.batches {
		stocked[b.MedicineID] = true
	}
	var best *model.Medicine
	for _, m := range r.s.medicines {
		if !stocked[m.ID] || !containsFold(m.Name, name) {
			continue
		}
		if best == nil || m.Name < best.Name {
			m := m
			best = &m
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r memMedicines) sorted() []model.Medicine {
	out := make([]model.Medicine, 0, len(r.s.medicines))
	for _, m := range r.s.medicines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r memMedicines) List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Medicine
	for _, m := range r.sorted() {
		if search == "" || containsFold(m.Name, search) || containsFold(m.Brand, search) {
			out = append(out, m)
		}
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r memMedicines) ListAll(ctx context.Context) ([]model.Medicine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("medicine.list"); err != nil {
		return nil, err
	}
	return r.sorted(), nil
}

// --- inventory ---

type memInventory struct{ s *memStore }

func (r memInventory) Create(ctx context.Context, b *model.InventoryBatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("inventory.create"); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = r.s.tick()
	stored := *b
	stored.Medicine, stored.Supplier = nil, nil
	r.s.batches[b.ID] = stored
	return nil
}

func (r memInventory) withRelations(b model.InventoryBatch) model.InventoryBatch {
	if m, ok := r.s.medicines[b.MedicineID]; ok {
		b.Medicine = &m
	}
	if b.SupplierID != nil {
		if sup, ok := r.s.suppliers[*b.SupplierID]; ok {
			b.Supplier = &sup
		}
	}
	return b
}

func (r memInventory) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b = r.withRelations(b)
	return &b, nil
}

func (r memInventory) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

// fifo orders batches by expiry (undated last) then creation time
func fifo(batches []model.InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		case a.ExpiryDate != nil && b.ExpiryDate == nil:
			return true
		case a.ExpiryDate == nil && b.ExpiryDate != nil:
			return false
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (r memInventory) List(ctx context.Context, page, limit int, medicineID *uuid.UUID) ([]model.InventoryBatch, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.InventoryBatch
	for _, b := range r.s.batches {
		if medicineID == nil || b.MedicineID == *medicineID {
			out = append(out, r.withRelations(b))
		}
	}
	fifo(out)
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r memInventory) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.s.batches[id]
	b.Quantity = quantity
	r.s.batches[id] = b
	return nil
}

func (r memInventory) first(match func(b model.InventoryBatch) bool) (*model.InventoryBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.InventoryBatch
	for _, b := range r.s.batches {
		if !match(b) {
			continue
		}
		if found == nil || b.CreatedAt.Before(found.CreatedAt) {
			b := b
			found = &b
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return found, nil
}

func (r memInventory) FindByExactExpiry(ctx context.Context, medicineID uuid.UUID, batchNumber string, expiry time.Time) (*model.InventoryBatch, error) {
	return r.first(func(b model.InventoryBatch) bool {
		return b.MedicineID == medicineID && b.BatchNumber == batchNumber && b.ExpiryDate != nil && b.ExpiryDate.Equal(expiry)
	})
}

func (r memInventory) FindByExpiryRange(ctx context.Context, medicineID uuid.UUID, batchNumber string, from, to time.Time) (*model.InventoryBatch, error) {
	return r.first(func(b model.InventoryBatch) bool {
		return b.MedicineID == medicineID && b.BatchNumber == batchNumber && b.ExpiryDate != nil &&
			!b.ExpiryDate.Before(from) && !b.ExpiryDate.After(to)
	})
}

func (r memInventory) FindByBatch(ctx context.Context, medicineID uuid.UUID, batchNumber string) (*model.InventoryBatch, error) {
	return r.first(func(b model.InventoryBatch) bool {
		return b.MedicineID == medicineID && b.BatchNumber == batchNumber
	})
}

func (r memInventory) IncrementQuantity(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("inventory.increment"); err != nil {
		return 0, err
	}
	b, ok := r.s.batches[id]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	b.Quantity += qty
	r.s.batches[id] = b
	return b.Quantity, nil
}

func (r memInventory) ListAvailableFIFO(ctx context.Context, medicineID uuid.UUID) ([]model.InventoryBatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.InventoryBatch
	for _, b := range r.s.batches {
		if b.MedicineID == medicineID && b.Quantity > 0 {
			out = append(out, b)
		}
	}
	fifo(out)
	return out, nil
}

func (r memInventory) DecrementIfAvailable(ctx context.Context, id uuid.UUID, take int) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.batches[id]
	if !ok {
		return 0, false, nil
	}
	if n, drain := r.s.drainBefore[id]; drain {
		delete(r.s.drainBefore, id)
		b.Quantity = max(b.Quantity-n, 0)
		r.s.batches[id] = b
	}
	if b.Quantity < take {
		return 0, false, nil
	}
	b.Quantity -= take
	r.s.batches[id] = b
	return b.Quantity, true, nil
}

// --- inventory transactions ---

type memInventoryTxs struct{ s *memStore }

func (r memInventoryTxs) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("invtx.create"); err != nil {
		return err
	}
	tx.ID = uuid.New()
	tx.CreatedAt = r.s.tick()
	r.s.txs = append(r.s.txs, *tx)
	return nil
}

func (r memInventoryTxs) ListByBatch(ctx context.Context, batchID uuid.UUID, page, limit int) ([]model.InventoryTransaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.InventoryTransaction
	for i := len(r.s.txs) - 1; i >= 0; i-- {
		if r.s.txs[i].BatchID == batchID {
			out = append(out, r.s.txs[i])
		}
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- billing ---

type memBillings struct{ s *memStore }

func (r memBillings) Create(ctx context.Context, b *model.Billing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("billing.create"); err != nil {
		return err
	}
	for _, existing := range r.s.billings {
		if existing.InvoiceNumber == b.InvoiceNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	for i := range b.LineItems {
		b.LineItems[i].ID = uuid.New()
		b.LineItems[i].BillingID = b.ID
	}
	b.CreatedAt = r.s.tick()
	stored := *b
	stored.LineItems = append([]model.BillingLineItem(nil), b.LineItems...)
	r.s.billings[b.ID] = stored
	return nil
}

func (r memBillings) FindByID(ctx context.Context, id uuid.UUID) (*model.Billing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.billings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r memBillings) List(ctx context.Context, status string, page, limit int) ([]model.Billing, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Billing
	for _, b := range r.s.billings {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r memBillings) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.billings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Status = status
	r.s.billings[id] = b
	return nil
}

func (r memBillings) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, b := range r.s.billings {
		if strings.HasPrefix(b.InvoiceNumber, prefix) {
			n++
		}
	}
	return n, nil
}

func (r memBillings) LockPrefix(ctx context.Context, prefix string) error {
	return nil
}

// --- invoice reviews ---

type memReviews struct{ s *memStore }

func (r memReviews) Create(ctx context.Context, rev *model.InvoiceReview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("review.create"); err != nil {
		return err
	}
	rev.ID = uuid.New()
	rev.CreatedAt = r.s.tick()
	for i := range rev.CandidateMatches {
		rev.CandidateMatches[i].ID = uuid.New()
		rev.CandidateMatches[i].ReviewID = rev.ID
	}
	stored := *rev
	stored.CandidateMatches = append([]model.ReviewCandidate(nil), rev.CandidateMatches...)
	r.s.reviews[rev.ID] = stored
	return nil
}

func (r memReviews) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InvoiceReview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rev, ok := r.s.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rev, nil
}

func (r memReviews) ListByStatus(ctx context.Context, status string, page, limit int) ([]model.InvoiceReview, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.InvoiceReview
	for _, rev := range r.s.reviews {
		if rev.Status != status {
			continue
		}
		cands := make([]model.ReviewCandidate, len(rev.CandidateMatches))
		for i, c := range rev.CandidateMatches {
			if m, ok := r.s.medicines[c.MedicineID]; ok {
				c.Medicine = &m
			}
			cands[i] = c
		}
		rev.CandidateMatches = cands
		out = append(out, rev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r memReviews) MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewer *uuid.UUID, appliedBatchID *uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rev, ok := r.s.reviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rev.Status = status
	rev.ReviewedBy = reviewer
	rev.ReviewedAt = &at
	rev.AppliedBatchID = appliedBatchID
	r.s.reviews[id] = rev
	return nil
}

// --- audit ---

type memAudit struct{ s *memStore }

func (r memAudit) Log(ctx context.Context, entry *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("audit.log"); err != nil {
		return err
	}
	entry.ID = uuid.New()
	entry.CreatedAt = r.s.tick()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r memAudit) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		l := r.s.audits[i]
		if action != "" && l.Action != action {
			continue
		}
		l.RawResponse = nil
		if l.UserID != nil {
			if u, ok := r.s.users[*l.UserID]; ok {
				l.User = &u
			}
		}
		out = append(out, l)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- suppliers ---

type memSuppliers struct{ s *memStore }

func (r memSuppliers) Create(ctx context.Context, sup *model.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sup.ID = uuid.New()
	sup.CreatedAt = r.s.tick()
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r memSuppliers) Update(ctx context.Context, sup *model.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r memSuppliers) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.suppliers, id)
	return nil
}

func (r memSuppliers) FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sup, ok := r.s.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &sup, nil
}

func (r memSuppliers) List(ctx context.Context, page, limit int, search string) ([]model.Supplier, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Supplier
	for _, sup := range r.s.suppliers {
		if search == "" || containsFold(sup.Name, search) {
			out = append(out, sup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- admissions ---

type memAdmissions struct{ s *memStore }

func (r memAdmissions) Create(ctx context.Context, a *model.Admission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = r.s.tick()
	r.s.admissions[a.ID] = *a
	return nil
}

func (r memAdmissions) FindByID(ctx context.Context, id uuid.UUID) (*model.Admission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r memAdmissions) Update(ctx context.Context, a *model.Admission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.admissions[a.ID] = *a
	return nil
}

func (r memAdmissions) List(ctx context.Context, status string, page, limit int) ([]model.Admission, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Admission
	for _, a := range r.s.admissions {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AdmittedAt.After(out[j].AdmittedAt) })
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.s.tick()
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	u, ok := r.s.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memUsers) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, page, limit), int64(len(out)), nil
}

// --- collaborators ---

type fakeParser struct {
	rows  []map[string]interface{}
	err   error
	calls int
}

func (p *fakeParser) Parse(ctx context.Context, filename, contentType string, file io.Reader) (*upstream.ParseResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	raw, _ := json.Marshal(map[string]interface{}{"rows": p.rows})
	return &upstream.ParseResult{Rows: p.rows, Raw: raw}, nil
}

type fakeOCR struct {
	res *upstream.OCRResult
	err error
}

func (o *fakeOCR) Extract(ctx context.Context, filename, contentType string, image io.Reader) (*upstream.OCRResult, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.res, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []interface{}
}

func (n *recordingNotifier) Notify(event interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) all() []interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]interface{}(nil), n.events...)
}

type published struct {
	event string
	data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{event: event, data: data})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type fakeGateway struct {
	paths    []string
	payloads []interface{}
	resp     json.RawMessage
	err      error
	meta     json.RawMessage
}

func (g *fakeGateway) Post(ctx context.Context, path string, payload interface{}) (json.RawMessage, error) {
	g.paths = append(g.paths, path)
	g.payloads = append(g.payloads, payload)
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func (g *fakeGateway) Metadata(ctx context.Context) json.RawMessage {
	return g.meta
}

// --- fixture ---

type fixture struct {
	store     *memStore
	parser    *fakeParser
	ocr       *fakeOCR
	notifier  *recordingNotifier
	publisher *recordingPublisher
	matcher   *matcher.Cache

	invoices  InvoiceService
	reviews   ReviewService
	billing   BillingService
	inventory InventoryService
	medicines MedicineService
}

var billingDay = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	f := &fixture{
		store:     s,
		parser:    &fakeParser{},
		ocr:       &fakeOCR{},
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}

	meds := memMedicines{s}
	inv := memInventory{s}
	invTx := memInventoryTxs{s}
	audit := memAudit{s}
	tx := memTx{s}

	f.matcher = matcher.New(meds.ListAll, time.Minute, nil)
	f.invoices = NewInvoiceService(f.parser, f.matcher, meds, memSuppliers{s}, inv, invTx, memReviews{s}, audit, tx)
	f.reviews = NewReviewService(memReviews{s}, meds, inv, invTx, audit, tx)

	billing := NewBillingService(memBillings{s}, meds, inv, invTx, audit, tx, f.notifier, f.publisher, 20)
	billing.(*billingService).now = func() time.Time { return billingDay }
	f.billing = billing

	f.inventory = NewInventoryService(inv, invTx, meds, memSuppliers{s}, audit, tx, f.ocr, f.publisher, 20)
	f.medicines = NewMedicineService(meds, audit, tx, f.matcher)
	return f
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
