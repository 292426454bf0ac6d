package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of domain.Store.
// Transactions run one at a time on a copy of the committed state; the copy
// replaces the committed state only when the unit of work succeeds.
type MemoryStore struct {
	txMu  sync.Mutex
	state *memState

	// FailCommit, when set, is called before a transaction commits. A non-nil
	// return aborts the commit as a persistence failure would.
	FailCommit func() error

	// Commits counts successful transactions
	Commits int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

var _ domain.Store = (*MemoryStore)(nil)

// Loans implements domain.Repositories outside a transaction
func (s *MemoryStore) Loans() domain.LoanRepository { return &memLoans{s.state} }

// Payments implements domain.Repositories outside a transaction
func (s *MemoryStore) Payments() domain.PaymentRepository { return &memPayments{s.state} }

// Audit implements domain.Repositories outside a transaction
func (s *MemoryStore) Audit() domain.AuditRepository { return &memAudit{s.state} }

// Clients implements domain.Repositories outside a transaction
func (s *MemoryStore) Clients() domain.ClientRepository { return &memClients{s.state} }

// WithTx runs fn against a private copy of the state and commits it when fn succeeds
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(memTx{work}); err != nil {
		return err
	}
	if s.FailCommit != nil {
		if err := s.FailCommit(); err != nil {
			return fmt.Errorf("%w: commit: %v", domain.ErrInternalFailure, err)
		}
	}

	s.state.replace(work)
	s.Commits++
	return nil
}

// AuditLog returns a copy of every audit entry in append order
func (s *MemoryStore) AuditLog() []domain.AuditEntry {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.state.audit...)
}

// PutLoan stores a loan directly, bypassing transactions
func (s *MemoryStore) PutLoan(loan *domain.Loan) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.loans[loan.ID] = loan.Clone()
}

// PutPayment stores a payment record directly, bypassing transactions
func (s *MemoryStore) PutPayment(p domain.PaymentRecord) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.payments[p.ID] = p
}

type memTx struct{ st *memState }

func (t memTx) Loans() domain.LoanRepository       { return &memLoans{t.st} }
func (t memTx) Payments() domain.PaymentRepository { return &memPayments{t.st} }
func (t memTx) Audit() domain.AuditRepository      { return &memAudit{t.st} }
func (t memTx) Clients() domain.ClientRepository   { return &memClients{t.st} }

type memState struct {
	mu        sync.Mutex
	loans     map[uuid.UUID]*domain.Loan
	payments  map[uuid.UUID]domain.PaymentRecord
	audit     []domain.AuditEntry
	clients   map[uuid.UUID]*domain.Client
	documents map[uuid.UUID][]domain.KYCDocument
	loanSeq   int64
	auditSeq  int64
}

func newMemState() *memState {
	return &memState{
		loans:     make(map[uuid.UUID]*domain.Loan),
		payments:  make(map[uuid.UUID]domain.PaymentRecord),
		clients:   make(map[uuid.UUID]*domain.Client),
		documents: make(map[uuid.UUID][]domain.KYCDocument),
	}
}

func (m *memState) clone() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := newMemState()
	for id, l := range m.loans {
		c.loans[id] = l.Clone()
	}
	for id, p := range m.payments {
		c.payments[id] = p
	}
	c.audit = append([]domain.AuditEntry(nil), m.audit...)
	for id, cl := range m.clients {
		cp := *cl
		c.clients[id] = &cp
	}
	for id, docs := range m.documents {
		c.documents[id] = append([]domain.KYCDocument(nil), docs...)
	}
	c.loanSeq = m.loanSeq
	c.auditSeq = m.auditSeq
	return c
}

func (m *memState) replace(work *memState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans = work.loans
	m.payments = work.payments
	m.audit = work.audit
	m.clients = work.clients
	m.documents = work.documents
	m.loanSeq = work.loanSeq
	m.auditSeq = work.auditSeq
}

type memLoans struct{ st *memState }

func (r *memLoans) Create(ctx context.Context, loan *domain.Loan) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, exists := r.st.loans[loan.ID]; exists {
		return fmt.Errorf("%w: loan %s already exists", domain.ErrConflict, loan.ID)
	}
	r.st.loanSeq++
	loan.LoanNumber = fmt.Sprintf("LN-%d-%06d", util.DateOf(loan.CreatedAt).Year(), r.st.loanSeq)
	loan.Version = 1
	r.st.loans[loan.ID] = loan.Clone()
	return nil
}

func (r *memLoans) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	loan, ok := r.st.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return loan.Clone(), nil
}

func (r *memLoans) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *memLoans) Update(ctx context.Context, loan *domain.Loan) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.loans[loan.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if stored.Version != loan.Version {
		return domain.ErrStaleLoan
	}
	loan.Version++
	r.st.loans[loan.ID] = loan.Clone()
	return nil
}

func (r *memLoans) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var out []*domain.Loan
	for _, l := range r.st.loans {
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		if filter.ClientID != nil && l.ClientID != *filter.ClientID {
			continue
		}
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanNumber < out[j].LoanNumber })

	if filter.Offset >= len(out) {
		return []*domain.Loan{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memLoans) ListIDsByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]uuid.UUID, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	want := make(map[domain.LoanStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var ids []uuid.UUID
	for id, l := range r.st.loans {
		if want[l.Status] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

type memPayments struct{ st *memState }

func (r *memPayments) Create(ctx context.Context, p *domain.PaymentRecord) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, exists := r.st.payments[p.ID]; exists {
		return fmt.Errorf("%w: payment %s already exists", domain.ErrConflict, p.ID)
	}
	if p.ReceiptNumber != nil {
		for _, other := range r.st.payments {
			if other.ReceiptNumber != nil && *other.ReceiptNumber == *p.ReceiptNumber {
				return fmt.Errorf("%w: receipt number %s already exists", domain.ErrConflict, *p.ReceiptNumber)
			}
		}
	}
	r.st.payments[p.ID] = *p
	return nil
}

func (r *memPayments) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	p, ok := r.st.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *memPayments) GetByReceipt(ctx context.Context, receiptNumber string) (*domain.PaymentRecord, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, p := range r.st.payments {
		if p.ReceiptNumber != nil && *p.ReceiptNumber == receiptNumber {
			return &p, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *memPayments) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.PaymentRecord, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := []domain.PaymentRecord{}
	for _, p := range r.st.payments {
		if p.LoanID == loanID {
			out = append(out, p)
		}
	}
	domain.SortCanonical(out)
	return out, nil
}

type memAudit struct{ st *memState }

func (r *memAudit) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.st.auditSeq++
	entry.Sequence = r.st.auditSeq
	r.st.audit = append(r.st.audit, *entry)
	return nil
}

func (r *memAudit) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.AuditEntry, error) {
	return r.filter(func(e domain.AuditEntry) bool {
		return e.LoanID != nil && *e.LoanID == loanID
	}), nil
}

func (r *memAudit) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditEntry, error) {
	return r.filter(func(e domain.AuditEntry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	}), nil
}

func (r *memAudit) filter(keep func(domain.AuditEntry) bool) []domain.AuditEntry {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := []domain.AuditEntry{}
	for _, e := range r.st.audit {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

type memClients struct{ st *memState }

func (r *memClients) Create(ctx context.Context, client *domain.Client) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if err := r.checkNationalID(client); err != nil {
		return err
	}
	cp := *client
	r.st.clients[client.ID] = &cp
	return nil
}

func (r *memClients) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	c, ok := r.st.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memClients) Update(ctx context.Context, client *domain.Client) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.clients[client.ID]; !ok {
		return domain.ErrClientNotFound
	}
	if err := r.checkNationalID(client); err != nil {
		return err
	}
	cp := *client
	r.st.clients[client.ID] = &cp
	return nil
}

func (r *memClients) checkNationalID(client *domain.Client) error {
	if client.NationalID == "" {
		return nil
	}
	for id, other := range r.st.clients {
		if id != client.ID && other.NationalID == client.NationalID {
			return fmt.Errorf("%w: national id %s already registered", domain.ErrConflict, client.NationalID)
		}
	}
	return nil
}

func (r *memClients) List(ctx context.Context, limit, offset int) ([]*domain.Client, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := make([]*domain.Client, 0, len(r.st.clients))
	for _, c := range r.st.clients {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if offset >= len(out) {
		return []*domain.Client{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memClients) AddDocument(ctx context.Context, doc *domain.KYCDocument) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.clients[doc.ClientID]; !ok {
		return domain.ErrClientNotFound
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	r.st.documents[doc.ClientID] = append(r.st.documents[doc.ClientID], *doc)
	return nil
}

func (r *memClients) ListDocuments(ctx context.Context, clientID uuid.UUID) ([]domain.KYCDocument, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return append([]domain.KYCDocument{}, r.st.documents[clientID]...), nil
}
