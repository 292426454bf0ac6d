package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/testutil"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	adminActor   = domain.Actor{ID: "auth0|admin-1", Role: domain.RoleAdmin}
	managerActor = domain.Actor{ID: "auth0|manager-1", Role: domain.RoleManager}
	staffActor   = domain.Actor{ID: "auth0|staff-1", Role: domain.RoleStaff}
	guestActor   = domain.Actor{ID: "auth0|guest-1", Role: domain.RoleGuest}
)

// testClock hands out strictly increasing instants so records created in a
// test have distinct creation times
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

type testEnv struct {
	store    *testutil.MemoryStore
	gate     *Gate
	locks    *LoanLocks
	loans    *LoanService
	payments *PaymentService
	clients  *ClientService
	events   *testutil.RecordingPublisher
	clock    *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewMemoryStore()
	logger := zerolog.Nop()
	clock := &testClock{t: time.Date(2026, 1, 20, 6, 0, 0, 0, time.UTC)}
	events := &testutil.RecordingPublisher{}

	gate := NewGate(store, logger)
	gate.SetClock(clock.Now)
	locks := NewLoanLocks()

	loans := NewLoanService(store, gate, locks, logger)
	loans.SetClock(clock.Now)
	loans.SetEventPublisher(events)

	payments := NewPaymentService(store, gate, locks, logger)
	payments.SetClock(clock.Now)
	payments.SetEventPublisher(events)

	clients := NewClientService(store, gate, logger)
	clients.SetClock(clock.Now)
	clients.SetEventPublisher(events)

	return &testEnv{
		store:    store,
		gate:     gate,
		locks:    locks,
		loans:    loans,
		payments: payments,
		clients:  clients,
		events:   events,
		clock:    clock,
	}
}

func (e *testEnv) newClient(t *testing.T) *domain.Client {
	t.Helper()
	c, err := e.clients.CreateClient(context.Background(), staffActor, ClientInput{
		FullName:      "Nakato Sarah",
		Phone:         "+256772000111",
		NationalID:    "cm" + uuid.NewString()[:12],
		Address:       "Ntinda, Kampala",
		Occupation:    "boda boda rider",
		Justification: "walk-in onboarding",
	})
	require.NoError(t, err)
	return c
}

// bikeTerms is a 2,600,000 bike with 600,000 down and 40 weekly installments of 50,000
func bikeTerms() domain.LoanTerms {
	return domain.LoanTerms{
		Product:           domain.ProductBike,
		StartDate:         util.Date(2026, time.February, 1),
		SalePrice:         2_600_000,
		Deposit:           600_000,
		WeeklyInstallment: 50_000,
	}
}

func cashTerms(principal int64) domain.LoanTerms {
	return domain.LoanTerms{
		Product:               domain.ProductCash,
		StartDate:             util.Date(2026, time.January, 15),
		Principal:             principal,
		AnnualInterestRatePct: decimal.NewFromInt(12),
		TermMonths:            12,
	}
}

// activeLoan originates a loan and walks it through approval to active
func (e *testEnv) activeLoan(t *testing.T, terms domain.LoanTerms) *domain.Loan {
	t.Helper()
	ctx := context.Background()

	client := e.newClient(t)
	loan, err := e.loans.CreateLoan(ctx, adminActor, CreateLoanInput{
		ClientID:      client.ID,
		Terms:         terms,
		Justification: "new loan application",
	})
	require.NoError(t, err)

	steps := []struct {
		actor  domain.Actor
		target domain.LoanStatus
	}{
		{staffActor, domain.LoanStatusPending},
		{managerActor, domain.LoanStatusApproved},
		{managerActor, domain.LoanStatusDisbursed},
		{managerActor, domain.LoanStatusActive},
	}
	for _, s := range steps {
		loan, err = e.loans.TransitionLoan(ctx, s.actor, loan.ID, s.target, "credit committee decision")
		require.NoError(t, err)
	}
	return loan
}

func (e *testEnv) pay(t *testing.T, loanID uuid.UUID, amount int64, date time.Time, receipt string) *PostPaymentResult {
	t.Helper()
	res, err := e.payments.PostPayment(context.Background(), staffActor, loanID, PostPaymentInput{
		Amount:        amount,
		Method:        domain.PaymentMethodMTNMomo,
		PaymentDate:   date,
		ReceiptNumber: receipt,
		Justification: "weekly collection",
	})
	require.NoError(t, err)
	return res
}

func auditActions(entries []domain.AuditEntry) []domain.AuditAction {
	out := make([]domain.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}
