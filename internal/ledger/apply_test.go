package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payment(amount int64, date time.Time) domain.PaymentRecord {
	return domain.PaymentRecord{
		ID:            uuid.New(),
		Kind:          domain.PaymentKindPayment,
		Amount:        amount,
		Method:        domain.PaymentMethodCash,
		PaymentDate:   date,
		Justification: "counter payment",
		CreatedAt:     date,
	}
}

// assertLedgerInvariants checks the conservation rules that must hold after every operation
func assertLedgerInvariants(t *testing.T, loan *domain.Loan) {
	t.Helper()

	var scheduled, accrued, paid, penaltyPaid, principal int64
	for k, inst := range loan.Schedule {
		assert.Equal(t, k+1, inst.Sequence)
		assert.Equal(t, inst.PrincipalAmount+inst.InterestAmount, inst.TotalAmount)
		assert.GreaterOrEqual(t, inst.PaidAmount, int64(0))
		assert.LessOrEqual(t, inst.PaidAmount, inst.TotalAmount)
		assert.LessOrEqual(t, inst.PenaltyPaid, inst.AccruedPenalty)
		if k > 0 {
			assert.False(t, inst.DueDate.Before(loan.Schedule[k-1].DueDate))
		}
		scheduled += inst.TotalAmount
		accrued += inst.AccruedPenalty
		paid += inst.PaidAmount
		penaltyPaid += inst.PenaltyPaid
		principal += inst.PrincipalAmount
	}

	assert.Equal(t, loan.Principal, principal)
	assert.Equal(t, paid+loan.DepositPaid, loan.TotalPaid)
	assert.Equal(t, penaltyPaid, loan.PenaltyPaid)
	assert.Equal(t, scheduled+accrued+loan.DepositPaid, loan.TotalOutstanding+loan.TotalPaid+loan.PenaltyPaid)
	assert.Equal(t, loan.Status == domain.LoanStatusCompleted, loan.TotalOutstanding == 0,
		"status %s with outstanding %d", loan.Status, loan.TotalOutstanding)
}

func TestApply_OldestFirst(t *testing.T) {
	loan := activeLoan(t, bikeTerms())

	res, err := Apply(loan, payment(120_000, util.Date(2026, 2, 8)))
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentPaid, loan.Schedule[0].Status)
	assert.Equal(t, int64(50_000), loan.Schedule[0].PaidAmount)
	assert.Equal(t, domain.InstallmentPaid, loan.Schedule[1].Status)
	assert.Equal(t, int64(50_000), loan.Schedule[1].PaidAmount)
	assert.Equal(t, domain.InstallmentPartial, loan.Schedule[2].Status)
	assert.Equal(t, int64(20_000), loan.Schedule[2].PaidAmount)
	assert.Equal(t, domain.InstallmentPending, loan.Schedule[3].Status)

	assert.Equal(t, int64(720_000), loan.TotalPaid)
	assert.Equal(t, int64(1_880_000), loan.TotalOutstanding)
	assert.Equal(t, util.Date(2026, 2, 8), *loan.LastPaymentDate)
	assert.Zero(t, res.Overpayment)
	assert.Equal(t, []Allocation{
		{Sequence: 1, Amount: 50_000},
		{Sequence: 2, Amount: 50_000},
		{Sequence: 3, Amount: 20_000},
	}, res.Allocations)
	assertLedgerInvariants(t, loan)
}

func TestApply_PenaltyBeforePrincipal(t *testing.T) {
	loan := activeLoan(t, bikeTerms())

	// installment 1 is 8 days late on the payment date, so the penalty accrues first
	res, err := Apply(loan, payment(30_000, util.Date(2026, 2, 16)))
	require.NoError(t, err)

	require.Len(t, res.Accruals, 1)
	assert.Equal(t, int64(1_000), loan.Schedule[0].PenaltyPaid)
	assert.Equal(t, int64(29_000), loan.Schedule[0].PaidAmount)
	assert.Equal(t, domain.InstallmentPartial, loan.Schedule[0].Status)
	assert.Equal(t, int64(1_000), loan.PenaltyPaid)
	assert.Equal(t, int64(629_000), loan.TotalPaid)
	assertLedgerInvariants(t, loan)
}

func TestApply_OverpaymentHeldAsCredit(t *testing.T) {
	loan := activeLoan(t, bikeTerms())

	res, err := Apply(loan, payment(2_100_000, util.Date(2026, 2, 8)))
	require.NoError(t, err)

	assert.Equal(t, int64(2_000_000), res.OutstandingBefore)
	assert.Equal(t, int64(100_000), res.Overpayment)
	assert.Equal(t, int64(2_000_000), res.Applied)
	assert.Equal(t, int64(100_000), loan.CreditBalance)
	assert.True(t, res.Completed)
	assert.Equal(t, domain.LoanStatusCompleted, loan.Status)
	assert.Zero(t, loan.TotalOutstanding)
	assert.Equal(t, int64(2_600_000), loan.TotalPaid)
	assertLedgerInvariants(t, loan)

	// a completed loan takes no further payments
	_, err = Apply(loan, payment(1_000, util.Date(2026, 2, 9)))
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestApply_ExactPayoffCompletesCashLoan(t *testing.T) {
	loan := activeLoan(t, cashTerms())

	res, err := Apply(loan, payment(1_066_186, util.Date(2026, 2, 15)))
	require.NoError(t, err)

	assert.Zero(t, res.Overpayment)
	assert.Equal(t, domain.LoanStatusCompleted, loan.Status)
	assert.Zero(t, loan.OutstandingPrincipal)
	assert.Zero(t, loan.OutstandingInterest)
	assertLedgerInvariants(t, loan)
}

func TestApply_InterestAttributedBeforePrincipal(t *testing.T) {
	loan := activeLoan(t, cashTerms())

	_, err := Apply(loan, payment(5_000, util.Date(2026, 2, 1)))
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_000), loan.OutstandingPrincipal)
	assert.Equal(t, int64(66_186-5_000), loan.OutstandingInterest)
}

func TestApply_InvalidPayments(t *testing.T) {
	tests := []struct {
		name    string
		payment domain.PaymentRecord
	}{
		{"zero amount", payment(0, util.Date(2026, 2, 8))},
		{"negative amount", payment(-10, util.Date(2026, 2, 8))},
		{"before start", payment(50_000, util.Date(2026, 1, 31))},
		{"beyond horizon", payment(50_000, util.Date(2036, 11, 9))},
		{"missing date", payment(50_000, time.Time{})},
		{"amount above money range", payment(domain.MaxAmount+1, util.Date(2026, 2, 8))},
		{"unknown method", func() domain.PaymentRecord {
			p := payment(50_000, util.Date(2026, 2, 8))
			p.Method = "barter"
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := activeLoan(t, bikeTerms())
			before := loan.Clone()

			_, err := Apply(loan, tt.payment)
			assert.ErrorIs(t, err, domain.ErrInvalidPayment)
			assert.Equal(t, before, loan)
		})
	}
}

func TestApply_BackdatedPaymentKeepsLatestDate(t *testing.T) {
	loan := activeLoan(t, bikeTerms())

	_, err := Apply(loan, payment(50_000, util.Date(2026, 2, 20)))
	require.NoError(t, err)
	_, err = Apply(loan, payment(50_000, util.Date(2026, 2, 9)))
	require.NoError(t, err)

	assert.Equal(t, util.Date(2026, 2, 20), *loan.LastPaymentDate)
}

func TestApply_HorizonBoundaryAccepted(t *testing.T) {
	loan := activeLoan(t, bikeTerms())

	// end date 2026-11-08 plus ten years
	_, err := Apply(loan, payment(50_000, util.Date(2036, 11, 8)))
	assert.NoError(t, err)
}

func TestApply_RequiresServicingLoan(t *testing.T) {
	for _, status := range []domain.LoanStatus{
		domain.LoanStatusDraft, domain.LoanStatusApproved, domain.LoanStatusDisbursed,
		domain.LoanStatusDefaulted, domain.LoanStatusCancelled,
	} {
		loan := activeLoan(t, bikeTerms())
		loan.Status = status

		_, err := Apply(loan, payment(50_000, util.Date(2026, 2, 8)))
		assert.ErrorIs(t, err, domain.ErrIllegalTransition, "status %s", status)
	}
}

func TestApply_Deterministic(t *testing.T) {
	a := activeLoan(t, cashTerms())
	b := a.Clone()
	p := payment(250_000, util.Date(2026, 4, 1))

	resA, errA := Apply(a, p)
	resB, errB := Apply(b, p)

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, resA, resB)
	assert.Equal(t, a, b)
}

func TestApply_RandomSequencesConserveMoney(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 100; run++ {
		terms := bikeTerms()
		if run%2 == 1 {
			terms = cashTerms()
		}
		loan := activeLoan(t, terms)
		date := loan.StartDate

		for step := 0; step < 30 && loan.Status.AcceptsPayments(); step++ {
			date = util.AddDays(date, rng.Intn(20))
			outstanding := loan.TotalOutstanding
			amount := int64(rng.Intn(150_000) + 1)

			res, err := Apply(loan, payment(amount, date))
			require.NoError(t, err)

			// overpayment is exactly what exceeds the balance at the payment date
			assert.Equal(t, max(0, amount-res.OutstandingBefore), res.Overpayment)
			assert.LessOrEqual(t, res.OutstandingBefore-outstanding, int64(2*PenaltyFor(loan)))
			assertLedgerInvariants(t, loan)
		}
	}
}
