// Package ledger is the deterministic loan engine: it builds repayment
// schedules, applies payments to them and derives the lifecycle state.
// Every stored amount is a whole UGX integer; rates are handled as decimals
// and rounded half away from zero when they become money.
package ledger

import (
	"fmt"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/shopspring/decimal"
)

const (
	// DefaultTargetWeeks applies to bike loans given neither an installment nor a term
	DefaultTargetWeeks = 52
	MaxTermMonths      = 360
	MaxWeeks           = 520

	ratePrecision = 24
)

var (
	// MaxAnnualRatePct caps the annual interest rate accepted for cash loans
	MaxAnnualRatePct = decimal.NewFromInt(200)

	one = decimal.NewFromInt(1)
)

// Schedule is the output of the schedule builder. InstallmentAmount is the
// rounded EMI for cash loans and the weekly installment for bike loans.
type Schedule struct {
	Installments      []domain.Installment `json:"installments"`
	InstallmentAmount int64                `json:"installmentAmount"`
	FinancedAmount    int64                `json:"financedAmount"`
	WeeksToPay        int                  `json:"weeksToPay,omitempty"`
}

// BuildSchedule enumerates the repayment schedule for the given terms.
// It returns ErrInvalidTerms without a partial schedule when any input is out of range.
func BuildSchedule(terms domain.LoanTerms) (*Schedule, error) {
	if terms.StartDate.IsZero() {
		return nil, invalidTerms("start date is required")
	}
	start := util.DateOf(terms.StartDate)
	for _, f := range []struct {
		name  string
		value int64
	}{
		{"principal", terms.Principal},
		{"sale price", terms.SalePrice},
		{"deposit", terms.Deposit},
		{"weekly installment", terms.WeeklyInstallment},
	} {
		if f.value > domain.MaxAmount {
			return nil, invalidTerms("%s exceeds %d", f.name, domain.MaxAmount)
		}
	}

	var sched *Schedule
	var err error
	switch terms.Product {
	case domain.ProductCash:
		sched, err = buildCash(terms, start)
	case domain.ProductBike:
		sched, err = buildBike(terms, start)
	default:
		return nil, invalidTerms("unknown product %q", terms.Product)
	}
	if err != nil {
		return nil, err
	}

	if len(sched.Installments) == 0 {
		return nil, fmt.Errorf("%w: schedule has no installments", domain.ErrInternalFailure)
	}
	if got := sumPrincipal(sched.Installments); got != sched.FinancedAmount {
		return nil, fmt.Errorf("%w: schedule principal %d does not match financed amount %d",
			domain.ErrInternalFailure, got, sched.FinancedAmount)
	}
	return sched, nil
}

func sumPrincipal(insts []domain.Installment) int64 {
	var total int64
	for _, i := range insts {
		total += i.PrincipalAmount
	}
	return total
}

func buildCash(t domain.LoanTerms, start time.Time) (*Schedule, error) {
	if t.Principal <= 0 {
		return nil, invalidTerms("principal must be positive")
	}
	if t.TermMonths < 1 || t.TermMonths > MaxTermMonths {
		return nil, invalidTerms("term must be between 1 and %d months", MaxTermMonths)
	}
	if t.AnnualInterestRatePct.IsNegative() || t.AnnualInterestRatePct.GreaterThan(MaxAnnualRatePct) {
		return nil, invalidTerms("annual interest rate must be between 0 and %s percent", MaxAnnualRatePct)
	}
	// the stored rate keeps RatePlaces decimals; replay must rebuild the same schedule
	if !t.AnnualInterestRatePct.Equal(t.AnnualInterestRatePct.Round(domain.RatePlaces)) {
		return nil, invalidTerms("annual interest rate has more than %d decimal places", domain.RatePlaces)
	}

	rate := MonthlyRate(t.AnnualInterestRatePct)
	emi := EMI(t.Principal, t.AnnualInterestRatePct, t.TermMonths)

	installments := make([]domain.Installment, 0, t.TermMonths)
	balance := t.Principal
	for k := 1; k <= t.TermMonths; k++ {
		interest := toShillings(decimal.NewFromInt(balance).Mul(rate))

		// the final month takes whatever principal is left
		principal := balance
		if k < t.TermMonths {
			principal = emi - interest
			if principal > balance {
				principal = balance
			}
			if principal < 0 {
				principal = 0
			}
		}
		balance -= principal

		if principal+interest == 0 {
			return nil, invalidTerms("principal is too small for a %d month term", t.TermMonths)
		}

		installments = append(installments, domain.Installment{
			Sequence:        k,
			DueDate:         util.AddMonthsClamped(start, k),
			PrincipalAmount: principal,
			InterestAmount:  interest,
			TotalAmount:     principal + interest,
			Status:          domain.InstallmentPending,
		})
	}

	return &Schedule{
		Installments:      installments,
		InstallmentAmount: emi,
		FinancedAmount:    t.Principal,
	}, nil
}

func buildBike(t domain.LoanTerms, start time.Time) (*Schedule, error) {
	if t.SalePrice <= 0 {
		return nil, invalidTerms("sale price must be positive")
	}
	if t.Deposit < 0 || t.Deposit >= t.SalePrice {
		return nil, invalidTerms("deposit must be at least 0 and less than the sale price")
	}
	if t.WeeklyInstallment < 0 || t.TargetWeeks < 0 {
		return nil, invalidTerms("weekly installment and target weeks cannot be negative")
	}

	financed := t.SalePrice - t.Deposit
	weekly := t.WeeklyInstallment
	if weekly == 0 {
		target := t.TargetWeeks
		if target == 0 {
			target = DefaultTargetWeeks
		}
		weekly = ceilDiv(financed, int64(target))
	}

	weeks64 := ceilDiv(financed, weekly)
	if weeks64 > MaxWeeks {
		return nil, invalidTerms("repayment would take %d weeks, maximum is %d", weeks64, MaxWeeks)
	}
	weeks := int(weeks64)

	installments := make([]domain.Installment, 0, weeks)
	for k := 1; k <= weeks; k++ {
		principal := weekly
		if k == weeks {
			principal = financed - weekly*int64(weeks-1)
		}
		installments = append(installments, domain.Installment{
			Sequence:        k,
			DueDate:         util.AddDays(start, 7*k),
			PrincipalAmount: principal,
			TotalAmount:     principal,
			Status:          domain.InstallmentPending,
		})
	}

	return &Schedule{
		Installments:      installments,
		InstallmentAmount: weekly,
		FinancedAmount:    financed,
		WeeksToPay:        weeks,
	}, nil
}

// MonthlyRate converts an annual percentage into a monthly fraction (r/100/12)
func MonthlyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	return annualRatePct.DivRound(decimal.NewFromInt(1200), ratePrecision)
}

// EMI is the rounded level monthly installment A = P·i·(1+i)^n / ((1+i)^n − 1),
// or P/n when the rate is zero
func EMI(principal int64, annualRatePct decimal.Decimal, months int) int64 {
	p := decimal.NewFromInt(principal)
	if annualRatePct.IsZero() {
		return toShillings(p.DivRound(decimal.NewFromInt(int64(months)), ratePrecision))
	}

	i := MonthlyRate(annualRatePct)
	growth := one
	base := one.Add(i)
	for k := 0; k < months; k++ {
		growth = growth.Mul(base).Round(ratePrecision)
	}

	raw := p.Mul(i).Mul(growth).DivRound(growth.Sub(one), ratePrecision)
	return toShillings(raw)
}

// NewLoan builds a draft loan aggregate with its schedule and derived totals.
// Identity fields are left for the caller.
func NewLoan(terms domain.LoanTerms) (*domain.Loan, error) {
	sched, err := BuildSchedule(terms)
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		Product:           terms.Product,
		Principal:         sched.FinancedAmount,
		StartDate:         util.DateOf(terms.StartDate),
		InstallmentAmount: sched.InstallmentAmount,
		Status:            domain.LoanStatusDraft,
		Schedule:          sched.Installments,
		PARBucket:         domain.PARCurrent,
	}
	switch terms.Product {
	case domain.ProductCash:
		loan.AnnualInterestRatePct = terms.AnnualInterestRatePct
		loan.TermMonths = terms.TermMonths
	case domain.ProductBike:
		loan.SalePrice = terms.SalePrice
		loan.Deposit = terms.Deposit
		loan.WeeklyInstallment = sched.InstallmentAmount
		loan.WeeksToPay = sched.WeeksToPay
	}

	Recalculate(loan)
	return loan, nil
}

// DepositRecord returns the synthetic payment that carries a bike deposit, or
// nil when the loan has none
func DepositRecord(loan *domain.Loan, recordedBy string, createdAt time.Time) *domain.PaymentRecord {
	if loan.Product != domain.ProductBike || loan.Deposit == 0 {
		return nil
	}
	return &domain.PaymentRecord{
		LoanID:        loan.ID,
		Kind:          domain.PaymentKindPayment,
		Amount:        loan.Deposit,
		Method:        domain.PaymentMethodDeposit,
		PaymentDate:   loan.StartDate,
		RecordedBy:    recordedBy,
		Justification: domain.DepositJustification,
		CreatedAt:     createdAt,
	}
}

func toShillings(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// ceilDiv rounds a/b up for positive operands without overflowing
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func invalidTerms(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidTerms, fmt.Sprintf(format, args...))
}
