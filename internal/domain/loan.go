package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest money value accepted on the wire (2^53 - 1 UGX)
const MaxAmount int64 = 1<<53 - 1

// RatePlaces is the number of decimal places stored for an interest rate
const RatePlaces = 4

// Product is the loan product; the two products use different schedule mathematics
type Product string

const (
	ProductCash Product = "cash"
	ProductBike Product = "bike"
)

// IsValid checks if the product is recognized
func (p Product) IsValid() bool {
	return p == ProductCash || p == ProductBike
}

// LoanStatus is the lifecycle status of a loan
type LoanStatus string

const (
	LoanStatusDraft      LoanStatus = "draft"
	LoanStatusPending    LoanStatus = "pending"
	LoanStatusApproved   LoanStatus = "approved"
	LoanStatusDisbursed  LoanStatus = "disbursed"
	LoanStatusActive     LoanStatus = "active"
	LoanStatusDelinquent LoanStatus = "delinquent"
	LoanStatusCompleted  LoanStatus = "completed"
	LoanStatusDefaulted  LoanStatus = "defaulted"
	LoanStatusCancelled  LoanStatus = "cancelled"
)

// IsValid checks if the status is one of the lifecycle statuses
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusDraft, LoanStatusPending, LoanStatusApproved, LoanStatusDisbursed,
		LoanStatusActive, LoanStatusDelinquent, LoanStatusCompleted, LoanStatusDefaulted, LoanStatusCancelled:
		return true
	}
	return false
}

// IsServicing reports whether the lifecycle evaluator owns the status
func (s LoanStatus) IsServicing() bool {
	return s == LoanStatusActive || s == LoanStatusDelinquent || s == LoanStatusCompleted
}

// AcceptsPayments reports whether repayments may be posted
func (s LoanStatus) AcceptsPayments() bool {
	return s == LoanStatusActive || s == LoanStatusDelinquent
}

// IsEditable reports whether loan terms may still change
func (s LoanStatus) IsEditable() bool {
	return s == LoanStatusDraft || s == LoanStatusPending
}

// PARBucket is the portfolio-at-risk reporting bucket
type PARBucket string

const (
	PARCurrent PARBucket = "current"
	PAR30      PARBucket = "30+"
	PAR90      PARBucket = "90+"
)

// PARBucketFor classifies days in arrears
func PARBucketFor(daysInArrears int) PARBucket {
	switch {
	case daysInArrears >= 90:
		return PAR90
	case daysInArrears >= 30:
		return PAR30
	default:
		return PARCurrent
	}
}

// LoanTerms are the inputs of the schedule builder
type LoanTerms struct {
	Product   Product   `json:"product"`
	StartDate time.Time `json:"startDate"`

	// cash
	Principal             int64           `json:"principal,omitempty"`
	AnnualInterestRatePct decimal.Decimal `json:"annualInterestRatePct"`
	TermMonths            int             `json:"termMonths,omitempty"`

	// bike; one of WeeklyInstallment or TargetWeeks
	SalePrice         int64 `json:"salePrice,omitempty"`
	Deposit           int64 `json:"deposit,omitempty"`
	WeeklyInstallment int64 `json:"weeklyInstallment,omitempty"`
	TargetWeeks       int   `json:"targetWeeks,omitempty"`
}

// FinancedAmount is the amount the client owes under the schedule
func (t LoanTerms) FinancedAmount() int64 {
	if t.Product == ProductBike {
		return t.SalePrice - t.Deposit
	}
	return t.Principal
}

// InstallmentStatus is the settlement state of one installment
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPartial InstallmentStatus = "partial"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Installment is one scheduled repayment slot, identified by (loan_id, sequence).
// PaidAmount covers principal and interest only; penalties are tracked separately.
type Installment struct {
	Sequence        int               `json:"sequence"`
	DueDate         time.Time         `json:"dueDate"`
	PrincipalAmount int64             `json:"principalAmount"`
	InterestAmount  int64             `json:"interestAmount"`
	TotalAmount     int64             `json:"totalAmount"`
	PaidAmount      int64             `json:"paidAmount"`
	AccruedPenalty  int64             `json:"accruedPenalty"`
	PenaltyPaid     int64             `json:"penaltyPaid"`
	Status          InstallmentStatus `json:"status"`
}

// Remaining is what is still owed on the installment, penalty included
func (i Installment) Remaining() int64 {
	return (i.TotalAmount - i.PaidAmount) + (i.AccruedPenalty - i.PenaltyPaid)
}

// IsSettled reports whether principal, interest and penalty are all paid
func (i Installment) IsSettled() bool {
	return i.PaidAmount+i.PenaltyPaid >= i.TotalAmount+i.AccruedPenalty
}

// Loan is the aggregate root of the ledger
type Loan struct {
	ID         uuid.UUID `json:"id"`
	LoanNumber string    `json:"loanNumber"`
	ClientID   uuid.UUID `json:"clientId"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	Product   Product   `json:"product"`
	Principal int64     `json:"principal"`
	StartDate time.Time `json:"startDate"`

	// cash terms
	AnnualInterestRatePct decimal.Decimal `json:"annualInterestRatePct"`
	TermMonths            int             `json:"termMonths,omitempty"`

	// bike terms
	SalePrice         int64 `json:"salePrice,omitempty"`
	Deposit           int64 `json:"deposit,omitempty"`
	WeeklyInstallment int64 `json:"weeklyInstallment,omitempty"`
	WeeksToPay        int   `json:"weeksToPay,omitempty"`

	// InstallmentAmount is the rounded EMI (cash) or weekly installment (bike)
	InstallmentAmount int64 `json:"installmentAmount"`

	Status   LoanStatus    `json:"status"`
	Schedule []Installment `json:"schedule"`

	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	LastEvaluatedOn *time.Time `json:"lastEvaluatedOn,omitempty"`

	OutstandingPrincipal int64     `json:"outstandingPrincipal"`
	OutstandingInterest  int64     `json:"outstandingInterest"`
	TotalOutstanding     int64     `json:"totalOutstanding"`
	TotalPaid            int64     `json:"totalPaid"`
	DepositPaid          int64     `json:"depositPaid"`
	PenaltyPaid          int64     `json:"penaltyPaid"`
	CreditBalance        int64     `json:"creditBalance"`
	DaysInArrears        int       `json:"daysInArrears"`
	PARBucket            PARBucket `json:"parBucket"`

	// Version increases on every committed change
	Version int64 `json:"version"`
}

// Terms reconstructs the builder inputs the loan was scheduled from
func (l *Loan) Terms() LoanTerms {
	t := LoanTerms{
		Product:   l.Product,
		StartDate: l.StartDate,
	}
	switch l.Product {
	case ProductCash:
		t.Principal = l.Principal
		t.AnnualInterestRatePct = l.AnnualInterestRatePct
		t.TermMonths = l.TermMonths
	case ProductBike:
		t.SalePrice = l.SalePrice
		t.Deposit = l.Deposit
		t.WeeklyInstallment = l.WeeklyInstallment
	}
	return t
}

// EndDate is the due date of the final installment
func (l *Loan) EndDate() time.Time {
	if len(l.Schedule) == 0 {
		return l.StartDate
	}
	return l.Schedule[len(l.Schedule)-1].DueDate
}

// EarliestUnpaid returns the first installment that is not settled, or nil.
// The schedule is ordered by sequence so ties on due date resolve to the lower sequence.
func (l *Loan) EarliestUnpaid() *Installment {
	for i := range l.Schedule {
		if !l.Schedule[i].IsSettled() {
			return &l.Schedule[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the loan
func (l *Loan) Clone() *Loan {
	c := *l
	c.Schedule = append([]Installment(nil), l.Schedule...)
	if l.LastPaymentDate != nil {
		d := *l.LastPaymentDate
		c.LastPaymentDate = &d
	}
	if l.LastEvaluatedOn != nil {
		d := *l.LastEvaluatedOn
		c.LastEvaluatedOn = &d
	}
	return &c
}

// Snapshot captures the audited loan fields
func (l *Loan) Snapshot() Snapshot {
	s := Snapshot{
		"status":               string(l.Status),
		"product":              string(l.Product),
		"principal":            l.Principal,
		"startDate":            l.StartDate.Format("2006-01-02"),
		"installmentAmount":    l.InstallmentAmount,
		"installments":         len(l.Schedule),
		"outstandingPrincipal": l.OutstandingPrincipal,
		"outstandingInterest":  l.OutstandingInterest,
		"totalOutstanding":     l.TotalOutstanding,
		"totalPaid":            l.TotalPaid,
		"penaltyPaid":          l.PenaltyPaid,
		"creditBalance":        l.CreditBalance,
		"daysInArrears":        l.DaysInArrears,
		"parBucket":            string(l.PARBucket),
	}
	var accrued int64
	for _, inst := range l.Schedule {
		accrued += inst.AccruedPenalty
	}
	s["accruedPenalty"] = accrued
	if l.LastPaymentDate != nil {
		s["lastPaymentDate"] = l.LastPaymentDate.Format("2006-01-02")
	}
	switch l.Product {
	case ProductCash:
		s["annualInterestRatePct"] = l.AnnualInterestRatePct.String()
		s["termMonths"] = l.TermMonths
	case ProductBike:
		s["salePrice"] = l.SalePrice
		s["deposit"] = l.Deposit
		s["weeklyInstallment"] = l.WeeklyInstallment
		s["weeksToPay"] = l.WeeksToPay
	}
	return s
}

// LoanFilter narrows loan listings
type LoanFilter struct {
	Status   *LoanStatus
	ClientID *uuid.UUID
	Limit    int
	Offset   int
}

// LoanRepository persists loan aggregates (loan row plus schedule rows)
type LoanRepository interface {
	// Create inserts the loan and its schedule and assigns the loan number
	Create(ctx context.Context, loan *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	// GetForUpdate loads the loan holding an exclusive row lock until the transaction ends
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)
	// Update writes the loan if its stored version equals loan.Version and bumps the version
	Update(ctx context.Context, loan *Loan) error
	List(ctx context.Context, filter LoanFilter) ([]*Loan, error)
	ListIDsByStatus(ctx context.Context, statuses ...LoanStatus) ([]uuid.UUID, error)
}
