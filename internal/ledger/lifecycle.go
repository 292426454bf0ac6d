package ledger

import (
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/shopspring/decimal"
)

// GraceDays is how long an installment may be overdue before the loan turns delinquent
const GraceDays = 7

var (
	penaltyRate   = decimal.NewFromFloat(0.02)
	weeksPerMonth = decimal.NewFromFloat(4.33)
)

// Accrual records a late-fee penalty added to an installment
type Accrual struct {
	Sequence int       `json:"sequence"`
	Amount   int64     `json:"amount"`
	On       time.Time `json:"on"`
}

// Evaluation is the outcome of one lifecycle evaluation
type Evaluation struct {
	On             time.Time         `json:"on"`
	PreviousStatus domain.LoanStatus `json:"previousStatus"`
	Status         domain.LoanStatus `json:"status"`
	DaysInArrears  int               `json:"daysInArrears"`
	PARBucket      domain.PARBucket  `json:"parBucket"`
	Accrual        *Accrual          `json:"accrual,omitempty"`
}

// StatusChanged reports whether the evaluation moved the lifecycle status
func (e Evaluation) StatusChanged() bool {
	return e.PreviousStatus != e.Status
}

// PenaltyFor is the flat late fee of the loan: 2% of the weekly installment,
// with cash loans converted to a weekly equivalent of the monthly installment
func PenaltyFor(loan *domain.Loan) int64 {
	base := decimal.NewFromInt(loan.InstallmentAmount).Mul(penaltyRate)
	if loan.Product == domain.ProductCash {
		base = base.DivRound(weeksPerMonth, ratePrecision)
	}
	return toShillings(base)
}

// Evaluate derives days in arrears and lifecycle status as of the given date
// and accrues at most one penalty on the earliest unpaid installment. A loan
// never evaluates backwards: dates before the last evaluation are treated as
// that date. Loans outside servicing are left untouched, except defaulted
// loans which keep their arrears figures current for reporting.
func Evaluate(loan *domain.Loan, on time.Time) Evaluation {
	date := util.DateOf(on)
	if loan.LastEvaluatedOn != nil && date.Before(*loan.LastEvaluatedOn) {
		date = *loan.LastEvaluatedOn
	}

	ev := Evaluation{
		On:             date,
		PreviousStatus: loan.Status,
		Status:         loan.Status,
		DaysInArrears:  loan.DaysInArrears,
		PARBucket:      loan.PARBucket,
	}
	if !loan.Status.IsServicing() && loan.Status != domain.LoanStatusDefaulted {
		return ev
	}

	refreshInstallmentStatuses(loan, date)

	days := 0
	earliest := loan.EarliestUnpaid()
	if earliest != nil {
		if d := util.DaysBetween(earliest.DueDate, date); d > 0 {
			days = d
		}
	}
	loan.DaysInArrears = days
	loan.PARBucket = domain.PARBucketFor(days)
	loan.LastEvaluatedOn = &date

	if loan.Status != domain.LoanStatusDefaulted {
		switch {
		case earliest == nil:
			loan.Status = domain.LoanStatusCompleted
		case days <= GraceDays:
			loan.Status = domain.LoanStatusActive
		default:
			loan.Status = domain.LoanStatusDelinquent
			if earliest.AccruedPenalty == 0 {
				if amount := PenaltyFor(loan); amount > 0 {
					earliest.AccruedPenalty = amount
					ev.Accrual = &Accrual{Sequence: earliest.Sequence, Amount: amount, On: date}
				}
			}
		}
	}

	Recalculate(loan)

	ev.Status = loan.Status
	ev.DaysInArrears = loan.DaysInArrears
	ev.PARBucket = loan.PARBucket
	return ev
}

// refreshInstallmentStatuses marks installments that are past due and have
// received nothing as overdue. Partially paid installments stay partial.
func refreshInstallmentStatuses(loan *domain.Loan, date time.Time) {
	for i := range loan.Schedule {
		inst := &loan.Schedule[i]
		switch {
		case inst.IsSettled():
			inst.Status = domain.InstallmentPaid
		case inst.PaidAmount+inst.PenaltyPaid == 0 && inst.DueDate.Before(date):
			inst.Status = domain.InstallmentOverdue
		}
	}
}
