package ledger

import (
	"fmt"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
)

// PaymentHorizonYears bounds how far after the final due date a payment may be dated
const PaymentHorizonYears = 10

// Allocation is the part of a payment that landed on one installment
type Allocation struct {
	Sequence int   `json:"sequence"`
	Penalty  int64 `json:"penalty"`
	Amount   int64 `json:"amount"`
}

// Result describes what applying a payment did to the loan
type Result struct {
	Allocations       []Allocation `json:"allocations"`
	OutstandingBefore int64        `json:"outstandingBefore"`
	Applied           int64        `json:"applied"`
	Overpayment       int64        `json:"overpayment"`
	Accruals          []Accrual    `json:"accruals,omitempty"`
	Completed         bool         `json:"completed"`
}

// ValidatePayment checks a repayment against the loan it targets
func ValidatePayment(loan *domain.Loan, p domain.PaymentRecord) error {
	if p.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidPayment)
	}
	if p.Amount > domain.MaxAmount {
		return fmt.Errorf("%w: amount exceeds %d", domain.ErrInvalidPayment, domain.MaxAmount)
	}
	if !p.Method.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidPayment, p.Method)
	}
	if p.PaymentDate.IsZero() {
		return fmt.Errorf("%w: payment date is required", domain.ErrInvalidPayment)
	}
	date := util.DateOf(p.PaymentDate)
	if date.Before(loan.StartDate) {
		return fmt.Errorf("%w: payment dated %s is before the loan start %s",
			domain.ErrInvalidPayment, util.FormatDate(date), util.FormatDate(loan.StartDate))
	}
	if limit := loan.EndDate().AddDate(PaymentHorizonYears, 0, 0); date.After(limit) {
		return fmt.Errorf("%w: payment dated %s is more than %d years after the loan end",
			domain.ErrInvalidPayment, util.FormatDate(date), PaymentHorizonYears)
	}
	return nil
}

// Apply posts a payment record against the loan in place. Deposits only
// credit the deposit balance; repayments require a loan that accepts payments.
func Apply(loan *domain.Loan, p domain.PaymentRecord) (*Result, error) {
	if p.IsDeposit() {
		return applyDeposit(loan, p)
	}
	if !loan.Status.AcceptsPayments() {
		return nil, fmt.Errorf("%w: loan is %s and does not accept payments", domain.ErrIllegalTransition, loan.Status)
	}
	return apply(loan, p)
}

func applyDeposit(loan *domain.Loan, p domain.PaymentRecord) (*Result, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: deposit must be positive", domain.ErrInvalidPayment)
	}
	loan.DepositPaid += p.Amount
	Recalculate(loan)
	return &Result{Applied: p.Amount}, nil
}

// apply runs the allocation algorithm: evaluate at the payment date, then pay
// installments oldest first, penalty before principal and interest within each
func apply(loan *domain.Loan, p domain.PaymentRecord) (*Result, error) {
	if err := ValidatePayment(loan, p); err != nil {
		return nil, err
	}
	date := util.DateOf(p.PaymentDate)

	res := &Result{}
	if ev := Evaluate(loan, date); ev.Accrual != nil {
		res.Accruals = append(res.Accruals, *ev.Accrual)
	}
	res.OutstandingBefore = loan.TotalOutstanding

	remaining := p.Amount
	for i := range loan.Schedule {
		if remaining == 0 {
			break
		}
		inst := &loan.Schedule[i]
		if inst.IsSettled() {
			continue
		}

		toPenalty := min(remaining, inst.AccruedPenalty-inst.PenaltyPaid)
		inst.PenaltyPaid += toPenalty
		remaining -= toPenalty

		toBase := min(remaining, inst.TotalAmount-inst.PaidAmount)
		inst.PaidAmount += toBase
		remaining -= toBase

		if toPenalty+toBase == 0 {
			continue
		}
		if inst.IsSettled() {
			inst.Status = domain.InstallmentPaid
		} else {
			inst.Status = domain.InstallmentPartial
		}
		res.Allocations = append(res.Allocations, Allocation{
			Sequence: inst.Sequence,
			Penalty:  toPenalty,
			Amount:   toBase,
		})
	}

	res.Applied = p.Amount - remaining
	res.Overpayment = remaining
	loan.CreditBalance += remaining

	last := date
	if loan.LastPaymentDate != nil {
		last = util.MaxDate(*loan.LastPaymentDate, date)
	}
	loan.LastPaymentDate = &last

	Recalculate(loan)
	if loan.TotalOutstanding == 0 && loan.Status.IsServicing() {
		loan.Status = domain.LoanStatusCompleted
	}

	// the ledger may have advanced onto an installment that is already past grace
	if ev := Evaluate(loan, date); ev.Accrual != nil {
		res.Accruals = append(res.Accruals, *ev.Accrual)
	}
	res.Completed = loan.Status == domain.LoanStatusCompleted
	return res, nil
}

// Recalculate refreshes the derived totals from the schedule. Paid amounts are
// attributed to interest before principal within an installment.
func Recalculate(loan *domain.Loan) {
	var principalOut, interestOut, penaltyOut, paid, penaltyPaid int64
	for _, inst := range loan.Schedule {
		interestPaid := min(inst.PaidAmount, inst.InterestAmount)
		principalOut += inst.PrincipalAmount - (inst.PaidAmount - interestPaid)
		interestOut += inst.InterestAmount - interestPaid
		penaltyOut += inst.AccruedPenalty - inst.PenaltyPaid
		paid += inst.PaidAmount
		penaltyPaid += inst.PenaltyPaid
	}

	loan.OutstandingPrincipal = principalOut
	loan.OutstandingInterest = interestOut
	loan.TotalOutstanding = principalOut + interestOut + penaltyOut
	loan.TotalPaid = paid + loan.DepositPaid
	loan.PenaltyPaid = penaltyPaid
}
