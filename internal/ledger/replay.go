package ledger

import (
	"fmt"

	"github.com/bingovintage/loan-engine/internal/domain"
)

// Replay rebuilds the loan from its terms and re-applies every payment that has
// not been reversed, in canonical order, then evaluates at the loan's last
// evaluation date. The result carries the identity and version of the input
// loan; the input is not modified.
func Replay(loan *domain.Loan, records []domain.PaymentRecord) (*domain.Loan, error) {
	rebuilt, err := NewLoan(loan.Terms())
	if err != nil {
		return nil, err
	}

	rebuilt.ID = loan.ID
	rebuilt.LoanNumber = loan.LoanNumber
	rebuilt.ClientID = loan.ClientID
	rebuilt.CreatedBy = loan.CreatedBy
	rebuilt.CreatedAt = loan.CreatedAt
	rebuilt.UpdatedAt = loan.UpdatedAt
	rebuilt.Version = loan.Version

	servicing := loan.Status.IsServicing()
	if servicing {
		rebuilt.Status = domain.LoanStatusActive
	} else {
		rebuilt.Status = loan.Status
	}

	for _, p := range domain.EffectivePayments(records) {
		if p.IsDeposit() {
			if _, err := applyDeposit(rebuilt, p); err != nil {
				return nil, err
			}
			continue
		}
		if !servicing {
			return nil, fmt.Errorf("%w: loan %s is %s but has repayment %s",
				domain.ErrInternalFailure, loan.ID, loan.Status, p.ID)
		}
		if _, err := apply(rebuilt, p); err != nil {
			return nil, err
		}
	}

	if servicing && loan.LastEvaluatedOn != nil {
		Evaluate(rebuilt, *loan.LastEvaluatedOn)
	}
	return rebuilt, nil
}
