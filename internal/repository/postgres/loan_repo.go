package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL.
// A loan is stored as one loans row plus one loan_installments row per
// schedule entry.
type LoanRepository struct {
	db querier
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(db querier) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, loan_number, client_id, created_by, created_at, updated_at,
	product, principal, start_date, annual_interest_rate_pct, term_months,
	sale_price, deposit, weekly_installment, weeks_to_pay, installment_amount,
	status, last_payment_date, last_evaluated_on,
	outstanding_principal, outstanding_interest, total_outstanding, total_paid,
	deposit_paid, penalty_paid, credit_balance, days_in_arrears, par_bucket, version`

// Create inserts the loan and its schedule and assigns the loan number
func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('loan_number_seq')`).Scan(&seq); err != nil {
		return mapError(err)
	}
	loan.LoanNumber = fmt.Sprintf("LN-%d-%06d", util.DateOf(loan.CreatedAt).Year(), seq)
	loan.Version = 1

	rate, err := decimalToPgNumeric(loan.AnnualInterestRatePct)
	if err != nil {
		return fmt.Errorf("%w: interest rate: %v", domain.ErrInternalFailure, err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO loans (`+loanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		loan.ID, loan.LoanNumber, loan.ClientID, loan.CreatedBy, loan.CreatedAt, loan.UpdatedAt,
		string(loan.Product), loan.Principal, timeToPgDate(loan.StartDate), rate, loan.TermMonths,
		loan.SalePrice, loan.Deposit, loan.WeeklyInstallment, loan.WeeksToPay, loan.InstallmentAmount,
		string(loan.Status), timePtrToPgDate(loan.LastPaymentDate), timePtrToPgDate(loan.LastEvaluatedOn),
		loan.OutstandingPrincipal, loan.OutstandingInterest, loan.TotalOutstanding, loan.TotalPaid,
		loan.DepositPaid, loan.PenaltyPaid, loan.CreditBalance, loan.DaysInArrears, string(loan.PARBucket), loan.Version,
	)
	if err != nil {
		return mapError(err)
	}

	return r.insertSchedule(ctx, loan)
}

// GetByID loads the loan and its schedule
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

// GetForUpdate loads the loan holding a row lock until the transaction ends
func (r *LoanRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id)
}

func (r *LoanRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Loan, error) {
	loan, err := scanLoan(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, mapError(err)
	}

	loan.Schedule, err = r.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Update writes the loan when the stored version matches and bumps the version.
// The schedule is rewritten in full since an edit may change its length.
func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	rate, err := decimalToPgNumeric(loan.AnnualInterestRatePct)
	if err != nil {
		return fmt.Errorf("%w: interest rate: %v", domain.ErrInternalFailure, err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE loans SET
			updated_at = $3, product = $4, principal = $5, start_date = $6,
			annual_interest_rate_pct = $7, term_months = $8, sale_price = $9, deposit = $10,
			weekly_installment = $11, weeks_to_pay = $12, installment_amount = $13,
			status = $14, last_payment_date = $15, last_evaluated_on = $16,
			outstanding_principal = $17, outstanding_interest = $18, total_outstanding = $19,
			total_paid = $20, deposit_paid = $21, penalty_paid = $22, credit_balance = $23,
			days_in_arrears = $24, par_bucket = $25, version = version + 1
		WHERE id = $1 AND version = $2`,
		loan.ID, loan.Version,
		loan.UpdatedAt, string(loan.Product), loan.Principal, timeToPgDate(loan.StartDate),
		rate, loan.TermMonths, loan.SalePrice, loan.Deposit,
		loan.WeeklyInstallment, loan.WeeksToPay, loan.InstallmentAmount,
		string(loan.Status), timePtrToPgDate(loan.LastPaymentDate), timePtrToPgDate(loan.LastEvaluatedOn),
		loan.OutstandingPrincipal, loan.OutstandingInterest, loan.TotalOutstanding,
		loan.TotalPaid, loan.DepositPaid, loan.PenaltyPaid, loan.CreditBalance,
		loan.DaysInArrears, string(loan.PARBucket),
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, loan.ID).Scan(&exists); err != nil {
			return mapError(err)
		}
		if !exists {
			return domain.ErrLoanNotFound
		}
		return domain.ErrStaleLoan
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM loan_installments WHERE loan_id = $1`, loan.ID); err != nil {
		return mapError(err)
	}
	if err := r.insertSchedule(ctx, loan); err != nil {
		return err
	}

	loan.Version++
	return nil
}

// List returns loans ordered by loan number
func (r *LoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}

	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY loan_number`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	loans := []*domain.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, mapError(err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for _, loan := range loans {
		if loan.Schedule, err = r.loadSchedule(ctx, loan.ID); err != nil {
			return nil, err
		}
	}
	return loans, nil
}

// ListIDsByStatus returns the ids of loans in any of the given statuses
func (r *LoanRepository) ListIDsByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]uuid.UUID, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.db.Query(ctx, `SELECT id FROM loans WHERE status = ANY($1) ORDER BY id`, names)
	if err != nil {
		return nil, mapError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, mapError(err)
	}
	return ids, nil
}

func (r *LoanRepository) insertSchedule(ctx context.Context, loan *domain.Loan) error {
	if len(loan.Schedule) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, inst := range loan.Schedule {
		batch.Queue(`
			INSERT INTO loan_installments (loan_id, sequence, due_date, principal_amount, interest_amount,
				total_amount, paid_amount, accrued_penalty, penalty_paid, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			loan.ID, inst.Sequence, timeToPgDate(inst.DueDate), inst.PrincipalAmount, inst.InterestAmount,
			inst.TotalAmount, inst.PaidAmount, inst.AccruedPenalty, inst.PenaltyPaid, string(inst.Status),
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range loan.Schedule {
		if _, err := br.Exec(); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *LoanRepository) loadSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT sequence, due_date, principal_amount, interest_amount, total_amount,
			paid_amount, accrued_penalty, penalty_paid, status
		FROM loan_installments
		WHERE loan_id = $1
		ORDER BY sequence`, loanID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	schedule := []domain.Installment{}
	for rows.Next() {
		var (
			inst    domain.Installment
			dueDate pgtype.Date
			status  string
		)
		if err := rows.Scan(&inst.Sequence, &dueDate, &inst.PrincipalAmount, &inst.InterestAmount,
			&inst.TotalAmount, &inst.PaidAmount, &inst.AccruedPenalty, &inst.PenaltyPaid, &status); err != nil {
			return nil, mapError(err)
		}
		inst.DueDate = pgDateToTime(dueDate)
		inst.Status = domain.InstallmentStatus(status)
		schedule = append(schedule, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return schedule, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		loan                       domain.Loan
		product, status, parBucket string
		startDate                  pgtype.Date
		lastPayment, lastEvaluated pgtype.Date
		rate                       pgtype.Numeric
	)
	err := row.Scan(
		&loan.ID, &loan.LoanNumber, &loan.ClientID, &loan.CreatedBy, &loan.CreatedAt, &loan.UpdatedAt,
		&product, &loan.Principal, &startDate, &rate, &loan.TermMonths,
		&loan.SalePrice, &loan.Deposit, &loan.WeeklyInstallment, &loan.WeeksToPay, &loan.InstallmentAmount,
		&status, &lastPayment, &lastEvaluated,
		&loan.OutstandingPrincipal, &loan.OutstandingInterest, &loan.TotalOutstanding, &loan.TotalPaid,
		&loan.DepositPaid, &loan.PenaltyPaid, &loan.CreditBalance, &loan.DaysInArrears, &parBucket, &loan.Version,
	)
	if err != nil {
		return nil, err
	}

	loan.Product = domain.Product(product)
	loan.Status = domain.LoanStatus(status)
	loan.PARBucket = domain.PARBucket(parBucket)
	loan.StartDate = pgDateToTime(startDate)
	loan.AnnualInterestRatePct = pgNumericToDecimal(rate)
	loan.LastPaymentDate = pgDateToTimePtr(lastPayment)
	loan.LastEvaluatedOn = pgDateToTimePtr(lastEvaluated)
	loan.CreatedAt = loan.CreatedAt.UTC()
	loan.UpdatedAt = loan.UpdatedAt.UTC()
	return &loan, nil
}
