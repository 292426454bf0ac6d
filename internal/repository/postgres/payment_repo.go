package postgres

import (
	"context"
	"errors"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// PaymentRepository implements domain.PaymentRepository using PostgreSQL.
// The payments table is append-only; a trigger rejects UPDATE and DELETE.
type PaymentRepository struct {
	db querier
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db querier) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, loan_id, kind, amount, method, payment_date, receipt_number,
	recorded_by, justification, created_at, reverses_payment_id, supersedes_payment_id`

// Create inserts the record. A reused receipt number or a second reversal of
// the same payment violates a unique constraint and yields ErrConflict.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.LoanID, string(p.Kind), p.Amount, string(p.Method), timeToPgDate(p.PaymentDate),
		stringPtrToPgText(p.ReceiptNumber), p.RecordedBy, p.Justification, p.CreatedAt,
		uuidPtrToPg(p.ReversesPaymentID), uuidPtrToPg(p.SupersedesPaymentID),
	)
	return mapError(err)
}

// GetByID retrieves a payment record by its ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRecord, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByReceipt retrieves the record carrying the receipt number
func (r *PaymentRepository) GetByReceipt(ctx context.Context, receiptNumber string) (*domain.PaymentRecord, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE receipt_number = $1`, receiptNumber)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg any) (*domain.PaymentRecord, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, mapError(err)
	}
	return p, nil
}

// ListByLoan returns every record of the loan, reversals included, in canonical order
func (r *PaymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.PaymentRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE loan_id = $1
		ORDER BY payment_date, created_at, id`, loanID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	records := []domain.PaymentRecord{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapError(err)
		}
		records = append(records, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

func scanPayment(row pgx.Row) (*domain.PaymentRecord, error) {
	var (
		p                    domain.PaymentRecord
		kind, method         string
		paymentDate          pgtype.Date
		receipt              pgtype.Text
		reverses, supersedes pgtype.UUID
	)
	err := row.Scan(&p.ID, &p.LoanID, &kind, &p.Amount, &method, &paymentDate, &receipt,
		&p.RecordedBy, &p.Justification, &p.CreatedAt, &reverses, &supersedes)
	if err != nil {
		return nil, err
	}

	p.Kind = domain.PaymentKind(kind)
	p.Method = domain.PaymentMethod(method)
	p.PaymentDate = pgDateToTime(paymentDate)
	p.ReceiptNumber = pgTextToStringPtr(receipt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.ReversesPaymentID = pgToUUIDPtr(reverses)
	p.SupersedesPaymentID = pgToUUIDPtr(supersedes)
	return &p, nil
}
