package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the money was received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodMTNMomo      PaymentMethod = "mtn_momo"
	PaymentMethodAirtelMoney  PaymentMethod = "airtel_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodDeposit      PaymentMethod = "deposit"
)

// IsValid checks if the method is recognized
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMTNMomo, PaymentMethodAirtelMoney,
		PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodDeposit:
		return true
	}
	return false
}

// PaymentKind distinguishes repayments from compensating reversal rows
type PaymentKind string

const (
	PaymentKindPayment  PaymentKind = "payment"
	PaymentKindReversal PaymentKind = "reversal"
)

// DepositJustification is attached to the synthetic deposit record of bike loans
const DepositJustification = "initial deposit"

// PaymentRecord is an append-only money movement on a loan. Records are never
// updated; a reversal is a second record pointing at the first.
type PaymentRecord struct {
	ID            uuid.UUID     `json:"id"`
	LoanID        uuid.UUID     `json:"loanId"`
	Kind          PaymentKind   `json:"kind"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	PaymentDate   time.Time     `json:"paymentDate"`
	ReceiptNumber *string       `json:"receiptNumber,omitempty"`
	RecordedBy    string        `json:"recordedBy"`
	Justification string        `json:"justification"`
	CreatedAt     time.Time     `json:"createdAt"`

	// set on reversal rows
	ReversesPaymentID *uuid.UUID `json:"reversesPaymentId,omitempty"`
	// set on the replacement row written by a payment edit
	SupersedesPaymentID *uuid.UUID `json:"supersedesPaymentId,omitempty"`
}

// IsDeposit reports whether this is the synthetic bike deposit
func (p PaymentRecord) IsDeposit() bool {
	return p.Kind == PaymentKindPayment && p.Method == PaymentMethodDeposit
}

// SameBody reports whether a retried submission carries the same payment
func (p PaymentRecord) SameBody(other PaymentRecord) bool {
	return p.LoanID == other.LoanID &&
		p.Amount == other.Amount &&
		p.Method == other.Method &&
		p.PaymentDate.Equal(other.PaymentDate)
}

// PaymentStatus is derived from the existence of a reversal row
type PaymentStatus string

const (
	PaymentStatusPosted   PaymentStatus = "posted"
	PaymentStatusReversed PaymentStatus = "reversed"
)

// ReversedSet returns the ids of payments that have a reversal row
func ReversedSet(records []PaymentRecord) map[uuid.UUID]bool {
	reversed := make(map[uuid.UUID]bool)
	for _, r := range records {
		if r.Kind == PaymentKindReversal && r.ReversesPaymentID != nil {
			reversed[*r.ReversesPaymentID] = true
		}
	}
	return reversed
}

// EffectivePayments filters out reversal rows and the payments they reverse,
// returning the rest in canonical order
func EffectivePayments(records []PaymentRecord) []PaymentRecord {
	reversed := ReversedSet(records)
	out := make([]PaymentRecord, 0, len(records))
	for _, r := range records {
		if r.Kind != PaymentKindPayment || reversed[r.ID] {
			continue
		}
		out = append(out, r)
	}
	SortCanonical(out)
	return out
}

// SortCanonical orders records by (payment_date, created_at, id)
func SortCanonical(records []PaymentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.PaymentDate.Equal(b.PaymentDate) {
			return a.PaymentDate.Before(b.PaymentDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// PaymentRepository persists payment records. There is no update or delete.
type PaymentRepository interface {
	// Create inserts the record; a duplicate receipt number yields ErrConflict
	Create(ctx context.Context, payment *PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PaymentRecord, error)
	GetByReceipt(ctx context.Context, receiptNumber string) (*PaymentRecord, error)
	// ListByLoan returns every record of the loan, reversals included, in canonical order
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]PaymentRecord, error)
}
