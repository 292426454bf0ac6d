package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/ledger"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/bingovintage/loan-engine/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PostPaymentInput is a repayment as submitted by a cashier
type PostPaymentInput struct {
	Amount        int64
	Method        domain.PaymentMethod
	PaymentDate   time.Time
	ReceiptNumber string
	Justification string
}

// PostPaymentResult describes the outcome of a posted payment
type PostPaymentResult struct {
	Payment     domain.PaymentRecord `json:"payment"`
	Loan        *domain.Loan         `json:"loan"`
	Allocations []ledger.Allocation  `json:"allocations"`
	Overpayment int64                `json:"overpayment"`
	Completed   bool                 `json:"completed"`
	// Duplicate is true when a retried submission matched an existing receipt
	Duplicate bool `json:"duplicate"`
	// Replayed is true when the payment was dated before the loan's last
	// evaluation and the ledger was rebuilt from history
	Replayed bool `json:"replayed"`
}

// EditPaymentInput carries the corrected values of a payment
type EditPaymentInput struct {
	Amount        int64
	Method        domain.PaymentMethod
	PaymentDate   time.Time
	Justification string
}

// PaymentView is a payment record with its derived status
type PaymentView struct {
	domain.PaymentRecord
	Status domain.PaymentStatus `json:"status"`
}

// PaymentService posts, reverses and corrects repayments
type PaymentService struct {
	store          domain.Store
	gate           *Gate
	locks          *LoanLocks
	eventPublisher websocket.EventPublisher
	logger         zerolog.Logger
	now            func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(store domain.Store, gate *Gate, locks *LoanLocks, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		store:  store,
		gate:   gate,
		locks:  locks,
		logger: logger.With().Str("component", "payment_service").Logger(),
		now:    time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source used for record timestamps
func (s *PaymentService) SetClock(now func() time.Time) {
	s.now = now
}

// PostPayment records a repayment and allocates it across the schedule.
// Submissions carrying a receipt number already on file return the existing
// record when the body matches and ErrReceiptReused otherwise.
func (s *PaymentService) PostPayment(ctx context.Context, actor domain.Actor, loanID uuid.UUID, in PostPaymentInput) (*PostPaymentResult, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpPostPayment,
		Justification: in.Justification,
		EntityType:    domain.EntityPayment,
		LoanID:        &loanID,
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}
	if in.Method == domain.PaymentMethodDeposit {
		return nil, fmt.Errorf("%w: deposits are recorded at origination", domain.ErrInvalidPayment)
	}

	release, err := s.locks.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now().UTC()
	record := domain.PaymentRecord{
		ID:            uuid.New(),
		LoanID:        loanID,
		Kind:          domain.PaymentKindPayment,
		Amount:        in.Amount,
		Method:        in.Method,
		RecordedBy:    actor.ID,
		Justification: strings.TrimSpace(in.Justification),
		CreatedAt:     now,
	}
	if !in.PaymentDate.IsZero() {
		record.PaymentDate = util.DateOf(in.PaymentDate)
	}
	if receipt := strings.TrimSpace(in.ReceiptNumber); receipt != "" {
		record.ReceiptNumber = &receipt
	}
	req.EntityID = record.ID

	result := &PostPaymentResult{Payment: record}
	var statusBefore domain.LoanStatus
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if record.ReceiptNumber != nil {
			existing, err := tx.Payments().GetByReceipt(ctx, *record.ReceiptNumber)
			switch {
			case err == nil:
				if existing.Kind != domain.PaymentKindPayment || !existing.SameBody(record) {
					return fmt.Errorf("%w: %s", domain.ErrReceiptReused, *record.ReceiptNumber)
				}
				loan, err := tx.Loans().GetByID(ctx, loanID)
				if err != nil {
					return err
				}
				result.Payment = *existing
				result.Loan = loan
				result.Duplicate = true
				return nil
			case !errors.Is(err, domain.ErrPaymentNotFound):
				return err
			}
		}

		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.AcceptsPayments() {
			return fmt.Errorf("%w: loan is %s and does not accept payments", domain.ErrIllegalTransition, loan.Status)
		}
		if err := ledger.ValidatePayment(loan, record); err != nil {
			return err
		}

		statusBefore = loan.Status
		before := loan.Snapshot()
		updated, err := s.post(ctx, tx, loan, record, result)
		if err != nil {
			return err
		}
		updated.UpdatedAt = now

		if err := tx.Loans().Update(ctx, updated); err != nil {
			return err
		}
		if err := tx.Payments().Create(ctx, &record); err != nil {
			return err
		}
		result.Loan = updated

		b, a := domain.ChangedFields(before, updated.Snapshot())
		a["payment"] = paymentSnapshot(record)
		a["overpayment"] = result.Overpayment
		return s.gate.Record(ctx, tx, req, domain.AuditPaymentPosted, b, a)
	})
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		s.logger.Info().
			Str("loan_id", loanID.String()).
			Str("payment_id", result.Payment.ID.String()).
			Msg("Duplicate payment submission returned existing record")
		return result, nil
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("payment_id", record.ID.String()).
		Str("actor_id", actor.ID).
		Int64("amount", record.Amount).
		Str("method", string(record.Method)).
		Bool("replayed", result.Replayed).
		Msg("Payment posted")

	websocket.PublishLoanEvent(s.eventPublisher, loanID, websocket.LoanPaymentPosted(result))
	if result.Loan.Status != statusBefore {
		websocket.PublishLoanEvent(s.eventPublisher, loanID, websocket.LoanStatusChanged(map[string]any{
			"loanId": loanID,
			"from":   statusBefore,
			"to":     result.Loan.Status,
			"loan":   result.Loan,
		}))
	}
	return result, nil
}

// post applies the record to the loan. Payments dated on or after the last
// evaluation are applied incrementally; older ones rebuild the ledger from
// history so the result is the same as if they had arrived in order.
func (s *PaymentService) post(ctx context.Context, tx domain.Repositories, loan *domain.Loan, record domain.PaymentRecord, result *PostPaymentResult) (*domain.Loan, error) {
	result.Payment = record
	if loan.LastEvaluatedOn == nil || !record.PaymentDate.Before(*loan.LastEvaluatedOn) {
		res, err := ledger.Apply(loan, record)
		if err != nil {
			return nil, err
		}
		result.Allocations = res.Allocations
		result.Overpayment = res.Overpayment
		result.Completed = res.Completed
		return loan, nil
	}

	history, err := tx.Payments().ListByLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	rebuilt, err := ledger.Replay(loan, append(history, record))
	if err != nil {
		return nil, err
	}
	result.Replayed = true
	result.Overpayment = max(rebuilt.CreditBalance-loan.CreditBalance, 0)
	result.Completed = rebuilt.Status == domain.LoanStatusCompleted
	return rebuilt, nil
}

// ReversePayment writes a compensating row for a payment and rebuilds the
// loan from the remaining history
func (s *PaymentService) ReversePayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, justification string) (*domain.Loan, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpReversePayment,
		Justification: justification,
		EntityType:    domain.EntityPayment,
		EntityID:      paymentID,
	}
	// best effort so that a denial is still attached to the loan's trail
	original, lookupErr := s.store.Payments().GetByID(ctx, paymentID)
	if lookupErr == nil {
		req.LoanID = &original.LoanID
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	if original.Kind != domain.PaymentKindPayment || original.IsDeposit() {
		return nil, fmt.Errorf("%w: only repayments can be reversed", domain.ErrInvalidPayment)
	}

	loanID := original.LoanID
	release, err := s.locks.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		rebuilt      *domain.Loan
		statusBefore domain.LoanStatus
		reversal     domain.PaymentRecord
	)
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		history, err := tx.Payments().ListByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if domain.ReversedSet(history)[paymentID] {
			return domain.ErrAlreadyReversed
		}
		if !loan.Status.IsServicing() {
			return fmt.Errorf("%w: loan is %s", domain.ErrIllegalTransition, loan.Status)
		}

		now := s.now().UTC()
		reversal = reversalRecord(*original, actor.ID, justification, now)
		rebuilt, err = ledger.Replay(loan, append(history, reversal))
		if err != nil {
			return err
		}
		rebuilt.UpdatedAt = now

		if err := tx.Payments().Create(ctx, &reversal); err != nil {
			return err
		}
		if err := tx.Loans().Update(ctx, rebuilt); err != nil {
			return err
		}
		statusBefore = loan.Status

		b, a := domain.ChangedFields(loan.Snapshot(), rebuilt.Snapshot())
		a["reversal"] = paymentSnapshot(reversal)
		return s.gate.Record(ctx, tx, req, domain.AuditPaymentReversed, b, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("payment_id", paymentID.String()).
		Str("actor_id", actor.ID).
		Msg("Payment reversed")

	websocket.PublishLoanEvent(s.eventPublisher, loanID, websocket.LoanPaymentReversed(map[string]any{
		"loanId":    loanID,
		"paymentId": paymentID,
		"reversal":  reversal,
		"loan":      rebuilt,
	}))
	if rebuilt.Status != statusBefore {
		websocket.PublishLoanEvent(s.eventPublisher, loanID, websocket.LoanStatusChanged(map[string]any{
			"loanId": loanID,
			"from":   statusBefore,
			"to":     rebuilt.Status,
			"loan":   rebuilt,
		}))
	}
	return rebuilt, nil
}

// EditPayment corrects a payment append-only: the original is reversed and a
// replacement row pointing at it is written, then the loan is rebuilt
func (s *PaymentService) EditPayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID, in EditPaymentInput) (*PostPaymentResult, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpEditPayment,
		Justification: in.Justification,
		EntityType:    domain.EntityPayment,
		EntityID:      paymentID,
	}
	original, lookupErr := s.store.Payments().GetByID(ctx, paymentID)
	if lookupErr == nil {
		req.LoanID = &original.LoanID
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	if original.Kind != domain.PaymentKindPayment || original.IsDeposit() {
		return nil, fmt.Errorf("%w: only repayments can be edited", domain.ErrInvalidPayment)
	}
	if in.Method == domain.PaymentMethodDeposit {
		return nil, fmt.Errorf("%w: deposits are recorded at origination", domain.ErrInvalidPayment)
	}

	loanID := original.LoanID
	release, err := s.locks.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &PostPaymentResult{Replayed: true}
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		history, err := tx.Payments().ListByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if domain.ReversedSet(history)[paymentID] {
			return domain.ErrAlreadyReversed
		}
		if !loan.Status.IsServicing() {
			return fmt.Errorf("%w: loan is %s", domain.ErrIllegalTransition, loan.Status)
		}

		now := s.now().UTC()
		replacement := domain.PaymentRecord{
			ID:                  uuid.New(),
			LoanID:              loanID,
			Kind:                domain.PaymentKindPayment,
			Amount:              in.Amount,
			Method:              in.Method,
			PaymentDate:         util.DateOf(in.PaymentDate),
			RecordedBy:          actor.ID,
			Justification:       strings.TrimSpace(in.Justification),
			CreatedAt:           now,
			SupersedesPaymentID: &original.ID,
		}
		if in.PaymentDate.IsZero() {
			replacement.PaymentDate = original.PaymentDate
		}
		if err := ledger.ValidatePayment(loan, replacement); err != nil {
			return err
		}

		reversal := reversalRecord(*original, actor.ID, in.Justification, now)
		rebuilt, err := ledger.Replay(loan, append(history, reversal, replacement))
		if err != nil {
			return err
		}
		rebuilt.UpdatedAt = now

		if err := tx.Payments().Create(ctx, &reversal); err != nil {
			return err
		}
		if err := tx.Payments().Create(ctx, &replacement); err != nil {
			return err
		}
		if err := tx.Loans().Update(ctx, rebuilt); err != nil {
			return err
		}

		result.Payment = replacement
		result.Loan = rebuilt
		result.Overpayment = max(rebuilt.CreditBalance-loan.CreditBalance, 0)
		result.Completed = rebuilt.Status == domain.LoanStatusCompleted

		b, a := domain.ChangedFields(loan.Snapshot(), rebuilt.Snapshot())
		b["payment"] = paymentSnapshot(*original)
		a["payment"] = paymentSnapshot(replacement)
		return s.gate.Record(ctx, tx, req, domain.AuditPaymentEdited, b, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("payment_id", paymentID.String()).
		Str("replacement_id", result.Payment.ID.String()).
		Str("actor_id", actor.ID).
		Msg("Payment edited")

	websocket.PublishLoanEvent(s.eventPublisher, loanID, websocket.LoanPaymentPosted(result))
	return result, nil
}

// ListPayments returns every record of the loan in canonical order with its derived status
func (s *PaymentService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]PaymentView, error) {
	if _, err := s.store.Loans().GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	records, err := s.store.Payments().ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	reversed := domain.ReversedSet(records)
	views := make([]PaymentView, 0, len(records))
	for _, r := range records {
		status := domain.PaymentStatusPosted
		if reversed[r.ID] {
			status = domain.PaymentStatusReversed
		}
		views = append(views, PaymentView{PaymentRecord: r, Status: status})
	}
	return views, nil
}

// GetPayment retrieves one payment record
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.PaymentRecord, error) {
	return s.store.Payments().GetByID(ctx, paymentID)
}

func paymentSnapshot(p domain.PaymentRecord) map[string]any {
	s := map[string]any{
		"id":          p.ID.String(),
		"kind":        string(p.Kind),
		"amount":      p.Amount,
		"method":      string(p.Method),
		"paymentDate": util.FormatDate(p.PaymentDate),
	}
	if p.ReceiptNumber != nil {
		s["receiptNumber"] = *p.ReceiptNumber
	}
	return s
}
