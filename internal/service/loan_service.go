package service

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/ledger"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/bingovintage/loan-engine/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// legalTransitions lists the lifecycle moves a caller may request. Moves
// between active, delinquent and completed belong to the engine.
var legalTransitions = map[domain.LoanStatus][]domain.LoanStatus{
	domain.LoanStatusDraft:      {domain.LoanStatusPending, domain.LoanStatusCancelled},
	domain.LoanStatusPending:    {domain.LoanStatusApproved, domain.LoanStatusCancelled},
	domain.LoanStatusApproved:   {domain.LoanStatusDisbursed, domain.LoanStatusCancelled},
	domain.LoanStatusDisbursed:  {domain.LoanStatusActive},
	domain.LoanStatusActive:     {domain.LoanStatusDefaulted},
	domain.LoanStatusDelinquent: {domain.LoanStatusDefaulted},
}

// CanTransition reports whether a caller may move a loan from one status to another
func CanTransition(from, to domain.LoanStatus) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateLoanInput is the draft submitted for origination
type CreateLoanInput struct {
	ClientID      uuid.UUID
	Terms         domain.LoanTerms
	Justification string
}

// EvaluationResult is the outcome of evaluate_loan
type EvaluationResult struct {
	Loan       *domain.Loan      `json:"loan"`
	Evaluation ledger.Evaluation `json:"evaluation"`
	// Changed is true when the evaluation moved the status or accrued a penalty
	Changed bool `json:"changed"`
}

// LoanService handles loan origination, lifecycle transitions and evaluation
type LoanService struct {
	store          domain.Store
	gate           *Gate
	locks          *LoanLocks
	eventPublisher websocket.EventPublisher
	logger         zerolog.Logger
	now            func() time.Time
}

// NewLoanService creates a new LoanService
func NewLoanService(store domain.Store, gate *Gate, locks *LoanLocks, logger zerolog.Logger) *LoanService {
	return &LoanService{
		store:  store,
		gate:   gate,
		locks:  locks,
		logger: logger.With().Str("component", "loan_service").Logger(),
		now:    time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source used for record timestamps and "today"
func (s *LoanService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *LoanService) publish(loanID uuid.UUID, event websocket.Event) {
	websocket.PublishLoanEvent(s.eventPublisher, loanID, event)
}

// CreateLoan originates a draft loan with its schedule. Bike deposits are
// recorded as a synthetic payment in the same unit of work.
func (s *LoanService) CreateLoan(ctx context.Context, actor domain.Actor, in CreateLoanInput) (*domain.Loan, error) {
	req := Request{
		Actor:          actor,
		Operation:      OpCreateLoan,
		Justification:  in.Justification,
		EntityType:     domain.EntityLoan,
		FinancedAmount: in.Terms.FinancedAmount(),
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}

	loan, err := ledger.NewLoan(in.Terms)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	loan.ID = uuid.New()
	loan.ClientID = in.ClientID
	loan.CreatedBy = actor.ID
	loan.CreatedAt = now
	loan.UpdatedAt = now
	req.EntityID = loan.ID
	req.LoanID = &loan.ID

	deposit := ledger.DepositRecord(loan, actor.ID, now)
	if deposit != nil {
		deposit.ID = uuid.New()
		if _, err := ledger.Apply(loan, *deposit); err != nil {
			return nil, err
		}
	}

	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if _, err := tx.Clients().GetByID(ctx, in.ClientID); err != nil {
			return err
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return err
		}
		if deposit != nil {
			if err := tx.Payments().Create(ctx, deposit); err != nil {
				return err
			}
		}
		after := loan.Snapshot()
		after["loanNumber"] = loan.LoanNumber
		after["clientId"] = loan.ClientID.String()
		return s.gate.Record(ctx, tx, req, domain.AuditLoanCreated, nil, after)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loan.ID.String()).
		Str("loan_number", loan.LoanNumber).
		Str("actor_id", actor.ID).
		Str("product", string(loan.Product)).
		Int64("principal", loan.Principal).
		Msg("Loan created")

	s.publish(loan.ID, websocket.LoanCreated(loan))
	return loan, nil
}

// TransitionLoan moves a loan along its lifecycle on a caller's request
func (s *LoanService) TransitionLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, target domain.LoanStatus, justification string) (*domain.Loan, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpTransitionLoan,
		Justification: justification,
		EntityType:    domain.EntityLoan,
		EntityID:      loanID,
		LoanID:        &loanID,
		Target:        target,
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		loan *domain.Loan
		from domain.LoanStatus
	)
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		loan, err = tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		from = loan.Status
		if !target.IsValid() || !CanTransition(from, target) {
			return fmt.Errorf("%w: cannot move loan from %s to %q", domain.ErrIllegalTransition, from, target)
		}

		before := loan.Snapshot()
		loan.Status = target
		loan.UpdatedAt = s.now().UTC()
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return err
		}
		b, a := domain.ChangedFields(before, loan.Snapshot())
		return s.gate.Record(ctx, tx, req, domain.AuditStatusChanged, b, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("actor_id", actor.ID).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("Loan status changed")

	s.publish(loanID, websocket.LoanStatusChanged(map[string]any{
		"loanId": loanID,
		"from":   from,
		"to":     target,
		"loan":   loan,
	}))
	return loan, nil
}

// EditLoanInput carries replacement terms for a loan that has not been approved yet
type EditLoanInput struct {
	Terms         domain.LoanTerms
	Justification string
}

// EditLoan re-terms a draft or pending loan and rebuilds its schedule. A changed
// bike deposit is handled append-only: the old deposit record is reversed and a
// new one written.
func (s *LoanService) EditLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, in EditLoanInput) (*domain.Loan, error) {
	req := Request{
		Actor:          actor,
		Operation:      OpEditLoan,
		Justification:  in.Justification,
		EntityType:     domain.EntityLoan,
		EntityID:       loanID,
		LoanID:         &loanID,
		FinancedAmount: in.Terms.FinancedAmount(),
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	var edited *domain.Loan
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.Status.IsEditable() {
			return fmt.Errorf("%w: loan terms are fixed once the loan is %s", domain.ErrIllegalTransition, loan.Status)
		}

		edited, err = ledger.NewLoan(in.Terms)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		edited.ID = loan.ID
		edited.LoanNumber = loan.LoanNumber
		edited.ClientID = loan.ClientID
		edited.CreatedBy = loan.CreatedBy
		edited.CreatedAt = loan.CreatedAt
		edited.UpdatedAt = now
		edited.Version = loan.Version
		edited.Status = loan.Status

		if err := s.carryDeposit(ctx, tx, actor, req.Justification, loan, edited, now); err != nil {
			return err
		}
		if err := tx.Loans().Update(ctx, edited); err != nil {
			return err
		}
		b, a := domain.ChangedFields(loan.Snapshot(), edited.Snapshot())
		return s.gate.Record(ctx, tx, req, domain.AuditLoanEdited, b, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("actor_id", actor.ID).
		Msg("Loan edited")

	return edited, nil
}

// carryDeposit keeps the deposit record in line with the edited terms
func (s *LoanService) carryDeposit(ctx context.Context, tx domain.Repositories, actor domain.Actor, justification string, old, edited *domain.Loan, now time.Time) error {
	records, err := tx.Payments().ListByLoan(ctx, old.ID)
	if err != nil {
		return err
	}
	var deposits []domain.PaymentRecord
	for _, p := range domain.EffectivePayments(records) {
		if p.IsDeposit() {
			deposits = append(deposits, p)
		}
	}

	wanted := ledger.DepositRecord(edited, actor.ID, now)
	if wanted != nil && len(deposits) == 1 && deposits[0].Amount == wanted.Amount && deposits[0].PaymentDate.Equal(wanted.PaymentDate) {
		_, err := ledger.Apply(edited, deposits[0])
		return err
	}

	for _, d := range deposits {
		reversal := reversalRecord(d, actor.ID, justification, now)
		if err := tx.Payments().Create(ctx, &reversal); err != nil {
			return err
		}
	}
	if wanted == nil {
		return nil
	}
	wanted.ID = uuid.New()
	if _, err := ledger.Apply(edited, *wanted); err != nil {
		return err
	}
	return tx.Payments().Create(ctx, wanted)
}

// GetLoan retrieves a loan by id
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.store.Loans().GetByID(ctx, loanID)
}

// ListLoans retrieves loans matching the filter
func (s *LoanService) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.Loans().List(ctx, filter)
}

// GetSchedule returns the stored schedule of a loan
func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.Installment, error) {
	loan, err := s.store.Loans().GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return loan.Schedule, nil
}

// PreviewSchedule runs the schedule builder without persisting anything
func (s *LoanService) PreviewSchedule(terms domain.LoanTerms) (*ledger.Schedule, error) {
	return ledger.BuildSchedule(terms)
}

// ListAudit returns the loan's audit trail ordered by (timestamp, sequence)
func (s *LoanService) ListAudit(ctx context.Context, loanID uuid.UUID) ([]domain.AuditEntry, error) {
	if _, err := s.store.Loans().GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.store.Audit().ListByLoan(ctx, loanID)
}

// EvaluateLoan runs the lifecycle evaluator at the given date (today in
// Kampala when zero). It is idempotent: evaluating twice at the same date
// changes nothing the second time. Only status changes and penalty accruals
// are audited.
func (s *LoanService) EvaluateLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, at time.Time) (*EvaluationResult, error) {
	date := util.DateOf(at)
	if at.IsZero() {
		date = util.DateOf(s.now())
	}

	req := Request{
		Actor:         actor,
		Operation:     OpEvaluateLoan,
		Justification: "lifecycle evaluation as of " + util.FormatDate(date),
		EntityType:    domain.EntityLoan,
		EntityID:      loanID,
		LoanID:        &loanID,
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, loanID)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &EvaluationResult{}
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		loan, err := tx.Loans().GetForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		before := loan.Clone()

		ev := ledger.Evaluate(loan, date)
		result.Loan = loan
		result.Evaluation = ev
		result.Changed = ev.StatusChanged() || ev.Accrual != nil
		if reflect.DeepEqual(before, loan) {
			return nil
		}

		loan.UpdatedAt = s.now().UTC()
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return err
		}
		if !result.Changed {
			// only arrears days, PAR bucket and the evaluation date moved; these are not audited
			return nil
		}

		action := domain.AuditPenaltyAccrued
		if ev.StatusChanged() {
			action = domain.AuditStatusChanged
		}
		b, a := domain.ChangedFields(before.Snapshot(), loan.Snapshot())
		if ev.Accrual != nil {
			a["accrual"] = map[string]any{
				"sequence": ev.Accrual.Sequence,
				"amount":   ev.Accrual.Amount,
				"on":       util.FormatDate(ev.Accrual.On),
			}
		}
		return s.gate.Record(ctx, tx, req, action, b, a)
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logger.Info().
			Str("loan_id", loanID.String()).
			Str("actor_id", actor.ID).
			Str("from", string(result.Evaluation.PreviousStatus)).
			Str("to", string(result.Evaluation.Status)).
			Int("days_in_arrears", result.Evaluation.DaysInArrears).
			Bool("penalty_accrued", result.Evaluation.Accrual != nil).
			Msg("Loan evaluated")

		s.publish(loanID, websocket.LoanEvaluated(map[string]any{
			"loanId":     loanID,
			"evaluation": result.Evaluation,
			"loan":       result.Loan,
		}))
	}
	return result, nil
}

// reversalRecord builds the compensating row for a payment record
func reversalRecord(p domain.PaymentRecord, recordedBy, justification string, now time.Time) domain.PaymentRecord {
	original := p.ID
	return domain.PaymentRecord{
		ID:                uuid.New(),
		LoanID:            p.LoanID,
		Kind:              domain.PaymentKindReversal,
		Amount:            p.Amount,
		Method:            p.Method,
		PaymentDate:       p.PaymentDate,
		RecordedBy:        recordedBy,
		Justification:     strings.TrimSpace(justification),
		CreatedAt:         now,
		ReversesPaymentID: &original,
	}
}
