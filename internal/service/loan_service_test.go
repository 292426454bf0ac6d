package service

import (
	"context"
	"testing"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/bingovintage/loan-engine/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLoan_BikeRecordsDeposit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	client := e.newClient(t)

	loan, err := e.loans.CreateLoan(ctx, adminActor, CreateLoanInput{
		ClientID:      client.ID,
		Terms:         bikeTerms(),
		Justification: "  Bajaj Boxer for Nakato  ",
	})
	require.NoError(t, err)

	assert.Equal(t, "LN-2026-000001", loan.LoanNumber)
	assert.Equal(t, domain.LoanStatusDraft, loan.Status)
	assert.Equal(t, int64(1), loan.Version)
	assert.Len(t, loan.Schedule, 40)
	assert.Equal(t, int64(600_000), loan.DepositPaid)
	assert.Equal(t, int64(600_000), loan.TotalPaid)
	assert.Equal(t, int64(2_000_000), loan.TotalOutstanding)

	payments, err := e.payments.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].IsDeposit())
	assert.Equal(t, util.Date(2026, time.February, 1), payments[0].PaymentDate)
	assert.Equal(t, domain.PaymentStatusPosted, payments[0].Status)

	trail, err := e.loans.ListAudit(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.AuditLoanCreated, trail[0].Action)
	assert.Equal(t, "Bajaj Boxer for Nakato", trail[0].Justification)
	assert.Equal(t, adminActor.ID, trail[0].ActorID)
	assert.Equal(t, "LN-2026-000001", trail[0].After["loanNumber"])

	assert.Equal(t, []string{"loan.created"}, e.events.Types(websocket.TopicPortfolio))
	assert.Equal(t, []string{"loan.created"}, e.events.Types(websocket.LoanTopic(loan.ID)))
}

func TestCreateLoan_CashScheduleSumsToPrincipal(t *testing.T) {
	e := newTestEnv(t)
	client := e.newClient(t)

	loan, err := e.loans.CreateLoan(context.Background(), staffActor, CreateLoanInput{
		ClientID:      client.ID,
		Terms:         cashTerms(1_000_000),
		Justification: "school fees loan",
	})
	require.NoError(t, err)

	var principal, total, interest int64
	for _, inst := range loan.Schedule {
		principal += inst.PrincipalAmount
		total += inst.TotalAmount
		interest += inst.InterestAmount
	}
	assert.Equal(t, int64(1_000_000), principal)
	assert.Equal(t, int64(1_000_000)+interest, total)
	assert.Zero(t, loan.DepositPaid)
}

func TestCreateLoan_LargeLoanRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	client := e.newClient(t)
	auditBefore := len(e.store.AuditLog())

	_, err := e.loans.CreateLoan(context.Background(), managerActor, CreateLoanInput{
		ClientID:      client.ID,
		Terms:         bikeTerms(),
		Justification: "branch manager approval",
	})
	require.ErrorIs(t, err, domain.ErrAccessDenied)

	log := e.store.AuditLog()
	require.Len(t, log, auditBefore+1)
	denial := log[len(log)-1]
	assert.Equal(t, domain.AuditGovernanceDenied, denial.Action)
	assert.Equal(t, managerActor.ID, denial.ActorID)
	assert.Equal(t, int64(2_000_000), denial.After["financedAmount"])

	loans, err := e.loans.ListLoans(context.Background(), domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestCreateLoan_Rejections(t *testing.T) {
	e := newTestEnv(t)
	client := e.newClient(t)

	badTerms := cashTerms(500_000)
	badTerms.TermMonths = 0

	tests := []struct {
		name    string
		actor   domain.Actor
		input   CreateLoanInput
		wantErr error
	}{
		{
			name:    "short justification",
			actor:   staffActor,
			input:   CreateLoanInput{ClientID: client.ID, Terms: cashTerms(500_000), Justification: " ok  "},
			wantErr: domain.ErrMissingJustification,
		},
		{
			name:    "guest",
			actor:   guestActor,
			input:   CreateLoanInput{ClientID: client.ID, Terms: cashTerms(500_000), Justification: "please lend"},
			wantErr: domain.ErrAccessDenied,
		},
		{
			name:    "invalid terms",
			actor:   staffActor,
			input:   CreateLoanInput{ClientID: client.ID, Terms: badTerms, Justification: "emergency loan"},
			wantErr: domain.ErrInvalidTerms,
		},
		{
			name:    "unknown client",
			actor:   staffActor,
			input:   CreateLoanInput{ClientID: uuid.New(), Terms: cashTerms(500_000), Justification: "emergency loan"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.loans.CreateLoan(context.Background(), tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	loans, err := e.loans.ListLoans(context.Background(), domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestTransitionLoan_ApprovalPath(t *testing.T) {
	e := newTestEnv(t)
	loan := e.activeLoan(t, bikeTerms())

	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assert.Equal(t, int64(5), loan.Version)
	assert.Nil(t, loan.LastEvaluatedOn)

	trail, err := e.loans.ListAudit(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.AuditAction{
		domain.AuditLoanCreated,
		domain.AuditStatusChanged,
		domain.AuditStatusChanged,
		domain.AuditStatusChanged,
		domain.AuditStatusChanged,
	}, auditActions(trail))

	last := trail[len(trail)-1]
	assert.Equal(t, domain.Snapshot{"status": "disbursed"}, last.Before)
	assert.Equal(t, domain.Snapshot{"status": "active"}, last.After)
	assert.Equal(t, string(OpTransitionLoan), last.Operation)
}

func TestTransitionLoan_Rejections(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	client := e.newClient(t)

	draft, err := e.loans.CreateLoan(ctx, staffActor, CreateLoanInput{
		ClientID: client.ID, Terms: cashTerms(400_000), Justification: "small business loan",
	})
	require.NoError(t, err)
	active := e.activeLoan(t, cashTerms(300_000))

	tests := []struct {
		name    string
		actor   domain.Actor
		loanID  uuid.UUID
		target  domain.LoanStatus
		wantErr error
	}{
		{"skip approval", managerActor, draft.ID, domain.LoanStatusActive, domain.ErrIllegalTransition},
		{"staff approves", staffActor, draft.ID, domain.LoanStatusApproved, domain.ErrAccessDenied},
		{"manager cancels", managerActor, draft.ID, domain.LoanStatusCancelled, domain.ErrAccessDenied},
		{"complete by hand", adminActor, active.ID, domain.LoanStatusCompleted, domain.ErrIllegalTransition},
		{"back to draft", adminActor, active.ID, domain.LoanStatusDraft, domain.ErrIllegalTransition},
		{"unknown status", adminActor, active.ID, domain.LoanStatus("archived"), domain.ErrIllegalTransition},
		{"unknown loan", adminActor, uuid.New(), domain.LoanStatusDefaulted, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.loans.TransitionLoan(ctx, tt.actor, tt.loanID, tt.target, "status correction")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	stored, err := e.loans.GetLoan(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDraft, stored.Status)
}

func TestTransitionLoan_AdminDefaultsDelinquentLoan(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	loan := e.activeLoan(t, bikeTerms())

	_, err := e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, util.Date(2026, time.May, 20))
	require.NoError(t, err)

	defaulted, err := e.loans.TransitionLoan(ctx, adminActor, loan.ID, domain.LoanStatusDefaulted, "client absconded with bike")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDefaulted, defaulted.Status)

	// evaluation keeps arrears current but never moves a defaulted loan
	res, err := e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, util.Date(2026, time.June, 20))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDefaulted, res.Loan.Status)
	assert.Equal(t, domain.PAR90, res.Loan.PARBucket)
	assert.False(t, res.Changed)
}

func TestEditLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("re-terms a pending cash loan", func(t *testing.T) {
		e := newTestEnv(t)
		client := e.newClient(t)
		loan, err := e.loans.CreateLoan(ctx, staffActor, CreateLoanInput{
			ClientID: client.ID, Terms: cashTerms(600_000), Justification: "working capital",
		})
		require.NoError(t, err)
		_, err = e.loans.TransitionLoan(ctx, staffActor, loan.ID, domain.LoanStatusPending, "submitted for review")
		require.NoError(t, err)

		terms := cashTerms(800_000)
		terms.TermMonths = 6
		edited, err := e.loans.EditLoan(ctx, managerActor, loan.ID, EditLoanInput{Terms: terms, Justification: "client asked for more"})
		require.NoError(t, err)

		assert.Equal(t, loan.LoanNumber, edited.LoanNumber)
		assert.Equal(t, domain.LoanStatusPending, edited.Status)
		assert.Equal(t, int64(800_000), edited.Principal)
		assert.Len(t, edited.Schedule, 6)
		assert.Equal(t, int64(3), edited.Version)

		trail, err := e.loans.ListAudit(ctx, loan.ID)
		require.NoError(t, err)
		last := trail[len(trail)-1]
		assert.Equal(t, domain.AuditLoanEdited, last.Action)
		assert.Equal(t, int64(600_000), last.Before["principal"])
		assert.Equal(t, int64(800_000), last.After["principal"])
		assert.NotContains(t, last.After, "status")
	})

	t.Run("changed deposit is reversed and re-recorded", func(t *testing.T) {
		e := newTestEnv(t)
		client := e.newClient(t)
		loan, err := e.loans.CreateLoan(ctx, adminActor, CreateLoanInput{
			ClientID: client.ID, Terms: bikeTerms(), Justification: "bike purchase",
		})
		require.NoError(t, err)

		terms := bikeTerms()
		terms.Deposit = 700_000
		edited, err := e.loans.EditLoan(ctx, adminActor, loan.ID, EditLoanInput{Terms: terms, Justification: "larger deposit paid"})
		require.NoError(t, err)
		assert.Equal(t, int64(700_000), edited.DepositPaid)
		assert.Equal(t, int64(1_900_000), edited.TotalOutstanding)

		payments, err := e.payments.ListPayments(ctx, loan.ID)
		require.NoError(t, err)
		require.Len(t, payments, 3)

		var posted, reversed, reversals int
		for _, p := range payments {
			switch {
			case p.Kind == domain.PaymentKindReversal:
				reversals++
			case p.Status == domain.PaymentStatusReversed:
				reversed++
				assert.Equal(t, int64(600_000), p.Amount)
			default:
				posted++
				assert.Equal(t, int64(700_000), p.Amount)
			}
		}
		assert.Equal(t, 1, posted)
		assert.Equal(t, 1, reversed)
		assert.Equal(t, 1, reversals)
	})

	t.Run("unchanged deposit keeps its record", func(t *testing.T) {
		e := newTestEnv(t)
		client := e.newClient(t)
		loan, err := e.loans.CreateLoan(ctx, adminActor, CreateLoanInput{
			ClientID: client.ID, Terms: bikeTerms(), Justification: "bike purchase",
		})
		require.NoError(t, err)

		terms := bikeTerms()
		terms.WeeklyInstallment = 40_000
		edited, err := e.loans.EditLoan(ctx, adminActor, loan.ID, EditLoanInput{Terms: terms, Justification: "smaller weekly amount"})
		require.NoError(t, err)
		assert.Equal(t, 50, edited.WeeksToPay)
		assert.Equal(t, int64(600_000), edited.DepositPaid)

		payments, err := e.payments.ListPayments(ctx, loan.ID)
		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("staff may not edit", func(t *testing.T) {
		e := newTestEnv(t)
		client := e.newClient(t)
		loan, err := e.loans.CreateLoan(ctx, staffActor, CreateLoanInput{
			ClientID: client.ID, Terms: cashTerms(600_000), Justification: "working capital",
		})
		require.NoError(t, err)

		_, err = e.loans.EditLoan(ctx, staffActor, loan.ID, EditLoanInput{Terms: cashTerms(700_000), Justification: "typo in amount"})
		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("active loans are fixed", func(t *testing.T) {
		e := newTestEnv(t)
		loan := e.activeLoan(t, cashTerms(600_000))

		_, err := e.loans.EditLoan(ctx, adminActor, loan.ID, EditLoanInput{Terms: cashTerms(700_000), Justification: "typo in amount"})
		assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	})
}

func TestEvaluateLoan_GraceAndPenalty(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	loan := e.activeLoan(t, bikeTerms())
	auditBefore := len(e.store.AuditLog())

	res, err := e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, util.Date(2026, time.February, 8))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, res.Loan.Status)
	assert.Nil(t, res.Evaluation.Accrual)
	assert.False(t, res.Changed)
	assert.Len(t, e.store.AuditLog(), auditBefore)

	res, err = e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, util.Date(2026, time.February, 16))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDelinquent, res.Loan.Status)
	assert.Equal(t, 8, res.Loan.DaysInArrears)
	require.NotNil(t, res.Evaluation.Accrual)
	assert.Equal(t, int64(1_000), res.Evaluation.Accrual.Amount)
	assert.Equal(t, 1, res.Evaluation.Accrual.Sequence)
	assert.True(t, res.Changed)

	log := e.store.AuditLog()
	require.Len(t, log, auditBefore+1)
	entry := log[len(log)-1]
	assert.Equal(t, domain.AuditStatusChanged, entry.Action)
	assert.Equal(t, domain.SystemActor.ID, entry.ActorID)
	assert.Equal(t, domain.RoleSystem, entry.ActorRole)
	assert.Equal(t, "active", entry.Before["status"])
	assert.Equal(t, "delinquent", entry.After["status"])
	assert.Contains(t, entry.After, "accrual")

	// arrears keep ageing without a new audit entry
	res, err = e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, util.Date(2026, time.February, 20))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 12, res.Loan.DaysInArrears)
	assert.Nil(t, res.Evaluation.Accrual)
	assert.Equal(t, int64(1_000), res.Loan.Schedule[0].AccruedPenalty)
	assert.Zero(t, res.Loan.Schedule[1].AccruedPenalty)
	assert.Len(t, e.store.AuditLog(), auditBefore+1)

	assert.Contains(t, e.events.Types(websocket.LoanTopic(loan.ID)), "loan.evaluated")
}

func TestEvaluateLoan_IsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	loan := e.activeLoan(t, bikeTerms())
	date := util.Date(2026, time.March, 3)

	first, err := e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, date)
	require.NoError(t, err)
	commits := e.store.Commits

	second, err := e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, date)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Loan.Version, second.Loan.Version)
	assert.Equal(t, first.Loan.TotalOutstanding, second.Loan.TotalOutstanding)
	assert.Equal(t, commits+1, e.store.Commits)

	// an earlier date never rewinds the loan
	earlier, err := e.loans.EvaluateLoan(ctx, domain.SystemActor, loan.ID, util.Date(2026, time.February, 2))
	require.NoError(t, err)
	assert.Equal(t, date, *earlier.Loan.LastEvaluatedOn)
	assert.Equal(t, first.Loan.DaysInArrears, earlier.Loan.DaysInArrears)
}

func TestEvaluateLoan_GuestDenied(t *testing.T) {
	e := newTestEnv(t)
	loan := e.activeLoan(t, cashTerms(500_000))

	_, err := e.loans.EvaluateLoan(context.Background(), guestActor, loan.ID, util.Date(2026, time.March, 1))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestListLoans_Filters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	active := e.activeLoan(t, cashTerms(500_000))
	client := e.newClient(t)
	_, err := e.loans.CreateLoan(ctx, staffActor, CreateLoanInput{
		ClientID: client.ID, Terms: cashTerms(200_000), Justification: "stock purchase",
	})
	require.NoError(t, err)

	status := domain.LoanStatusActive
	loans, err := e.loans.ListLoans(ctx, domain.LoanFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, active.ID, loans[0].ID)

	loans, err = e.loans.ListLoans(ctx, domain.LoanFilter{ClientID: &client.ID})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, domain.LoanStatusDraft, loans[0].Status)

	loans, err = e.loans.ListLoans(ctx, domain.LoanFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func TestPreviewSchedule_DoesNotPersist(t *testing.T) {
	e := newTestEnv(t)

	sched, err := e.loans.PreviewSchedule(bikeTerms())
	require.NoError(t, err)
	assert.Equal(t, 40, sched.WeeksToPay)
	assert.Equal(t, util.Date(2026, time.February, 8), sched.Installments[0].DueDate)

	loans, err := e.loans.ListLoans(context.Background(), domain.LoanFilter{})
	require.NoError(t, err)
	assert.Empty(t, loans)
	assert.Zero(t, e.store.Commits)
}

func TestListAudit_UnknownLoan(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.loans.ListAudit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(domain.LoanStatusDraft, domain.LoanStatusPending))
	assert.True(t, CanTransition(domain.LoanStatusDelinquent, domain.LoanStatusDefaulted))
	assert.False(t, CanTransition(domain.LoanStatusActive, domain.LoanStatusDelinquent))
	assert.False(t, CanTransition(domain.LoanStatusCompleted, domain.LoanStatusDefaulted))
	assert.False(t, CanTransition(domain.LoanStatusCancelled, domain.LoanStatusPending))
}
