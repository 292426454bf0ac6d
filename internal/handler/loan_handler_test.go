package handler

import (
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLoan_Success(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID:      client.ID.String(),
		Terms:         bikeTermsRequest(),
		Justification: "bike sale on credit",
	}, &adminActor)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[domain.Loan](t, rec)
	assert.True(t, strings.HasPrefix(loan.LoanNumber, "LN-2026-"), loan.LoanNumber)
	assert.Equal(t, domain.LoanStatusDraft, loan.Status)
	assert.Equal(t, int64(2_000_000), loan.Principal)
	assert.Equal(t, int64(600_000), loan.DepositPaid)
	assert.Len(t, loan.Schedule, 40)
}

func TestCreateLoan_Unauthenticated(t *testing.T) {
	s := newTestServer(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID: uuid.NewString(),
		Terms:    bikeTermsRequest(),
	}, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestCreateLoan_AccessDeniedBeforeJustification(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	tests := []struct {
		name  string
		actor domain.Actor
	}{
		{"guest", guestActor},
		// 2,000,000 financed is above the staff limit
		{"staff on large loan", staffActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
				ClientID: client.ID.String(),
				Terms:    bikeTermsRequest(),
			}, &tt.actor)

			require.Equal(t, http.StatusForbidden, rec.Code)
			problem := decode[ProblemDetails](t, rec)
			assert.Equal(t, domain.KindAccessDenied, problem.Code)
			assert.Equal(t, ErrorTypeForbidden, problem.Type)
			assert.False(t, problem.Retriable)
		})
	}
}

func TestCreateLoan_MissingJustification(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID:      client.ID.String(),
		Terms:         bikeTermsRequest(),
		Justification: " ok ",
	}, &adminActor)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindMissingJustification, decode[ProblemDetails](t, rec).Code)
}

func TestCreateLoan_RequestValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"malformed json", `{"clientId":`, ""},
		{"client id not a uuid", CreateLoanRequest{ClientID: "client-7", Terms: bikeTermsRequest()}, "clientId"},
		{"unknown product", CreateLoanRequest{ClientID: uuid.NewString(), Terms: LoanTermsRequest{Product: "car", StartDate: "2026-02-01"}}, "product"},
		{"bad start date", CreateLoanRequest{ClientID: uuid.NewString(), Terms: LoanTermsRequest{Product: "cash", StartDate: "01/02/2026"}}, "startDate"},
		{"bad rate", CreateLoanRequest{ClientID: uuid.NewString(), Terms: LoanTermsRequest{Product: "cash", StartDate: "2026-02-01", AnnualInterestRatePct: "twelve"}}, "annualInterestRatePct"},
		{"sale price above money range", CreateLoanRequest{ClientID: uuid.NewString(), Terms: func() LoanTermsRequest {
			r := bikeTermsRequest()
			r.SalePrice = math.MaxInt64
			return r
		}()}, "salePrice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", tt.body, &adminActor)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			problem := decode[ProblemDetails](t, rec)
			assert.Equal(t, ErrorTypeValidation, problem.Type)
			if tt.field != "" {
				require.NotEmpty(t, problem.Errors)
				assert.Equal(t, tt.field, problem.Errors[0].Field)
			}
		})
	}
}

func TestCreateLoan_InvalidTerms(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID: client.ID.String(),
		Terms: LoanTermsRequest{
			Product:               "cash",
			StartDate:             "2026-01-15",
			Principal:             500_000,
			AnnualInterestRatePct: "12",
			TermMonths:            0,
		},
		Justification: "salary advance",
	}, &adminActor)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindInvalidTerms, decode[ProblemDetails](t, rec).Code)

	rec = s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID: client.ID.String(),
		Terms: LoanTermsRequest{
			Product:               "cash",
			StartDate:             "2026-01-15",
			Principal:             500_000,
			AnnualInterestRatePct: "18.123449",
			TermMonths:            6,
		},
		Justification: "salary advance",
	}, &adminActor)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindInvalidTerms, decode[ProblemDetails](t, rec).Code)
}

func TestCreateLoan_UnknownClient(t *testing.T) {
	s := newTestServer(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID:      uuid.NewString(),
		Terms:         bikeTermsRequest(),
		Justification: "bike sale on credit",
	}, &adminActor)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.KindNotFound, decode[ProblemDetails](t, rec).Code)
}

func TestGetLoan(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)

	t.Run("found", func(t *testing.T) {
		rec := s.call(t, s.loans.GetLoan, http.MethodGet, "/api/v1/loans/"+loan.ID.String(), nil, &staffActor, "id", loan.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[domain.Loan](t, rec)
		assert.Equal(t, loan.LoanNumber, got.LoanNumber)
		assert.Equal(t, domain.LoanStatusActive, got.Status)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		rec := s.call(t, s.loans.GetLoan, http.MethodGet, "/api/v1/loans/"+id, nil, &staffActor, "id", id)
		require.Equal(t, http.StatusNotFound, rec.Code)
		problem := decode[ProblemDetails](t, rec)
		assert.Equal(t, domain.KindNotFound, problem.Code)
		assert.Equal(t, "/api/v1/loans/"+id, problem.Instance)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := s.call(t, s.loans.GetLoan, http.MethodGet, "/api/v1/loans/LN-2026-000001", nil, &staffActor, "id", "LN-2026-000001")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListLoans(t *testing.T) {
	s := newTestServer(t)
	active := s.activeBikeLoan(t)

	rec := s.call(t, s.loans.ListLoans, http.MethodGet, "/api/v1/loans?status=active", nil, &staffActor)
	require.Equal(t, http.StatusOK, rec.Code)
	loans := decode[[]domain.Loan](t, rec)
	require.Len(t, loans, 1)
	assert.Equal(t, active.ID, loans[0].ID)

	rec = s.call(t, s.loans.ListLoans, http.MethodGet, "/api/v1/loans?status=draft", nil, &staffActor)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.Loan](t, rec))

	rec = s.call(t, s.loans.ListLoans, http.MethodGet, "/api/v1/loans?status=overdue&limit=-1", nil, &staffActor)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[ProblemDetails](t, rec).Errors, 2)
}

func TestTransitionLoan(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID:      client.ID.String(),
		Terms:         bikeTermsRequest(),
		Justification: "bike sale on credit",
	}, &adminActor)
	require.Equal(t, http.StatusCreated, rec.Code)
	loanID := decode[domain.Loan](t, rec).ID.String()
	path := "/api/v1/loans/" + loanID + "/transitions"

	t.Run("submit", func(t *testing.T) {
		rec := s.call(t, s.loans.TransitionLoan, http.MethodPost, path, TransitionRequest{
			Target: "pending", Justification: "documents complete",
		}, &staffActor, "id", loanID)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, domain.LoanStatusPending, decode[domain.Loan](t, rec).Status)
	})

	t.Run("staff cannot approve", func(t *testing.T) {
		rec := s.call(t, s.loans.TransitionLoan, http.MethodPost, path, TransitionRequest{
			Target: "approved", Justification: "looks fine to me",
		}, &staffActor, "id", loanID)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("engine owned target", func(t *testing.T) {
		rec := s.call(t, s.loans.TransitionLoan, http.MethodPost, path, TransitionRequest{
			Target: "completed", Justification: "client paid cash",
		}, &managerActor, "id", loanID)
		require.Equal(t, http.StatusConflict, rec.Code)
		problem := decode[ProblemDetails](t, rec)
		assert.Equal(t, domain.KindIllegalTransition, problem.Code)
		assert.Equal(t, ErrorTypeTransition, problem.Type)
	})

	t.Run("target required", func(t *testing.T) {
		rec := s.call(t, s.loans.TransitionLoan, http.MethodPost, path, TransitionRequest{}, &managerActor, "id", loanID)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEditLoan(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID: client.ID.String(),
		Terms: LoanTermsRequest{
			Product: "cash", StartDate: "2026-01-15", Principal: 600_000, AnnualInterestRatePct: "12", TermMonths: 6,
		},
		Justification: "school fees loan",
	}, &staffActor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loanID := decode[domain.Loan](t, rec).ID.String()

	rec = s.call(t, s.loans.EditLoan, http.MethodPut, "/api/v1/loans/"+loanID, EditLoanRequest{
		Terms: LoanTermsRequest{
			Product: "cash", StartDate: "2026-01-15", Principal: 600_000, AnnualInterestRatePct: "12", TermMonths: 12,
		},
		Justification: "client asked for a longer term",
	}, &managerActor, "id", loanID)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[domain.Loan](t, rec)
	assert.Equal(t, 12, edited.TermMonths)
	assert.Len(t, edited.Schedule, 12)
}

func TestPreviewSchedule(t *testing.T) {
	s := newTestServer(t)

	rec := s.call(t, s.loans.PreviewSchedule, http.MethodPost, "/api/v1/loans/preview", LoanTermsRequest{
		Product:               "cash",
		StartDate:             "2026-01-31",
		Principal:             1_200_000,
		AnnualInterestRatePct: "12",
		TermMonths:            12,
	}, &staffActor)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sched := decode[ScheduleResponse](t, rec)
	require.Len(t, sched.Installments, 12)
	assert.Equal(t, int64(1_200_000), sched.FinancedAmount)

	var principal int64
	for _, inst := range sched.Installments {
		principal += inst.PrincipalAmount
	}
	assert.Equal(t, int64(1_200_000), principal)
	// Jan 31 + 1 month snaps to the end of February
	assert.Equal(t, "2026-02-28", sched.Installments[0].DueDate.Format("2006-01-02"))

	assert.Empty(t, s.store.AuditLog())
}

func TestGetSchedule(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)

	rec := s.call(t, s.loans.GetSchedule, http.MethodGet, "/api/v1/loans/"+loan.ID.String()+"/schedule", nil, &staffActor, "id", loan.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	sched := decode[ScheduleResponse](t, rec)
	assert.Len(t, sched.Installments, 40)
	assert.Equal(t, int64(50_000), sched.InstallmentAmount)
	assert.Equal(t, 40, sched.WeeksToPay)
}

func TestEvaluateLoan(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)
	path := "/api/v1/loans/" + loan.ID.String() + "/evaluate"

	t.Run("guest denied", func(t *testing.T) {
		rec := s.call(t, s.loans.EvaluateLoan, http.MethodPost, path, EvaluateRequest{}, &guestActor, "id", loan.ID.String())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := s.call(t, s.loans.EvaluateLoan, http.MethodPost, path, EvaluateRequest{Date: "March 1"}, &staffActor, "id", loan.ID.String())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("overdue after grace", func(t *testing.T) {
		// first installment was due 2026-02-08; nothing has been paid
		rec := s.call(t, s.loans.EvaluateLoan, http.MethodPost, path, EvaluateRequest{Date: "2026-02-20"}, &staffActor, "id", loan.ID.String())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		result := decode[service.EvaluationResult](t, rec)
		assert.Equal(t, domain.LoanStatusDelinquent, result.Loan.Status)
		assert.Positive(t, result.Loan.DaysInArrears)
	})
}

func TestListAudit(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)

	rec := s.call(t, s.loans.ListAudit, http.MethodGet, "/api/v1/loans/"+loan.ID.String()+"/audit", nil, &staffActor, "id", loan.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]domain.AuditEntry](t, rec)
	// created plus four transitions
	require.Len(t, entries, 5)
	assert.Equal(t, domain.AuditLoanCreated, entries[0].Action)
}
