package handler

import (
	"net/http"
	"testing"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyCollection(receipt string) PostPaymentRequest {
	return PostPaymentRequest{
		Amount:        50_000,
		Method:        "mtn_momo",
		PaymentDate:   "2026-02-08",
		ReceiptNumber: receipt,
		Justification: "weekly collection",
	}
}

func TestPostPayment(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)
	id := loan.ID.String()
	path := "/api/v1/loans/" + id + "/payments"

	rec := s.call(t, s.payments.PostPayment, http.MethodPost, path, weeklyCollection("MM-0001"), &staffActor, "id", id)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[service.PostPaymentResult](t, rec)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(50_000), result.Payment.Amount)
	assert.Equal(t, int64(1_950_000), result.Loan.TotalOutstanding)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, 1, result.Allocations[0].Sequence)

	t.Run("retry with same receipt returns original", func(t *testing.T) {
		rec := s.call(t, s.payments.PostPayment, http.MethodPost, path, weeklyCollection("MM-0001"), &staffActor, "id", id)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		dup := decode[service.PostPaymentResult](t, rec)
		assert.True(t, dup.Duplicate)
		assert.Equal(t, result.Payment.ID, dup.Payment.ID)
		assert.Equal(t, int64(1_950_000), dup.Loan.TotalOutstanding)
	})

	t.Run("receipt reused with different amount", func(t *testing.T) {
		body := weeklyCollection("MM-0001")
		body.Amount = 60_000
		rec := s.call(t, s.payments.PostPayment, http.MethodPost, path, body, &staffActor, "id", id)
		require.Equal(t, http.StatusConflict, rec.Code)
		problem := decode[ProblemDetails](t, rec)
		assert.Equal(t, domain.KindConflict, problem.Code)
		assert.True(t, problem.Retriable)
	})
}

func TestPostPayment_Validation(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)
	id := loan.ID.String()
	path := "/api/v1/loans/" + id + "/payments"

	tests := []struct {
		name   string
		mutate func(*PostPaymentRequest)
		field  string
	}{
		{"zero amount", func(r *PostPaymentRequest) { r.Amount = 0 }, "amount"},
		{"amount above money range", func(r *PostPaymentRequest) { r.Amount = domain.MaxAmount + 1 }, "amount"},
		{"deposit method", func(r *PostPaymentRequest) { r.Method = "deposit" }, "method"},
		{"missing date", func(r *PostPaymentRequest) { r.PaymentDate = "" }, "paymentDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := weeklyCollection("")
			tt.mutate(&body)
			rec := s.call(t, s.payments.PostPayment, http.MethodPost, path, body, &staffActor, "id", id)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			problem := decode[ProblemDetails](t, rec)
			require.Len(t, problem.Errors, 1)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}

	t.Run("before loan start", func(t *testing.T) {
		body := weeklyCollection("")
		body.PaymentDate = "2026-01-20"
		rec := s.call(t, s.payments.PostPayment, http.MethodPost, path, body, &staffActor, "id", id)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.KindInvalidPayment, decode[ProblemDetails](t, rec).Code)
	})
}

func TestPostPayment_LoanNotServicing(t *testing.T) {
	s := newTestServer(t)
	client := s.newClient(t)

	rec := s.call(t, s.loans.CreateLoan, http.MethodPost, "/api/v1/loans", CreateLoanRequest{
		ClientID:      client.ID.String(),
		Terms:         bikeTermsRequest(),
		Justification: "bike sale on credit",
	}, &adminActor)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[domain.Loan](t, rec).ID.String()

	rec = s.call(t, s.payments.PostPayment, http.MethodPost, "/api/v1/loans/"+id+"/payments", weeklyCollection(""), &staffActor, "id", id)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindIllegalTransition, decode[ProblemDetails](t, rec).Code)
}

func TestReversePayment(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)
	id := loan.ID.String()

	rec := s.call(t, s.payments.PostPayment, http.MethodPost, "/api/v1/loans/"+id+"/payments", weeklyCollection("MM-0002"), &staffActor, "id", id)
	require.Equal(t, http.StatusCreated, rec.Code)
	paymentID := decode[service.PostPaymentResult](t, rec).Payment.ID.String()
	path := "/api/v1/payments/" + paymentID + "/reverse"

	t.Run("staff denied", func(t *testing.T) {
		rec := s.call(t, s.payments.ReversePayment, http.MethodPost, path, ReversePaymentRequest{}, &staffActor, "paymentId", paymentID)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin needs justification", func(t *testing.T) {
		rec := s.call(t, s.payments.ReversePayment, http.MethodPost, path, ReversePaymentRequest{Justification: "oops"}, &adminActor, "paymentId", paymentID)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.KindMissingJustification, decode[ProblemDetails](t, rec).Code)
	})

	t.Run("admin reverses", func(t *testing.T) {
		rec := s.call(t, s.payments.ReversePayment, http.MethodPost, path, ReversePaymentRequest{
			Justification: "mobile money transfer bounced",
		}, &adminActor, "paymentId", paymentID)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, int64(2_000_000), decode[domain.Loan](t, rec).TotalOutstanding)
	})

	t.Run("second reversal conflicts", func(t *testing.T) {
		rec := s.call(t, s.payments.ReversePayment, http.MethodPost, path, ReversePaymentRequest{
			Justification: "mobile money transfer bounced",
		}, &adminActor, "paymentId", paymentID)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("listing shows derived status", func(t *testing.T) {
		rec := s.call(t, s.payments.ListPayments, http.MethodGet, "/api/v1/loans/"+id+"/payments", nil, &staffActor, "id", id)
		require.Equal(t, http.StatusOK, rec.Code)
		views := decode[[]service.PaymentView](t, rec)

		statuses := map[string]domain.PaymentStatus{}
		for _, v := range views {
			statuses[v.ID.String()] = v.Status
		}
		assert.Equal(t, domain.PaymentStatusReversed, statuses[paymentID])
		// deposit, payment and the reversal row
		assert.Len(t, views, 3)
	})
}

func TestEditPayment(t *testing.T) {
	s := newTestServer(t)
	loan := s.activeBikeLoan(t)
	id := loan.ID.String()

	rec := s.call(t, s.payments.PostPayment, http.MethodPost, "/api/v1/loans/"+id+"/payments", weeklyCollection("MM-0003"), &staffActor, "id", id)
	require.Equal(t, http.StatusCreated, rec.Code)
	original := decode[service.PostPaymentResult](t, rec).Payment

	rec = s.call(t, s.payments.EditPayment, http.MethodPut, "/api/v1/payments/"+original.ID.String(), EditPaymentRequest{
		Amount:        45_000,
		Method:        "cash",
		PaymentDate:   "2026-02-08",
		Justification: "cashier keyed the wrong amount",
	}, &adminActor, "paymentId", original.ID.String())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.PostPaymentResult](t, rec)
	require.NotNil(t, result.Payment.SupersedesPaymentID)
	assert.Equal(t, original.ID, *result.Payment.SupersedesPaymentID)
	assert.Equal(t, int64(1_955_000), result.Loan.TotalOutstanding)
}

func TestGetPayment(t *testing.T) {
	s := newTestServer(t)

	missing := uuid.NewString()
	rec := s.call(t, s.payments.GetPayment, http.MethodGet, "/api/v1/payments/"+missing, nil, &staffActor, "paymentId", missing)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.call(t, s.payments.GetPayment, http.MethodGet, "/api/v1/payments/nope", nil, &staffActor, "paymentId", "nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
