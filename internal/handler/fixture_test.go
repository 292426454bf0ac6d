package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/middleware"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/bingovintage/loan-engine/internal/testutil"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	adminActor   = domain.Actor{ID: "auth0|admin-1", Role: domain.RoleAdmin}
	managerActor = domain.Actor{ID: "auth0|manager-1", Role: domain.RoleManager}
	staffActor   = domain.Actor{ID: "auth0|staff-1", Role: domain.RoleStaff}
	guestActor   = domain.Actor{ID: "auth0|guest-1", Role: domain.RoleGuest}
)

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

type testServer struct {
	echo     *echo.Echo
	store    *testutil.MemoryStore
	loans    *LoanHandler
	payments *PaymentHandler
	clients  *ClientHandler
	kyc      *KYCHandler

	loanService   *service.LoanService
	clientService *service.ClientService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := testutil.NewMemoryStore()
	logger := zerolog.Nop()
	clock := &fixedClock{t: time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)}

	gate := service.NewGate(store, logger)
	gate.SetClock(clock.Now)
	locks := service.NewLoanLocks()

	loanService := service.NewLoanService(store, gate, locks, logger)
	loanService.SetClock(clock.Now)
	paymentService := service.NewPaymentService(store, gate, locks, logger)
	paymentService.SetClock(clock.Now)
	clientService := service.NewClientService(store, gate, logger)
	clientService.SetClock(clock.Now)
	kycService := service.NewKYCDocumentService(store, gate, nil, logger)

	e := echo.New()
	e.Validator = NewRequestValidator()

	return &testServer{
		echo:          e,
		store:         store,
		loans:         NewLoanHandler(loanService),
		payments:      NewPaymentHandler(paymentService),
		clients:       NewClientHandler(clientService, loanService),
		kyc:           NewKYCHandler(kycService),
		loanService:   loanService,
		clientService: clientService,
	}
}

// call runs a handler directly with an optional JSON body, actor and path params
func (s *testServer) call(t *testing.T, h echo.HandlerFunc, method, target string, body any, actor *domain.Actor, params ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return s.serve(t, h, req, actor, params...)
}

func (s *testServer) serve(t *testing.T, h echo.HandlerFunc, req *http.Request, actor *domain.Actor, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) newClient(t *testing.T) *domain.Client {
	t.Helper()
	client, err := s.clientService.CreateClient(context.Background(), staffActor, service.ClientInput{
		FullName:      "Okello Brian",
		Phone:         "+256701234567",
		NationalID:    "CM" + uuid.NewString()[:12],
		Address:       "Kireka, Wakiso",
		Occupation:    "boda boda rider",
		Justification: "walk-in onboarding",
	})
	require.NoError(t, err)
	return client
}

func bikeTermsRequest() LoanTermsRequest {
	return LoanTermsRequest{
		Product:           "bike",
		StartDate:         "2026-02-01",
		SalePrice:         2_600_000,
		Deposit:           600_000,
		WeeklyInstallment: 50_000,
	}
}

// activeBikeLoan originates a bike loan through the service and activates it
func (s *testServer) activeBikeLoan(t *testing.T) *domain.Loan {
	t.Helper()
	ctx := context.Background()

	terms, verrs := bikeTermsRequest().toDomain()
	require.Nil(t, verrs)
	loan, err := s.loanService.CreateLoan(ctx, adminActor, service.CreateLoanInput{
		ClientID:      s.newClient(t).ID,
		Terms:         terms,
		Justification: "bike sale on credit",
	})
	require.NoError(t, err)

	for _, target := range []domain.LoanStatus{
		domain.LoanStatusPending, domain.LoanStatusApproved, domain.LoanStatusDisbursed, domain.LoanStatusActive,
	} {
		loan, err = s.loanService.TransitionLoan(ctx, managerActor, loan.ID, target, "credit committee decision")
		require.NoError(t, err)
	}
	require.Equal(t, util.Date(2026, time.February, 1), loan.StartDate)
	return loan
}
