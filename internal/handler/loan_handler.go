package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/middleware"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// LoanTermsRequest carries schedule builder inputs. Cash loans use principal,
// annualInterestRatePct and termMonths; bike loans use salePrice, deposit and
// either weeklyInstallment or targetWeeks.
type LoanTermsRequest struct {
	Product               string `json:"product" validate:"required,oneof=cash bike"`
	StartDate             string `json:"startDate" validate:"required,datetime=2006-01-02"`
	Principal             int64  `json:"principal,omitempty" validate:"gte=0,lte=9007199254740991"`
	AnnualInterestRatePct string `json:"annualInterestRatePct,omitempty"`
	TermMonths            int    `json:"termMonths,omitempty" validate:"gte=0"`
	SalePrice             int64  `json:"salePrice,omitempty" validate:"gte=0,lte=9007199254740991"`
	Deposit               int64  `json:"deposit,omitempty" validate:"gte=0,lte=9007199254740991"`
	WeeklyInstallment     int64  `json:"weeklyInstallment,omitempty" validate:"gte=0,lte=9007199254740991"`
	TargetWeeks           int    `json:"targetWeeks,omitempty" validate:"gte=0"`
}

func (r LoanTermsRequest) toDomain() (domain.LoanTerms, []ValidationError) {
	start, err := util.ParseDate(r.StartDate)
	if err != nil {
		return domain.LoanTerms{}, []ValidationError{{Field: "startDate", Message: "Must be a date in YYYY-MM-DD format"}}
	}

	rate := decimal.Zero
	if r.AnnualInterestRatePct != "" {
		rate, err = decimal.NewFromString(r.AnnualInterestRatePct)
		if err != nil {
			return domain.LoanTerms{}, []ValidationError{{Field: "annualInterestRatePct", Message: "Must be a valid decimal number"}}
		}
	}

	return domain.LoanTerms{
		Product:               domain.Product(r.Product),
		StartDate:             start,
		Principal:             r.Principal,
		AnnualInterestRatePct: rate,
		TermMonths:            r.TermMonths,
		SalePrice:             r.SalePrice,
		Deposit:               r.Deposit,
		WeeklyInstallment:     r.WeeklyInstallment,
		TargetWeeks:           r.TargetWeeks,
	}, nil
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	ClientID      string           `json:"clientId" validate:"required,uuid"`
	Terms         LoanTermsRequest `json:"terms"`
	Justification string           `json:"justification"`
}

// EditLoanRequest represents the edit loan request body
type EditLoanRequest struct {
	Terms         LoanTermsRequest `json:"terms"`
	Justification string           `json:"justification"`
}

// TransitionRequest asks for a manual lifecycle transition
type TransitionRequest struct {
	Target        string `json:"target" validate:"required"`
	Justification string `json:"justification"`
}

// EvaluateRequest optionally names the evaluation date; today in Kampala when empty
type EvaluateRequest struct {
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ScheduleResponse is the schedule of a stored or previewed loan
type ScheduleResponse struct {
	Installments      []domain.Installment `json:"installments"`
	InstallmentAmount int64                `json:"installmentAmount,omitempty"`
	FinancedAmount    int64                `json:"financedAmount,omitempty"`
	WeeksToPay        int                  `json:"weeksToPay,omitempty"`
}

// actorFrom returns the authenticated actor, or writes a 401 when absent
func actorFrom(c echo.Context) (domain.Actor, bool, error) {
	actor, ok := middleware.GetActor(c)
	if !ok || actor.ID == "" {
		return domain.Actor{}, false, NewUnauthorizedError(c, "Authentication required")
	}
	return actor, true, nil
}

// uuidParam parses a path parameter, or writes a 400 when malformed
func uuidParam(c echo.Context, name string) (uuid.UUID, bool, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be a valid UUID"},
		})
	}
	return id, true, nil
}

// paging reads limit and offset query parameters
func paging(c echo.Context) (limit, offset int, errs []ValidationError) {
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			errs = append(errs, ValidationError{Field: "limit", Message: "Must be a non-negative integer"})
		}
		limit = v
	}
	if raw := c.QueryParam("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			errs = append(errs, ValidationError{Field: "offset", Message: "Must be a non-negative integer"})
		}
		offset = v
	}
	return limit, offset, errs
}

// CreateLoan godoc
// @Summary Create a loan
// @Description Create a draft loan with its repayment schedule. Bike loans record the deposit as a synthetic payment.
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateLoanRequest true "Loan creation request"
// @Success 201 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}

	var req CreateLoanRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	terms, verrs := req.Terms.toDomain()
	if verrs != nil {
		return NewValidationError(c, "Invalid loan terms", verrs)
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), actor, service.CreateLoanInput{
		ClientID:      uuid.MustParse(req.ClientID),
		Terms:         terms,
		Justification: req.Justification,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// ListLoans godoc
// @Summary List loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by lifecycle status"
// @Param clientId query string false "Filter by client"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Router /loans [get]
func (h *LoanHandler) ListLoans(c echo.Context) error {
	limit, offset, verrs := paging(c)

	filter := domain.LoanFilter{Limit: limit, Offset: offset}
	if raw := c.QueryParam("status"); raw != "" {
		status := domain.LoanStatus(raw)
		if !status.IsValid() {
			verrs = append(verrs, ValidationError{Field: "status", Message: "Unknown loan status"})
		}
		filter.Status = &status
	}
	if raw := c.QueryParam("clientId"); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			verrs = append(verrs, ValidationError{Field: "clientId", Message: "Must be a valid UUID"})
		}
		filter.ClientID = &clientID
	}
	if len(verrs) > 0 {
		return NewValidationError(c, "Invalid query parameters", verrs)
	}

	loans, err := h.loanService.ListLoans(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loans)
}

// GetLoan godoc
// @Summary Get a loan
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {object} domain.Loan
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id} [get]
func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}

// EditLoan godoc
// @Summary Edit loan terms
// @Description Rebuild the schedule from new terms while the loan is draft or pending
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body EditLoanRequest true "New terms"
// @Success 200 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id} [put]
func (h *LoanHandler) EditLoan(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	var req EditLoanRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	terms, verrs := req.Terms.toDomain()
	if verrs != nil {
		return NewValidationError(c, "Invalid loan terms", verrs)
	}

	loan, err := h.loanService.EditLoan(c.Request().Context(), actor, loanID, service.EditLoanInput{
		Terms:         terms,
		Justification: req.Justification,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}

// TransitionLoan godoc
// @Summary Change loan status
// @Description Manual lifecycle transitions: submit, approve, disburse, activate, cancel, default
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body TransitionRequest true "Target status"
// @Success 200 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/transitions [post]
func (h *LoanHandler) TransitionLoan(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	var req TransitionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	loan, err := h.loanService.TransitionLoan(c.Request().Context(), actor, loanID, domain.LoanStatus(req.Target), req.Justification)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}

// EvaluateLoan godoc
// @Summary Evaluate a loan
// @Description Run the lifecycle evaluator (arrears, penalties, status) as of a date
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body EvaluateRequest false "Evaluation date"
// @Success 200 {object} service.EvaluationResult
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id}/evaluate [post]
func (h *LoanHandler) EvaluateLoan(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	var req EvaluateRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	var at time.Time
	if req.Date != "" {
		at, _ = util.ParseDate(req.Date)
	}

	result, err := h.loanService.EvaluateLoan(c.Request().Context(), actor, loanID, at)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetSchedule handles GET /api/v1/loans/:id/schedule
func (h *LoanHandler) GetSchedule(c echo.Context) error {
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ScheduleResponse{
		Installments:      loan.Schedule,
		InstallmentAmount: loan.InstallmentAmount,
		FinancedAmount:    loan.Principal,
		WeeksToPay:        loan.WeeksToPay,
	})
}

// PreviewSchedule godoc
// @Summary Preview a schedule
// @Description Build the repayment schedule for terms without saving anything
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LoanTermsRequest true "Loan terms"
// @Success 200 {object} ScheduleResponse
// @Failure 400 {object} ProblemDetails
// @Router /loans/preview [post]
func (h *LoanHandler) PreviewSchedule(c echo.Context) error {
	var req LoanTermsRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	terms, verrs := req.toDomain()
	if verrs != nil {
		return NewValidationError(c, "Invalid loan terms", verrs)
	}

	sched, err := h.loanService.PreviewSchedule(terms)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ScheduleResponse{
		Installments:      sched.Installments,
		InstallmentAmount: sched.InstallmentAmount,
		FinancedAmount:    sched.FinancedAmount,
		WeeksToPay:        sched.WeeksToPay,
	})
}

// ListAudit handles GET /api/v1/loans/:id/audit
func (h *LoanHandler) ListAudit(c echo.Context) error {
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	entries, err := h.loanService.ListAudit(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
