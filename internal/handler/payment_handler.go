package handler

import (
	"net/http"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/bingovintage/loan-engine/internal/util"
	"github.com/labstack/echo/v4"
)

// PaymentHandler handles repayment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PostPaymentRequest represents a repayment submitted by a cashier
type PostPaymentRequest struct {
	Amount        int64  `json:"amount" validate:"gt=0,lte=9007199254740991"`
	Method        string `json:"method" validate:"required,oneof=cash mtn_momo airtel_money bank_transfer cheque"`
	PaymentDate   string `json:"paymentDate" validate:"required,datetime=2006-01-02"`
	ReceiptNumber string `json:"receiptNumber,omitempty" validate:"max=64"`
	Justification string `json:"justification"`
}

// EditPaymentRequest carries the corrected values of a payment
type EditPaymentRequest struct {
	Amount        int64  `json:"amount" validate:"gt=0,lte=9007199254740991"`
	Method        string `json:"method" validate:"required,oneof=cash mtn_momo airtel_money bank_transfer cheque"`
	PaymentDate   string `json:"paymentDate" validate:"required,datetime=2006-01-02"`
	Justification string `json:"justification"`
}

// ReversePaymentRequest represents the reversal request body
type ReversePaymentRequest struct {
	Justification string `json:"justification"`
}

// PostPayment godoc
// @Summary Post a repayment
// @Description Apply a repayment to a loan: penalty, then interest, then principal of the oldest installment first. A repeated receipt number with the same body returns the original result.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Param request body PostPaymentRequest true "Payment"
// @Success 201 {object} service.PostPaymentResult
// @Success 200 {object} service.PostPaymentResult "Duplicate submission"
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /loans/{id}/payments [post]
func (h *PaymentHandler) PostPayment(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	var req PostPaymentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	paymentDate, err := util.ParseDate(req.PaymentDate)
	if err != nil {
		return NewValidationError(c, "Invalid payment date", []ValidationError{
			{Field: "paymentDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
	}

	result, err := h.paymentService.PostPayment(c.Request().Context(), actor, loanID, service.PostPaymentInput{
		Amount:        req.Amount,
		Method:        domain.PaymentMethod(req.Method),
		PaymentDate:   paymentDate,
		ReceiptNumber: req.ReceiptNumber,
		Justification: req.Justification,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

// ListPayments godoc
// @Summary List payments of a loan
// @Description Every record of the loan, reversal rows included, in posting order
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Loan ID"
// @Success 200 {array} service.PaymentView
// @Failure 404 {object} ProblemDetails
// @Router /loans/{id}/payments [get]
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	loanID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	payments, err := h.paymentService.ListPayments(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, payments)
}

// GetPayment handles GET /api/v1/payments/:paymentId
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	paymentID, ok, err := uuidParam(c, "paymentId")
	if !ok {
		return err
	}

	payment, err := h.paymentService.GetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

// ReversePayment godoc
// @Summary Reverse a payment
// @Description Append a reversal record and rebuild the loan ledger without the payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body ReversePaymentRequest true "Justification"
// @Success 200 {object} domain.Loan
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /payments/{paymentId}/reverse [post]
func (h *PaymentHandler) ReversePayment(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	paymentID, ok, err := uuidParam(c, "paymentId")
	if !ok {
		return err
	}

	var req ReversePaymentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	loan, err := h.paymentService.ReversePayment(c.Request().Context(), actor, paymentID, req.Justification)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}

// EditPayment godoc
// @Summary Correct a payment
// @Description Reverse the payment and post a replacement with the corrected values
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body EditPaymentRequest true "Corrected payment"
// @Success 200 {object} service.PostPaymentResult
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /payments/{paymentId} [put]
func (h *PaymentHandler) EditPayment(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	paymentID, ok, err := uuidParam(c, "paymentId")
	if !ok {
		return err
	}

	var req EditPaymentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	paymentDate, err := util.ParseDate(req.PaymentDate)
	if err != nil {
		return NewValidationError(c, "Invalid payment date", []ValidationError{
			{Field: "paymentDate", Message: "Must be a date in YYYY-MM-DD format"},
		})
	}

	result, err := h.paymentService.EditPayment(c.Request().Context(), actor, paymentID, service.EditPaymentInput{
		Amount:        req.Amount,
		Method:        domain.PaymentMethod(req.Method),
		PaymentDate:   paymentDate,
		Justification: req.Justification,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
