package handler

import (
	"net/http"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/labstack/echo/v4"
)

// ClientHandler handles borrower HTTP requests
type ClientHandler struct {
	clientService *service.ClientService
	loanService   *service.LoanService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *service.ClientService, loanService *service.LoanService) *ClientHandler {
	return &ClientHandler{clientService: clientService, loanService: loanService}
}

// ClientRequest represents the create and update client request body
type ClientRequest struct {
	FullName      string `json:"fullName" validate:"required,max=200"`
	Phone         string `json:"phone" validate:"required,max=32"`
	NationalID    string `json:"nationalId,omitempty" validate:"max=32"`
	Address       string `json:"address,omitempty" validate:"max=500"`
	Occupation    string `json:"occupation,omitempty" validate:"max=200"`
	KYCStatus     string `json:"kycStatus,omitempty" validate:"omitempty,oneof=pending verified rejected"`
	Justification string `json:"justification"`
}

func (r ClientRequest) toInput() service.ClientInput {
	return service.ClientInput{
		FullName:      r.FullName,
		Phone:         r.Phone,
		NationalID:    r.NationalID,
		Address:       r.Address,
		Occupation:    r.Occupation,
		KYCStatus:     domain.KYCStatus(r.KYCStatus),
		Justification: r.Justification,
	}
}

// CreateClient godoc
// @Summary Onboard a client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClientRequest true "Client"
// @Success 201 {object} domain.Client
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails "National ID already registered"
// @Router /clients [post]
func (h *ClientHandler) CreateClient(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}

	var req ClientRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	client, err := h.clientService.CreateClient(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, client)
}

// ListClients handles GET /api/v1/clients
func (h *ClientHandler) ListClients(c echo.Context) error {
	limit, offset, verrs := paging(c)
	if len(verrs) > 0 {
		return NewValidationError(c, "Invalid query parameters", verrs)
	}

	clients, err := h.clientService.ListClients(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, clients)
}

// GetClient handles GET /api/v1/clients/:id
func (h *ClientHandler) GetClient(c echo.Context) error {
	clientID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	client, err := h.clientService.GetClient(c.Request().Context(), clientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// UpdateClientKYC godoc
// @Summary Update client KYC
// @Description Replace the client's KYC fields. Every change is audited with its justification.
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param request body ClientRequest true "Client"
// @Success 200 {object} domain.Client
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /clients/{id} [put]
func (h *ClientHandler) UpdateClientKYC(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	clientID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	var req ClientRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	client, err := h.clientService.UpdateClientKYC(c.Request().Context(), actor, clientID, req.toInput())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// ListClientAudit handles GET /api/v1/clients/:id/audit
func (h *ClientHandler) ListClientAudit(c echo.Context) error {
	clientID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	entries, err := h.clientService.ListClientAudit(c.Request().Context(), clientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// ListClientLoans handles GET /api/v1/clients/:id/loans
func (h *ClientHandler) ListClientLoans(c echo.Context) error {
	clientID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	if _, err := h.clientService.GetClient(c.Request().Context(), clientID); err != nil {
		return respondError(c, err)
	}
	loans, err := h.loanService.ListLoans(c.Request().Context(), domain.LoanFilter{ClientID: &clientID})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loans)
}
