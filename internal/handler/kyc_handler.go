package handler

import (
	"io"
	"net/http"

	"github.com/bingovintage/loan-engine/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// KYCHandler handles identity document uploads
type KYCHandler struct {
	documentService *service.KYCDocumentService
}

// NewKYCHandler creates a new KYCHandler
func NewKYCHandler(documentService *service.KYCDocumentService) *KYCHandler {
	return &KYCHandler{documentService: documentService}
}

// UploadDocument godoc
// @Summary Upload a KYC document
// @Description Store an identity document image for a client. Display and thumbnail variants are written to object storage.
// @Tags clients
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param file formData file true "JPEG or PNG image"
// @Param documentType formData string true "national_id_front, national_id_back, passport, driving_permit or selfie"
// @Param justification formData string true "Reason for the change"
// @Success 201 {object} domain.KYCDocument
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /clients/{id}/documents [post]
func (h *KYCHandler) UploadDocument(c echo.Context) error {
	actor, ok, err := actorFrom(c)
	if !ok {
		return err
	}
	clientID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxDocumentSize {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: "File too large. Maximum size is 8MB"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	doc, err := h.documentService.Upload(c.Request().Context(), actor, clientID, service.UploadDocumentInput{
		DocumentType:  c.FormValue("documentType"),
		Filename:      file.Filename,
		Data:          data,
		Justification: c.FormValue("justification"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// ListDocuments handles GET /api/v1/clients/:id/documents
func (h *KYCHandler) ListDocuments(c echo.Context) error {
	clientID, ok, err := uuidParam(c, "id")
	if !ok {
		return err
	}

	docs, err := h.documentService.ListDocuments(c.Request().Context(), clientID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}
