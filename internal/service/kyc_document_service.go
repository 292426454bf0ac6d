package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/repository/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MaxDocumentSize   = 8 * 1024 * 1024 // 8MB
	MinDocumentWidth  = 300
	MinDocumentHeight = 200
	ThumbnailWidth    = 200
	DisplayWidth      = 1200
	JPEGQuality       = 85

	// PresignExpiry is how long a document URL stays valid
	PresignExpiry = 15 * time.Minute
)

// AllowedDocumentExtensions maps accepted upload extensions to content types
var AllowedDocumentExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// DocumentTypes are the identity documents a client may upload
var DocumentTypes = map[string]bool{
	"national_id_front": true,
	"national_id_back":  true,
	"passport":          true,
	"driving_permit":    true,
	"selfie":            true,
}

// UploadDocumentInput is a KYC image as received from the back office
type UploadDocumentInput struct {
	DocumentType  string
	Filename      string
	Data          []byte
	Justification string
}

// DocumentURLs are presigned links to a stored document
type DocumentURLs struct {
	domain.KYCDocument
	DisplayURL   string `json:"displayUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// KYCDocumentService validates, resizes and stores client identity documents
type KYCDocumentService struct {
	store   domain.Store
	gate    *Gate
	storage storage.DocumentRepository
	logger  zerolog.Logger
	now     func() time.Time
}

// NewKYCDocumentService creates a new KYCDocumentService. A nil storage
// disables uploads.
func NewKYCDocumentService(store domain.Store, gate *Gate, docs storage.DocumentRepository, logger zerolog.Logger) *KYCDocumentService {
	return &KYCDocumentService{
		store:   store,
		gate:    gate,
		storage: docs,
		logger:  logger.With().Str("component", "kyc_documents").Logger(),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for record timestamps
func (s *KYCDocumentService) SetClock(now func() time.Time) {
	s.now = now
}

// IsEnabled indicates whether object storage is configured
func (s *KYCDocumentService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// ValidateDocument checks size, format and dimensions of an upload
func (s *KYCDocumentService) ValidateDocument(data []byte, filename string) error {
	_, err := decodeDocument(data, filename)
	return err
}

func decodeDocument(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: file too large, maximum is 8MB", domain.ErrInvalidDocument)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedDocumentExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: unsupported format %q, use JPEG or PNG", domain.ErrInvalidDocument, ext)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: image data could not be decoded", domain.ErrInvalidDocument)
	}
	b := img.Bounds()
	if b.Dx() < MinDocumentWidth || b.Dy() < MinDocumentHeight {
		return nil, fmt.Errorf("%w: image must be at least %dx%d pixels", domain.ErrInvalidDocument, MinDocumentWidth, MinDocumentHeight)
	}
	return img, nil
}

// Upload stores the display and thumbnail variants of a KYC image and
// attaches the document to the client
func (s *KYCDocumentService) Upload(ctx context.Context, actor domain.Actor, clientID uuid.UUID, in UploadDocumentInput) (*domain.KYCDocument, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpUploadKYCDocument,
		Justification: in.Justification,
		EntityType:    domain.EntityClient,
		EntityID:      clientID,
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}
	if !s.IsEnabled() {
		return nil, domain.ErrStorageNotConfigured
	}
	if !DocumentTypes[in.DocumentType] {
		return nil, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidDocument, in.DocumentType)
	}
	if _, err := s.store.Clients().GetByID(ctx, clientID); err != nil {
		return nil, err
	}

	img, err := decodeDocument(in.Data, in.Filename)
	if err != nil {
		return nil, err
	}

	docID := uuid.New()
	variants := []struct {
		name     string
		maxWidth int
	}{
		{"display", DisplayWidth},
		{"thumb", ThumbnailWidth},
	}

	keys := make(map[string]string, len(variants))
	for _, v := range variants {
		processed := img
		if img.Bounds().Dx() > v.maxWidth {
			processed = imaging.Resize(img, v.maxWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, processed, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
			s.cleanup(ctx, keys)
			return nil, fmt.Errorf("failed to encode %s variant: %w", v.name, err)
		}

		objectPath := fmt.Sprintf("clients/%s/kyc/%s-%s.jpg", clientID, docID, v.name)
		key, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
		if err != nil {
			s.cleanup(ctx, keys)
			return nil, fmt.Errorf("failed to upload %s variant: %w", v.name, err)
		}
		keys[v.name] = key
	}

	doc := &domain.KYCDocument{
		ID:           docID,
		ClientID:     clientID,
		DocumentType: in.DocumentType,
		DisplayKey:   keys["display"],
		ThumbnailKey: keys["thumb"],
		UploadedBy:   actor.ID,
		CreatedAt:    s.now().UTC(),
	}
	err = s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Clients().AddDocument(ctx, doc); err != nil {
			return err
		}
		return s.gate.Record(ctx, tx, req, domain.AuditClientKYCEdited, nil, domain.Snapshot{
			"documentId":   doc.ID.String(),
			"documentType": doc.DocumentType,
			"displayKey":   doc.DisplayKey,
		})
	})
	if err != nil {
		s.cleanup(ctx, keys)
		return nil, err
	}

	s.logger.Info().
		Str("client_id", clientID.String()).
		Str("document_id", docID.String()).
		Str("document_type", in.DocumentType).
		Str("actor_id", actor.ID).
		Msg("KYC document uploaded")
	return doc, nil
}

// ListDocuments returns the client's documents with presigned URLs
func (s *KYCDocumentService) ListDocuments(ctx context.Context, clientID uuid.UUID) ([]DocumentURLs, error) {
	if _, err := s.store.Clients().GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	docs, err := s.store.Clients().ListDocuments(ctx, clientID)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentURLs, 0, len(docs))
	for _, d := range docs {
		item := DocumentURLs{KYCDocument: d}
		if s.IsEnabled() {
			if item.DisplayURL, err = s.storage.GeneratePresignedURL(ctx, d.DisplayKey, PresignExpiry); err != nil {
				return nil, err
			}
			if item.ThumbnailURL, err = s.storage.GeneratePresignedURL(ctx, d.ThumbnailKey, PresignExpiry); err != nil {
				return nil, err
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// cleanup removes variants uploaded by a failed operation; errors are only logged
func (s *KYCDocumentService) cleanup(ctx context.Context, keys map[string]string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to remove orphaned document variant")
		}
	}
}
