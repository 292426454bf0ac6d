package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KYCStatus is the know-your-customer verification state of a client
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// IsValid checks if the KYC status is recognized
func (s KYCStatus) IsValid() bool {
	return s == KYCPending || s == KYCVerified || s == KYCRejected
}

// Client is a borrower
type Client struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	NationalID string    `json:"nationalId"`
	Address    string    `json:"address"`
	Occupation string    `json:"occupation"`
	KYCStatus  KYCStatus `json:"kycStatus"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Snapshot captures the audited KYC fields
func (c *Client) Snapshot() Snapshot {
	return Snapshot{
		"fullName":   c.FullName,
		"phone":      c.Phone,
		"nationalId": c.NationalID,
		"address":    c.Address,
		"occupation": c.Occupation,
		"kycStatus":  string(c.KYCStatus),
	}
}

// Normalize trims free-text fields
func (c *Client) Normalize() {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.NationalID = strings.ToUpper(strings.TrimSpace(c.NationalID))
	c.Address = strings.TrimSpace(c.Address)
	c.Occupation = strings.TrimSpace(c.Occupation)
}

// KYCDocument is an identity document image stored in object storage
type KYCDocument struct {
	ID           uuid.UUID `json:"id"`
	ClientID     uuid.UUID `json:"clientId"`
	DocumentType string    `json:"documentType"`
	DisplayKey   string    `json:"displayKey"`
	ThumbnailKey string    `json:"thumbnailKey"`
	UploadedBy   string    `json:"uploadedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ClientRepository persists clients and their KYC documents
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, client *Client) error
	List(ctx context.Context, limit, offset int) ([]*Client, error)
	AddDocument(ctx context.Context, doc *KYCDocument) error
	ListDocuments(ctx context.Context, clientID uuid.UUID) ([]KYCDocument, error)
}
