package postgres

import (
	"context"
	"errors"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ClientRepository implements domain.ClientRepository using PostgreSQL
type ClientRepository struct {
	db querier
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db querier) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, full_name, phone, national_id, address, occupation, kyc_status,
	created_by, created_at, updated_at`

// Create inserts a client; a national ID already on file yields ErrConflict
func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		client.ID, client.FullName, client.Phone, emptyToPgText(client.NationalID),
		client.Address, client.Occupation, string(client.KYCStatus),
		client.CreatedBy, client.CreatedAt, client.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves a client by its ID
func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	client, err := scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, mapError(err)
	}
	return client, nil
}

// Update overwrites the client's KYC fields
func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE clients
		SET full_name = $2, phone = $3, national_id = $4, address = $5, occupation = $6,
			kyc_status = $7, updated_at = $8
		WHERE id = $1`,
		client.ID, client.FullName, client.Phone, emptyToPgText(client.NationalID),
		client.Address, client.Occupation, string(client.KYCStatus), client.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

// List returns clients in registration order
func (r *ClientRepository) List(ctx context.Context, limit, offset int) ([]*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY created_at, id OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	clients := []*domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, mapError(err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return clients, nil
}

// AddDocument records an uploaded KYC document
func (r *ClientRepository) AddDocument(ctx context.Context, doc *domain.KYCDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO kyc_documents (id, client_id, document_type, display_key, thumbnail_key, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.ClientID, doc.DocumentType, doc.DisplayKey, doc.ThumbnailKey, doc.UploadedBy, doc.CreatedAt,
	)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrClientNotFound
		}
		return err
	}
	return nil
}

// ListDocuments returns the client's documents, oldest first
func (r *ClientRepository) ListDocuments(ctx context.Context, clientID uuid.UUID) ([]domain.KYCDocument, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, document_type, display_key, thumbnail_key, uploaded_by, created_at
		FROM kyc_documents
		WHERE client_id = $1
		ORDER BY created_at, id`, clientID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	docs := []domain.KYCDocument{}
	for rows.Next() {
		var d domain.KYCDocument
		if err := rows.Scan(&d.ID, &d.ClientID, &d.DocumentType, &d.DisplayKey, &d.ThumbnailKey, &d.UploadedBy, &d.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		d.CreatedAt = d.CreatedAt.UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var (
		c          domain.Client
		nationalID pgtype.Text
		kycStatus  string
	)
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &nationalID, &c.Address, &c.Occupation, &kycStatus,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.NationalID = nationalID.String
	c.KYCStatus = domain.KYCStatus(kycStatus)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}
