package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClientInput carries the KYC fields of a client
type ClientInput struct {
	FullName      string
	Phone         string
	NationalID    string
	Address       string
	Occupation    string
	KYCStatus     domain.KYCStatus
	Justification string
}

func (in ClientInput) apply(c *domain.Client) {
	c.FullName = in.FullName
	c.Phone = in.Phone
	c.NationalID = in.NationalID
	c.Address = in.Address
	c.Occupation = in.Occupation
	if in.KYCStatus != "" {
		c.KYCStatus = in.KYCStatus
	}
	c.Normalize()
}

func validateClient(c *domain.Client) error {
	if c.FullName == "" {
		return fmt.Errorf("%w: full name is required", domain.ErrInvalidClient)
	}
	if c.Phone == "" {
		return fmt.Errorf("%w: phone is required", domain.ErrInvalidClient)
	}
	if !c.KYCStatus.IsValid() {
		return fmt.Errorf("%w: unknown KYC status %q", domain.ErrInvalidClient, c.KYCStatus)
	}
	return nil
}

// ClientService handles client onboarding and KYC maintenance
type ClientService struct {
	store          domain.Store
	gate           *Gate
	eventPublisher websocket.EventPublisher
	logger         zerolog.Logger
	now            func() time.Time
}

// NewClientService creates a new ClientService
func NewClientService(store domain.Store, gate *Gate, logger zerolog.Logger) *ClientService {
	return &ClientService{
		store:  store,
		gate:   gate,
		logger: logger.With().Str("component", "client_service").Logger(),
		now:    time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ClientService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source used for record timestamps
func (s *ClientService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateClient onboards a client with KYC pending unless stated otherwise
func (s *ClientService) CreateClient(ctx context.Context, actor domain.Actor, in ClientInput) (*domain.Client, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpCreateClient,
		Justification: in.Justification,
		EntityType:    domain.EntityClient,
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	client := &domain.Client{
		ID:        uuid.New(),
		KYCStatus: domain.KYCPending,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(client)
	if err := validateClient(client); err != nil {
		return nil, err
	}
	req.EntityID = client.ID

	err := s.store.WithTx(ctx, func(tx domain.Repositories) error {
		if err := tx.Clients().Create(ctx, client); err != nil {
			return err
		}
		return s.gate.Record(ctx, tx, req, domain.AuditClientCreated, nil, client.Snapshot())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("client_id", client.ID.String()).
		Str("actor_id", actor.ID).
		Msg("Client created")
	return client, nil
}

// UpdateClientKYC replaces the client's KYC fields
func (s *ClientService) UpdateClientKYC(ctx context.Context, actor domain.Actor, clientID uuid.UUID, in ClientInput) (*domain.Client, error) {
	req := Request{
		Actor:         actor,
		Operation:     OpUpdateClientKYC,
		Justification: in.Justification,
		EntityType:    domain.EntityClient,
		EntityID:      clientID,
	}
	if err := s.gate.Admit(ctx, req); err != nil {
		return nil, err
	}

	var client *domain.Client
	err := s.store.WithTx(ctx, func(tx domain.Repositories) error {
		var err error
		client, err = tx.Clients().GetByID(ctx, clientID)
		if err != nil {
			return err
		}
		before := client.Snapshot()
		in.apply(client)
		if err := validateClient(client); err != nil {
			return err
		}
		client.UpdatedAt = s.now().UTC()
		if err := tx.Clients().Update(ctx, client); err != nil {
			return err
		}
		b, a := domain.ChangedFields(before, client.Snapshot())
		return s.gate.Record(ctx, tx, req, domain.AuditClientKYCEdited, b, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("client_id", clientID.String()).
		Str("actor_id", actor.ID).
		Str("kyc_status", string(client.KYCStatus)).
		Msg("Client KYC updated")

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(websocket.TopicPortfolio, websocket.ClientUpdated(client))
	}
	return client, nil
}

// GetClient retrieves a client by id
func (s *ClientService) GetClient(ctx context.Context, clientID uuid.UUID) (*domain.Client, error) {
	return s.store.Clients().GetByID(ctx, clientID)
}

// ListClients returns a page of clients in onboarding order
func (s *ClientService) ListClients(ctx context.Context, limit, offset int) ([]*domain.Client, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.store.Clients().List(ctx, limit, max(offset, 0))
}

// ListClientAudit returns the client's audit trail
func (s *ClientService) ListClientAudit(ctx context.Context, clientID uuid.UUID) ([]domain.AuditEntry, error) {
	if _, err := s.store.Clients().GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	return s.store.Audit().ListByEntity(ctx, domain.EntityClient, clientID)
}
