package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AuditRepository implements domain.AuditRepository using PostgreSQL.
// Entries are append-only; sequence is a bigserial so ordering is total.
type AuditRepository struct {
	db querier
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db querier) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, sequence, occurred_at, action, entity_type, entity_id, loan_id,
	actor_id, actor_role, justification, operation, before_state, after_state`

// Append stores the entry and assigns its Sequence
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_log (id, occurred_at, action, entity_type, entity_id, loan_id,
			actor_id, actor_role, justification, operation, before_state, after_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING sequence`,
		entry.ID, entry.Timestamp, string(entry.Action), entry.EntityType, entry.EntityID, uuidPtrToPg(entry.LoanID),
		entry.ActorID, string(entry.ActorRole), entry.Justification, entry.Operation, before, after,
	).Scan(&entry.Sequence)
	return mapError(err)
}

// ListByLoan returns the loan's entries ordered by (timestamp, sequence)
func (r *AuditRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]domain.AuditEntry, error) {
	return r.list(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE loan_id = $1
		ORDER BY occurred_at, sequence`, loanID)
}

// ListByEntity returns every entry about one entity
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditEntry, error) {
	return r.list(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY occurred_at, sequence`, entityType, entityID)
}

func (r *AuditRepository) list(ctx context.Context, query string, args ...any) ([]domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var (
		e                   domain.AuditEntry
		action, role        string
		loanID              pgtype.UUID
		operation           pgtype.Text
		beforeRaw, afterRaw []byte
	)
	err := row.Scan(&e.ID, &e.Sequence, &e.Timestamp, &action, &e.EntityType, &e.EntityID, &loanID,
		&e.ActorID, &role, &e.Justification, &operation, &beforeRaw, &afterRaw)
	if err != nil {
		return nil, mapError(err)
	}

	e.Action = domain.AuditAction(action)
	e.ActorRole = domain.Role(role)
	e.LoanID = pgToUUIDPtr(loanID)
	e.Operation = operation.String
	e.Timestamp = e.Timestamp.UTC()
	if e.Before, err = unmarshalSnapshot(beforeRaw); err != nil {
		return nil, err
	}
	if e.After, err = unmarshalSnapshot(afterRaw); err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalSnapshot(s domain.Snapshot) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: encode audit snapshot: %v", domain.ErrInternalFailure, err)
	}
	return b, nil
}

func unmarshalSnapshot(raw []byte) (domain.Snapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s domain.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: decode audit snapshot: %v", domain.ErrInternalFailure, err)
	}
	return s, nil
}
