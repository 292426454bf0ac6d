package domain

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// AuditAction enumerates what an audit entry records
type AuditAction string

const (
	AuditLoanCreated      AuditAction = "LOAN_CREATED"
	AuditLoanEdited       AuditAction = "LOAN_EDITED"
	AuditStatusChanged    AuditAction = "STATUS_CHANGED"
	AuditPaymentPosted    AuditAction = "PAYMENT_POSTED"
	AuditPaymentReversed  AuditAction = "PAYMENT_REVERSED"
	AuditPaymentEdited    AuditAction = "PAYMENT_EDITED"
	AuditPenaltyAccrued   AuditAction = "PENALTY_ACCRUED"
	AuditGovernanceDenied AuditAction = "GOVERNANCE_DENIED"
	AuditClientCreated    AuditAction = "CLIENT_CREATED"
	AuditClientKYCEdited  AuditAction = "CLIENT_KYC_EDITED"
)

// Audited entity types
const (
	EntityLoan    = "loan"
	EntityPayment = "payment"
	EntityClient  = "client"
)

// Snapshot is a flat set of field values captured before or after a change
type Snapshot map[string]any

// AuditEntry is one immutable line of the audit log
type AuditEntry struct {
	ID            uuid.UUID   `json:"id"`
	Sequence      int64       `json:"sequence"`
	Timestamp     time.Time   `json:"timestamp"`
	Action        AuditAction `json:"action"`
	EntityType    string      `json:"entityType"`
	EntityID      uuid.UUID   `json:"entityId"`
	LoanID        *uuid.UUID  `json:"loanId,omitempty"`
	ActorID       string      `json:"actorId"`
	ActorRole     Role        `json:"actorRole"`
	Justification string      `json:"justification"`
	Operation     string      `json:"operation,omitempty"`
	Before        Snapshot    `json:"before,omitempty"`
	After         Snapshot    `json:"after,omitempty"`
}

// ChangedFields reduces two snapshots to the keys whose values differ
func ChangedFields(before, after Snapshot) (Snapshot, Snapshot) {
	b, a := Snapshot{}, Snapshot{}
	for k, av := range after {
		bv, ok := before[k]
		if !ok || !reflect.DeepEqual(bv, av) {
			if ok {
				b[k] = bv
			}
			a[k] = av
		}
	}
	for k, bv := range before {
		if _, ok := after[k]; !ok {
			b[k] = bv
		}
	}
	return b, a
}

// AuditRepository is append-only
type AuditRepository interface {
	// Append stores the entry and assigns its Sequence
	Append(ctx context.Context, entry *AuditEntry) error
	// ListByLoan returns the loan's entries ordered by (timestamp, sequence)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]AuditEntry, error)
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]AuditEntry, error)
}
