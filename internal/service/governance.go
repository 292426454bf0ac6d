package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MinJustificationLength is the minimum number of characters in a trimmed justification
const MinJustificationLength = 5

// LargeLoanThreshold is the financed amount above which only an admin may originate or re-term a loan
const LargeLoanThreshold int64 = 1_000_000

// Operation names a gated state change
type Operation string

const (
	OpCreateLoan        Operation = "create_loan"
	OpEditLoan          Operation = "edit_loan"
	OpTransitionLoan    Operation = "transition_loan"
	OpPostPayment       Operation = "post_payment"
	OpEditPayment       Operation = "edit_payment"
	OpReversePayment    Operation = "reverse_payment"
	OpEvaluateLoan      Operation = "evaluate_loan"
	OpCreateClient      Operation = "create_client"
	OpUpdateClientKYC   Operation = "update_client_kyc"
	OpUploadKYCDocument Operation = "upload_kyc_document"
)

var (
	originators  = roles(domain.RoleAdmin, domain.RoleManager, domain.RoleStaff)
	supervisors  = roles(domain.RoleAdmin, domain.RoleManager)
	adminsOnly   = roles(domain.RoleAdmin)
	evaluators   = roles(domain.RoleAdmin, domain.RoleManager, domain.RoleStaff, domain.RoleSystem)
	transitioner = map[domain.LoanStatus]map[domain.Role]bool{
		domain.LoanStatusPending:   originators,
		domain.LoanStatusApproved:  supervisors,
		domain.LoanStatusDisbursed: supervisors,
		domain.LoanStatusActive:    supervisors,
		domain.LoanStatusDefaulted: adminsOnly,
		domain.LoanStatusCancelled: adminsOnly,
	}
)

func roles(rs ...domain.Role) map[domain.Role]bool {
	m := make(map[domain.Role]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}

// Request describes one gated operation as seen by the gate
type Request struct {
	Actor         domain.Actor
	Operation     Operation
	Justification string

	// EntityType and EntityID identify what the operation targets; EntityID is
	// uuid.Nil for creations
	EntityType string
	EntityID   uuid.UUID
	LoanID     *uuid.UUID

	// FinancedAmount is set for loan origination and re-terming
	FinancedAmount int64
	// Target is set for lifecycle transitions
	Target domain.LoanStatus
}

// Gate is the admission-control boundary for every mutating operation. It
// checks the role matrix first, then the justification, and builds the audit
// entries that accompany each committed change.
type Gate struct {
	store  domain.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewGate creates a new Gate
func NewGate(store domain.Store, logger zerolog.Logger) *Gate {
	return &Gate{
		store:  store,
		logger: logger.With().Str("component", "governance").Logger(),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for audit timestamps
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Permitted reports whether the role matrix admits the request, ignoring justification
func Permitted(req Request) bool {
	role := req.Actor.Role
	if req.Actor.ID == "" {
		return false
	}

	switch req.Operation {
	case OpCreateLoan, OpEditLoan:
		if req.Operation == OpEditLoan && !supervisors[role] {
			return false
		}
		if req.FinancedAmount > LargeLoanThreshold {
			return adminsOnly[role]
		}
		return originators[role]
	case OpPostPayment, OpCreateClient:
		return originators[role]
	case OpEditPayment, OpReversePayment:
		return adminsOnly[role]
	case OpUpdateClientKYC, OpUploadKYCDocument:
		return supervisors[role]
	case OpEvaluateLoan:
		return evaluators[role]
	case OpTransitionLoan:
		if allowed, ok := transitioner[req.Target]; ok {
			return allowed[role]
		}
		// engine-owned or unknown targets are rejected later as illegal transitions
		return originators[role]
	}
	return false
}

// Admit checks the request against the role matrix and the justification
// rule. A denial is audited as GOVERNANCE_DENIED in its own unit of work and
// returned as ErrAccessDenied.
func (g *Gate) Admit(ctx context.Context, req Request) error {
	if !Permitted(req) {
		g.recordDenial(ctx, req)
		return fmt.Errorf("%w: role %q may not %s", domain.ErrAccessDenied, req.Actor.Role, req.Operation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Justification)) < MinJustificationLength {
		return domain.ErrMissingJustification
	}
	return nil
}

func (g *Gate) recordDenial(ctx context.Context, req Request) {
	entry := g.Entry(req, domain.AuditGovernanceDenied, nil, domain.Snapshot{
		"operation": string(req.Operation),
		"role":      string(req.Actor.Role),
	})
	if req.Target != "" {
		entry.After["target"] = string(req.Target)
	}
	if req.FinancedAmount > 0 {
		entry.After["financedAmount"] = req.FinancedAmount
	}

	err := g.store.WithTx(ctx, func(tx domain.Repositories) error {
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("actor_id", req.Actor.ID).
			Str("operation", string(req.Operation)).
			Msg("Failed to record governance denial")
		return
	}

	g.logger.Warn().
		Str("actor_id", req.Actor.ID).
		Str("role", string(req.Actor.Role)).
		Str("operation", string(req.Operation)).
		Msg("Operation denied")
}

// Entry builds the audit entry for a request. The justification is stored trimmed.
func (g *Gate) Entry(req Request, action domain.AuditAction, before, after domain.Snapshot) *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:            uuid.New(),
		Timestamp:     g.now().UTC(),
		Action:        action,
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		LoanID:        req.LoanID,
		ActorID:       req.Actor.ID,
		ActorRole:     req.Actor.Role,
		Justification: strings.TrimSpace(req.Justification),
		Operation:     string(req.Operation),
		Before:        before,
		After:         after,
	}
}

// Record appends the audit entry for a successful change inside the caller's transaction
func (g *Gate) Record(ctx context.Context, tx domain.Repositories, req Request, action domain.AuditAction, before, after domain.Snapshot) error {
	if err := tx.Audit().Append(ctx, g.Entry(req, action, before, after)); err != nil {
		return fmt.Errorf("%w: append audit entry: %v", domain.ErrInternalFailure, err)
	}
	return nil
}
