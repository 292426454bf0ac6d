package domain

import "context"

// Repositories groups the repositories bound to one connection or transaction
type Repositories interface {
	Loans() LoanRepository
	Payments() PaymentRepository
	Audit() AuditRepository
	Clients() ClientRepository
}

// Store gives non-transactional access for reads and runs units of work.
// WithTx commits when fn returns nil and rolls back otherwise; a loan and the
// audit entry describing its change are always written in the same unit.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}
