package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store implements domain.Store using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.Store = (*Store)(nil)

// NewStore creates a new Store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Loans returns a loan repository outside any transaction
func (s *Store) Loans() domain.LoanRepository { return &LoanRepository{db: s.pool} }

// Payments returns a payment repository outside any transaction
func (s *Store) Payments() domain.PaymentRepository { return &PaymentRepository{db: s.pool} }

// Audit returns an audit repository outside any transaction
func (s *Store) Audit() domain.AuditRepository { return &AuditRepository{db: s.pool} }

// Clients returns a client repository outside any transaction
func (s *Store) Clients() domain.ClientRepository { return &ClientRepository{db: s.pool} }

// WithTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and is rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(txRepositories{tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type txRepositories struct{ tx pgx.Tx }

func (t txRepositories) Loans() domain.LoanRepository       { return &LoanRepository{db: t.tx} }
func (t txRepositories) Payments() domain.PaymentRepository { return &PaymentRepository{db: t.tx} }
func (t txRepositories) Audit() domain.AuditRepository      { return &AuditRepository{db: t.tx} }
func (t txRepositories) Clients() domain.ClientRepository   { return &ClientRepository{db: t.tx} }

// PostgreSQL error codes we classify
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError classifies a driver error into a domain error kind. Unique
// violations and serialization failures are conflicts the caller may retry;
// everything else is an internal failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrInternalFailure, err)
}
