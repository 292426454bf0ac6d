package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LoanLocks serializes mutating operations per loan inside this process.
// The Postgres store additionally holds a row lock for the duration of each
// transaction, so several API instances stay serialized as well.
type LoanLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*loanLock
}

type loanLock struct {
	ch   chan struct{}
	refs int
}

// NewLoanLocks creates an empty lock table
func NewLoanLocks() *LoanLocks {
	return &LoanLocks{locks: make(map[uuid.UUID]*loanLock)}
}

// Acquire blocks until the loan's lock is held or ctx is done. The returned
// function releases the lock and must be called exactly once.
func (l *LoanLocks) Acquire(ctx context.Context, loanID uuid.UUID) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[loanID]
	if !ok {
		lk = &loanLock{ch: make(chan struct{}, 1)}
		l.locks[loanID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(loanID, lk, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(loanID, lk, true) })
	}, nil
}

func (l *LoanLocks) release(loanID uuid.UUID, lk *loanLock, held bool) {
	if held {
		<-lk.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, loanID)
	}
}

// Len returns the number of loans with a holder or waiter
func (l *LoanLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
