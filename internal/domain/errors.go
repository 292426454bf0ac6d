package domain

import "errors"

// Error kinds surfaced to callers. Ledger and gate errors always wrap one of these.
var (
	ErrInvalidTerms         = errors.New("invalid loan terms")
	ErrInvalidPayment       = errors.New("invalid payment")
	ErrMissingJustification = errors.New("justification is required (minimum 5 characters)")
	ErrAccessDenied         = errors.New("access denied")
	ErrIllegalTransition    = errors.New("illegal lifecycle transition")
	ErrConflict             = errors.New("conflict")
	ErrNotFound             = errors.New("resource not found")
	ErrInternalFailure      = errors.New("internal failure")
)

// Client and KYC document errors
var (
	ErrInvalidClient        = errors.New("invalid client")
	ErrStorageNotConfigured = errors.New("document storage not configured")
	ErrInvalidDocument      = errors.New("invalid document")
)

// Narrower errors, each wrapping a kind
var (
	ErrLoanNotFound    = wrapKind(ErrNotFound, "loan not found")
	ErrPaymentNotFound = wrapKind(ErrNotFound, "payment not found")
	ErrClientNotFound  = wrapKind(ErrNotFound, "client not found")
	ErrStaleLoan       = wrapKind(ErrConflict, "loan was modified concurrently")
	ErrReceiptReused   = wrapKind(ErrConflict, "receipt number already used with a different payment")
	ErrAlreadyReversed = wrapKind(ErrConflict, "payment already reversed")
)

// ErrorKind is the stable code reported to callers
type ErrorKind string

const (
	KindInvalidTerms         ErrorKind = "INVALID_TERMS"
	KindInvalidPayment       ErrorKind = "INVALID_PAYMENT"
	KindMissingJustification ErrorKind = "MISSING_JUSTIFICATION"
	KindAccessDenied         ErrorKind = "ACCESS_DENIED"
	KindIllegalTransition    ErrorKind = "ILLEGAL_TRANSITION"
	KindConflict             ErrorKind = "CONFLICT"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindInternalFailure      ErrorKind = "INTERNAL_FAILURE"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidTerms, KindInvalidTerms},
	{ErrInvalidPayment, KindInvalidPayment},
	{ErrMissingJustification, KindMissingJustification},
	{ErrAccessDenied, KindAccessDenied},
	{ErrIllegalTransition, KindIllegalTransition},
	{ErrConflict, KindConflict},
	{ErrNotFound, KindNotFound},
	{ErrInternalFailure, KindInternalFailure},
}

// KindOf classifies an error. Unclassified errors are internal failures.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternalFailure
}

// IsRetriable reports whether the caller may retry the same request
func IsRetriable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindInternalFailure:
		return true
	}
	return false
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func wrapKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
