package models

import (
	"errors"
	"fmt"
)

// Ledger error taxonomy. Every error returned by the engine, the recorder and
// the directory matches one of these through errors.Is.
var (
	ErrInvalidAmount        = errors.New("ledger: invalid amount")
	ErrInsufficientFunds    = errors.New("ledger: insufficient funds")
	ErrSelfTransfer         = errors.New("ledger: cannot transfer to self")
	ErrAccountNotFound      = errors.New("ledger: account not found")
	ErrAuthenticationFailed = errors.New("ledger: authentication failed")
	ErrPersistence          = errors.New("ledger: persistence failure")

	ErrPermissionDenied  = errors.New("ledger: admin privileges required")
	ErrInvalidCredential = errors.New("ledger: invalid credential")
	ErrNegativeBalance   = errors.New("ledger: balance cannot be negative")
	ErrDuplicateAccount  = errors.New("ledger: account id already exists")
)

// PersistenceError wraps a storage failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger: persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// WrapPersistence turns a storage error into a PersistenceError. Domain
// sentinels pass through untouched so callers keep seeing them.
func WrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount,
		ErrInsufficientFunds,
		ErrSelfTransfer,
		ErrAccountNotFound,
		ErrAuthenticationFailed,
		ErrPersistence,
		ErrPermissionDenied,
		ErrInvalidCredential,
		ErrNegativeBalance,
		ErrDuplicateAccount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ClassifyError returns a short label for metrics and logs.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication_failed"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}
