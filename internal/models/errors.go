package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for the match lifecycle. Check with errors.Is; the
// structured types below carry the offending ids.
var (
	ErrEmptySelection      = errors.New("both sides must reference at least one transaction")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyMatched      = errors.New("transaction already matched")
	ErrDuplicateSelection  = errors.New("transaction referenced more than once")
	ErrSideMismatch        = errors.New("transaction listed on the wrong side")
	ErrMatchNotFound       = errors.New("match not found")
	ErrAlreadyApproved     = errors.New("match already approved")
	ErrConflictOfInterest  = errors.New("match creator cannot approve their own match")
	ErrStaleVersion        = errors.New("match was modified concurrently")
	ErrStorage             = errors.New("storage error")
)

type TransactionNotFoundError struct {
	ID uuid.UUID
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction %s not found", e.ID)
}

func (e *TransactionNotFoundError) Unwrap() error { return ErrTransactionNotFound }

type AlreadyMatchedError struct {
	ID      uuid.UUID
	MatchID uuid.UUID
}

func (e *AlreadyMatchedError) Error() string {
	return fmt.Sprintf("transaction %s is already matched in group %s", e.ID, e.MatchID)
}

func (e *AlreadyMatchedError) Unwrap() error { return ErrAlreadyMatched }

type SideMismatchError struct {
	ID   uuid.UUID
	Want TransactionSide
}

func (e *SideMismatchError) Error() string {
	return fmt.Sprintf("transaction %s does not belong to the %s side", e.ID, e.Want)
}

func (e *SideMismatchError) Unwrap() error { return ErrSideMismatch }

type StaleVersionError struct {
	MatchID uuid.UUID
	Version int
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("match %s changed since version %d was read", e.MatchID, e.Version)
}

func (e *StaleVersionError) Unwrap() error { return ErrStaleVersion }

// IsValidation reports whether the error is caller-correctable input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrDuplicateSelection) ||
		errors.Is(err, ErrSideMismatch)
}

// IsNotFound reports whether the error refers to a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrMatchNotFound)
}

// IsConflict reports whether the error is a state conflict that a caller can
// resolve by re-reading current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyMatched) ||
		errors.Is(err, ErrAlreadyApproved) ||
		errors.Is(err, ErrStaleVersion)
}
