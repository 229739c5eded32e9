package services

import (
	"database/sql"
	"errors"
	"fmt"
)

// Validation failures: rejected before any write.
var (
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrSameAccount    = errors.New("debit and credit accounts must differ")
	ErrMissingField   = errors.New("missing required field")
	ErrNotCategory    = errors.New("account is not a budget category")
	ErrNotPostable    = errors.New("account is a group header and cannot take postings")
	ErrNotCreditCard  = errors.New("account is not a credit card liability")
	ErrInvalidPercent = errors.New("percentage out of range")
	ErrNotDueYet      = errors.New("occurrence is not due yet")
)

// Not-found failures: unknown id or a reference outside the caller's ledger.
var (
	ErrNotFound    = errors.New("not found")
	ErrCrossLedger = errors.New("account belongs to a different ledger")
)

// Conflicts: existing state forbids the operation; caller may retry with
// fresh state.
var (
	ErrTransactionNotActive   = errors.New("transaction already reversed or deleted")
	ErrAlreadyMaterialized    = errors.New("occurrence already materialized")
	ErrConcurrentModification = errors.New("state changed concurrently")
	ErrAccountHasPostings     = errors.New("account has postings and cannot be deleted")
	ErrSystemCategory         = errors.New("reserved category cannot be modified")
	ErrPaymentNotPending      = errors.New("scheduled payment is not pending")
	ErrTemplateDisabled       = errors.New("recurring template is disabled")
)

func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSameAccount) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrNotCategory) ||
		errors.Is(err, ErrNotPostable) ||
		errors.Is(err, ErrNotCreditCard) ||
		errors.Is(err, ErrInvalidPercent) ||
		errors.Is(err, ErrNotDueYet)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCrossLedger)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrTransactionNotActive) ||
		errors.Is(err, ErrAlreadyMaterialized) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrAccountHasPostings) ||
		errors.Is(err, ErrSystemCategory) ||
		errors.Is(err, ErrPaymentNotPending) ||
		errors.Is(err, ErrTemplateDisabled)
}

// notFound maps sql.ErrNoRows onto the service taxonomy, keeping the
// entity name for the caller.
func notFound(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return err
}
