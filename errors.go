package cdp

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("cdp: not found")
	ErrAlreadyExists = errors.New("cdp: already exists")
	ErrInvalidInput  = errors.New("cdp: invalid input")

	// Balance errors
	ErrInvalidAmount          = errors.New("cdp: invalid amount")
	ErrInsufficientCollateral = errors.New("cdp: insufficient collateral")
	ErrOverRepayment          = errors.New("cdp: repayment exceeds outstanding debt")
	ErrOutstandingDebt        = errors.New("cdp: position has outstanding debt")

	// Liquidation errors
	ErrInscription         = errors.New("cdp: inscription failed")
	ErrSubmission          = errors.New("cdp: settlement submission failed")
	ErrSettlementQueueFull = errors.New("cdp: settlement queue full")

	// Lifecycle errors
	ErrStopped = errors.New("cdp: ledger stopped")

	// Store errors
	ErrStoreClosed = errors.New("cdp: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
	// Err optionally classifies the failure, e.g. ErrInvalidAmount.
	Err error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("cdp: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "cdp: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("cdp: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrorOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBalanceError returns true if the error rejected an operation because
// of the amounts involved rather than the position's existence.
func IsBalanceError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientCollateral) ||
		errors.Is(err, ErrOverRepayment) ||
		errors.Is(err, ErrOutstandingDebt)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSettlementQueueFull)
}
