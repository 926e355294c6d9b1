// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrUnknownSizer    = errors.New("unknown sizing mode")
	ErrMissingPrice    = errors.New("missing price")
	ErrNoPosition      = errors.New("no position to sell")
	ErrLedgerClosed    = errors.New("ledger is closed")
	ErrStreamEnded     = errors.New("tick stream ended")
	ErrSourceStopped   = errors.New("event source stopped")
)

// LedgerError represents a failure writing to or reading from the
// durable order ledger. Ledger write failures are fatal for the
// execution attempt that triggered them.
type LedgerError struct {
	Op            string
	ClientOrderID string
	Err           error
}

func (e *LedgerError) Error() string {
	if e.ClientOrderID != "" {
		return fmt.Sprintf("ledger error [%s] %s: %v", e.Op, e.ClientOrderID, e.Err)
	}
	return fmt.Sprintf("ledger error [%s]: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(op, clientOrderID string, err error) *LedgerError {
	return &LedgerError{
		Op:            op,
		ClientOrderID: clientOrderID,
		Err:           err,
	}
}

// OrderError represents an error related to executing an order signal.
type OrderError struct {
	ClientOrderID string
	Symbol        string
	Side          string
	Reason        string
	Err           error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.ClientOrderID, e.Side, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.ClientOrderID, e.Side, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(clientOrderID, symbol, side, reason string, err error) *OrderError {
	return &OrderError{
		ClientOrderID: clientOrderID,
		Symbol:        symbol,
		Side:          side,
		Reason:        reason,
		Err:           err,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StreamError represents a transient market-data stream failure. These
// are retried with backoff by the event source and never surfaced to
// the engine loop.
type StreamError struct {
	Symbol string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error [%s]: %v", e.Symbol, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// NewStreamError creates a new StreamError.
func NewStreamError(symbol string, err error) *StreamError {
	return &StreamError{Symbol: symbol, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
