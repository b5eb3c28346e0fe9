package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the outcomes a chat command can hit. Handlers and the
// ingest pipeline translate these into short user-facing replies; anything
// that doesn't match is treated as a transient store failure.
var (
	ErrNotFound          = errors.New("not found")
	ErrAmbiguousProduct  = errors.New("ambiguous product")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoValidItems      = errors.New("no valid items")
	ErrValidation        = errors.New("invalid command")
)

// StockConflictError reports which product lost the conditional-decrement
// race inside an order transaction, so the caller can retry or demote just
// that line.
type StockConflictError struct {
	ProductID string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for %s at commit time", e.ProductID)
}

func (e *StockConflictError) Unwrap() error { return ErrInsufficientStock }
