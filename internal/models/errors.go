package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError rejects missing or invalid input before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// InsufficientStockError rejects a stock-out larger than the current stock.
type InsufficientStockError struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested=%s, available=%s",
		e.ProductID, e.Requested, e.Available)
}

// NotFoundError reports a missing document.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// RemoteStoreError wraps a network or backend failure from the document store.
type RemoteStoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *RemoteStoreError) Error() string {
	return fmt.Sprintf("remote store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteStoreError) Unwrap() error {
	return e.Err
}
