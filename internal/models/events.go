package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeStockIn               = "STOCK_IN"
	EventTypeStockOut              = "STOCK_OUT"
	EventTypeStockAdjusted         = "STOCK_ADJUSTED"
	EventTypeLowStock              = "LOW_STOCK"
	EventTypeWholesaleOrderCreated = "WHOLESALE_ORDER_CREATED"
	EventTypeWholesaleOrderDeleted = "WHOLESALE_ORDER_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockChangedEvent published after every ledger mutation
type StockChangedEvent struct {
	BaseEvent
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	NewStock      decimal.Decimal `json:"new_stock"`
	MinStock      decimal.Decimal `json:"min_stock"`
	StoreID       string          `json:"store_id,omitempty"`
}

// LowStockEvent published when a stock-out leaves a product at or below
// its minimum-stock threshold
type LowStockEvent struct {
	BaseEvent
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Stock       decimal.Decimal `json:"stock"`
	MinStock    decimal.Decimal `json:"min_stock"`
	StoreID     string          `json:"store_id,omitempty"`
}

// WholesaleOrderEvent published on wholesale order creation and deletion
type WholesaleOrderEvent struct {
	BaseEvent
	OrderID string      `json:"order_id"`
	StoreID string      `json:"store_id"`
	Total   int64       `json:"total"`
	Items   []OrderItem `json:"items,omitempty"`
}
