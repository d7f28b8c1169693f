package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the canonical classification of a sale.
type OrderType string

const (
	OrderTypeEcommerce OrderType = "ecommerce"
	OrderTypeRetail    OrderType = "retail"
	OrderTypeWholesale OrderType = "wholesale"
)

// Source tags written by the order forms
const (
	SourceEcommerce = "tmdt_sales"
	SourceRetail    = "retail_sales"
	SourceWholesale = "wholesale_sales"
)

// Payment statuses derived at order creation
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusPending = "pending"
)

// DefaultMinStock applies to products persisted without a minimum-stock threshold.
var DefaultMinStock = decimal.NewFromInt(10)

// Product represents one sellable/stockable item.
// Stock is a running total; it must only be mutated through the ledger
// (the adjustment operation is the sanctioned absolute override).
type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	SKU         string           `json:"sku,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	Conversion  decimal.Decimal  `json:"conversion"`
	CostPrice   int64            `json:"costPrice,omitempty"`
	Price       int64            `json:"price,omitempty"` // legacy field, fallback for CostPrice
	Stock       decimal.Decimal  `json:"stock"`
	MinStock    *decimal.Decimal `json:"minStock,omitempty"`
	CategoryID  string           `json:"categoryId,omitempty"`
	Description string           `json:"description,omitempty"`
	Supplier    string           `json:"supplier,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// EffectiveCostPrice returns the recorded cost price, falling back to the
// legacy price field for records written before the split.
func (p *Product) EffectiveCostPrice() int64 {
	if p.CostPrice > 0 {
		return p.CostPrice
	}
	return p.Price
}

// EffectiveMinStock returns the low-stock threshold, defaulting when the
// record carries none.
func (p *Product) EffectiveMinStock() decimal.Decimal {
	if p.MinStock == nil {
		return DefaultMinStock
	}
	return *p.MinStock
}

// TransactionType discriminates stock-affecting events.
type TransactionType string

const (
	TransactionIn         TransactionType = "in"
	TransactionOut        TransactionType = "out"
	TransactionAdjustment TransactionType = "adjustment"
)

// FieldChange captures one descriptive field rewritten by an adjustment.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Transaction is an immutable audit record of one stock-affecting event.
// Once written it is never mutated; deleting one does not reverse its
// effect on product stock.
type Transaction struct {
	ID              string                 `json:"id"`
	Type            TransactionType        `json:"type"`
	ProductID       string                 `json:"productId"`
	ProductName     string                 `json:"productName,omitempty"`
	Quantity        decimal.Decimal        `json:"quantity"`
	UnitPrice       int64                  `json:"unitPrice"`
	TotalValue      int64                  `json:"totalValue"`
	StockDifference *decimal.Decimal       `json:"stockDifference,omitempty"`
	Changes         map[string]FieldChange `json:"changes,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	Supplier        string                 `json:"supplier,omitempty"`
	Note            string                 `json:"note,omitempty"`
	StoreID         string                 `json:"storeId,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	SellingPrice int64           `json:"sellingPrice"`
	ImportPrice  int64           `json:"importPrice"`
}

// Order represents a customer sale as persisted. Records are heterogeneous:
// older ones carry flat single-product fields instead of an items array, and
// the total may live in any of three fields. Field presence is data, not
// schema, so the amount fields are pointers.
type Order struct {
	ID           string `json:"id"`
	Source       string `json:"source,omitempty"`
	OrderType    string `json:"orderType,omitempty"`
	Platform     string `json:"platform,omitempty"`
	PlatformName string `json:"platformName,omitempty"`

	Items []OrderItem `json:"items,omitempty"`

	// Flat single-product fields used by legacy records without an items array.
	ProductID    string          `json:"productId,omitempty"`
	ProductName  string          `json:"productName,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	Quantity     decimal.Decimal `json:"quantity,omitempty"`
	SellingPrice int64           `json:"sellingPrice,omitempty"`
	ImportPrice  int64           `json:"importPrice,omitempty"`

	Subtotal    *int64 `json:"subtotal,omitempty"`
	Total       *int64 `json:"total,omitempty"`
	TotalAmount *int64 `json:"totalAmount,omitempty"`
	Discount    int64  `json:"discount,omitempty"`
	Shipping    int64  `json:"shipping,omitempty"`
	Deposit     int64  `json:"deposit,omitempty"`
	Remaining   int64  `json:"remaining,omitempty"`

	PaymentStatus   string `json:"paymentStatus,omitempty"`
	CustomerName    string `json:"customerName,omitempty"`
	CustomerPhone   string `json:"customerPhone,omitempty"`
	CustomerAddress string `json:"customerAddress,omitempty"`

	StoreID   string    `json:"storeId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RevenueAmount returns the order's total-amount equivalent: the first
// populated one of total, totalAmount, subtotal.
func (o *Order) RevenueAmount() int64 {
	switch {
	case o.Total != nil:
		return *o.Total
	case o.TotalAmount != nil:
		return *o.TotalAmount
	case o.Subtotal != nil:
		return *o.Subtotal
	}
	return 0
}

// Profit sums (sellingPrice - importPrice) x quantity per line item, or the
// flat single-product equivalent when no items array exists.
func (o *Order) Profit() int64 {
	if len(o.Items) > 0 {
		var total int64
		for _, item := range o.Items {
			margin := decimal.NewFromInt(item.SellingPrice - item.ImportPrice)
			total += margin.Mul(item.Quantity).Round(0).IntPart()
		}
		return total
	}
	margin := decimal.NewFromInt(o.SellingPrice - o.ImportPrice)
	return margin.Mul(o.Quantity).Round(0).IntPart()
}

// Category groups products.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
