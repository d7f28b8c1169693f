// Package reconcile keeps product stock consistent with the wholesale order
// lifecycle. Retail and e-commerce orders do not reserve stock in this
// system; the asymmetry is deliberate and documented, not an omission to
// repair here.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"backoffice-service/internal/docstore"
	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderPublisher publishes order lifecycle events; may be nil.
type OrderPublisher interface {
	PublishWholesaleOrder(ctx context.Context, event *models.WholesaleOrderEvent) error
}

// SnapshotInvalidator drops a store's cached aggregator snapshot after an
// order write; may be nil.
type SnapshotInvalidator interface {
	InvalidateOrderSnapshot(ctx context.Context, storeID string) error
}

// Reconciler mutates product stock directly on wholesale order creation and
// deletion. It deliberately bypasses the warehouse ledger, so wholesale
// stock depletion produces no transaction record; that matches the
// dashboard's historical reporting, which treats wholesale movement as
// order data, not warehouse events.
type Reconciler struct {
	store  docstore.Client
	events OrderPublisher
	cache  SnapshotInvalidator
	logger *zap.Logger
}

// New creates a reconciler. events and cache may be nil.
func New(store docstore.Client, events OrderPublisher, cache SnapshotInvalidator) *Reconciler {
	return &Reconciler{
		store:  store,
		events: events,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// OrderRequest is the input of the order creation operations.
type OrderRequest struct {
	ID              string             `json:"id,omitempty"`
	Items           []models.OrderItem `json:"items"`
	Discount        int64              `json:"discount,omitempty"`
	Shipping        int64              `json:"shipping,omitempty"`
	Deposit         int64              `json:"deposit,omitempty"`
	Platform        string             `json:"platform,omitempty"`
	CustomerName    string             `json:"customerName,omitempty"`
	CustomerPhone   string             `json:"customerPhone,omitempty"`
	CustomerAddress string             `json:"customerAddress,omitempty"`
}

// DerivePaymentStatus classifies an order by its deposit against its total:
// paid when a deposit covers the total (including a fully-discounted zero
// total), partial when something but not everything was paid, pending
// otherwise. An order with no deposit is always pending.
func DerivePaymentStatus(deposit, total int64) string {
	switch {
	case deposit > 0 && deposit >= total:
		return models.PaymentStatusPaid
	case deposit > 0 && deposit < total:
		return models.PaymentStatusPartial
	default:
		return models.PaymentStatusPending
	}
}

// CreateWholesaleOrder writes the order record and then decrements each
// line item's product stock by writing the new value directly. Quantities
// may exceed available stock; no rejection is enforced. No warehouse
// transaction is produced for the depletion.
func (r *Reconciler) CreateWholesaleOrder(ctx context.Context, storeID string, req *OrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.CreateWholesaleOrder")
	defer span.End()

	order, err := r.buildOrder(storeID, req, models.SourceWholesale, string(models.OrderTypeWholesale))
	if err != nil {
		return nil, err
	}
	if order.ID == "" {
		order.ID = fmt.Sprintf("WHOLESALE-%s", uuid.New().String())
	}

	path := docstore.StoreOrderPath(storeID, docstore.OrderKindWholesale, order.ID)
	if err := r.store.Set(ctx, path, order); err != nil {
		return nil, err
	}

	// Reserve stock per line item. Each item is an independent
	// read-modify-write; a failure part-way leaves earlier items already
	// decremented and later ones untouched.
	for _, item := range order.Items {
		if err := r.applyStockDelta(ctx, item.ProductID, item.Quantity.Neg()); err != nil {
			return nil, fmt.Errorf("failed to reserve stock for product %s: %w", item.ProductID, err)
		}
	}

	util.WholesaleOrdersCreatedTotal.Inc()
	r.logger.Info("Wholesale order created",
		zap.String("order_id", order.ID),
		zap.String("store_id", storeID),
		zap.Int("items", len(order.Items)))

	r.invalidateSnapshot(ctx, storeID)
	r.publishOrderEvent(ctx, models.EventTypeWholesaleOrderCreated, order)

	return order, nil
}

// DeleteWholesaleOrder restores each line item's stock and removes the
// order record. Restoration bypasses the ledger like creation did.
func (r *Reconciler) DeleteWholesaleOrder(ctx context.Context, storeID, orderID string) error {
	ctx, span := util.StartSpan(ctx, "Reconciler.DeleteWholesaleOrder")
	defer span.End()

	path := docstore.StoreOrderPath(storeID, docstore.OrderKindWholesale, orderID)

	var order models.Order
	if err := r.store.Get(ctx, path, &order); err != nil {
		return err
	}

	for _, item := range orderItems(&order) {
		if err := r.applyStockDelta(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock for product %s: %w", item.ProductID, err)
		}
	}

	if err := r.store.Delete(ctx, path); err != nil {
		return err
	}

	util.WholesaleOrdersDeletedTotal.Inc()
	r.logger.Info("Wholesale order deleted",
		zap.String("order_id", orderID),
		zap.String("store_id", storeID))

	r.invalidateSnapshot(ctx, storeID)
	r.publishOrderEvent(ctx, models.EventTypeWholesaleOrderDeleted, &order)

	return nil
}

// DeleteWholesaleOrders deletes orders one by one and stops at the first
// failure, returning how many were fully deleted before it.
func (r *Reconciler) DeleteWholesaleOrders(ctx context.Context, storeID string, orderIDs []string) (int, error) {
	for i, orderID := range orderIDs {
		if err := r.DeleteWholesaleOrder(ctx, storeID, orderID); err != nil {
			return i, err
		}
	}
	return len(orderIDs), nil
}

// CreateRetailOrder writes a retail order record. No stock is reserved.
func (r *Reconciler) CreateRetailOrder(ctx context.Context, storeID string, req *OrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.CreateRetailOrder")
	defer span.End()

	order, err := r.buildOrder(storeID, req, models.SourceRetail, string(models.OrderTypeRetail))
	if err != nil {
		return nil, err
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	path := docstore.StoreOrderPath(storeID, docstore.OrderKindRetail, order.ID)
	if err := r.store.Set(ctx, path, order); err != nil {
		return nil, err
	}

	r.invalidateSnapshot(ctx, storeID)
	return order, nil
}

// CreateEcommerceOrder writes an e-commerce order record. No stock is
// reserved.
func (r *Reconciler) CreateEcommerceOrder(ctx context.Context, storeID string, req *OrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.CreateEcommerceOrder")
	defer span.End()

	order, err := r.buildOrder(storeID, req, models.SourceEcommerce, string(models.OrderTypeEcommerce))
	if err != nil {
		return nil, err
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.Platform = req.Platform

	path := docstore.StoreOrderPath(storeID, docstore.OrderKindEcommerce, order.ID)
	if err := r.store.Set(ctx, path, order); err != nil {
		return nil, err
	}

	r.invalidateSnapshot(ctx, storeID)
	return order, nil
}

func (r *Reconciler) buildOrder(storeID string, req *OrderRequest, source, orderType string) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, &models.ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, &models.ValidationError{Field: "items.productId", Reason: "is required"}
		}
		if !item.Quantity.IsPositive() {
			return nil, &models.ValidationError{Field: "items.quantity", Reason: "must be positive"}
		}
	}

	var subtotal int64
	for _, item := range req.Items {
		subtotal += item.Quantity.Mul(decimal.NewFromInt(item.SellingPrice)).Round(0).IntPart()
	}

	total := subtotal - req.Discount + req.Shipping
	remaining := total - req.Deposit
	if remaining < 0 {
		remaining = 0
	}

	return &models.Order{
		ID:              req.ID,
		Source:          source,
		OrderType:       orderType,
		Items:           req.Items,
		Subtotal:        &subtotal,
		Total:           &total,
		Discount:        req.Discount,
		Shipping:        req.Shipping,
		Deposit:         req.Deposit,
		Remaining:       remaining,
		PaymentStatus:   DerivePaymentStatus(req.Deposit, total),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		StoreID:         storeID,
		CreatedAt:       time.Now(),
	}, nil
}

// applyStockDelta performs one direct read-modify-write of a product's
// stock, outside the warehouse ledger.
func (r *Reconciler) applyStockDelta(ctx context.Context, productID string, delta decimal.Decimal) error {
	var product models.Product
	if err := r.store.Get(ctx, docstore.ProductPath(productID), &product); err != nil {
		return err
	}

	product.Stock = product.Stock.Add(delta)
	product.UpdatedAt = time.Now()

	return r.store.Set(ctx, docstore.ProductPath(productID), &product)
}

// orderItems normalizes legacy flat-field orders to an items slice.
func orderItems(order *models.Order) []models.OrderItem {
	if len(order.Items) > 0 {
		return order.Items
	}
	if order.ProductID == "" {
		return nil
	}
	return []models.OrderItem{{
		ProductID:    order.ProductID,
		ProductName:  order.ProductName,
		SKU:          order.SKU,
		Quantity:     order.Quantity,
		SellingPrice: order.SellingPrice,
		ImportPrice:  order.ImportPrice,
	}}
}

func (r *Reconciler) invalidateSnapshot(ctx context.Context, storeID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateOrderSnapshot(ctx, storeID); err != nil {
		r.logger.Warn("Failed to invalidate order snapshot", zap.Error(err))
	}
}

func (r *Reconciler) publishOrderEvent(ctx context.Context, eventType string, order *models.Order) {
	if r.events == nil {
		return
	}

	event := &models.WholesaleOrderEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		StoreID: order.StoreID,
		Total:   order.RevenueAmount(),
		Items:   order.Items,
	}

	if err := r.events.PublishWholesaleOrder(ctx, event); err != nil {
		r.logger.Error("Failed to publish order event", zap.Error(err))
	}
}
