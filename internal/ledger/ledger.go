package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"backoffice-service/internal/docstore"
	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Publisher publishes stock events. Publish failures never fail the
// originating ledger operation.
type Publisher interface {
	PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) error
	PublishLowStock(ctx context.Context, event *models.LowStockEvent) error
}

// Ledger is the single authority for mutating product stock. Every delta
// operation appends one immutable warehouse transaction; the adjustment
// operation is the sanctioned absolute override after a physical count.
//
// The read-modify-write against the document store is not atomic: two
// sessions mutating the same product concurrently race and the last write
// wins. That matches the shared-store model this service targets.
type Ledger struct {
	store   docstore.Client
	events  Publisher
	logger  *zap.Logger
	storeID string
}

// New creates a ledger scoped to the acting store. events may be nil.
func New(store docstore.Client, events Publisher, storeID string) *Ledger {
	return &Ledger{
		store:   store,
		events:  events,
		logger:  util.GetLogger(),
		storeID: storeID,
	}
}

// NewProductDetails describes a product created through stock-in.
type NewProductDetails struct {
	Name       string           `json:"name"`
	SKU        string           `json:"sku,omitempty"`
	Unit       string           `json:"unit,omitempty"`
	CategoryID string           `json:"categoryId,omitempty"`
	Conversion decimal.Decimal  `json:"conversion,omitempty"`
	MinStock   *decimal.Decimal `json:"minStock,omitempty"`
}

// StockInRequest adds quantity to an existing product, or creates the
// product first when NewProduct is set.
type StockInRequest struct {
	ProductID  string             `json:"productId,omitempty"`
	NewProduct *NewProductDetails `json:"newProduct,omitempty"`
	Quantity   decimal.Decimal    `json:"quantity"`
	UnitPrice  int64              `json:"unitPrice"`
	Supplier   string             `json:"supplier,omitempty"`
	Note       string             `json:"note,omitempty"`
}

// StockIn adds quantity to a product's stock and appends an "in" transaction
// with totalValue = quantity x unitPrice.
func (l *Ledger) StockIn(ctx context.Context, req *StockInRequest) (*models.Product, *models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.StockIn")
	defer span.End()

	if !req.Quantity.IsPositive() {
		util.StockOperationsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, nil, &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if req.UnitPrice <= 0 {
		util.StockOperationsFailedTotal.WithLabelValues("invalid_price").Inc()
		return nil, nil, &models.ValidationError{Field: "unitPrice", Reason: "must be positive"}
	}

	now := time.Now()
	var product models.Product

	switch {
	case req.ProductID != "":
		if err := l.store.Get(ctx, docstore.ProductPath(req.ProductID), &product); err != nil {
			return nil, nil, err
		}
	case req.NewProduct != nil:
		if req.NewProduct.Name == "" {
			util.StockOperationsFailedTotal.WithLabelValues("missing_fields").Inc()
			return nil, nil, &models.ValidationError{Field: "name", Reason: "is required for a new product"}
		}
		product = models.Product{
			ID:         uuid.New().String(),
			Name:       req.NewProduct.Name,
			SKU:        req.NewProduct.SKU,
			Unit:       req.NewProduct.Unit,
			CategoryID: req.NewProduct.CategoryID,
			Conversion: req.NewProduct.Conversion,
			MinStock:   req.NewProduct.MinStock,
			CostPrice:  req.UnitPrice,
			Stock:      decimal.Zero,
			CreatedAt:  now,
		}
	default:
		return nil, nil, &models.ValidationError{Field: "productId", Reason: "or newProduct is required"}
	}

	product.Stock = product.Stock.Add(req.Quantity)
	product.UpdatedAt = now

	if err := l.store.Set(ctx, docstore.ProductPath(product.ID), &product); err != nil {
		util.StockOperationsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, err
	}

	txn := &models.Transaction{
		ID:          uuid.New().String(),
		Type:        models.TransactionIn,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TotalValue:  totalValue(req.Quantity, req.UnitPrice),
		Supplier:    req.Supplier,
		Note:        req.Note,
		StoreID:     l.storeID,
		CreatedAt:   now,
	}

	if err := l.store.Set(ctx, docstore.TransactionPath(txn.ID), txn); err != nil {
		util.StockOperationsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, err
	}

	util.StockInTotal.Inc()
	l.logger.Info("Stock in",
		zap.String("product_id", product.ID),
		zap.String("quantity", req.Quantity.String()),
		zap.Int64("unit_price", req.UnitPrice))

	l.publishStockChanged(ctx, models.EventTypeStockIn, txn, &product)

	return &product, txn, nil
}

// StockOut removes quantity from a product's stock at the product's recorded
// cost price. A quantity above the current stock is rejected with
// InsufficientStockError and no state change.
func (l *Ledger) StockOut(ctx context.Context, productID string, quantity decimal.Decimal, reason, note string) (*models.Product, *models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.StockOut")
	defer span.End()

	if !quantity.IsPositive() {
		util.StockOperationsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, nil, &models.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	var product models.Product
	if err := l.store.Get(ctx, docstore.ProductPath(productID), &product); err != nil {
		return nil, nil, err
	}

	if quantity.GreaterThan(product.Stock) {
		util.InsufficientStockTotal.Inc()
		return nil, nil, &models.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.Stock,
		}
	}

	now := time.Now()
	product.Stock = product.Stock.Sub(quantity)
	product.UpdatedAt = now

	if err := l.store.Set(ctx, docstore.ProductPath(product.ID), &product); err != nil {
		util.StockOperationsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, err
	}

	unitPrice := product.EffectiveCostPrice()
	txn := &models.Transaction{
		ID:          uuid.New().String(),
		Type:        models.TransactionOut,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalValue:  totalValue(quantity, unitPrice),
		Reason:      reason,
		Note:        note,
		StoreID:     l.storeID,
		CreatedAt:   now,
	}

	if err := l.store.Set(ctx, docstore.TransactionPath(txn.ID), txn); err != nil {
		util.StockOperationsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, err
	}

	util.StockOutTotal.Inc()
	l.logger.Info("Stock out",
		zap.String("product_id", product.ID),
		zap.String("quantity", quantity.String()),
		zap.String("reason", reason))

	l.publishStockChanged(ctx, models.EventTypeStockOut, txn, &product)

	if product.Stock.LessThanOrEqual(product.EffectiveMinStock()) {
		l.notifyLowStock(&product)
	}

	return &product, txn, nil
}

// AdjustFields carries the full descriptive state written by an adjustment.
// NewStock is an absolute value, not a delta.
type AdjustFields struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	UnitPrice   int64           `json:"unitPrice"`
	CategoryID  string          `json:"categoryId"`
	Unit        string          `json:"unit"`
	NewStock    decimal.Decimal `json:"newStock"`
	Conversion  decimal.Decimal `json:"conversion"`
	Description string          `json:"description"`
	Supplier    string          `json:"supplier"`
}

// Adjust overwrites a product's descriptive fields and sets its stock to an
// absolute value. The appended transaction records old/new per changed field
// and the stock difference, purely for audit; this is a truth override, not
// a sale or purchase.
func (l *Ledger) Adjust(ctx context.Context, productID string, fields AdjustFields, reason, note string) (*models.Product, *models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "Ledger.Adjust")
	defer span.End()

	var product models.Product
	if err := l.store.Get(ctx, docstore.ProductPath(productID), &product); err != nil {
		return nil, nil, err
	}

	changes := make(map[string]models.FieldChange)
	record := func(field string, oldVal, newVal interface{}) {
		if oldVal != newVal {
			changes[field] = models.FieldChange{Old: oldVal, New: newVal}
		}
	}

	record("name", product.Name, fields.Name)
	record("sku", product.SKU, fields.SKU)
	record("unitPrice", product.CostPrice, fields.UnitPrice)
	record("category", product.CategoryID, fields.CategoryID)
	record("unit", product.Unit, fields.Unit)
	record("description", product.Description, fields.Description)
	record("supplier", product.Supplier, fields.Supplier)
	if !product.Conversion.Equal(fields.Conversion) {
		changes["conversion"] = models.FieldChange{Old: product.Conversion.String(), New: fields.Conversion.String()}
	}

	stockDifference := fields.NewStock.Sub(product.Stock)
	if !stockDifference.IsZero() {
		changes["stock"] = models.FieldChange{Old: product.Stock.String(), New: fields.NewStock.String()}
	}

	now := time.Now()
	product.Name = fields.Name
	product.SKU = fields.SKU
	product.CostPrice = fields.UnitPrice
	product.CategoryID = fields.CategoryID
	product.Unit = fields.Unit
	product.Conversion = fields.Conversion
	product.Description = fields.Description
	product.Supplier = fields.Supplier
	product.Stock = fields.NewStock
	product.UpdatedAt = now

	if err := l.store.Set(ctx, docstore.ProductPath(product.ID), &product); err != nil {
		util.StockOperationsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, err
	}

	txn := &models.Transaction{
		ID:              uuid.New().String(),
		Type:            models.TransactionAdjustment,
		ProductID:       product.ID,
		ProductName:     product.Name,
		Quantity:        stockDifference,
		UnitPrice:       product.EffectiveCostPrice(),
		TotalValue:      totalValue(stockDifference, product.EffectiveCostPrice()),
		StockDifference: &stockDifference,
		Changes:         changes,
		Reason:          reason,
		Note:            note,
		StoreID:         l.storeID,
		CreatedAt:       now,
	}

	if err := l.store.Set(ctx, docstore.TransactionPath(txn.ID), txn); err != nil {
		util.StockOperationsFailedTotal.WithLabelValues("store_error").Inc()
		return nil, nil, err
	}

	util.StockAdjustmentsTotal.Inc()
	l.logger.Info("Stock adjusted",
		zap.String("product_id", product.ID),
		zap.String("stock_difference", stockDifference.String()),
		zap.String("reason", reason))

	l.publishStockChanged(ctx, models.EventTypeStockAdjusted, txn, &product)

	return &product, txn, nil
}

// DeleteProduct removes the product record. Its transactions remain for
// historical reporting, now dangling.
func (l *Ledger) DeleteProduct(ctx context.Context, productID string) error {
	ctx, span := util.StartSpan(ctx, "Ledger.DeleteProduct")
	defer span.End()

	var product models.Product
	if err := l.store.Get(ctx, docstore.ProductPath(productID), &product); err != nil {
		return err
	}

	if err := l.store.Delete(ctx, docstore.ProductPath(productID)); err != nil {
		return err
	}

	l.logger.Info("Product deleted", zap.String("product_id", productID))
	return nil
}

// GetProduct reads one product.
func (l *Ledger) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := l.store.Get(ctx, docstore.ProductPath(productID), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns every product, name ascending.
func (l *Ledger) ListProducts(ctx context.Context) ([]models.Product, error) {
	docs, err := l.store.List(ctx, docstore.CollectionProducts)
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(docs))
	for key, raw := range docs {
		var p models.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			l.logger.Warn("Skipping malformed product record", zap.String("key", key), zap.Error(err))
			continue
		}
		if p.ID == "" {
			p.ID = key
		}
		products = append(products, p)
	}

	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

// ListCategories returns product categories, name ascending. Both the current
// collection and the legacy alias are read; on an id collision the alias
// record wins.
func (l *Ledger) ListCategories(ctx context.Context) ([]models.Category, error) {
	merged := make(map[string]models.Category)
	for _, collection := range []string{docstore.CollectionCategories, docstore.CollectionCategoriesAlias} {
		docs, err := l.store.List(ctx, collection)
		if err != nil {
			return nil, err
		}
		for key, raw := range docs {
			var c models.Category
			if err := json.Unmarshal(raw, &c); err != nil {
				l.logger.Warn("Skipping malformed category record", zap.String("key", key), zap.Error(err))
				continue
			}
			if c.ID == "" {
				c.ID = key
			}
			merged[c.ID] = c
		}
	}

	categories := make([]models.Category, 0, len(merged))
	for _, c := range merged {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// ListTransactions returns the full warehouse history, newest first.
func (l *Ledger) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	docs, err := l.store.List(ctx, docstore.CollectionTransactions)
	if err != nil {
		return nil, err
	}

	txns := make([]models.Transaction, 0, len(docs))
	for key, raw := range docs {
		var t models.Transaction
		if err := json.Unmarshal(raw, &t); err != nil {
			l.logger.Warn("Skipping malformed transaction record", zap.String("key", key), zap.Error(err))
			continue
		}
		txns = append(txns, t)
	}

	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return txns, nil
}

// DeleteTransaction removes one audit record. Product stock is untouched:
// transactions are a pure audit log, stock is the separate source of truth.
func (l *Ledger) DeleteTransaction(ctx context.Context, transactionID string) error {
	var txn models.Transaction
	if err := l.store.Get(ctx, docstore.TransactionPath(transactionID), &txn); err != nil {
		return err
	}
	return l.store.Delete(ctx, docstore.TransactionPath(transactionID))
}

func (l *Ledger) publishStockChanged(ctx context.Context, eventType string, txn *models.Transaction, product *models.Product) {
	if l.events == nil {
		return
	}

	event := &models.StockChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		TransactionID: txn.ID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		Quantity:      txn.Quantity,
		NewStock:      product.Stock,
		MinStock:      product.EffectiveMinStock(),
		StoreID:       l.storeID,
	}

	if err := l.events.PublishStockChanged(ctx, event); err != nil {
		l.logger.Error("Failed to publish stock event", zap.Error(err))
	}
}

// notifyLowStock queues a low-stock alert best-effort; the caller never
// blocks on it.
func (l *Ledger) notifyLowStock(product *models.Product) {
	if l.events == nil {
		return
	}

	event := &models.LowStockEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLowStock,
			Timestamp: time.Now(),
		},
		ProductID:   product.ID,
		ProductName: product.Name,
		Stock:       product.Stock,
		MinStock:    product.EffectiveMinStock(),
		StoreID:     l.storeID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.events.PublishLowStock(ctx, event); err != nil {
			l.logger.Error("Failed to publish low-stock event",
				zap.String("product_id", event.ProductID),
				zap.Error(err))
		}
	}()
}

func totalValue(quantity decimal.Decimal, unitPrice int64) int64 {
	return quantity.Mul(decimal.NewFromInt(unitPrice)).Round(0).IntPart()
}
