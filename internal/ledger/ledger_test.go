package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"backoffice-service/internal/docstore"
	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu          sync.Mutex
	stockEvents []string
	lowStock    chan *models.LowStockEvent
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{lowStock: make(chan *models.LowStockEvent, 4)}
}

func (p *capturePublisher) PublishStockChanged(ctx context.Context, event *models.StockChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stockEvents = append(p.stockEvents, event.EventType)
	return nil
}

func (p *capturePublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	p.lowStock <- event
	return nil
}

func (p *capturePublisher) stockEventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.stockEvents...)
}

func newTestLedger(t *testing.T) (*Ledger, *docstore.Memory) {
	t.Helper()
	mem := docstore.NewMemory()
	return New(mem, nil, "main-store"), mem
}

func countTransactions(t *testing.T, mem *docstore.Memory) int {
	t.Helper()
	docs, err := mem.List(context.Background(), docstore.CollectionTransactions)
	require.NoError(t, err)
	return len(docs)
}

func TestStockInCreatesProductAndTransaction(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	product, txn, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", SKU: "RICE-01", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
		Supplier:   "Mekong Wholesale",
	})
	require.NoError(t, err)

	assert.True(t, product.Stock.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, models.TransactionIn, txn.Type)
	assert.Equal(t, int64(500000), txn.TotalValue)
	assert.Equal(t, int64(5000), product.CostPrice)

	// Both records must be persisted.
	var stored models.Product
	require.NoError(t, mem.Get(ctx, docstore.ProductPath(product.ID), &stored))
	assert.True(t, stored.Stock.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, countTransactions(t, mem))
}

func TestStockInAddsToExistingStock(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Sugar", Unit: "kg"},
		Quantity:   decimal.RequireFromString("2.5"),
		UnitPrice:  12000,
	})
	require.NoError(t, err)

	product, txn, err := l.StockIn(ctx, &StockInRequest{
		ProductID: product.ID,
		Quantity:  decimal.RequireFromString("0.5"),
		UnitPrice: 12000,
	})
	require.NoError(t, err)

	assert.True(t, product.Stock.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, int64(6000), txn.TotalValue)
}

func TestStockInValidation(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  StockInRequest
	}{
		{"zero quantity", StockInRequest{
			NewProduct: &NewProductDetails{Name: "X"}, Quantity: decimal.Zero, UnitPrice: 100}},
		{"negative quantity", StockInRequest{
			NewProduct: &NewProductDetails{Name: "X"}, Quantity: decimal.NewFromInt(-1), UnitPrice: 100}},
		{"zero price", StockInRequest{
			NewProduct: &NewProductDetails{Name: "X"}, Quantity: decimal.NewFromInt(1), UnitPrice: 0}},
		{"missing name", StockInRequest{
			NewProduct: &NewProductDetails{}, Quantity: decimal.NewFromInt(1), UnitPrice: 100}},
		{"no product reference", StockInRequest{
			Quantity: decimal.NewFromInt(1), UnitPrice: 100}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := l.StockIn(ctx, &tc.req)
			var validationErr *models.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	// Rejected requests must write nothing.
	assert.Equal(t, 0, countTransactions(t, mem))
}

func TestStockOutDecrementsAndRecordsCostPrice(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	product, txn, err := l.StockOut(ctx, product.ID, decimal.NewFromInt(30), "sale", "")
	require.NoError(t, err)

	assert.True(t, product.Stock.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, models.TransactionOut, txn.Type)
	assert.Equal(t, int64(5000), txn.UnitPrice)
	assert.Equal(t, int64(150000), txn.TotalValue)
	assert.Equal(t, 2, countTransactions(t, mem))
}

func TestStockOutInsufficientStockLeavesStateUntouched(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	_, _, err = l.StockOut(ctx, product.ID, decimal.NewFromInt(30), "sale", "")
	require.NoError(t, err)
	before := countTransactions(t, mem)

	_, _, err = l.StockOut(ctx, product.ID, decimal.NewFromInt(1000), "sale", "")
	var insufficientErr *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.True(t, insufficientErr.Available.Equal(decimal.NewFromInt(70)))

	var stored models.Product
	require.NoError(t, mem.Get(ctx, docstore.ProductPath(product.ID), &stored))
	assert.True(t, stored.Stock.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, before, countTransactions(t, mem))
}

func TestStockOutUsesLegacyPriceFallback(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	// A record written before the cost/selling price split.
	legacy := models.Product{
		ID:    "legacy-1",
		Name:  "Old Stock Noodles",
		Price: 7000,
		Stock: decimal.NewFromInt(10),
	}
	require.NoError(t, mem.Set(ctx, docstore.ProductPath(legacy.ID), &legacy))

	_, txn, err := l.StockOut(ctx, legacy.ID, decimal.NewFromInt(2), "sale", "")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), txn.UnitPrice)
	assert.Equal(t, int64(14000), txn.TotalValue)
}

func TestAdjustSetsAbsoluteStock(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", SKU: "RICE-01", Unit: "kg"},
		Quantity:   decimal.NewFromInt(70),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	product, txn, err := l.Adjust(ctx, product.ID, AdjustFields{
		Name:      "Jasmine Rice Premium",
		SKU:       "RICE-01",
		UnitPrice: 5500,
		Unit:      "kg",
		NewStock:  decimal.NewFromInt(42),
	}, "physical count", "")
	require.NoError(t, err)

	assert.True(t, product.Stock.Equal(decimal.NewFromInt(42)))
	assert.Equal(t, models.TransactionAdjustment, txn.Type)
	require.NotNil(t, txn.StockDifference)
	assert.True(t, txn.StockDifference.Equal(decimal.NewFromInt(-28)))

	// Per-field audit trail for the changed fields only.
	assert.Contains(t, txn.Changes, "name")
	assert.Contains(t, txn.Changes, "unitPrice")
	assert.Contains(t, txn.Changes, "stock")
	assert.NotContains(t, txn.Changes, "sku")
	assert.Equal(t, "Jasmine Rice", txn.Changes["name"].Old)
	assert.Equal(t, "Jasmine Rice Premium", txn.Changes["name"].New)
}

func TestDeleteProductKeepsTransactions(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	require.NoError(t, l.DeleteProduct(ctx, product.ID))

	var notFoundErr *models.NotFoundError
	err = mem.Get(ctx, docstore.ProductPath(product.ID), &models.Product{})
	assert.ErrorAs(t, err, &notFoundErr)

	// History stays, now dangling.
	assert.Equal(t, 1, countTransactions(t, mem))
}

func TestDeleteTransactionDoesNotReverseStock(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	product, txn, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	require.NoError(t, l.DeleteTransaction(ctx, txn.ID))
	assert.Equal(t, 0, countTransactions(t, mem))

	var stored models.Product
	require.NoError(t, mem.Get(ctx, docstore.ProductPath(product.ID), &stored))
	assert.True(t, stored.Stock.Equal(decimal.NewFromInt(100)))
}

func TestListTransactionsNewestFirst(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	_, _, err = l.StockOut(ctx, product.ID, decimal.NewFromInt(10), "sale", "")
	require.NoError(t, err)

	txns, err := l.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.False(t, txns[0].CreatedAt.Before(txns[1].CreatedAt))
}

func TestListCategoriesMergesLegacyAlias(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, docstore.CategoryPath("c1"),
		&models.Category{ID: "c1", Name: "Rice"}))
	require.NoError(t, mem.Set(ctx, docstore.CategoryPath("c2"),
		&models.Category{ID: "c2", Name: "Noodles"}))
	// Legacy writers used productCategories; the alias record wins on collision.
	require.NoError(t, mem.Set(ctx, docstore.CollectionCategoriesAlias+"/c2",
		&models.Category{ID: "c2", Name: "Instant Noodles"}))
	require.NoError(t, mem.Set(ctx, docstore.CollectionCategoriesAlias+"/c3",
		&models.Category{ID: "c3", Name: "Spices"}))

	categories, err := l.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Instant Noodles", "Rice", "Spices"}, names)
}

func TestStockOutAtThresholdPublishesLowStock(t *testing.T) {
	mem := docstore.NewMemory()
	pub := newCapturePublisher()
	l := New(mem, pub, "main-store")
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(12),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	// 12 - 3 = 9, at or below the default threshold of 10.
	_, _, err = l.StockOut(ctx, product.ID, decimal.NewFromInt(3), "sale", "")
	require.NoError(t, err)

	select {
	case event := <-pub.lowStock:
		assert.Equal(t, models.EventTypeLowStock, event.EventType)
		assert.Equal(t, product.ID, event.ProductID)
		assert.True(t, event.Stock.Equal(decimal.NewFromInt(9)))
		assert.True(t, event.MinStock.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, "main-store", event.StoreID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a low-stock event")
	}
	assert.Empty(t, pub.lowStock)

	// Every mutation publishes a stock-changed event synchronously.
	assert.Equal(t, []string{models.EventTypeStockIn, models.EventTypeStockOut}, pub.stockEventTypes())
}

func TestStockOutAboveThresholdPublishesNoLowStock(t *testing.T) {
	mem := docstore.NewMemory()
	pub := newCapturePublisher()
	l := New(mem, pub, "main-store")
	ctx := context.Background()

	product, _, err := l.StockIn(ctx, &StockInRequest{
		NewProduct: &NewProductDetails{Name: "Jasmine Rice", Unit: "kg"},
		Quantity:   decimal.NewFromInt(100),
		UnitPrice:  5000,
	})
	require.NoError(t, err)

	_, _, err = l.StockOut(ctx, product.ID, decimal.NewFromInt(10), "sale", "")
	require.NoError(t, err)

	select {
	case event := <-pub.lowStock:
		t.Fatalf("unexpected low-stock event for product %s", event.ProductID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProductDefaults(t *testing.T) {
	var p models.Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","name":"Bare","stock":"3"}`), &p))

	assert.True(t, p.EffectiveMinStock().Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(0), p.EffectiveCostPrice())
}
