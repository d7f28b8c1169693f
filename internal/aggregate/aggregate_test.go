package aggregate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backoffice-service/internal/docstore"
	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStore = "main-store"

func int64Ptr(v int64) *int64 { return &v }

func seed(t *testing.T, mem *docstore.Memory, path string, order *models.Order) {
	t.Helper()
	require.NoError(t, mem.Set(context.Background(), path, order))
}

func TestLoadMergesAndClassifiesAllSources(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindEcommerce, "e1"),
		&models.Order{ID: "e1", CreatedAt: time.Now()})
	seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindRetail, "r1"),
		&models.Order{ID: "r1", CreatedAt: time.Now()})
	seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindWholesale, "w1"),
		&models.Order{ID: "w1", CreatedAt: time.Now()})
	seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindLegacy, "l1"),
		&models.Order{ID: "l1", Platform: "shopee", CreatedAt: time.Now()})

	agg := New(mem, nil, 25, 0)
	orders, err := agg.Load(ctx, testStore)
	require.NoError(t, err)
	require.Len(t, orders, 4)

	types := make(map[string]models.OrderType)
	for _, o := range orders {
		types[o.ID] = o.Type
	}
	assert.Equal(t, models.OrderTypeEcommerce, types["e1"])
	assert.Equal(t, models.OrderTypeRetail, types["r1"])
	assert.Equal(t, models.OrderTypeWholesale, types["w1"])
	assert.Equal(t, models.OrderTypeEcommerce, types["l1"])
}

func TestLoadDeduplicatesLastSourceWins(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	// The same logical order duplicated across the generic path and the
	// retail-specific path, with diverging field values.
	seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindGeneric, "dup-1"),
		&models.Order{ID: "dup-1", CustomerName: "stale copy", CreatedAt: time.Now()})
	seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindRetail, "dup-1"),
		&models.Order{ID: "dup-1", CustomerName: "fresh copy", CreatedAt: time.Now()})

	agg := New(mem, nil, 25, 0)
	orders, err := agg.Load(ctx, testStore)
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, "fresh copy", orders[0].CustomerName)
	assert.Equal(t, docstore.OrderKindRetail, orders[0].SourceKind)
}

func TestLoadFiltersGlobalCollectionByStore(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	seed(t, mem, docstore.OrderPath("g1"),
		&models.Order{ID: "g1", StoreID: testStore, CreatedAt: time.Now()})
	seed(t, mem, docstore.OrderPath("g2"),
		&models.Order{ID: "g2", StoreID: "other-store", CreatedAt: time.Now()})
	seed(t, mem, docstore.OrderPath("g3"),
		&models.Order{ID: "g3", CreatedAt: time.Now()})

	agg := New(mem, nil, 25, 0)
	orders, err := agg.Load(ctx, testStore)
	require.NoError(t, err)

	require.Len(t, orders, 1)
	assert.Equal(t, "g1", orders[0].ID)
}

func TestLoadSortsNewestFirst(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("o%d", i)
		seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindRetail, id),
			&models.Order{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	agg := New(mem, nil, 25, 0)
	orders, err := agg.Load(ctx, testStore)
	require.NoError(t, err)
	require.Len(t, orders, 5)

	for i := 1; i < len(orders); i++ {
		assert.False(t, orders[i-1].CreatedAt.Before(orders[i].CreatedAt))
	}
}

func TestFilterMatch(t *testing.T) {
	order := ClassifiedOrder{
		Order: models.Order{
			ID:           "WHOLESALE-42",
			CustomerName: "Nguyen Van A",
			Total:        int64Ptr(250000),
			Platform:     "shopee",
			Items: []models.OrderItem{
				{ProductID: "p1", ProductName: "Jasmine Rice", SKU: "RICE-01",
					Quantity: decimal.NewFromInt(2), SellingPrice: 125000},
			},
			CreatedAt: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		Type: models.OrderTypeWholesale,
	}

	assert.True(t, Filter{}.Match(order))
	assert.True(t, Filter{Search: "rice"}.Match(order))
	assert.True(t, Filter{Search: "nguyen"}.Match(order))
	assert.True(t, Filter{Search: "WHOLESALE-42"}.Match(order))
	assert.False(t, Filter{Search: "noodles"}.Match(order))

	assert.True(t, Filter{Type: models.OrderTypeWholesale}.Match(order))
	assert.False(t, Filter{Type: models.OrderTypeRetail}.Match(order))

	assert.True(t, Filter{Platform: "Shopee"}.Match(order))
	assert.False(t, Filter{Platform: "lazada"}.Match(order))

	assert.True(t, Filter{PriceMin: 200000, PriceMax: 300000}.Match(order))
	assert.False(t, Filter{PriceMin: 300000}.Match(order))
	assert.False(t, Filter{PriceMax: 200000}.Match(order))

	assert.True(t, Filter{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}.Match(order))
	assert.False(t, Filter{
		From: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}.Match(order))
}

func TestStatsRevenueFieldFallback(t *testing.T) {
	withTotal := ClassifiedOrder{Order: models.Order{
		Total: int64Ptr(100), TotalAmount: int64Ptr(999), Subtotal: int64Ptr(888)}}
	withTotalAmount := ClassifiedOrder{Order: models.Order{
		TotalAmount: int64Ptr(200), Subtotal: int64Ptr(888)}}
	withSubtotal := ClassifiedOrder{Order: models.Order{Subtotal: int64Ptr(300)}}
	withNothing := ClassifiedOrder{Order: models.Order{}}

	stats := computeStats([]ClassifiedOrder{withTotal, withTotalAmount, withSubtotal, withNothing})
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, int64(600), stats.Revenue)
}

func TestStatsProfit(t *testing.T) {
	itemized := ClassifiedOrder{Order: models.Order{
		Items: []models.OrderItem{
			{Quantity: decimal.NewFromInt(2), SellingPrice: 1500, ImportPrice: 1000},
			{Quantity: decimal.RequireFromString("0.5"), SellingPrice: 8000, ImportPrice: 6000},
		},
	}}
	flat := ClassifiedOrder{Order: models.Order{
		Quantity: decimal.NewFromInt(3), SellingPrice: 500, ImportPrice: 200}}

	stats := computeStats([]ClassifiedOrder{itemized, flat})
	// (1500-1000)*2 + (8000-6000)*0.5 + (500-200)*3
	assert.Equal(t, int64(1000+1000+900), stats.Profit)
}

func TestQueryPaginatesFilteredView(t *testing.T) {
	mem := docstore.NewMemory()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("o%d", i)
		seed(t, mem, docstore.StoreOrderPath(testStore, docstore.OrderKindRetail, id),
			&models.Order{ID: id, Total: int64Ptr(1000), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	agg := New(mem, nil, 2, 0)

	page1, err := agg.Query(ctx, testStore, Filter{}, 1)
	require.NoError(t, err)
	assert.Len(t, page1.Orders, 2)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Equal(t, 5, page1.Stats.Count)
	assert.Equal(t, int64(5000), page1.Stats.Revenue)

	page3, err := agg.Query(ctx, testStore, Filter{}, 3)
	require.NoError(t, err)
	assert.Len(t, page3.Orders, 1)

	pastEnd, err := agg.Query(ctx, testStore, Filter{}, 9)
	require.NoError(t, err)
	assert.Empty(t, pastEnd.Orders)

	// Stats follow the filter, not the whole dataset.
	filtered, err := agg.Query(ctx, testStore, Filter{Search: "o3"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Stats.Count)
	assert.Equal(t, int64(1000), filtered.Stats.Revenue)
}
