// Package aggregate merges order records from every known storage location
// into one classified, de-duplicated, store-scoped collection for display.
package aggregate

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"backoffice-service/internal/classify"
	"backoffice-service/internal/docstore"
	"backoffice-service/internal/models"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

// ClassifiedOrder is one merged record plus its assigned type and origin.
type ClassifiedOrder struct {
	models.Order
	Type       models.OrderType `json:"type"`
	SourceKind string           `json:"sourceKind"`
	Key        string           `json:"key"`
}

// SnapshotCache caches the merged snapshot per store. Implemented by
// redisclient.Client; nil disables caching.
type SnapshotCache interface {
	GetOrderSnapshot(ctx context.Context, storeID string, out interface{}) (bool, error)
	SetOrderSnapshot(ctx context.Context, storeID string, snapshot interface{}, ttl time.Duration) error
}

// Aggregator reads all candidate order collections, classifies every record
// and merges them keyed by storage key.
type Aggregator struct {
	store       docstore.Client
	cache       SnapshotCache
	logger      *zap.Logger
	pageSize    int
	snapshotTTL time.Duration
}

// New creates an aggregator. cache may be nil.
func New(store docstore.Client, cache SnapshotCache, pageSize int, snapshotTTL time.Duration) *Aggregator {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Aggregator{
		store:       store,
		cache:       cache,
		logger:      util.GetLogger(),
		pageSize:    pageSize,
		snapshotTTL: snapshotTTL,
	}
}

type source struct {
	collection string
	kind       string
	global     bool
}

// sourcesFor lists the candidate collections in merge order. The same
// logical order is legitimately duplicated across the generic path and a
// type-specific path; on a key collision the source read later in this
// order overwrites the earlier one, with no reconciliation of the copies.
func sourcesFor(storeID string) []source {
	return []source{
		{docstore.StoreCollection(storeID, docstore.OrderKindEcommerce), docstore.OrderKindEcommerce, false},
		{docstore.StoreCollection(storeID, docstore.OrderKindGeneric), docstore.OrderKindGeneric, false},
		{docstore.StoreCollection(storeID, docstore.OrderKindLegacy), docstore.OrderKindLegacy, false},
		{docstore.StoreCollection(storeID, docstore.OrderKindRetail), docstore.OrderKindRetail, false},
		{docstore.StoreCollection(storeID, docstore.OrderKindWholesale), docstore.OrderKindWholesale, false},
		{docstore.CollectionOrders, docstore.OrderKindGeneric, true},
	}
}

// Load returns the merged, classified snapshot for a store, newest first.
// A short-TTL cached snapshot is served when available.
func (a *Aggregator) Load(ctx context.Context, storeID string) ([]ClassifiedOrder, error) {
	ctx, span := util.StartSpan(ctx, "Aggregator.Load")
	defer span.End()

	if a.cache != nil {
		var cached []ClassifiedOrder
		hit, err := a.cache.GetOrderSnapshot(ctx, storeID, &cached)
		if err != nil {
			a.logger.Warn("Snapshot cache read failed", zap.Error(err))
		} else if hit {
			util.AggregatorCacheHitsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		util.AggregatorCacheHitsTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	merged, err := a.loadFromStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	util.OrderAggregationLatency.Observe(time.Since(start).Seconds())
	util.OrdersAggregatedTotal.Add(float64(len(merged)))

	if a.cache != nil {
		if err := a.cache.SetOrderSnapshot(ctx, storeID, merged, a.snapshotTTL); err != nil {
			a.logger.Warn("Snapshot cache write failed", zap.Error(err))
		}
	}

	return merged, nil
}

func (a *Aggregator) loadFromStore(ctx context.Context, storeID string) ([]ClassifiedOrder, error) {
	sources := sourcesFor(storeID)

	// Fetch every source in parallel, but merge strictly in declared order
	// so the overwrite-on-collision behavior stays deterministic.
	results := make([]map[string]json.RawMessage, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source) {
			defer wg.Done()
			results[i], errs[i] = a.store.List(ctx, src.collection)
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	merged := make(map[string]ClassifiedOrder)
	for i, src := range sources {
		for key, raw := range results[i] {
			var order models.Order
			if err := json.Unmarshal(raw, &order); err != nil {
				a.logger.Warn("Skipping malformed order record",
					zap.String("collection", src.collection),
					zap.String("key", key),
					zap.Error(err))
				continue
			}

			// The global collection holds orders for every store; keep
			// only records embedding the active store's id.
			if src.global && order.StoreID != storeID {
				continue
			}

			if order.ID == "" {
				order.ID = key
			}

			merged[key] = ClassifiedOrder{
				Order:      order,
				Type:       classify.Classify(&order, src.kind),
				SourceKind: src.kind,
				Key:        key,
			}
		}
	}

	orders := make([]ClassifiedOrder, 0, len(merged))
	for _, o := range merged {
		orders = append(orders, o)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// Filter narrows the merged view. Zero values mean "no constraint".
type Filter struct {
	Search   string           `form:"search"`
	Type     models.OrderType `form:"type"`
	StoreID  string           `form:"store"`
	Platform string           `form:"platform"`
	PriceMin int64            `form:"priceMin"`
	PriceMax int64            `form:"priceMax"`
	From     time.Time        `form:"from" time_format:"2006-01-02"`
	To       time.Time        `form:"to" time_format:"2006-01-02"`
}

// Match reports whether one order passes every set constraint.
func (f Filter) Match(o ClassifiedOrder) bool {
	if f.Type != "" && o.Type != f.Type {
		return false
	}
	if f.StoreID != "" && o.StoreID != f.StoreID {
		return false
	}
	if f.Platform != "" && !strings.EqualFold(o.Platform, f.Platform) && !strings.EqualFold(o.PlatformName, f.Platform) {
		return false
	}
	amount := o.RevenueAmount()
	if f.PriceMin > 0 && amount < f.PriceMin {
		return false
	}
	if f.PriceMax > 0 && amount > f.PriceMax {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && o.CreatedAt.After(f.To) {
		return false
	}
	if f.Search != "" && !matchesSearch(o, f.Search) {
		return false
	}
	return true
}

func matchesSearch(o ClassifiedOrder, term string) bool {
	term = strings.ToLower(term)
	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), term)
	}

	if contains(o.ID) || contains(o.CustomerName) || contains(o.CustomerPhone) ||
		contains(o.ProductName) || contains(o.SKU) {
		return true
	}
	for _, item := range o.Items {
		if contains(item.ProductName) || contains(item.SKU) {
			return true
		}
	}
	return false
}

// Stats are derived from the currently filtered view, not the whole dataset.
type Stats struct {
	Count   int   `json:"count"`
	Revenue int64 `json:"revenue"`
	Profit  int64 `json:"profit"`
}

func computeStats(orders []ClassifiedOrder) Stats {
	stats := Stats{Count: len(orders)}
	for i := range orders {
		stats.Revenue += orders[i].RevenueAmount()
		stats.Profit += orders[i].Profit()
	}
	return stats
}

// Page is one page of the filtered view plus its statistics.
type Page struct {
	Orders     []ClassifiedOrder `json:"orders"`
	Stats      Stats             `json:"stats"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// Query loads the merged snapshot, applies the filter and returns the
// requested page (1-based) with stats over the filtered view.
func (a *Aggregator) Query(ctx context.Context, storeID string, filter Filter, page int) (*Page, error) {
	ctx, span := util.StartSpan(ctx, "Aggregator.Query")
	defer span.End()

	all, err := a.Load(ctx, storeID)
	if err != nil {
		return nil, err
	}

	filtered := make([]ClassifiedOrder, 0, len(all))
	for _, o := range all {
		if filter.Match(o) {
			filtered = append(filtered, o)
		}
	}

	stats := computeStats(filtered)

	totalPages := (len(filtered) + a.pageSize - 1) / a.pageSize
	if page < 1 {
		page = 1
	}

	startIdx := (page - 1) * a.pageSize
	if startIdx > len(filtered) {
		startIdx = len(filtered)
	}
	endIdx := startIdx + a.pageSize
	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}

	return &Page{
		Orders:     filtered[startIdx:endIdx],
		Stats:      stats,
		Page:       page,
		PageSize:   a.pageSize,
		TotalPages: totalPages,
	}, nil
}
