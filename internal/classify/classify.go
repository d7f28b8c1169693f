// Package classify assigns a raw order record to exactly one canonical
// order type. Records reach the dashboard from several storage locations
// with inconsistent tagging, so classification is an ordered list of
// heuristic rules; the first match wins and the ordering is the tie-break.
package classify

import (
	"strings"

	"backoffice-service/internal/docstore"
	"backoffice-service/internal/models"
)

// Rule is one predicate in the decision table.
type Rule struct {
	Name  string
	Apply func(order *models.Order, sourceKind string) (models.OrderType, bool)
}

// dedicatedKinds maps single-type collections to the type they force.
// A record found in one of these classifies as that type regardless of its
// own tags; storage path and tags are written by different code paths and
// can disagree.
var dedicatedKinds = map[string]models.OrderType{
	docstore.OrderKindEcommerce: models.OrderTypeEcommerce,
	docstore.OrderKindRetail:    models.OrderTypeRetail,
	docstore.OrderKindWholesale: models.OrderTypeWholesale,
}

var sourceTags = map[string]models.OrderType{
	models.SourceEcommerce: models.OrderTypeEcommerce,
	models.SourceRetail:    models.OrderTypeRetail,
	models.SourceWholesale: models.OrderTypeWholesale,
}

var orderTypeTags = map[string]models.OrderType{
	string(models.OrderTypeEcommerce): models.OrderTypeEcommerce,
	string(models.OrderTypeRetail):    models.OrderTypeRetail,
	string(models.OrderTypeWholesale): models.OrderTypeWholesale,
}

// Rules is the decision table, evaluated top to bottom.
var Rules = []Rule{
	{
		Name: "dedicated-collection",
		Apply: func(o *models.Order, sourceKind string) (models.OrderType, bool) {
			t, ok := dedicatedKinds[sourceKind]
			return t, ok
		},
	},
	{
		Name: "source-tag",
		Apply: func(o *models.Order, _ string) (models.OrderType, bool) {
			t, ok := sourceTags[o.Source]
			return t, ok
		},
	},
	{
		Name: "order-type-tag",
		Apply: func(o *models.Order, _ string) (models.OrderType, bool) {
			t, ok := orderTypeTags[o.OrderType]
			return t, ok
		},
	},
	{
		Name: "platform-field",
		Apply: func(o *models.Order, _ string) (models.OrderType, bool) {
			if o.Platform != "" || o.PlatformName != "" {
				return models.OrderTypeEcommerce, true
			}
			return "", false
		},
	},
	{
		Name: "wholesale-id-marker",
		Apply: func(o *models.Order, _ string) (models.OrderType, bool) {
			if strings.Contains(o.ID, "WHOLESALE") {
				return models.OrderTypeWholesale, true
			}
			return "", false
		},
	},
}

// Classify returns the canonical type for a record read from sourceKind
// (the final collection segment of its storage path). Pure function of its
// inputs; records matching no rule default to retail.
func Classify(order *models.Order, sourceKind string) models.OrderType {
	for _, rule := range Rules {
		if t, ok := rule.Apply(order, sourceKind); ok {
			return t
		}
	}
	return models.OrderTypeRetail
}
