package docstore

import "fmt"

// Top-level collections
const (
	CollectionProducts     = "products"
	CollectionTransactions = "warehouseTransactions"
	CollectionCategories   = "categories"
	// CollectionCategoriesAlias is where older writers put categories; reads
	// merge both collections.
	CollectionCategoriesAlias = "productCategories"
	CollectionOrders          = "orders"
)

// Store-scoped order collection kinds
const (
	OrderKindEcommerce = "tmdtSalesOrders"
	OrderKindRetail    = "retailOrders"
	OrderKindWholesale = "wholesaleSalesOrders"
	OrderKindLegacy    = "salesOrders"
	OrderKindGeneric   = "orders"
)

func ProductPath(id string) string {
	return fmt.Sprintf("%s/%s", CollectionProducts, id)
}

func TransactionPath(id string) string {
	return fmt.Sprintf("%s/%s", CollectionTransactions, id)
}

func CategoryPath(id string) string {
	return fmt.Sprintf("%s/%s", CollectionCategories, id)
}

func OrderPath(id string) string {
	return fmt.Sprintf("%s/%s", CollectionOrders, id)
}

// StoreCollection returns the store-scoped collection for one order kind,
// e.g. stores/s1/retailOrders.
func StoreCollection(storeID, kind string) string {
	return fmt.Sprintf("stores/%s/%s", storeID, kind)
}

func StoreOrderPath(storeID, kind, orderID string) string {
	return fmt.Sprintf("stores/%s/%s/%s", storeID, kind, orderID)
}
