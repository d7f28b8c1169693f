package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Client is a path-keyed, schema-less document store. Paths follow the
// collection/key convention; a collection segment may itself be nested
// (e.g. stores/{storeId}/retailOrders). No cross-path transactions are
// offered: every Set is an independent last-write-wins upsert.
type Client interface {
	Get(ctx context.Context, path string, out interface{}) error
	Set(ctx context.Context, path string, doc interface{}) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string) (map[string]json.RawMessage, error)
}

// SplitPath splits a document path into its collection and key. The key is
// the final path segment.
func SplitPath(path string) (collection, key string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("invalid document path: %q", path)
	}
	return path[:idx], path[idx+1:], nil
}
