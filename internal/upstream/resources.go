package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/tbourn/agritrade-gateway/internal/validate"
)

// ItemPath joins a collection path and an id: "/purchases/" + "7" ->
// "/purchases/7".
func ItemPath(collection, id string) string {
	return strings.TrimRight(collection, "/") + "/" + url.PathEscape(id)
}

// List fetches a collection (or a singleton such as /dashboard/summary).
func (c *Client) List(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{method: http.MethodGet, path: path, query: query}, &out)
	return out, err
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{method: http.MethodGet, path: ItemPath(collection, id)}, &out)
	return out, err
}

// Create posts a normalized record with its idempotency key.
func (c *Client) Create(ctx context.Context, collection string, rec validate.Record, key string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{method: http.MethodPost, path: collection, body: rec, key: key}, &out)
	return out, err
}

// Update replaces one record with its idempotency key.
func (c *Client) Update(ctx context.Context, collection, id string, rec validate.Record, key string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{method: http.MethodPut, path: ItemPath(collection, id), body: rec, key: key}, &out)
	return out, err
}

// Delete removes one record with its idempotency key.
func (c *Client) Delete(ctx context.Context, collection, id, key string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: ItemPath(collection, id), key: key}, nil)
}

// RecordID extracts a positive integer "id" from an upstream record, or nil.
func RecordID(raw json.RawMessage) *int64 {
	var rec struct {
		ID json.Number `json:"id"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &rec) != nil {
		return nil
	}
	n, err := rec.ID.Int64()
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
