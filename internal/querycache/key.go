// Package querycache is the gateway's remote data cache: a read-through cache
// of upstream query results keyed by hierarchical tuples, with prefix
// invalidation and optimistic mutations that roll back on failure.
//
// Key shapes:
//
//	[resource, "list"]
//	[resource, "list", filters]
//	[resource, "detail", id]
//
// Invalidating [resource] drops every list and detail view of that resource.
package querycache

import (
	"net/url"
	"sort"
	"strings"
)

// Key is a hierarchical cache key.
type Key []string

const sep = "\x1f"

// ListKey is the unfiltered list of resource.
func ListKey(resource string) Key { return Key{resource, "list"} }

// FilteredListKey is a filtered list of resource. Filters are encoded as
// sorted k=v pairs so equal filter sets share a key. Empty filters yield
// ListKey.
func FilteredListKey(resource string, filters map[string]string) Key {
	if len(filters) == 0 {
		return ListKey(resource)
	}
	return Key{resource, "list", EncodeFilters(filters)}
}

// DetailKey is one record of resource.
func DetailKey(resource, id string) Key { return Key{resource, "detail", id} }

// RootKey covers every view of resource.
func RootKey(resource string) Key { return Key{resource} }

// EncodeFilters renders filters deterministically.
func EncodeFilters(filters map[string]string) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(filters[k]))
	}
	return strings.Join(parts, "&")
}

func (k Key) String() string { return strings.Join(k, sep) }

// HasPrefix reports whether p is a prefix of k, element-wise.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

// Root returns the resource element of k.
func (k Key) Root() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}
