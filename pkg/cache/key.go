package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "swapi"

// CacheKey represents a unique identifier for a cached SWAPI response.
type CacheKey struct {
	// Host is the upstream host (e.g., "swapi.dev"); mirrors share paths
	Host string

	// Path is the resource path (e.g., "/api/people/1/")
	Path string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values
}

// KeyForURL builds the cache key of a request URL.
func KeyForURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:        strings.ToLower(u.Host),
		Path:        u.Path,
		QueryParams: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: swapi:host:path:query1=val1:query2=val2
//
// Example:
//
//	swapi:swapi.dev:api/people:page=2
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Host != "" {
		parts = append(parts, k.Host)
	}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
