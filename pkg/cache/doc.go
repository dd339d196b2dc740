// Package cache provides an HTTP response cache for SWAPI with a Redis
// backend and ETag support for conditional requests.
//
// Entries are fresh until their expiry (Cache-Control max-age, Expires, or
// DefaultTTL). Expired entries that carry an ETag or Last-Modified value stay
// in Redis for a stale window so the client can revalidate them with a
// conditional request instead of downloading the body again.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyForURL(req.URL)
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from SWAPI
//	}
//
// # Conditional Requests
//
//	if entry.IsExpired() && cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - swapi_cache_hits_total{state} - Cache hits by freshness
//   - swapi_cache_misses_total - Cache misses
//   - swapi_cache_stored_bytes_total - Bytes written
//   - swapi_conditional_requests_total - Revalidation requests sent
//   - swapi_304_responses_total - Revalidation successes
//   - swapi_cache_errors_total{operation} - Cache operation errors
package cache
