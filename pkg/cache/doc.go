// Package cache provides an optional redis-backed response cache.
//
// The cache sits below the resilient request layer: when a fresh entry
// exists for a request URL + query, the client serves it without touching
// the network. Entries expire based on Cache-Control max-age, the Expires
// header, or a 5 minute default, and redis evicts them via key TTLs.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		URL:   "https://example.substack.com/api/v1/archive",
//		Query: "sort=new&offset=0&limit=15",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the network, then manager.Set
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - substack_cache_hits_total{layer="redis"} - Cache hits
//   - substack_cache_misses_total - Cache misses
//   - substack_cache_size_bytes{layer="redis"} - Cache size
//   - substack_cache_errors_total{operation} - Cache operation errors
//
// Note: this cache makes repeated CLI invocations and batch jobs cheap; the
// per-entity lazy cells in pkg/substack make repeated reads within one
// process free. The two layers are independent.
package cache
