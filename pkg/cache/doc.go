// Package cache provides a Redis-backed response cache for REST GET requests.
//
// The cache plugs in as a client.Transport decorator:
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//	manager.SetRetention(time.Hour) // keep validators around for revalidation
//
//	err := c.WithSession(nil, nil, func(sess *client.Session) error {
//		transport := cache.NewTransport(sess, manager)
//		resp, err := c.Execute(ctx, c.NewOperation(transport, client.RequestSpec{
//			Verb: client.VerbGetByID,
//			ID:   42,
//		}))
//		...
//	})
//
// Behaviour:
//
//   - Fresh entries (Cache-Control max-age, Expires, or DefaultTTL) are served
//     without a network call and carry an X-Cache: HIT header.
//   - Stale entries with an ETag or Last-Modified validator are revalidated
//     with If-None-Match / If-Modified-Since; a 304 serves the cached body and
//     refreshes its expiry.
//   - Only 200 responses to GET are stored; Cache-Control: no-store is honoured.
//   - Redis failures are logged and counted, never returned to the caller.
//
// # Metrics
//
//   - rest_cache_hits_total{kind} - Fresh and revalidated hits
//   - rest_cache_misses_total - Cache misses
//   - rest_cache_size_bytes - Bytes written
//   - rest_304_responses_total - Successful revalidations
//   - rest_conditional_requests_total - Conditional requests sent
//   - rest_cache_errors_total{operation} - Cache operation errors
package cache
