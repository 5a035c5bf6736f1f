package cache

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/rest-client/pkg/client"
	"github.com/Sternrassler/rest-client/pkg/logging"
)

const (
	// DefaultTTL is the fallback TTL when the response carries no freshness information
	DefaultTTL = 5 * time.Minute
)

// Transport serves GET requests from the cache and stores successful GET
// responses. Other methods pass straight through to the wrapped transport.
// Cache failures are logged and never fail the request.
type Transport struct {
	next    client.Transport
	manager *Manager
	logger  zerolog.Logger
}

// NewTransport wraps next with a response cache.
func NewTransport(next client.Transport, manager *Manager) *Transport {
	return &Transport{
		next:    next,
		manager: manager,
		logger:  logging.NewLogger("cache"),
	}
}

// Send implements client.Transport.
func (t *Transport) Send(ctx context.Context, req *client.Request) (*client.Response, error) {
	if req.Method != http.MethodGet {
		return t.next.Send(ctx, req)
	}

	key := KeyFor(t.Prepare(req))
	entry, err := t.manager.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		t.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
	}

	if entry != nil && !entry.IsExpired() {
		CacheHits.WithLabelValues("fresh").Inc()
		t.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Serving fresh cache entry")
		return EntryToResponse(entry, req), nil
	}

	out := req
	if entry != nil && entry.CanRevalidate() {
		out = cloneRequest(req)
		AddConditionalHeaders(out, entry)
		ConditionalRequestsSent.Inc()
		t.logger.Debug().
			Str("key", key.String()).
			Str("etag", entry.ETag).
			Msg("Making conditional request")
	}

	resp, err := t.next.Send(ctx, out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotModified && entry != nil {
		NotModifiedResponses.Inc()
		CacheHits.WithLabelValues("revalidated").Inc()

		entry.Expires = parseExpires(resp.Header)
		if err := t.manager.UpdateTTL(ctx, key, entry.Expires); err != nil {
			t.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to update cache TTL")
		}
		return EntryToResponse(entry, req), nil
	}

	if resp.StatusCode == http.StatusOK && storable(resp.Header) {
		if err := t.manager.Set(ctx, key, ResponseToEntry(resp)); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// Prepare implements client.Preparer by delegating to the wrapped transport,
// so cache transports can be stacked.
func (t *Transport) Prepare(req *client.Request) *client.Request {
	if p, ok := t.next.(client.Preparer); ok {
		return p.Prepare(req)
	}
	return req
}

// ResponseToEntry converts a response to a cache entry, reading its
// Expires/Cache-Control and Last-Modified headers.
func ResponseToEntry(resp *client.Response) *Entry {
	entry := &Entry{
		Data:       append([]byte(nil), resp.Body...),
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    resp.Header.Clone(),
		CachedAt:   time.Now(),
		Expires:    parseExpires(resp.Header),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// EntryToResponse rebuilds a response for req from a cache entry.
func EntryToResponse(entry *Entry, req *client.Request) *client.Response {
	header := entry.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache", "HIT")

	return &client.Response{
		StatusCode: entry.StatusCode,
		Status:     entry.Status,
		Header:     header,
		Body:       append([]byte(nil), entry.Data...),
		Request:    req,
	}
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *client.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}
	if req.Headers == nil {
		req.Headers = http.Header{}
	}

	// Prefer ETag over Last-Modified (more accurate)
	if entry.ETag != "" {
		req.Headers.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Headers.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// parseExpires derives the expiry from Cache-Control max-age, then Expires,
// then DefaultTTL.
func parseExpires(headers http.Header) time.Time {
	now := time.Now()

	if maxAge, ok := cacheControlMaxAge(headers.Get("Cache-Control")); ok {
		return now.Add(maxAge)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}

	if expires.Before(now) {
		return now
	}

	return expires
}

func cacheControlMaxAge(value string) (time.Duration, bool) {
	for _, directive := range strings.Split(value, ",") {
		name, arg, _ := strings.Cut(strings.TrimSpace(directive), "=")
		if !strings.EqualFold(name, "max-age") {
			continue
		}
		seconds, err := strconv.Atoi(strings.Trim(arg, `"`))
		if err != nil || seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

// storable reports whether Cache-Control allows storing the response.
func storable(headers http.Header) bool {
	for _, directive := range strings.Split(headers.Get("Cache-Control"), ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-store") {
			return false
		}
	}
	return true
}

func cloneRequest(req *client.Request) *client.Request {
	out := *req
	out.Headers = req.Headers.Clone()
	return &out
}
