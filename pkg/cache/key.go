package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Sternrassler/rest-client/pkg/client"
)

// Key identifies a cached response.
type Key struct {
	// Method is the HTTP method (only GET responses are cached)
	Method string

	// URL is the request URL without query string
	URL string

	// Params are the query parameters sent with the request
	Params url.Values

	// Auth is a digest of the Authorization header; responses fetched with
	// different credentials never share an entry.
	Auth string
}

// KeyFor derives the cache key of a request. Pass the request as it goes on
// the wire (see client.Preparer) so session params and credentials are part
// of the key.
func KeyFor(req *client.Request) Key {
	key := Key{
		Method: req.Method,
		URL:    req.URL,
		Params: url.Values{},
		Auth:   authDigest(req.Headers.Get("Authorization")),
	}

	// Fold a query string embedded in the URL into Params.
	if u, err := url.Parse(req.URL); err == nil && u.RawQuery != "" {
		for k, v := range u.Query() {
			key.Params[k] = append(key.Params[k], v...)
		}
		u.RawQuery = ""
		key.URL = u.String()
	}
	for k, v := range req.Params {
		key.Params[k] = append(key.Params[k], v...)
	}

	return key
}

// authDigest returns a short SHA-256 digest of an Authorization value so the
// credential itself never ends up in Redis key names.
func authDigest(authorization string) string {
	if authorization == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(authorization))
	return hex.EncodeToString(sum[:8])
}

// String generates a deterministic cache key string.
// Format: rest:METHOD:url:param1=val1:param2=val2[:auth=digest]
//
// Example:
//
//	rest:GET:https://api.example.com/users/5:fields=name
func (k Key) String() string {
	parts := []string{"rest"}

	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}
	parts = append(parts, method)

	if u := strings.TrimSuffix(k.URL, "/"); u != "" {
		parts = append(parts, u)
	}

	// Add query params (sorted for determinism)
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			values := append([]string(nil), k.Params[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	if k.Auth != "" {
		parts = append(parts, "auth="+k.Auth)
	}

	return strings.Join(parts, ":")
}
