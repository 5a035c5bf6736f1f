package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// Request describes one HTTP call handed to a Transport.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Params  url.Values
	// Body is encoded as JSON. json.RawMessage and []byte are sent verbatim.
	Body any
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// Request is the request that produced this response.
	Request *Request
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Get extracts a value from a JSON body using a gjson path, e.g. "items.0.id".
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// String returns the body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// Transport performs a single HTTP call. Network failures are reported as
// *TransportError; status codes are returned as-is and never interpreted.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Preparer is implemented by transports that add headers or query parameters
// of their own before sending. *Session implements it.
type Preparer interface {
	Prepare(req *Request) *Request
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Operation is a deferred request. It must be safe to invoke repeatedly since
// retries run it again.
type Operation func(ctx context.Context) (*Response, error)
