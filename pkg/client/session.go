package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"
)

// ErrSessionClosed is returned by Send after Close.
var ErrSessionClosed = errors.New("session is closed")

// Session is a configured Transport: merged headers, params and proxies on top
// of a dedicated connection pool. Release it with Close.
type Session struct {
	httpClient  *http.Client
	transport   *http.Transport
	headers     http.Header
	params      url.Values
	bearerToken string
	closed      atomic.Bool
}

// NewSession builds a session from the base configuration and the given
// extras. Extras override base values; the bearer token is injected last and
// cannot be overridden.
func (c *Client) NewSession(extraHeaders, extraParams map[string]string) (*Session, error) {
	cfg := c.Config()

	headers := make(http.Header)
	for k, v := range cfg.BaseHeaders {
		headers.Set(k, v)
	}
	for k, v := range extraHeaders {
		headers.Set(k, v)
	}
	if cfg.BearerToken != "" {
		headers.Set("Authorization", "Bearer "+cfg.BearerToken)
	}

	params := make(url.Values)
	for k, v := range cfg.BaseParams {
		params.Set(k, v)
	}
	for k, v := range extraParams {
		params.Set(k, v)
	}

	proxy, err := proxyFunc(cfg.Proxies)
	if err != nil {
		return nil, &ConfigurationError{Op: "build session", Err: err}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	return &Session{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport:   transport,
		headers:     headers,
		params:      params,
		bearerToken: cfg.BearerToken,
	}, nil
}

// WithSession builds a session, passes it to fn and closes it on every exit
// path.
func (c *Client) WithSession(extraHeaders, extraParams map[string]string, fn func(*Session) error) error {
	sess, err := c.NewSession(extraHeaders, extraParams)
	if err != nil {
		return err
	}
	defer sess.Close()

	return fn(sess)
}

// Header returns a copy of the session headers.
func (s *Session) Header() http.Header {
	return s.headers.Clone()
}

// Params returns a copy of the session query parameters.
func (s *Session) Params() url.Values {
	params := make(url.Values, len(s.params))
	for k, v := range s.params {
		params[k] = append([]string(nil), v...)
	}
	return params
}

// Close releases idle connections. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.transport.CloseIdleConnections()
	return nil
}

// Send performs the request and reads the whole response body.
func (s *Session) Send(ctx context.Context, req *Request) (*Response, error) {
	if s.closed.Load() {
		return nil, &ConfigurationError{Op: "send", Err: ErrSessionClosed}
	}

	httpReq, err := s.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}()

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, "network_error").Inc()
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, "network_error").Inc()
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("read response body: %w", err)}
	}

	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(httpResp.StatusCode)).Inc()

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       body,
		Request:    req,
	}, nil
}

// Prepare returns a copy of req carrying the headers and query parameters the
// session will actually send: session values, then request values, then the
// bearer token. Decorators that key on the outgoing request use it.
func (s *Session) Prepare(req *Request) *Request {
	out := *req

	out.Headers = s.headers.Clone()
	for k, values := range req.Headers {
		out.Headers[k] = append([]string(nil), values...)
	}
	if s.bearerToken != "" {
		out.Headers.Set("Authorization", "Bearer "+s.bearerToken)
	}

	out.Params = s.Params()
	for k, values := range req.Params {
		out.Params[k] = append([]string(nil), values...)
	}

	return &out
}

func (s *Session) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	prepared := s.Prepare(req)

	u, err := url.Parse(prepared.URL)
	if err != nil {
		return nil, &ConfigurationError{Op: "parse url", Err: err}
	}

	query := u.Query()
	for k, values := range prepared.Params {
		for _, v := range values {
			query.Add(k, v)
		}
	}
	u.RawQuery = query.Encode()

	var body io.Reader
	if prepared.Body != nil {
		data, err := encodeBody(prepared.Body)
		if err != nil {
			return nil, &ConfigurationError{Op: "encode body", Err: err}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, prepared.Method, u.String(), body)
	if err != nil {
		return nil, &ConfigurationError{Op: "create request", Err: err}
	}

	httpReq.Header = prepared.Headers
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		return json.Marshal(b)
	}
}

// proxyFunc resolves proxies per request scheme, falling back to the "all"
// entry. Without proxies the environment settings apply.
func proxyFunc(proxies map[string]string) (func(*http.Request) (*url.URL, error), error) {
	if len(proxies) == 0 {
		return http.ProxyFromEnvironment, nil
	}

	parsed := make(map[string]*url.URL, len(proxies))
	for scheme, raw := range proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("proxy %q: %w", scheme, err)
		}
		parsed[scheme] = u
	}

	return func(r *http.Request) (*url.URL, error) {
		if u, ok := parsed[r.URL.Scheme]; ok {
			return u, nil
		}
		if u, ok := parsed["all"]; ok {
			return u, nil
		}
		return nil, nil
	}, nil
}
