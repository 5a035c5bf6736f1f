package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

// Verb selects the kind of operation NewOperation builds.
type Verb int

const (
	VerbGet     Verb = iota // GET base URL
	VerbGetByID             // GET base URL + /id
	VerbPost                // POST payload to base URL
	VerbPut                 // PUT payload to base URL + /payload.id
	VerbDelete              // DELETE base URL + /id
)

func (v Verb) String() string {
	switch v {
	case VerbGet:
		return "GET"
	case VerbGetByID:
		return "GET_BY_ID"
	case VerbPost:
		return "POST"
	case VerbPut:
		return "PUT"
	case VerbDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Verb(%d)", int(v))
	}
}

// RequestSpec holds the per-call arguments of an operation.
type RequestSpec struct {
	Verb    Verb
	ID      any // GET_BY_ID, DELETE
	Payload any // POST, PUT
}

// NewOperation returns an operation that sends spec through t. The URL is
// built when the operation runs, so a missing base URL surfaces then.
func (c *Client) NewOperation(t Transport, spec RequestSpec) Operation {
	return func(ctx context.Context) (*Response, error) {
		req, err := c.buildRequest(spec)
		if err != nil {
			return nil, err
		}
		return t.Send(ctx, req)
	}
}

// NewOperations builds one operation per argument. Arguments are IDs for
// GET_BY_ID and DELETE and payloads for POST and PUT; VerbGet ignores them.
func (c *Client) NewOperations(t Transport, verb Verb, args []any) []Operation {
	ops := make([]Operation, 0, len(args))
	for _, arg := range args {
		spec := RequestSpec{Verb: verb}
		switch verb {
		case VerbPost, VerbPut:
			spec.Payload = arg
		default:
			spec.ID = arg
		}
		ops = append(ops, c.NewOperation(t, spec))
	}
	return ops
}

func (c *Client) buildRequest(spec RequestSpec) (*Request, error) {
	switch spec.Verb {
	case VerbGet:
		u, err := c.MakeURL(nil)
		if err != nil {
			return nil, err
		}
		return &Request{Method: http.MethodGet, URL: u}, nil

	case VerbGetByID, VerbDelete:
		if isEmptyID(spec.ID) {
			return nil, &ConfigurationError{Op: spec.Verb.String(), Err: ErrMissingID}
		}
		u, err := c.MakeURL(spec.ID)
		if err != nil {
			return nil, err
		}
		method := http.MethodGet
		if spec.Verb == VerbDelete {
			method = http.MethodDelete
		}
		return &Request{Method: method, URL: u}, nil

	case VerbPost:
		u, err := c.MakeURL(nil)
		if err != nil {
			return nil, err
		}
		return &Request{Method: http.MethodPost, URL: u, Body: spec.Payload}, nil

	case VerbPut:
		id, err := payloadID(spec.Payload)
		if err != nil {
			return nil, &ConfigurationError{Op: spec.Verb.String(), Err: err}
		}
		u, err := c.MakeURL(id)
		if err != nil {
			return nil, err
		}
		return &Request{Method: http.MethodPut, URL: u, Body: spec.Payload}, nil

	default:
		return nil, &ConfigurationError{Op: "build request", Err: fmt.Errorf("unknown verb %s", spec.Verb)}
	}
}

// MakeURL appends suffix to the base URL with exactly one separating slash.
// A nil or empty suffix yields the base URL itself; pointers are followed, so
// (*int)(nil) counts as nil.
func (c *Client) MakeURL(suffix any) (string, error) {
	base := c.BaseURL()
	if base == "" {
		return "", &ConfigurationError{Op: "make url", Err: ErrBaseURLNotSet}
	}

	suffix = deref(suffix)
	if suffix == nil {
		return base, nil
	}

	s, ok := suffix.(string)
	if !ok {
		s = fmt.Sprint(suffix)
	}
	if s == "" {
		return base, nil
	}

	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return strings.TrimSuffix(base, "/") + s, nil
}

// payloadID reads the "id" field of the JSON form of payload.
func payloadID(payload any) (string, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return "", ErrMissingID
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return "", fmt.Errorf("encode payload: %w", err)
		}
		raw = data
	}

	id := gjson.GetBytes(raw, "id")
	if !id.Exists() || id.Type == gjson.Null || id.String() == "" {
		return "", ErrMissingID
	}
	return id.String(), nil
}

// deref follows pointers down to a value, returning nil for nil pointers.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func isEmptyID(id any) bool {
	id = deref(id)
	if id == nil {
		return true
	}
	s, ok := id.(string)
	return ok && s == ""
}
