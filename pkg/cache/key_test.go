package cache

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/Sternrassler/rest-client/pkg/client"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "simple url no params",
			key:  Key{Method: "GET", URL: "http://api.test/users"},
			want: "rest:GET:http://api.test/users",
		},
		{
			name: "trailing slash normalized",
			key:  Key{Method: "GET", URL: "http://api.test/users/"},
			want: "rest:GET:http://api.test/users",
		},
		{
			name: "empty method defaults to GET",
			key:  Key{URL: "http://api.test/users/5"},
			want: "rest:GET:http://api.test/users/5",
		},
		{
			name: "params sorted",
			key: Key{
				Method: "get",
				URL:    "http://api.test/users",
				Params: url.Values{
					"page":  []string{"2"},
					"order": []string{"desc"},
				},
			},
			want: "rest:GET:http://api.test/users:order=desc:page=2",
		},
		{
			name: "multi-valued param sorted",
			key: Key{
				Method: "GET",
				URL:    "http://api.test/users",
				Params: url.Values{"id": []string{"3", "1"}},
			},
			want: "rest:GET:http://api.test/users:id=1,3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyFor_FoldsQueryString(t *testing.T) {
	req := &client.Request{
		Method: "GET",
		URL:    "http://api.test/users?page=2",
		Params: url.Values{"order": []string{"desc"}},
	}

	want := "rest:GET:http://api.test/users:order=desc:page=2"
	if got := KeyFor(req).String(); got != want {
		t.Errorf("KeyFor().String() = %q, want %q", got, want)
	}
}

func TestKey_Determinism(t *testing.T) {
	key := Key{
		Method: "GET",
		URL:    "http://api.test/users",
		Params: url.Values{"a": []string{"1"}, "b": []string{"2"}, "c": []string{"3"}},
	}

	first := key.String()
	for i := 0; i < 100; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q != %q", got, first)
		}
	}
}

func TestKeyFor_SeparatesCredentials(t *testing.T) {
	alice := &client.Request{
		Method:  "GET",
		URL:     "http://api.test/me",
		Headers: http.Header{"Authorization": []string{"Bearer alice"}},
	}
	bob := &client.Request{
		Method:  "GET",
		URL:     "http://api.test/me",
		Headers: http.Header{"Authorization": []string{"Bearer bob"}},
	}
	anonymous := &client.Request{Method: "GET", URL: "http://api.test/me"}

	a, b, anon := KeyFor(alice).String(), KeyFor(bob).String(), KeyFor(anonymous).String()
	if a == b || a == anon || b == anon {
		t.Errorf("keys must differ per credential: alice=%q bob=%q anonymous=%q", a, b, anon)
	}
	if strings.Contains(a, "alice") {
		t.Errorf("key %q must not contain the raw credential", a)
	}
	if anon != "rest:GET:http://api.test/me" {
		t.Errorf("anonymous key = %q, want %q", anon, "rest:GET:http://api.test/me")
	}
	if KeyFor(alice).String() != a {
		t.Error("credential digest not deterministic")
	}
}

func TestKeyFor_PreparedSessionRequest(t *testing.T) {
	newSession := func(token, page string) *client.Session {
		cfg := client.DefaultConfig("http://api.test/me")
		cfg.BearerToken = token
		c, err := client.New(cfg)
		if err != nil {
			t.Fatalf("client.New() error = %v", err)
		}
		sess, err := c.NewSession(nil, map[string]string{"page": page})
		if err != nil {
			t.Fatalf("NewSession() error = %v", err)
		}
		t.Cleanup(func() { sess.Close() })
		return sess
	}

	req := &client.Request{Method: "GET", URL: "http://api.test/me"}
	keyA := KeyFor(newSession("alice", "1").Prepare(req))
	keyB := KeyFor(newSession("bob", "2").Prepare(req))

	if keyA.Params.Get("page") != "1" || keyB.Params.Get("page") != "2" {
		t.Errorf("session params missing from keys: %v / %v", keyA.Params, keyB.Params)
	}
	if keyA.String() == keyB.String() {
		t.Errorf("sessions with different params and tokens share key %q", keyA.String())
	}
}
