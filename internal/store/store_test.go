package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, ServiceKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("NewClient accepted an empty URL")
	}
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Error("NewClient accepted a malformed URL")
	}
}

func TestGet_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/records/r1" {
			t.Errorf("path = %s, want /v1/records/r1", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id":"r1"}`))
	})

	body, err := c.Get(context.Background(), "records", "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != `{"id":"r1"}` {
		t.Errorf("body = %s", body)
	}
}

func TestGet_ErrorShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":8,"message":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := c.Get(context.Background(), "records", "r1")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %T, want *RequestError", err)
	}
	if reqErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", reqErr.Status)
	}
	if reqErr.Code != 8 {
		t.Errorf("Code = %d, want 8", reqErr.Code)
	}
	if reqErr.Message != "RESOURCE_EXHAUSTED" {
		t.Errorf("Message = %q", reqErr.Message)
	}
}

func TestGet_ErrorShape_FlatBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":5,"message":"no such document"}`))
	})

	_, err := c.Get(context.Background(), "records", "missing")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %T, want *RequestError", err)
	}
	if reqErr.Status != http.StatusNotFound || reqErr.Code != 5 || reqErr.Message != "no such document" {
		t.Errorf("RequestError = %+v", reqErr)
	}
}

func TestGet_ErrorShape_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unreachable"))
	})

	_, err := c.Get(context.Background(), "records", "r1")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %T, want *RequestError", err)
	}
	if reqErr.Status != http.StatusBadGateway || reqErr.Code != 0 {
		t.Errorf("RequestError = %+v", reqErr)
	}
	if reqErr.Message != "upstream unreachable" {
		t.Errorf("Message = %q", reqErr.Message)
	}
}

func TestInsert_SendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"r2","name":"demo"}`))
	})

	body, err := c.Insert(context.Background(), "records", map[string]string{"name": "demo"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if string(body) != `{"id":"r2","name":"demo"}` {
		t.Errorf("body = %s", body)
	}
}

func TestList_QueryString(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("owner"); got != "u1" {
			t.Errorf("owner query = %q, want u1", got)
		}
		w.Write([]byte(`[]`))
	})

	q := neturl.Values{}
	q.Set("owner", "u1")
	if _, err := c.List(context.Background(), "records", q); err != nil {
		t.Fatalf("List: %v", err)
	}
}
