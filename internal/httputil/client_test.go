package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/latticeworks/substrate/internal/identity"
)

func newTestServiceClient(t *testing.T, handler http.HandlerFunc) (*ServiceClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewServiceClient(ServiceClientConfig{
		BaseURL:    srv.URL,
		ServiceID:  "substrate",
		SigningKey: []byte("test-signing-key"),
	})
	return client, srv
}

func TestServiceClient_AttachesAuthHeaders(t *testing.T) {
	var gotServiceID, gotToken, gotUserID string
	client, _ := newTestServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotServiceID = r.Header.Get(ServiceIDHeader)
		gotToken = r.Header.Get(ServiceTokenHeader)
		gotUserID = r.Header.Get(UserIDHeader)
		w.WriteHeader(http.StatusOK)
	})

	ctx := identity.WithIdentity(context.Background(), identity.Identity{UserID: "u1", Role: "admin"})
	if _, err := client.Get(ctx, "/v1/events"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if gotServiceID != "substrate" {
		t.Errorf("X-Service-ID = %q", gotServiceID)
	}
	if gotUserID != "u1" {
		t.Errorf("X-User-ID = %q", gotUserID)
	}

	token, err := jwt.Parse(gotToken, func(*jwt.Token) (any, error) {
		return []byte("test-signing-key"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		t.Fatalf("service token did not verify: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["service_id"] != "substrate" {
		t.Errorf("service_id claim = %v", claims["service_id"])
	}
}

func TestServiceClient_NoUserHeaderWithoutIdentity(t *testing.T) {
	var hadUserID bool
	client, _ := newTestServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadUserID = r.Header[http.CanonicalHeaderKey(UserIDHeader)]
		w.WriteHeader(http.StatusOK)
	})

	if _, err := client.Get(context.Background(), "/v1/events"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hadUserID {
		t.Error("X-User-ID set without caller identity in context")
	}
}

func TestServiceClient_PostEncodesBody(t *testing.T) {
	var gotBody map[string]string
	client, _ := newTestServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	body := map[string]string{"event": "record.created"}
	if _, err := client.Post(context.Background(), "/v1/events", body); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotBody["event"] != "record.created" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestServiceClient_StatusError(t *testing.T) {
	client, _ := newTestServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := client.Get(context.Background(), "/v1/events")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", statusErr.StatusCode)
	}
	if statusErr.Message != "quota exceeded" {
		t.Errorf("Message = %q", statusErr.Message)
	}
}
