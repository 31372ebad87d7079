// internal/helix/client_test.go
package helix

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchUser(t *testing.T) {
	var gotAuth, gotClientID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotClientID = r.Header.Get("Client-Id")
		w.Write([]byte(`{"data":[{"id":"42","login":"streamer","display_name":"Streamer"}]}`))
	}))
	defer server.Close()

	c := NewClientWithEndpoint(server.URL)
	user, err := c.FetchUser(context.Background(), "oauth:tok123", "client-abc")
	if err != nil {
		t.Fatalf("FetchUser failed: %v", err)
	}

	if user.Login != "streamer" {
		t.Errorf("Expected login streamer, got %s", user.Login)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("oauth: prefix should be stripped, got header %q", gotAuth)
	}
	if gotClientID != "client-abc" {
		t.Errorf("Expected Client-Id header, got %q", gotClientID)
	}
}

func TestFetchUserUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClientWithEndpoint(server.URL)
	_, err := c.FetchUser(context.Background(), "bad", "client")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFetchUserEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	c := NewClientWithEndpoint(server.URL)
	_, err := c.FetchUser(context.Background(), "tok", "client")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for empty data, got %v", err)
	}
}
