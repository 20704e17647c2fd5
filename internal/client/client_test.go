package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kindledger/ledgercheck/internal/httpc"
)

func TestRequest_GetParsesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"status":"UP","service":"gateway"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	env, err := c.Get(context.Background(), "/health", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", env.StatusCode)
	}
	if !env.HasJSON {
		t.Fatalf("expected parsed JSON body")
	}
	if got := env.Field("status").String(); got != "UP" {
		t.Fatalf("expected status UP, got %q", got)
	}
}

func TestRequest_PostSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected application/json, got %q", ct)
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	env, err := c.Post(context.Background(), "/donate", map[string]any{"amount": 500.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", env.StatusCode)
	}
}

func TestRequest_NonJSONBodyLeavesParsedAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("plain text, not json"))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	env, err := c.Get(context.Background(), "/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.HasJSON {
		t.Fatalf("expected HasJSON=false for non-JSON body")
	}
	if env.Field("anything").Exists() {
		t.Fatalf("Field on unparsed body must not exist")
	}
}

func TestRequest_UnsupportedMethod(t *testing.T) {
	c := New("http://localhost:1", nil)
	_, err := c.Request(context.Background(), "DELETE", "/campaigns/x", nil, nil)
	if err == nil {
		t.Fatalf("expected error for DELETE")
	}
	if env, _ := c.Request(context.Background(), "PUT", "/x", nil, nil); env != nil {
		t.Fatalf("expected nil envelope for unsupported method")
	}
}

func TestRequest_ConnectionRefusedMapsToStatusZero(t *testing.T) {
	// Grab a port that nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, nil)
	env, err := c.Get(context.Background(), "/health", nil)
	if err != nil {
		t.Fatalf("transport failures must not surface as errors: %v", err)
	}
	if env.StatusCode != 0 {
		t.Fatalf("expected status 0, got %d", env.StatusCode)
	}
	if env.Err != "connection refused" {
		t.Fatalf("expected %q, got %q", "connection refused", env.Err)
	}
}

func TestRequest_TimeoutMapsToStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := New(srv.URL, &httpc.Httpc{Timeout: 50 * time.Millisecond})
	env, err := c.Get(context.Background(), "/slow", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.StatusCode != 0 {
		t.Fatalf("expected status 0, got %d", env.StatusCode)
	}
	if env.Err != "timeout" {
		t.Fatalf("expected %q, got %q", "timeout", env.Err)
	}
}
