package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(retries int) *Client {
	return NewClient(&http.Client{Timeout: 5 * time.Second}, Options{
		Retries:     retries,
		BackoffBase: time.Millisecond,
		RatePerSec:  1000,
	})
}

func TestTextSetsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	body, err := newTestClient(3).Text(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if body != "hello" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA == "" || gotAccept == "" {
		t.Fatalf("expected browser headers, got UA=%q Accept=%q", gotUA, gotAccept)
	}
	if gotReferer != server.URL+"/" {
		t.Fatalf("expected referer %q, got %q", server.URL+"/", gotReferer)
	}
}

func TestTextRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := newTestClient(3).Text(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTextFailsAfterRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(3).Text(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %T", err)
	}
	if fetchErr.LastStatus != http.StatusForbidden {
		t.Fatalf("expected last status 403, got %d", fetchErr.LastStatus)
	}
	if fetchErr.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", fetchErr.Attempts)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestTextStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(nil, Options{Retries: 3, BackoffBase: time.Hour, RatePerSec: 1000})
	_, err := client.Text(ctx, server.URL)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
