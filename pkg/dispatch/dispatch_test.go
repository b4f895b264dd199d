package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blackcoderx/harrier/pkg/prepare"
)

func newWire(method, url string) *prepare.WireRequest {
	w := &prepare.WireRequest{WireMethod: method, URL: url}
	return w
}

func TestDispatchSuccessfulGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	d := New()
	resp, err := d.Dispatch(context.Background(), newWire("GET", srv.URL+"/ping"), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.BodyBytes) != "pong" {
		t.Fatalf("expected body 'pong', got %q", resp.BodyBytes)
	}
	if v, ok := resp.Get("X-Test"); !ok || v != "yes" {
		t.Fatalf("expected X-Test header, got %q ok=%v", v, ok)
	}
}

func TestDispatchConnectionRefused(t *testing.T) {
	d := New()
	opts := DefaultOptions()
	opts.Timeout = 2 * time.Second
	_, err := d.Dispatch(context.Background(), newWire("GET", "http://127.0.0.1:1"), opts)
	if err == nil {
		t.Fatalf("expected an error dialing a closed port")
	}
	if _, ok := err.(*TransportError); !ok {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
}

func TestDispatchCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	d := New()
	_, err := d.Dispatch(ctx, newWire("GET", srv.URL), DefaultOptions())
	te, ok := err.(*TransportError)
	if !ok || te.Kind != KindCancelled {
		t.Fatalf("expected cancelled transport error, got %v", err)
	}
}
