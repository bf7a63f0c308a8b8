package powerstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pstracker/backend/internal/errs"
)

func TestGetShippedParsesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Orders/GetSpedito2" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		if got := r.URL.Query().Get("Cesta"); got != "X0005" {
			t.Fatalf("unexpected cesta: %s", got)
		}
		w.Write([]byte(`{"Spedito":[{"nOrdine":"ORD-1","nLista":42,"CodiceArticolo":"SKU-A","Quantita":2,"DataOra":"21/11/2025 10:30:00"}]}`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, Token: "tok"}
	rows, err := c.GetShipped(context.Background(), "X0005")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].SKU != "SKU-A" || rows[0].NLista != 42 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if !rows[0].Qty.Equal(rows[0].Qty.Truncate(0)) || rows[0].Qty.IntPart() != 2 {
		t.Fatalf("unexpected qty: %s", rows[0].Qty)
	}
	if rows[0].ShippedAt == nil {
		t.Fatalf("expected parsed timestamp")
	}
}

func TestGetShippedRetriesTransientFailureOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"Spedito":[]}`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, Token: "tok"}
	rows, err := c.GetShipped(context.Background(), "X0005")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(rows))
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestGetShippedDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, Token: "bad"}
	_, err := c.GetShipped(context.Background(), "X0005")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errs.CodeOf(err) != errs.CodeExternal {
		t.Fatalf("expected EXTERNAL_SERVICE_ERROR, got %s", errs.CodeOf(err))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected single call for 4xx, got %d", n)
	}
}

func TestGetShippedMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Spedito": not-json`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, Token: "tok"}
	_, err := c.GetShipped(context.Background(), "X0005")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errs.CodeOf(err) != errs.CodeExternal {
		t.Fatalf("expected EXTERNAL_SERVICE_ERROR, got %s", errs.CodeOf(err))
	}
}

func TestConcurrentFirstCallsShareOneClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Spedito":[]}`))
	}))
	defer srv.Close()

	c := &HTTPClient{BaseURL: srv.URL, Token: "tok"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetShipped(context.Background(), "X0005"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if c.httpClient() != c.httpClient() {
		t.Fatalf("expected a single underlying client")
	}
}

func TestParseAPITimeFormats(t *testing.T) {
	for _, in := range []string{"21/11/2025 10:30:00", "2025-11-21 10:30:00", "2025-11-21T10:30:00"} {
		ts := parseAPITime(in)
		if ts == nil {
			t.Fatalf("failed to parse %q", in)
		}
		if ts.Year() != 2025 || ts.Month() != 11 || ts.Day() != 21 {
			t.Fatalf("wrong date for %q: %v", in, ts)
		}
	}
	if parseAPITime("") != nil {
		t.Fatalf("expected nil for empty string")
	}
	if parseAPITime("not a date") != nil {
		t.Fatalf("expected nil for garbage")
	}
}
