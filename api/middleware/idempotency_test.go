package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	pkgredis "github.com/pizzalemon/pos-backend/pkg/redis"
)

func newRedisStore(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	return pkgredis.FromClient(raw), mr
}

func requestWithPattern(method, url, pattern string, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		pattern  string
		ttl      time.Duration
		required bool
		ok       bool
	}{
		{"sale commit", http.MethodPost, "/api/v1/sales", criticalIdempotencyTTL, false, true},
		{"sale void", http.MethodPost, "/api/v1/sales/{saleId}/void", criticalIdempotencyTTL, false, true},
		{"stock adjust", http.MethodPost, "/api/v1/inventory/adjust", defaultIdempotencyTTL, true, true},
		{"loyalty", http.MethodPost, "/api/v1/customers/{customerId}/loyalty", defaultIdempotencyTTL, true, true},
		{"void by raw path", http.MethodPost, "/api/v1/sales/4a1c2f9e-0b1d-4a59-9f3e-6f1b2c3d4e5f/void", criticalIdempotencyTTL, false, true},
		{"nested sale path", http.MethodPost, "/api/v1/sales/x/items/void", 0, false, false},
		{"sale read", http.MethodGet, "/api/v1/sales", 0, false, false},
		{"quote", http.MethodPost, "/api/v1/cart/quote", 0, false, false},
	}
	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if !ok {
			continue
		}
		if rule.ttl != tt.ttl || rule.required != tt.required {
			t.Fatalf("%s: unexpected rule %+v", tt.name, rule)
		}
	}
}

func TestIdempotencyRequiresHeaderForDeltas(t *testing.T) {
	store, _ := newRedisStore(t)
	called := false
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := requestWithPattern(http.MethodPost, "/api/v1/inventory/adjust", "/api/v1/inventory/adjust", `{"delta":-1}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatal("handler should not run without idempotency key")
	}
}

func TestIdempotencyOptionalForSales(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{}`)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice without a key, got %d", calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store, mr := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"receipt_number":"RCP-1"}}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := requestWithPattern(http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{"items":[]}`)
		req.Header.Set("Idempotency-Key", "sale-123")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one stored record, got %v", mr.Keys())
	}

	replay := send()
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay 201 got %d", replay.Code)
	}
	if replay.Header().Get("Idempotent-Replay") != "true" {
		t.Fatal("expected replay header")
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatal("expected content-type preserved")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"data":{"receipt_number":"RCP-1"}}` {
		t.Fatalf("unexpected replay body %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if ttl := mr.TTL(mr.Keys()[0]); ttl != criticalIdempotencyTTL {
		t.Fatalf("expected ttl %v got %v", criticalIdempotencyTTL, ttl)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store, _ := newRedisStore(t)
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := requestWithPattern(http.MethodPost, "/api/v1/inventory/adjust", "/api/v1/inventory/adjust", `{"delta":1}`)
	first.Header.Set("Idempotency-Key", "adj-1")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := requestWithPattern(http.MethodPost, "/api/v1/inventory/adjust", "/api/v1/inventory/adjust", `{"delta":2}`)
	second.Header.Set("Idempotency-Key", "adj-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, second)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "IDEMPOTENCY_KEY_REUSED") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestIdempotencyDoesNotStoreErrors(t *testing.T) {
	store, mr := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{}`)
		req.Header.Set("Idempotency-Key", "retry-me")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected failed attempts to rerun, got %d calls", calls)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected nothing stored, got %v", mr.Keys())
	}
}

func TestIdempotencyScopesByEmployee(t *testing.T) {
	store, mr := newRedisStore(t)
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, employee := range []string{"emp-a", "emp-b"} {
		req := requestWithPattern(http.MethodPost, "/api/v1/sales", "/api/v1/sales", `{}`)
		req = req.WithContext(WithEmployee(req.Context(), employee, "branch-1", "cashier"))
		req.Header.Set("Idempotency-Key", "same-key")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected both employees to run, got %d", calls)
	}
	if len(mr.Keys()) != 2 {
		t.Fatalf("expected two records, got %v", mr.Keys())
	}
}
