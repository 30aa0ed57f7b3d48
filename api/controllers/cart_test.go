package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/internal/cart"
	productsvc "github.com/pizzalemon/pos-backend/internal/products"
)

func TestQuoteCart(t *testing.T) {
	logg := testLogger()
	svc := newProductService(t)
	ctx := context.Background()

	espresso, err := svc.CreateProduct(ctx, productsvc.CreateProductInput{Name: "Espresso", Price: decimal.RequireFromString("3.50")})
	if err != nil {
		t.Fatalf("create espresso: %v", err)
	}
	burger, err := svc.CreateProduct(ctx, productsvc.CreateProductInput{Name: "Chicken Burger", Price: decimal.RequireFromString("8.50")})
	if err != nil {
		t.Fatalf("create burger: %v", err)
	}

	quoter, err := cart.NewQuoter(svc)
	if err != nil {
		t.Fatalf("new quoter: %v", err)
	}

	body := `{"items":[{"product_id":"` + espresso.ID.String() + `","quantity":2},{"product_id":"` + burger.ID.String() + `","quantity":1}]}`
	rec := httptest.NewRecorder()
	QuoteCart(quoter, logg).ServeHTTP(rec, newRequest(nil, http.MethodPost, "/api/v1/cart/quote", body, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var quote map[string]any
	decodeData(t, rec, &quote)
	if quote["subtotal"] != "15.50" || quote["tax"] != "1.55" || quote["total"] != "17.05" {
		t.Fatalf("unexpected totals %v", quote)
	}

	t.Run("empty cart", func(t *testing.T) {
		rec := httptest.NewRecorder()
		QuoteCart(quoter, logg).ServeHTTP(rec, newRequest(nil, http.MethodPost, "/api/v1/cart/quote", `{"items":[]}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
