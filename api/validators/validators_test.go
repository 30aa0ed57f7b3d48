package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
)

type adjustBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Delta     int    `json:"delta" validate:"required"`
	Reason    string `json:"reason" validate:"required,oneof=receive count_correction damage return"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"nope","delta":3,"reason":"theft"}`))
	var body adjustBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", pkgerrors.As(err).Details())
	}
	if details["product_id"] != "must be a valid uuid" {
		t.Fatalf("unexpected product_id message %q", details["product_id"])
	}
	if !strings.HasPrefix(details["reason"], "must be one of") {
		t.Fatalf("unexpected reason message %q", details["reason"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"delta":1,"extra":true}`))
	var body adjustBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&from=2026-01-02&branch_id=bad&active=false", nil)

	if _, err := ParseQueryInt(req, "limit", 50, 1, 200); err == nil {
		t.Fatal("expected out of range error")
	}
	from, err := ParseQueryTime(req, "from")
	if err != nil || from == nil || from.Day() != 2 {
		t.Fatalf("unexpected from %v err %v", from, err)
	}
	if _, err := ParseQueryUUID(req, "branch_id"); err == nil {
		t.Fatal("expected uuid error")
	}
	if missing, err := ParseQueryUUID(req, "customer_id"); err != nil || missing != nil {
		t.Fatalf("expected absent uuid, got %v %v", missing, err)
	}
	active, err := ParseQueryBool(req, "active", true)
	if err != nil || active {
		t.Fatalf("expected active=false, got %v %v", active, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("saleId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	if _, err := ParseUUIDParam(req, "saleId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  espresso beans  ", 8); got != "espresso" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("José \t  Peña", 0); got != "José Peña" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("Peña", 3); got != "Peñ" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}
