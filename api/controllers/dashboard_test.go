package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/api/middleware"
	reportsvc "github.com/pizzalemon/pos-backend/internal/reports"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

type stubReports struct {
	branch *uuid.UUID
	err    error
}

func (s *stubReports) DashboardStats(_ context.Context, branchID *uuid.UUID) (*reportsvc.DashboardStats, error) {
	s.branch = branchID
	if s.err != nil {
		return nil, s.err
	}
	return &reportsvc.DashboardStats{TotalSales: 3, TotalRevenue: money.AmountFromCents(5115)}, nil
}

func TestDashboard(t *testing.T) {
	branchID := uuid.New()
	ctx := middleware.WithEmployee(context.Background(), uuid.NewString(), branchID.String(), "manager")

	stub := &stubReports{}
	rec := httptest.NewRecorder()
	Dashboard(stub, testLogger()).ServeHTTP(rec, newRequest(ctx, http.MethodGet, "/api/v1/dashboard", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.branch == nil || *stub.branch != branchID {
		t.Fatalf("expected token branch, got %v", stub.branch)
	}
	var body map[string]any
	decodeData(t, rec, &body)
	if body["total_revenue"] != "51.15" {
		t.Fatalf("unexpected revenue %v", body["total_revenue"])
	}

	stub = &stubReports{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "count sales")}
	rec = httptest.NewRecorder()
	Dashboard(stub, testLogger()).ServeHTTP(rec, newRequest(ctx, http.MethodGet, "/api/v1/dashboard", "", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
