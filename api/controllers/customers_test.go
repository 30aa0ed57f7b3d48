package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	customersvc "github.com/pizzalemon/pos-backend/internal/customers"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

type stubCustomerService struct {
	created     customersvc.CreateInput
	search      string
	params      pagination.Params
	deactivated uuid.UUID
	points      int64
}

func (s *stubCustomerService) Create(_ context.Context, input customersvc.CreateInput) (*customersvc.CustomerDTO, error) {
	s.created = input
	return &customersvc.CustomerDTO{ID: uuid.New(), Name: input.Name, IsActive: true}, nil
}

func (s *stubCustomerService) Get(_ context.Context, id uuid.UUID) (*customersvc.CustomerDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
}

func (s *stubCustomerService) List(_ context.Context, search string, params pagination.Params) (*customersvc.CustomerList, error) {
	s.search = search
	s.params = params
	return &customersvc.CustomerList{Customers: []customersvc.CustomerDTO{}}, nil
}

func (s *stubCustomerService) Update(_ context.Context, id uuid.UUID, input customersvc.UpdateInput) (*customersvc.CustomerDTO, error) {
	return &customersvc.CustomerDTO{ID: id, Name: *input.Name}, nil
}

func (s *stubCustomerService) Deactivate(_ context.Context, id uuid.UUID) error {
	s.deactivated = id
	return nil
}

func (s *stubCustomerService) AdjustPoints(_ context.Context, id uuid.UUID, points int64) (*customersvc.CustomerDTO, error) {
	s.points = points
	if points < -100 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient loyalty points")
	}
	return &customersvc.CustomerDTO{ID: id, LoyaltyPoints: 100 + points}, nil
}

func (s *stubCustomerService) AddPointsTx(context.Context, *gorm.DB, uuid.UUID, int64) (*models.Customer, error) {
	return nil, nil
}

func (s *stubCustomerService) ReversePointsTx(context.Context, *gorm.DB, uuid.UUID, int64) (int64, error) {
	return 0, nil
}

func (s *stubCustomerService) RecordSpendTx(context.Context, *gorm.DB, uuid.UUID, decimal.Decimal) (*models.Customer, error) {
	return nil, nil
}

func TestCustomerControllers(t *testing.T) {
	logg := testLogger()
	id := uuid.New()

	t.Run("create returns 201", func(t *testing.T) {
		stub := &stubCustomerService{}
		rec := httptest.NewRecorder()
		CreateCustomer(stub, logg).ServeHTTP(rec, newRequest(nil, http.MethodPost, "/api/v1/customers", `{"name":"Ada","email":"ada@example.com"}`, nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.created.Name != "Ada" || *stub.created.Email != "ada@example.com" {
			t.Fatalf("unexpected input %+v", stub.created)
		}
	})

	t.Run("create rejects bad email", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CreateCustomer(&stubCustomerService{}, logg).ServeHTTP(rec, newRequest(nil, http.MethodPost, "/api/v1/customers", `{"name":"Ada","email":"nope"}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("list passes search", func(t *testing.T) {
		stub := &stubCustomerService{}
		rec := httptest.NewRecorder()
		ListCustomers(stub, logg).ServeHTTP(rec, newRequest(nil, http.MethodGet, "/api/v1/customers?q=+ada+&limit=5", "", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.search != "ada" || stub.params.Limit != 5 {
			t.Fatalf("unexpected search %q params %+v", stub.search, stub.params)
		}
	})

	t.Run("get not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		GetCustomer(&stubCustomerService{}, logg).ServeHTTP(rec, newRequest(nil, http.MethodGet, "/", "", map[string]string{"customerId": id.String()}))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		rec := httptest.NewRecorder()
		UpdateCustomer(&stubCustomerService{}, logg).ServeHTTP(rec, newRequest(nil, http.MethodPut, "/", `{"name":"Grace"}`, map[string]string{"customerId": id.String()}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		stub := &stubCustomerService{}
		rec := httptest.NewRecorder()
		DeactivateCustomer(stub, logg).ServeHTTP(rec, newRequest(nil, http.MethodDelete, "/", "", map[string]string{"customerId": id.String()}))
		if rec.Code != http.StatusNoContent || stub.deactivated != id {
			t.Fatalf("unexpected response %d deactivated %s", rec.Code, stub.deactivated)
		}
	})

	t.Run("loyalty adjust", func(t *testing.T) {
		stub := &stubCustomerService{}
		rec := httptest.NewRecorder()
		AdjustLoyalty(stub, logg).ServeHTTP(rec, newRequest(nil, http.MethodPost, "/", `{"points":-40}`, map[string]string{"customerId": id.String()}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body customersvc.CustomerDTO
		decodeData(t, rec, &body)
		if body.LoyaltyPoints != 60 {
			t.Fatalf("expected 60 points, got %d", body.LoyaltyPoints)
		}
	})

	t.Run("loyalty overdraw is a state conflict", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AdjustLoyalty(&stubCustomerService{}, logg).ServeHTTP(rec, newRequest(nil, http.MethodPost, "/", `{"points":-500}`, map[string]string{"customerId": id.String()}))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}
