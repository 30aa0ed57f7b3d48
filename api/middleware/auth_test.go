package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/auth"
	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "pos", ExpirationMinutes: 60}

type capturedActor struct {
	employee string
	branch   string
	role     string
}

func captureHandler(out *capturedActor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.employee = EmployeeIDFromContext(r.Context())
		out.branch = BranchIDFromContext(r.Context())
		out.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(captureHandler(&capturedActor{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(captureHandler(&capturedActor{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsEmployeeAndBranch(t *testing.T) {
	employee, branch := uuid.New(), uuid.New()
	token := mintTestToken(t, employee, &branch, enums.EmployeeRoleCashier)

	var got capturedActor
	handler := Auth(testJWT, nil)(captureHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.employee != employee.String() {
		t.Fatalf("expected employee %s got %s", employee, got.employee)
	}
	if got.branch != branch.String() {
		t.Fatalf("expected branch %s got %s", branch, got.branch)
	}
	if got.role != string(enums.EmployeeRoleCashier) {
		t.Fatalf("expected cashier role got %s", got.role)
	}
}

func TestAuthAllowsAdminWithoutBranch(t *testing.T) {
	token := mintTestToken(t, uuid.New(), nil, enums.EmployeeRoleAdmin)

	var got capturedActor
	handler := Auth(testJWT, nil)(captureHandler(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.branch != "" {
		t.Fatalf("expected no branch got %s", got.branch)
	}
	if _, ok := BranchUUID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Fatal("expected no branch on a bare context")
	}
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(nil, enums.EmployeeRoleManager, enums.EmployeeRoleAdmin)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		role enums.EmployeeRole
		want int
	}{
		{enums.EmployeeRoleManager, http.StatusNoContent},
		{enums.EmployeeRoleAdmin, http.StatusNoContent},
		{enums.EmployeeRoleCashier, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithEmployee(req.Context(), uuid.NewString(), "", string(tt.role)))
		resp := httptest.NewRecorder()
		mw(ok).ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("role %q: expected %d got %d", tt.role, tt.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, employee uuid.UUID, branch *uuid.UUID, role enums.EmployeeRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		EmployeeID: employee,
		BranchID:   branch,
		Role:       role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
