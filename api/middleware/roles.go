package middleware

import (
	"net/http"

	"github.com/pizzalemon/pos-backend/api/responses"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
)

// RequireRole lets the request through when the token role is one of allowed.
func RequireRole(logg *logger.Logger, allowed ...enums.EmployeeRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.EmployeeRole(RoleFromContext(r.Context()))
			for _, candidate := range allowed {
				if candidate == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
				WithDetails(map[string]any{"role": role}))
		})
	}
}
