package middleware

import (
	"net/http"
	"strings"

	"github.com/pizzalemon/pos-backend/api/responses"
	pkgAuth "github.com/pizzalemon/pos-backend/pkg/auth"
	"github.com/pizzalemon/pos-backend/pkg/config"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// employee, branch and role it carries.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			branchID := ""
			if claims.BranchID != nil {
				branchID = claims.BranchID.String()
			}
			ctx := WithEmployee(r.Context(), claims.EmployeeID.String(), branchID, string(claims.Role))

			if logg != nil {
				ctx = logg.WithEmployeeID(ctx, claims.EmployeeID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if branchID != "" {
					ctx = logg.WithBranchID(ctx, branchID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
