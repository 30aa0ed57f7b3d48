package controllers

import (
	"net/http"

	"github.com/pizzalemon/pos-backend/api/responses"
	reportsvc "github.com/pizzalemon/pos-backend/internal/reports"
	"github.com/pizzalemon/pos-backend/pkg/logger"
)

func Dashboard(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID, err := branchScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.DashboardStats(r.Context(), branchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
