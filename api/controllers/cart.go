package controllers

import (
	"net/http"

	"github.com/pizzalemon/pos-backend/api/responses"
	"github.com/pizzalemon/pos-backend/api/validators"
	"github.com/pizzalemon/pos-backend/internal/cart"
	"github.com/pizzalemon/pos-backend/pkg/logger"
)

// QuoteCart prices a cart against the live catalog without writing anything.
func QuoteCart(quoter *cart.Quoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cart.QuoteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := quoter.Quote(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
