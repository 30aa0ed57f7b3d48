package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

type stubLookup struct {
	products map[uuid.UUID]models.Product
	err      error
}

func (s stubLookup) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func TestQuoterPricesFromCatalog(t *testing.T) {
	espresso := models.Product{ID: uuid.New(), Name: "Espresso", PriceCents: 350, IsActive: true}
	burger := models.Product{ID: uuid.New(), Name: "Chicken Burger", PriceCents: 850, IsActive: true}
	q, err := NewQuoter(stubLookup{products: map[uuid.UUID]models.Product{espresso.ID: espresso, burger.ID: burger}})
	require.NoError(t, err)

	quote, err := q.Quote(context.Background(), QuoteInput{Items: []QuoteLine{
		{ProductID: espresso.ID, Quantity: 1},
		{ProductID: burger.ID, Quantity: 1},
		{ProductID: espresso.ID, Quantity: 1},
	}})
	require.NoError(t, err)

	require.Len(t, quote.Items, 2)
	assert.Equal(t, 2, quote.Items[0].Quantity)
	assert.Equal(t, "Espresso", quote.Items[0].ProductName)
	assert.Equal(t, 3, quote.ItemCount)
	assert.Equal(t, "15.50", money.Format(quote.Subtotal.Decimal))
	assert.Equal(t, "1.55", money.Format(quote.Tax.Decimal))
	assert.Equal(t, "17.05", money.Format(quote.Total.Decimal))
	assert.Equal(t, "10", quote.TaxRate)
}

func TestQuoterAppliesDiscountAndRate(t *testing.T) {
	p := models.Product{ID: uuid.New(), Name: "Pizza", PriceCents: 1200, IsActive: true}
	q, err := NewQuoter(stubLookup{products: map[uuid.UUID]models.Product{p.ID: p}})
	require.NoError(t, err)

	rate := "5"
	quote, err := q.Quote(context.Background(), QuoteInput{
		Items:    []QuoteLine{{ProductID: p.ID, Quantity: 2}},
		Discount: money.AmountFromCents(400).Ptr(),
		TaxRate:  &rate,
	})
	require.NoError(t, err)
	assert.Equal(t, "24.00", money.Format(quote.Subtotal.Decimal))
	assert.Equal(t, "1.00", money.Format(quote.Tax.Decimal))
	assert.Equal(t, "21.00", money.Format(quote.Total.Decimal))
}

func TestQuoterRejectsUnknownAndInactive(t *testing.T) {
	inactive := models.Product{ID: uuid.New(), Name: "Old", PriceCents: 100, IsActive: false}
	q, err := NewQuoter(stubLookup{products: map[uuid.UUID]models.Product{inactive.ID: inactive}})
	require.NoError(t, err)

	_, err = q.Quote(context.Background(), QuoteInput{Items: []QuoteLine{
		{ProductID: inactive.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	}})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["product_ids"], 2)
}

func TestQuoterValidatesInput(t *testing.T) {
	q, err := NewQuoter(stubLookup{})
	require.NoError(t, err)

	_, err = q.Quote(context.Background(), QuoteInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = q.Quote(context.Background(), QuoteInput{Items: []QuoteLine{{ProductID: uuid.New(), Quantity: 0}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	failing, err := NewQuoter(stubLookup{err: errors.New("db down")})
	require.NoError(t, err)
	_, err = failing.Quote(context.Background(), QuoteInput{Items: []QuoteLine{{ProductID: uuid.New(), Quantity: 1}}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = NewQuoter(nil)
	assert.Error(t, err)
}
