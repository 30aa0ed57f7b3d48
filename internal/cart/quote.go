package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/money"
)

// ProductLookup resolves catalog entries by id. Missing ids are absent from
// the returned map.
type ProductLookup interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// QuoteLine is a requested product and quantity.
type QuoteLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

// QuoteInput is the body of POST /cart/quote.
type QuoteInput struct {
	Items    []QuoteLine   `json:"items" validate:"required,min=1,dive"`
	Discount *money.Amount `json:"discount,omitempty"`
	TaxRate  *string       `json:"tax_rate,omitempty"`
}

// QuoteItem is a priced line.
type QuoteItem struct {
	ProductID   uuid.UUID    `json:"product_id"`
	ProductName string       `json:"product_name"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unit_price"`
	Total       money.Amount `json:"total"`
}

// Quote is the priced cart.
type Quote struct {
	Items     []QuoteItem  `json:"items"`
	ItemCount int          `json:"item_count"`
	Subtotal  money.Amount `json:"subtotal"`
	Discount  money.Amount `json:"discount"`
	TaxRate   string       `json:"tax_rate"`
	Tax       money.Amount `json:"tax"`
	Total     money.Amount `json:"total"`
}

// Quoter prices carts against the live catalog.
type Quoter struct {
	products ProductLookup
}

func NewQuoter(products ProductLookup) (*Quoter, error) {
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &Quoter{products: products}, nil
}

// Quote builds a cart from the requested lines using catalog names and prices.
// Repeated product ids accumulate.
func (q *Quoter) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		ids = append(ids, line.ProductID)
	}

	catalog, err := q.products.GetMany(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	c := New()
	missing := []string{}
	for _, line := range input.Items {
		product, ok := catalog[line.ProductID]
		if !ok || !product.IsActive {
			missing = append(missing, line.ProductID.String())
			continue
		}
		existing := lineQuantity(c, product.ID)
		c.AddItem(Product{ID: product.ID, Name: product.Name, Price: money.FromCents(product.PriceCents)})
		c.UpdateQuantity(product.ID, existing+line.Quantity)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive products").
			WithDetails(map[string]any{"product_ids": missing})
	}

	if input.Discount != nil {
		if err := c.SetDiscount(input.Discount.Decimal); err != nil {
			return nil, err
		}
	}
	if input.TaxRate != nil {
		rate, err := decimal.NewFromString(*input.TaxRate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rate")
		}
		if err := c.SetTaxRate(rate); err != nil {
			return nil, err
		}
	}

	return buildQuote(c), nil
}

func lineQuantity(c *Cart, productID uuid.UUID) int {
	for _, item := range c.items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func buildQuote(c *Cart) *Quote {
	items := make([]QuoteItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, QuoteItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   money.NewAmount(item.UnitPrice),
			Total:       money.NewAmount(item.LineTotal()),
		})
	}
	return &Quote{
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  money.NewAmount(c.Subtotal()),
		Discount:  money.NewAmount(c.Discount()),
		TaxRate:   c.TaxRate().String(),
		Tax:       money.NewAmount(c.Tax()),
		Total:     money.NewAmount(c.Total()),
	}
}
