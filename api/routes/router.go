package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pizzalemon/pos-backend/api/controllers"
	"github.com/pizzalemon/pos-backend/api/middleware"
	"github.com/pizzalemon/pos-backend/internal/cart"
	"github.com/pizzalemon/pos-backend/internal/customers"
	"github.com/pizzalemon/pos-backend/internal/inventory"
	products "github.com/pizzalemon/pos-backend/internal/products"
	"github.com/pizzalemon/pos-backend/internal/reports"
	"github.com/pizzalemon/pos-backend/internal/sales"
	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/metrics"
	"github.com/pizzalemon/pos-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Redis may be nil in tests,
// which disables idempotent replay and rate limiting.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Sales     sales.Service
	Inventory inventory.Service
	Customers customers.Service
	Products  products.Service
	Quoter    *cart.Quoter
	Reports   reports.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	ready := map[string]controllers.Pinger{"db": d.DB}
	if d.Redis != nil {
		ready["redis"] = d.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	var (
		idempotency = middleware.Idempotency(nil, logg)
		salesLimit  = middleware.RateLimit(middleware.NewRateLimitPolicy("sales", 0, 0), nil, logg)
	)
	if d.Redis != nil {
		idempotency = middleware.Idempotency(d.Redis, logg)
		salesLimit = middleware.RateLimit(
			middleware.NewRateLimitPolicy("sales", cfg.RateLimit.SalesWindow, cfg.RateLimit.SalesLimit),
			d.Redis,
			logg,
		)
	}
	managers := middleware.RequireRole(logg, enums.EmployeeRoleManager, enums.EmployeeRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)

		r.Route("/sales", func(r chi.Router) {
			r.With(salesLimit).Post("/", controllers.CommitSale(d.Sales, logg))
			r.Get("/", controllers.ListSales(d.Sales, logg))
			r.Get("/receipt/{receiptNumber}", controllers.GetSaleByReceipt(d.Sales, logg))
			r.Get("/{saleId}", controllers.GetSale(d.Sales, logg))
			r.Get("/{saleId}/qr", controllers.SaleReceiptQR(d.Sales, logg))
			r.With(managers).Post("/{saleId}/void", controllers.VoidSale(d.Sales, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.ListInventory(d.Inventory, logg))
			r.Get("/low-stock", controllers.ListLowStock(d.Inventory, logg))
			r.With(managers).Post("/", controllers.UpsertInventory(d.Inventory, logg))
			r.Post("/adjust", controllers.AdjustInventory(d.Inventory, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.ListCustomers(d.Customers, logg))
			r.Post("/", controllers.CreateCustomer(d.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(d.Customers, logg))
			r.Put("/{customerId}", controllers.UpdateCustomer(d.Customers, logg))
			r.With(managers).Delete("/{customerId}", controllers.DeactivateCustomer(d.Customers, logg))
			r.Post("/{customerId}/loyalty", controllers.AdjustLoyalty(d.Customers, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(d.Products, logg))
			r.Get("/barcode/{barcode}", controllers.GetProductByBarcode(d.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(d.Products, logg))
			r.With(managers).Post("/", controllers.CreateProduct(d.Products, logg))
			r.With(managers).Put("/{productId}", controllers.UpdateProduct(d.Products, logg))
			r.With(managers).Delete("/{productId}", controllers.DeactivateProduct(d.Products, logg))
		})

		r.Post("/cart/quote", controllers.QuoteCart(d.Quoter, logg))
		r.Get("/dashboard", controllers.Dashboard(d.Reports, logg))
	})

	return r
}
