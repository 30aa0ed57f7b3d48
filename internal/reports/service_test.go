package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/internal/customers"
	"github.com/pizzalemon/pos-backend/internal/inventory"
	product "github.com/pizzalemon/pos-backend/internal/products"
	"github.com/pizzalemon/pos-backend/pkg/db/dbtest"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
)

var clock = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Customers: customers.NewRepository(conn),
		Products:  product.NewRepository(conn),
		Inventory: inventory.NewRepository(conn),
		Now:       func() time.Time { return clock },
	})
	require.NoError(t, err)
	return svc
}

func seedSale(t *testing.T, conn *gorm.DB, branch uuid.UUID, cents int64, status enums.SaleStatus, at time.Time) {
	t.Helper()
	sale := models.Sale{
		ReceiptNumber: "RCP-" + uuid.NewString(),
		BranchID:      branch,
		EmployeeID:    uuid.New(),
		SubtotalCents: cents,
		TotalCents:    cents,
		PaymentMethod: enums.PaymentMethodCard,
		PaymentStatus: enums.PaymentStatusCompleted,
		Status:        status,
		OrderType:     enums.OrderTypeTakeout,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	require.NoError(t, conn.Create(&sale).Error)
}

func seedStock(t *testing.T, conn *gorm.DB, branch uuid.UUID, qty int) {
	t.Helper()
	record := models.InventoryRecord{ProductID: uuid.New(), BranchID: branch, Quantity: qty, LowStockThreshold: 10}
	require.NoError(t, conn.Create(&record).Error)
}

func TestDashboardStats(t *testing.T) {
	conn := dbtest.Open(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	downtown, annex := uuid.New(), uuid.New()

	seedSale(t, conn, downtown, 1000, enums.SaleStatusCompleted, clock.Add(-5*time.Hour))
	seedSale(t, conn, downtown, 500, enums.SaleStatusCompleted, clock.Add(-16*time.Hour))
	seedSale(t, conn, downtown, 700, enums.SaleStatusVoid, clock.Add(-time.Hour))
	seedSale(t, conn, annex, 300, enums.SaleStatusCompleted, clock.Add(-2*time.Hour))

	for _, name := range []string{"Ana", "Luis", "Marta"} {
		require.NoError(t, conn.Create(&models.Customer{Name: name}).Error)
	}
	require.NoError(t, conn.Model(&models.Customer{}).Where("name = ?", "Marta").Update("is_active", false).Error)

	for _, name := range []string{"Espresso", "Burger"} {
		require.NoError(t, conn.Create(&models.Product{Name: name, PriceCents: 350}).Error)
	}
	require.NoError(t, conn.Model(&models.Product{}).Where("name = ?", "Burger").Update("is_active", false).Error)

	seedStock(t, conn, downtown, 5)
	seedStock(t, conn, downtown, 50)
	seedStock(t, conn, annex, 10)

	stats, err := svc.DashboardStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSales)
	assert.Equal(t, "18.00", stats.TotalRevenue.StringFixed(2))
	assert.Equal(t, int64(2), stats.TodaySalesCount)
	assert.Equal(t, "13.00", stats.TodayRevenue.StringFixed(2))
	assert.Equal(t, int64(2), stats.TotalCustomers)
	assert.Equal(t, int64(1), stats.TotalProducts)
	assert.Equal(t, int64(2), stats.LowStockItems)

	branch, err := svc.DashboardStats(ctx, &downtown)
	require.NoError(t, err)
	assert.Equal(t, int64(2), branch.TotalSales)
	assert.Equal(t, "15.00", branch.TotalRevenue.StringFixed(2))
	assert.Equal(t, int64(1), branch.TodaySalesCount)
	assert.Equal(t, "10.00", branch.TodayRevenue.StringFixed(2))
	assert.Equal(t, int64(1), branch.LowStockItems)
}

func TestDashboardStatsEmpty(t *testing.T) {
	svc := newTestService(t, dbtest.Open(t))

	stats, err := svc.DashboardStats(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalSales)
	assert.Equal(t, "0.00", stats.TotalRevenue.StringFixed(2))
	assert.Equal(t, "0.00", stats.TodayRevenue.StringFixed(2))
}

type failingCounter struct{}

func (failingCounter) CountActive(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestDashboardStatsDependencyError(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Customers: failingCounter{},
		Products:  product.NewRepository(conn),
		Inventory: inventory.NewRepository(conn),
	})
	require.NoError(t, err)

	_, err = svc.DashboardStats(context.Background(), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestStartOfDayUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 3, 10, 21, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), startOfDay(local))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)
}
