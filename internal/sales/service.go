package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pizzalemon/pos-backend/internal/repo"
	"github.com/pizzalemon/pos-backend/pkg/db"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	pkgerrors "github.com/pizzalemon/pos-backend/pkg/errors"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/metrics"
	"github.com/pizzalemon/pos-backend/pkg/money"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
	"github.com/pizzalemon/pos-backend/pkg/outbox/payloads"
	"github.com/pizzalemon/pos-backend/pkg/pagination"
)

const receiptConstraint = "ux_sales_receipt_number"

var (
	// errReceiptTaken means a concurrent insert won the receipt number.
	errReceiptTaken = errors.New("receipt number already used")
	// errReceiptCollision means a generated receipt number matched an older sale.
	errReceiptCollision = errors.New("generated receipt number collided")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type inventoryLedger interface {
	AdjustTx(ctx context.Context, tx *gorm.DB, productID, branchID uuid.UUID, delta int) (*models.InventoryRecord, error)
}

type loyaltyLedger interface {
	AddPointsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) (*models.Customer, error)
	ReversePointsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) (int64, error)
	RecordSpendTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotPending(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

// Service defines the sale commit workflow and sale reads.
type Service interface {
	Commit(ctx context.Context, input CommitInput) (*CommitResult, error)
	Get(ctx context.Context, id uuid.UUID) (*SaleDTO, error)
	GetByReceipt(ctx context.Context, receiptNumber string) (*SaleDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*SaleList, error)
	Void(ctx context.Context, input VoidInput) (*SaleDTO, error)
	ReceiptQR(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// VoidInput identifies the sale to void and who asked.
type VoidInput struct {
	SaleID uuid.UUID
	Reason string
	Actor  *outbox.ActorRef
}

// ServiceParams bundles the dependencies required to build a sales service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Inventory inventoryLedger
	Loyalty   loyaltyLedger
	Outbox    outboxPublisher
	Metrics   *metrics.SalesMetrics
	Logger    *logger.Logger
	QR        QRGenerator
	Receipts  *ReceiptGenerator

	MaxRetries     uint64
	RetryBaseDelay time.Duration
	Now            func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventoryLedger
	loyalty   loyaltyLedger
	outbox    outboxPublisher
	metrics   *metrics.SalesMetrics
	logg      *logger.Logger
	qr        QRGenerator
	receipts  *ReceiptGenerator

	maxRetries uint64
	retryBase  time.Duration
	now        func() time.Time
}

// NewService constructs the sales service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	svc := &service{
		repo:       params.Repo,
		tx:         params.Tx,
		inventory:  params.Inventory,
		loyalty:    params.Loyalty,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		logg:       params.Logger,
		qr:         params.QR,
		receipts:   params.Receipts,
		maxRetries: params.MaxRetries,
		retryBase:  params.RetryBaseDelay,
		now:        params.Now,
	}
	if svc.qr == nil {
		svc.qr = DefaultQRGenerator{}
	}
	if svc.receipts == nil {
		svc.receipts = NewReceiptGenerator()
	}
	if svc.retryBase <= 0 {
		svc.retryBase = 25 * time.Millisecond
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// Commit applies a finalized cart: the sale, its lines, the stock movements,
// the loyalty update and the outbox events land in one transaction. A receipt
// number that already exists turns the call into a replay of that sale.
func (s *service) Commit(ctx context.Context, input CommitInput) (*CommitResult, error) {
	start := s.now()
	plan, err := planCommit(input)
	if err != nil {
		s.metrics.ObserveCommit(metrics.OutcomeRejected, s.now().Sub(start))
		return nil, err
	}

	var result *CommitResult
	err = s.withRetry(ctx, func(ctx context.Context) error {
		receipt := s.receiptFor(plan)
		res, err := s.commitOnce(ctx, plan, receipt)
		switch {
		case err == nil:
			result = res
			return nil
		case errors.Is(err, errReceiptTaken) && plan.receiptProvided:
			existing, lookupErr := s.repo.FindByReceipt(ctx, receipt, false)
			if lookupErr != nil {
				return retry.RetryableError(err)
			}
			result = &CommitResult{Sale: existing, Replayed: true}
			return nil
		case errors.Is(err, errReceiptTaken), errors.Is(err, errReceiptCollision):
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		mapped := s.mapCommitError(err)
		outcome := metrics.OutcomeFailed
		if code := pkgerrors.As(mapped).Code(); code == pkgerrors.CodeValidation || code == pkgerrors.CodeStateConflict || code == pkgerrors.CodeNotFound {
			outcome = metrics.OutcomeRejected
		}
		s.metrics.ObserveCommit(outcome, s.now().Sub(start))
		return nil, mapped
	}

	s.logCommit(ctx, result, s.now().Sub(start))
	return result, nil
}

func (s *service) receiptFor(plan *commitPlan) string {
	if plan.receiptProvided {
		return *plan.ReceiptNumber
	}
	return s.receipts.Next()
}

func (s *service) commitOnce(ctx context.Context, plan *commitPlan, receipt string) (*CommitResult, error) {
	var result *CommitResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)

		existing, err := r.FindByReceipt(ctx, receipt, false)
		switch {
		case err == nil:
			if !plan.receiptProvided {
				return errReceiptCollision
			}
			result = &CommitResult{Sale: existing, Replayed: true}
			return nil
		case !repo.IsNotFound(err):
			return err
		}

		now := s.now().UTC()
		sale := buildSale(plan, receipt, now)
		if err := r.CreateSale(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, receiptConstraint) || db.IsUniqueViolation(err, "sales.receipt_number") {
				return errReceiptTaken
			}
			return err
		}

		lines := make([]payloads.SaleLine, 0, len(plan.Items))
		var lowStock []models.InventoryRecord
		for i, item := range plan.Items {
			row := &models.SaleItem{
				SaleID:         sale.ID,
				ProductID:      item.ProductID,
				ProductName:    strings.TrimSpace(item.ProductName),
				LineNumber:     i + 1,
				Quantity:       item.Quantity,
				UnitPriceCents: money.ToCents(item.UnitPrice),
				DiscountCents:  money.ToCents(item.Discount),
				TotalCents:     money.ToCents(item.Total),
				CreatedAt:      now,
			}
			if err := r.CreateSaleItem(ctx, row); err != nil {
				return err
			}
			record, err := s.inventory.AdjustTx(ctx, tx, item.ProductID, plan.BranchID, -item.Quantity)
			if err != nil {
				return err
			}
			if record.IsLowStock() {
				lowStock = append(lowStock, *record)
			}
			lines = append(lines, payloads.SaleLine{
				ProductID:   row.ProductID,
				ProductName: row.ProductName,
				Quantity:    row.Quantity,
				UnitPrice:   money.Format(item.UnitPrice),
				Total:       money.Format(item.Total),
			})
		}

		var points int64
		if plan.CustomerID != nil {
			points = LoyaltyPointsFor(plan.TotalAmount)
			if _, err := s.loyalty.AddPointsTx(ctx, tx, *plan.CustomerID, points); err != nil {
				return err
			}
			if _, err := s.loyalty.RecordSpendTx(ctx, tx, *plan.CustomerID, plan.TotalAmount); err != nil {
				return err
			}
		}

		actor := &outbox.ActorRef{EmployeeID: plan.EmployeeID, BranchID: &plan.BranchID}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleCompleted,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.SaleCompletedEvent{
				SaleID:        sale.ID,
				ReceiptNumber: sale.ReceiptNumber,
				BranchID:      sale.BranchID,
				EmployeeID:    sale.EmployeeID,
				CustomerID:    sale.CustomerID,
				PaymentMethod: sale.PaymentMethod,
				OrderType:     sale.OrderType,
				Subtotal:      money.Format(plan.Subtotal),
				Tax:           money.Format(plan.TaxAmount),
				Discount:      money.Format(plan.DiscountAmount),
				Total:         money.Format(plan.TotalAmount),
				PointsAwarded: points,
				Items:         lines,
				CompletedAt:   now,
			},
		})
		if err != nil {
			return err
		}

		alerts := 0
		for _, record := range lowStock {
			emitted, err := s.outbox.EmitIfNotPending(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInventoryLowStock,
				AggregateType: enums.AggregateInventoryRecord,
				AggregateID:   record.ID,
				Actor:         actor,
				OccurredAt:    now,
				Data: payloads.InventoryLowStockEvent{
					InventoryRecordID: record.ID,
					ProductID:         record.ProductID,
					BranchID:          record.BranchID,
					Quantity:          record.Quantity,
					LowStockThreshold: record.LowStockThreshold,
					SaleID:            sale.ID,
				},
			})
			if err != nil {
				return err
			}
			if emitted {
				alerts++
			}
		}

		result = &CommitResult{Sale: sale, PointsAwarded: points, lowStockAlerts: alerts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildSale(plan *commitPlan, receipt string, now time.Time) *models.Sale {
	sale := &models.Sale{
		ReceiptNumber: receipt,
		BranchID:      plan.BranchID,
		EmployeeID:    plan.EmployeeID,
		CustomerID:    plan.CustomerID,
		SubtotalCents: money.ToCents(plan.Subtotal),
		TaxCents:      money.ToCents(plan.TaxAmount),
		DiscountCents: money.ToCents(plan.DiscountAmount),
		TotalCents:    money.ToCents(plan.TotalAmount),
		PaymentMethod: plan.PaymentMethod,
		PaymentStatus: plan.paymentStatus,
		Status:        enums.SaleStatusCompleted,
		ChangeCents:   money.ToCents(plan.change),
		TableNumber:   plan.TableNumber,
		OrderType:     plan.OrderType,
		Notes:         plan.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if plan.CashReceived != nil {
		cents := money.ToCents(*plan.CashReceived)
		sale.CashReceivedCents = &cents
	}
	return sale
}

func (s *service) logCommit(ctx context.Context, result *CommitResult, duration time.Duration) {
	if result.Replayed {
		s.metrics.ObserveCommit(metrics.OutcomeReplayed, duration)
	} else {
		s.metrics.ObserveCommit(metrics.OutcomeCommitted, duration)
		s.metrics.AddRevenue(string(result.Sale.PaymentMethod), result.Sale.TotalCents)
		s.metrics.AddLowStockAlerts(result.lowStockAlerts)
	}
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithSale(ctx, result.Sale.ID.String(), result.Sale.ReceiptNumber)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"branch_id": result.Sale.BranchID.String(),
		"total":     money.Format(money.FromCents(result.Sale.TotalCents)),
	})
	if result.Replayed {
		s.logg.Info(logCtx, "sale.replayed")
		return
	}
	s.logg.Info(logCtx, "sale.committed")
	if result.lowStockAlerts > 0 {
		s.logg.Warn(s.logg.WithField(logCtx, "alerts", result.lowStockAlerts), "inventory.low_stock")
	}
}

// withRetry re-runs fn on database contention with jittered exponential backoff.
func (s *service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.WithJitterPercent(10, retry.NewExponential(s.retryBase)))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.metrics.IncRetry()
		}
		err := fn(ctx)
		if err != nil && db.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *service) mapCommitError(err error) error {
	if db.IsRetryable(err) || errors.Is(err, errReceiptTaken) || errors.Is(err, errReceiptCollision) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "sale commit conflicted with concurrent updates")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "commit sale")
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SaleDTO, error) {
	sale, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, mapReadError(err)
	}
	dto := ToDTO(sale)
	return &dto, nil
}

func (s *service) GetByReceipt(ctx context.Context, receiptNumber string) (*SaleDTO, error) {
	receiptNumber = strings.TrimSpace(receiptNumber)
	if receiptNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt number is required")
	}
	sale, err := s.repo.FindByReceipt(ctx, receiptNumber, true)
	if err != nil {
		return nil, mapReadError(err)
	}
	dto := ToDTO(sale)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*SaleList, error) {
	if filters.From != nil && filters.To != nil && !filters.From.Before(*filters.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	rows, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	list := &SaleList{Sales: make([]SaleDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Sales = append(list.Sales, ToDTO(&rows[i]))
	}
	return list, nil
}

// Void moves a completed sale to void and reverses its stock and loyalty
// effects in one transaction.
func (s *service) Void(ctx context.Context, input VoidInput) (*SaleDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if input.SaleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason is required")
	}

	var voided *models.Sale
	var reversed int64
	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			r := s.repo.WithTx(tx)
			now := s.now().UTC()

			ok, err := r.MarkVoid(ctx, input.SaleID, reason, now)
			if err != nil {
				return err
			}
			if !ok {
				current, err := r.FindByID(ctx, input.SaleID, false)
				if err != nil {
					return mapReadError(err)
				}
				return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed sales can be voided").
					WithDetails(map[string]any{"status": current.Status})
			}

			sale, err := r.FindByID(ctx, input.SaleID, true)
			if err != nil {
				return err
			}
			for _, item := range sale.Items {
				if _, err := s.inventory.AdjustTx(ctx, tx, item.ProductID, sale.BranchID, item.Quantity); err != nil {
					return err
				}
			}

			total := money.FromCents(sale.TotalCents)
			reversed = 0
			if sale.CustomerID != nil {
				reversed, err = s.loyalty.ReversePointsTx(ctx, tx, *sale.CustomerID, LoyaltyPointsFor(total))
				if err != nil {
					return err
				}
				if _, err := s.loyalty.RecordSpendTx(ctx, tx, *sale.CustomerID, total.Neg()); err != nil {
					return err
				}
			}

			err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSaleVoided,
				AggregateType: enums.AggregateSale,
				AggregateID:   sale.ID,
				Actor:         input.Actor,
				OccurredAt:    now,
				Data: payloads.SaleVoidedEvent{
					SaleID:         sale.ID,
					ReceiptNumber:  sale.ReceiptNumber,
					BranchID:       sale.BranchID,
					CustomerID:     sale.CustomerID,
					Total:          money.Format(total),
					PointsReversed: reversed,
					Reason:         reason,
					VoidedAt:       now,
				},
			})
			if err != nil {
				return err
			}
			voided = sale
			return nil
		})
	})
	if err != nil {
		if db.IsRetryable(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "void conflicted with concurrent updates")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "void sale")
	}

	s.metrics.IncVoid()
	if s.logg != nil {
		logCtx := s.logg.WithSale(ctx, voided.ID.String(), voided.ReceiptNumber)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"points_reversed": reversed,
			"reason":          reason,
		})
		s.logg.Info(logCtx, "sale.voided")
	}
	dto := ToDTO(voided)
	return &dto, nil
}

// ReceiptQR renders a PNG QR code that links to the receipt lookup.
func (s *service) ReceiptQR(ctx context.Context, id uuid.UUID) ([]byte, error) {
	sale, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, mapReadError(err)
	}
	png, err := s.qr.Generate(sale.ReceiptNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render receipt qr")
	}
	return png, nil
}

func mapReadError(err error) error {
	if repo.IsNotFound(err) {
		return repo.NotFound(err, "sale not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
}
