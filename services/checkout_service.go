package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/logging"
	"storefront/metrics"
	"storefront/models"
	"storefront/repositories"
)

// ProductCacheInvalidator drops cached catalog entries for products whose
// stock changed.
type ProductCacheInvalidator interface {
	InvalidateProducts(ctx context.Context, ids ...int64) error
}

type CheckoutService struct {
	store     repositories.Store
	ledger    *InventoryLedger
	carts     *CartService
	cache     ProductCacheInvalidator
	notifiers []OrderNotifier
	metrics   *metrics.Metrics
	timeout   time.Duration

	staleWindow time.Duration
}

type CheckoutOption func(*CheckoutService)

func WithCacheInvalidator(c ProductCacheInvalidator) CheckoutOption {
	return func(s *CheckoutService) { s.cache = c }
}

func WithNotifiers(n ...OrderNotifier) CheckoutOption {
	return func(s *CheckoutService) { s.notifiers = append(s.notifiers, n...) }
}

// WithStaleReadWindow sets the delay of the second cache invalidation after a
// checkout; zero disables it.
func WithStaleReadWindow(d time.Duration) CheckoutOption {
	return func(s *CheckoutService) { s.staleWindow = d }
}

func NewCheckoutService(store repositories.Store, ledger *InventoryLedger, carts *CartService, m *metrics.Metrics, timeout time.Duration, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		store:       store,
		ledger:      ledger,
		carts:       carts,
		metrics:     m,
		timeout:     timeout,
		staleWindow: staleReadWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the account's whole cart into confirmed orders with
// payment references, decrements stock and empties the cart, all in one
// transaction. Once started it runs to commit or rollback even if the caller
// goes away.
func (s *CheckoutService) Checkout(ctx context.Context, accountID int64) (summaries []models.OrderSummary, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "checkout")
	span.SetAttributes(attribute.Int64("account.id", accountID))
	defer func() {
		s.metrics.ObserveCheckout(resultLabel(err), len(summaries), time.Since(started))
		endSpan(span, err)
	}()

	if accountID <= 0 {
		return nil, ErrUnauthenticated
	}

	txCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(txCtx, s.timeout)
		defer cancel()
	}

	owner := models.AccountOwner(accountID)
	var productIDs []int64

	err = s.store.WithTx(txCtx, func(tx repositories.Repositories) error {
		if err := tx.LockOwner(txCtx, owner.Key()); err != nil {
			return err
		}

		lines, err := tx.Carts().ListByOwner(txCtx, owner)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		productIDs = distinctProductIDs(lines)
		locked, err := tx.Products().LockForUpdate(txCtx, productIDs)
		if err != nil {
			return err
		}

		for _, line := range lines {
			product, ok := locked[line.ProductID]
			if !ok {
				return &NotFoundError{Resource: "product", ID: line.ProductID}
			}
			if err := s.ledger.Check(product, line.Quantity); err != nil {
				return err
			}
		}

		out := make([]models.OrderSummary, 0, len(lines))
		for _, line := range lines {
			product := locked[line.ProductID]

			order := &models.Order{
				UserID:    accountID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				Amount:    product.Price.Times(line.Quantity),
				Status:    models.OrderStatusConfirmed,
			}
			if err := tx.Orders().Create(txCtx, order); err != nil {
				return fmt.Errorf("create order: %w", err)
			}

			payment := &models.PaymentReference{OrderID: order.ID, PaymentID: models.MockPaymentID(order.ID)}
			if err := tx.Orders().CreatePayment(txCtx, payment); err != nil {
				return fmt.Errorf("create payment reference: %w", err)
			}

			if err := s.ledger.Reserve(txCtx, tx, product.ID, line.Quantity); err != nil {
				return err
			}

			out = append(out, models.OrderSummary{
				OrderID:     order.ID,
				UserID:      accountID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    order.Quantity,
				UnitPrice:   order.UnitPrice,
				Amount:      order.Amount,
				Status:      order.Status,
				PaymentID:   payment.PaymentID,
				CreatedAt:   order.CreatedAt,
			})
		}

		cleared, err := s.carts.Clear(txCtx, tx, owner)
		if err != nil {
			return err
		}
		if cleared != int64(len(lines)) {
			return fmt.Errorf("cart changed during checkout: cleared %d of %d lines", cleared, len(lines))
		}

		summaries = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	logger.Info("checkout committed",
		zap.Int64("account_id", accountID),
		zap.Int("orders", len(summaries)))

	s.afterCommit(context.WithoutCancel(ctx), accountID, productIDs, summaries, logger)
	return summaries, nil
}

func (s *CheckoutService) afterCommit(ctx context.Context, accountID int64, productIDs []int64, summaries []models.OrderSummary, logger *zap.Logger) {
	invalidateProducts(ctx, s.cache, s.staleWindow, productIDs...)

	if len(s.notifiers) == 0 {
		return
	}

	receipt := CheckoutReceipt{AccountID: accountID, Orders: summaries}
	if user, err := s.store.Users().FindByID(ctx, accountID); err == nil {
		receipt.Email = user.Email
	} else {
		logger.Warn("load account for notification", zap.Int64("account_id", accountID), zap.Error(err))
	}
	dispatch(ctx, s.notifiers, receipt, s.metrics, logger)
}

func distinctProductIDs(lines []models.CartLine) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
