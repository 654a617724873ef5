package services

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"storefront/metrics"
	"storefront/models"
)

// CheckoutReceipt is what notifiers learn about a committed checkout.
type CheckoutReceipt struct {
	AccountID int64
	Email     string
	Orders    []models.OrderSummary
}

// OrderNotifier is told about checkouts after they commit. A failing
// notifier never affects the checkout result.
type OrderNotifier interface {
	Name() string
	NotifyCheckout(ctx context.Context, receipt CheckoutReceipt) error
}

// GuardedNotifier trips a circuit breaker after repeated failures so a dead
// broker or SMTP relay costs nothing per checkout.
type GuardedNotifier struct {
	next    OrderNotifier
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
}

func NewGuardedNotifier(next OrderNotifier, timeout time.Duration, logger *zap.Logger) *GuardedNotifier {
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notifier circuit state changed",
				zap.String("notifier", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &GuardedNotifier{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		timeout: timeout,
	}
}

func (g *GuardedNotifier) Name() string {
	return g.next.Name()
}

func (g *GuardedNotifier) NotifyCheckout(ctx context.Context, receipt CheckoutReceipt) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return struct{}{}, g.next.NotifyCheckout(callCtx, receipt)
	})
	return err
}

// dispatch runs every notifier in turn and only logs failures.
func dispatch(ctx context.Context, notifiers []OrderNotifier, receipt CheckoutReceipt, m *metrics.Metrics, logger *zap.Logger) {
	for _, n := range notifiers {
		err := n.NotifyCheckout(ctx, receipt)
		switch {
		case err == nil:
			m.Notification(n.Name(), "success")
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			m.Notification(n.Name(), "skipped")
		default:
			m.Notification(n.Name(), "error")
			logger.Warn("checkout notification failed",
				zap.String("notifier", n.Name()),
				zap.Int64("account_id", receipt.AccountID),
				zap.Error(err))
		}
	}
}
