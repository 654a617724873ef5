package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"storefront/models"
	"storefront/repositories"
)

type OrderService struct {
	store repositories.Store
}

func NewOrderService(store repositories.Store) *OrderService {
	return &OrderService{store: store}
}

// History lists the account's orders, most recent first. Product names are
// current; prices are the values captured at checkout.
func (s *OrderService) History(ctx context.Context, accountID int64) (orders []models.OrderSummary, err error) {
	ctx, span := tracer.Start(ctx, "orders.history")
	span.SetAttributes(attribute.Int64("account.id", accountID))
	defer func() { endSpan(span, err) }()

	orders, err = s.store.Orders().ListByUser(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) List(ctx context.Context, page, limit int) ([]models.OrderSummary, models.PaginationMeta, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.store.Orders().List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, models.PaginationMeta{}, fmt.Errorf("list orders: %w", err)
	}
	return orders, models.NewPaginationMeta(page, limit, total), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
