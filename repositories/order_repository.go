package repositories

import (
	"context"
	"fmt"

	"storefront/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	CreatePayment(ctx context.Context, payment *models.PaymentReference) error
	// ListByUser returns the user's orders newest first, joined with the
	// product's current name.
	ListByUser(ctx context.Context, userID int64) ([]models.OrderSummary, error)
	List(ctx context.Context, limit, offset int) ([]models.OrderSummary, int, error)
}

type orderRepository struct {
	db DBTX
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO orders (user_id, product_id, quantity, unit_price, amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		order.UserID, order.ProductID, order.Quantity, order.UnitPrice.Decimal, order.Amount.Decimal, string(order.Status),
	).Scan(&order.ID, &order.CreatedAt)
}

func (r *orderRepository) CreatePayment(ctx context.Context, payment *models.PaymentReference) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO transactions (order_id, payment_id) VALUES ($1, $2) RETURNING id, created_at`,
		payment.OrderID, payment.PaymentID,
	).Scan(&payment.ID, &payment.CreatedAt)
}

const summarySelect = `
	SELECT o.id, o.user_id, o.product_id, p.name, o.quantity, o.unit_price, o.amount, o.status,
	       COALESCE(t.payment_id, ''), o.created_at
	FROM orders o
	JOIN products p ON p.id = o.product_id
	LEFT JOIN transactions t ON t.order_id = o.id`

func (r *orderRepository) scanSummaries(ctx context.Context, query string, args ...any) ([]models.OrderSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	summaries := []models.OrderSummary{}
	for rows.Next() {
		var s models.OrderSummary
		var status string
		if err := rows.Scan(&s.OrderID, &s.UserID, &s.ProductID, &s.ProductName, &s.Quantity,
			&s.UnitPrice.Decimal, &s.Amount.Decimal, &status, &s.PaymentID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		s.Status = models.OrderStatus(status)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]models.OrderSummary, error) {
	return r.scanSummaries(ctx, summarySelect+`
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`, userID)
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]models.OrderSummary, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	summaries, err := r.scanSummaries(ctx, summarySelect+`
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}
