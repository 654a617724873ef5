package models

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	UnitPrice Money       `json:"unit_price"`
	Amount    Money       `json:"amount"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// PaymentReference is the placeholder payment record bound to one order.
type PaymentReference struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MockPaymentID derives the payment reference string from an order id.
func MockPaymentID(orderID int64) string {
	return fmt.Sprintf("MOCK-%08d", orderID)
}

type OrderSummary struct {
	OrderID     int64       `json:"order_id"`
	UserID      int64       `json:"user_id,omitempty"`
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	UnitPrice   Money       `json:"unit_price" swaggertype:"string" example:"10.00"`
	Amount      Money       `json:"amount" swaggertype:"string" example:"20.00"`
	Status      OrderStatus `json:"status"`
	PaymentID   string      `json:"payment_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
