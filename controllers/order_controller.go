package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middleware"
	"storefront/models"
)

type CheckoutRunner interface {
	Checkout(ctx context.Context, accountID int64) ([]models.OrderSummary, error)
}

type OrderReader interface {
	History(ctx context.Context, accountID int64) ([]models.OrderSummary, error)
	List(ctx context.Context, page, limit int) ([]models.OrderSummary, models.PaginationMeta, error)
}

type OrderController struct {
	checkout CheckoutRunner
	orders   OrderReader
}

func NewOrderController(checkout CheckoutRunner, orders OrderReader) *OrderController {
	return &OrderController{checkout: checkout, orders: orders}
}

// Checkout godoc
// @Summary Checkout cart
// @Description Converts every line of the caller's cart into a confirmed order with a payment reference. All or nothing.
// @Tags Orders
// @Produce json
// @Success 201 {object} models.Response{data=[]models.OrderSummary}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /orders/checkout [post]
func (ctrl *OrderController) Checkout(c *gin.Context) {
	summaries, err := ctrl.checkout.Checkout(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: "Checkout successful",
		Data:    summaries,
	})
}

// History godoc
// @Summary Order history
// @Description Orders of the caller, most recent first
// @Tags Orders
// @Produce json
// @Success 200 {object} models.Response{data=[]models.OrderSummary}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /orders/history [get]
func (ctrl *OrderController) History(c *gin.Context) {
	orders, err := ctrl.orders.History(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Order history retrieved", Data: orders})
}
