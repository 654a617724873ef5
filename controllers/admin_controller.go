package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/models"
)

type UserLister interface {
	List(ctx context.Context, page, limit int) ([]models.User, models.PaginationMeta, error)
}

type AdminController struct {
	users    UserLister
	orders   OrderReader
	products ProductCatalog
}

func NewAdminController(users UserLister, orders OrderReader, products ProductCatalog) *AdminController {
	return &AdminController{users: users, orders: orders, products: products}
}

// @Summary Get all users
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} models.PaginationResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (ctrl *AdminController) GetAllUsers(c *gin.Context) {
	page, limit := pageParams(c)
	users, meta, err := ctrl.users.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginationResponse{Success: true, Message: "Users retrieved", Data: users, Meta: meta})
}

// @Summary Get all orders
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} models.PaginationResponse
// @Security BearerAuth
// @Router /admin/orders [get]
func (ctrl *AdminController) GetAllOrders(c *gin.Context) {
	page, limit := pageParams(c)
	orders, meta, err := ctrl.orders.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginationResponse{Success: true, Message: "Orders retrieved", Data: orders, Meta: meta})
}

// @Summary Get all products
// @Description Includes deactivated products
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} models.PaginationResponse
// @Security BearerAuth
// @Router /admin/products [get]
func (ctrl *AdminController) GetAllProducts(c *gin.Context) {
	page, limit := pageParams(c)
	products, meta, err := ctrl.products.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginationResponse{Success: true, Message: "Products retrieved", Data: products, Meta: meta})
}
