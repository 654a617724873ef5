package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middleware"
	"storefront/models"
)

const SessionHeader = "X-Session-ID"

type CartManager interface {
	Add(ctx context.Context, owner models.Owner, productID int64, quantity int) (*models.CartLine, error)
	SetQuantity(ctx context.Context, owner models.Owner, lineID int64, quantity int) (*models.CartLine, bool, error)
	List(ctx context.Context, owner models.Owner) ([]models.CartLine, error)
}

type OwnerResolver interface {
	ResolveOwner(ctx context.Context, accountID int64, sessionID string, mint bool) (models.Owner, error)
}

type CartController struct {
	carts    CartManager
	identity OwnerResolver
}

func NewCartController(carts CartManager, identity OwnerResolver) *CartController {
	return &CartController{carts: carts, identity: identity}
}

// AddToCart godoc
// @Summary Add product to cart
// @Description Adds quantity to the caller's line for the product. Anonymous callers get a session_id back and reuse it on later requests.
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.AddToCartRequest true "Add to cart request"
// @Success 201 {object} models.Response{data=models.AddToCartResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /cart/add [post]
func (ctrl *CartController) AddToCart(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	owner, err := ctrl.identity.ResolveOwner(ctx, middleware.AccountID(c), sessionID(c, req.SessionID), true)
	if err != nil {
		respondError(c, err)
		return
	}

	line, err := ctrl.carts.Add(ctx, owner, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: "Product added to cart",
		Data: models.AddToCartResponse{
			CartLineID: line.ID,
			Quantity:   line.Quantity,
			SessionID:  owner.SessionID,
		},
	})
}

// UpdateQuantity godoc
// @Summary Update cart item quantity
// @Description Overwrites the quantity of a cart line. Quantity 0 removes the line.
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.UpdateCartQuantityRequest true "Update quantity request"
// @Success 200 {object} models.Response{data=models.UpdateCartQuantityResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /cart/update-qty [patch]
func (ctrl *CartController) UpdateQuantity(c *gin.Context) {
	var req models.UpdateCartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	owner, err := ctrl.identity.ResolveOwner(ctx, middleware.AccountID(c), sessionID(c, req.SessionID), false)
	if err != nil {
		respondError(c, err)
		return
	}

	line, removed, err := ctrl.carts.SetQuantity(ctx, owner, req.CartLineID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	if removed {
		c.JSON(http.StatusOK, models.Response{
			Success: true,
			Message: "Cart item removed",
			Data:    models.UpdateCartQuantityResponse{Removed: true},
		})
		return
	}

	c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Cart item updated",
		Data:    models.UpdateCartQuantityResponse{CartLineID: line.ID, Quantity: line.Quantity},
	})
}

// GetCart godoc
// @Summary Get cart
// @Tags Cart
// @Produce json
// @Param X-Session-ID header string false "Guest session id"
// @Success 200 {object} models.Response{data=[]models.CartLine}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /cart [get]
func (ctrl *CartController) GetCart(c *gin.Context) {
	accountID := middleware.AccountID(c)
	session := c.GetHeader(SessionHeader)
	if accountID == 0 && session == "" {
		c.JSON(http.StatusOK, models.Response{Success: true, Message: "Cart retrieved", Data: []models.CartLine{}})
		return
	}

	ctx := c.Request.Context()
	owner, err := ctrl.identity.ResolveOwner(ctx, accountID, session, false)
	if err != nil {
		respondError(c, err)
		return
	}

	lines, err := ctrl.carts.List(ctx, owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Cart retrieved", Data: lines})
}

func sessionID(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(SessionHeader)
}
