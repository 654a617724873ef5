package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/logging"
	"storefront/models"
	"storefront/services"
)

// respondError maps a service error onto the response envelope. Anything not
// recognised is logged and reported as an opaque 500.
func respondError(c *gin.Context, err error) {
	var (
		stockErr    *services.InsufficientStockError
		notFoundErr *services.NotFoundError
	)

	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Message: "Insufficient stock",
			Error:   stockErr.Error(),
			Details: stockErr,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Message: notFoundMessage(notFoundErr.Resource),
			Error:   notFoundErr.Error(),
			Details: gin.H{"resource": notFoundErr.Resource, "id": notFoundErr.ID},
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Success: false, Message: "Not found"})
	case errors.Is(err, services.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Cart is empty"})
	case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Invalid request", Error: err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Success: false, Message: "Authentication required"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Success: false, Message: "Invalid email or password"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Success: false, Message: "Access denied"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{Success: false, Message: "Already exists", Error: err.Error()})
	default:
		logging.FromContext(c.Request.Context()).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Success: false, Message: "Internal server error"})
	}
}

func notFoundMessage(resource string) string {
	switch resource {
	case "product":
		return "Product not found"
	case "cart_line":
		return "Cart item not found"
	case "session":
		return "Session not found"
	default:
		return "Not found"
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Message: "Invalid request",
		Error:   err.Error(),
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Message: "Invalid id"})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}
