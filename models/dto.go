package models

import "io"

type RegisterRequest struct {
	Email           string  `json:"email" binding:"required,email"`
	Username        string  `json:"username" binding:"required,min=3,max=100"`
	Password        string  `json:"password" binding:"required,min=6"`
	ShippingAddress *string `json:"shipping_address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AddToCartRequest struct {
	ProductID int64  `json:"product_id" binding:"required,gt=0"`
	Quantity  int    `json:"quantity" binding:"required,gte=1"`
	SessionID string `json:"session_id"`
}

type AddToCartResponse struct {
	CartLineID int64  `json:"cart_line_id"`
	Quantity   int    `json:"quantity"`
	SessionID  string `json:"session_id,omitempty"`
}

type UpdateCartQuantityRequest struct {
	CartLineID int64  `json:"cart_line_id" binding:"required,gt=0"`
	Quantity   *int   `json:"quantity" binding:"required,gte=0"`
	SessionID  string `json:"session_id"`
}

type UpdateCartQuantityResponse struct {
	Removed    bool  `json:"removed,omitempty"`
	CartLineID int64 `json:"cart_line_id,omitempty"`
	Quantity   int   `json:"quantity,omitempty"`
}

// CreateProductRequest is bound from multipart form data; the image travels
// as a separate file part.
type CreateProductRequest struct {
	Name          string `form:"name" binding:"required"`
	Description   string `form:"description"`
	Price         string `form:"price" binding:"required"`
	StockQuantity *int   `form:"stock_quantity" binding:"required,gte=0"`
}

type UpdateProductRequest struct {
	Name          *string `form:"name"`
	Description   *string `form:"description"`
	Price         *string `form:"price"`
	StockQuantity *int    `form:"stock_quantity" binding:"omitempty,gte=0"`
}

// ImageUpload is an image already opened by the transport layer.
type ImageUpload struct {
	Filename string
	Size     int64
	File     io.Reader
}
