package models

import "time"

type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Price              Money     `json:"price" swaggertype:"string" example:"10.00"`
	StockQuantity      int       `json:"stock_quantity"`
	ImageURL           *string   `json:"image_url,omitempty"`
	CloudinaryPublicID *string   `json:"-"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ProductPage is one page of the catalog as served (and cached) to clients.
type ProductPage struct {
	Items []Product      `json:"items"`
	Meta  PaginationMeta `json:"meta"`
}
