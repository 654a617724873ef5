package models

import "time"

type CartLine struct {
	ID        int64        `json:"id"`
	UserID    *int64       `json:"user_id,omitempty"`
	GuestID   *int64       `json:"-"`
	ProductID int64        `json:"product_id"`
	Product   *CartProduct `json:"product,omitempty"`
	Quantity  int          `json:"quantity"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CartProduct is the display view of a line's product.
type CartProduct struct {
	Name     string  `json:"name"`
	Price    Money   `json:"price" swaggertype:"string" example:"10.00"`
	ImageURL *string `json:"image_url,omitempty"`
}

// NewCartLine builds an unsaved line for owner.
func NewCartLine(owner Owner, productID int64, quantity int) *CartLine {
	return &CartLine{
		UserID:    owner.UserID,
		GuestID:   owner.GuestID,
		ProductID: productID,
		Quantity:  quantity,
	}
}
