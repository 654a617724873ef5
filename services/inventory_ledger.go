package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/models"
	"storefront/repositories"
)

// InventoryLedger is the only writer of products.stock_quantity.
type InventoryLedger struct {
	store repositories.Store
}

func NewInventoryLedger(store repositories.Store) *InventoryLedger {
	return &InventoryLedger{store: store}
}

// Available returns the current stock. The value is advisory; only a Reserve
// inside a transaction is authoritative.
func (l *InventoryLedger) Available(ctx context.Context, productID int64) (int, error) {
	p, err := l.store.Products().FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, &NotFoundError{Resource: "product", ID: productID}
		}
		return 0, fmt.Errorf("load product %d: %w", productID, err)
	}
	return p.StockQuantity, nil
}

// Check fails with InsufficientStockError when product cannot cover requested.
func (l *InventoryLedger) Check(product *models.Product, requested int) error {
	if product.StockQuantity < requested {
		return &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   requested,
			Available:   product.StockQuantity,
		}
	}
	return nil
}

// Reserve decrements stock inside tx, or fails without side effects.
func (l *InventoryLedger) Reserve(ctx context.Context, tx repositories.Repositories, productID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	_, err := tx.Products().DecrementStock(ctx, productID, quantity)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrStockConflict) {
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}

	p, lookupErr := tx.Products().FindByID(ctx, productID)
	if lookupErr != nil {
		if errors.Is(lookupErr, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "product", ID: productID}
		}
		return fmt.Errorf("reserve product %d: %w", productID, lookupErr)
	}
	return &InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Requested:   quantity,
		Available:   p.StockQuantity,
	}
}

// SetStock overwrites stock for inventory administration.
func (l *InventoryLedger) SetStock(ctx context.Context, tx repositories.Repositories, productID int64, quantity int) error {
	if quantity < 0 {
		return validationError("stock_quantity must not be negative")
	}
	if err := tx.Products().SetStock(ctx, productID, quantity); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "product", ID: productID}
		}
		return fmt.Errorf("set stock for product %d: %w", productID, err)
	}
	return nil
}
