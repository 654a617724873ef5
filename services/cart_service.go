package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/logging"
	"storefront/metrics"
	"storefront/models"
	"storefront/repositories"
)

// CartService owns cart lines. Every mutation takes the owner's lock first so
// concurrent requests for one cart apply one after another.
type CartService struct {
	store   repositories.Store
	ledger  *InventoryLedger
	metrics *metrics.Metrics
}

func NewCartService(store repositories.Store, ledger *InventoryLedger, m *metrics.Metrics) *CartService {
	return &CartService{store: store, ledger: ledger, metrics: m}
}

// Add merges quantity into the owner's line for productID, creating it if
// needed. The cumulative quantity is checked against current stock. An
// unprovisioned guest owner is stored in the same transaction, so a failed
// add leaves no guest behind.
func (s *CartService) Add(ctx context.Context, owner models.Owner, productID int64, quantity int) (line *models.CartLine, err error) {
	ctx, span := tracer.Start(ctx, "cart.add")
	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Int("quantity", quantity))
	defer func() {
		s.metrics.CartOperation("add", resultLabel(err))
		endSpan(span, err)
	}()

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	err = s.store.WithTx(ctx, func(tx repositories.Repositories) error {
		target, err := provisionOwner(ctx, tx, owner)
		if err != nil {
			return err
		}
		if err := tx.LockOwner(ctx, target.Key()); err != nil {
			return err
		}

		product, err := tx.Products().FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return &NotFoundError{Resource: "product", ID: productID}
			}
			return fmt.Errorf("load product: %w", err)
		}

		existing, err := tx.Carts().FindLine(ctx, target, productID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("load cart line: %w", err)
		}

		requested := quantity
		if existing != nil {
			requested += existing.Quantity
		}
		if err := s.ledger.Check(product, requested); err != nil {
			return err
		}

		if existing != nil {
			line, err = tx.Carts().UpdateQuantity(ctx, existing.ID, requested)
			if err != nil {
				return fmt.Errorf("update cart line: %w", err)
			}
			return nil
		}

		line = models.NewCartLine(target, productID, quantity)
		if err := tx.Carts().Insert(ctx, line); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("cart line added",
		zap.Int64("cart_line_id", line.ID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", line.Quantity))
	return line, nil
}

// SetQuantity overwrites a line's quantity without a stock check; zero
// removes the line. removed reports which happened.
func (s *CartService) SetQuantity(ctx context.Context, owner models.Owner, lineID int64, quantity int) (line *models.CartLine, removed bool, err error) {
	ctx, span := tracer.Start(ctx, "cart.set_quantity")
	span.SetAttributes(attribute.Int64("cart_line.id", lineID), attribute.Int("quantity", quantity))
	defer func() {
		s.metrics.CartOperation("set_quantity", resultLabel(err))
		endSpan(span, err)
	}()

	if quantity < 0 {
		return nil, false, ErrInvalidQuantity
	}

	err = s.store.WithTx(ctx, func(tx repositories.Repositories) error {
		if err := tx.LockOwner(ctx, owner.Key()); err != nil {
			return err
		}

		current, err := tx.Carts().FindByID(ctx, lineID)
		if errors.Is(err, repositories.ErrNotFound) || (err == nil && !owner.Owns(current)) {
			return &NotFoundError{Resource: "cart_line", ID: lineID}
		}
		if err != nil {
			return fmt.Errorf("load cart line: %w", err)
		}

		if quantity == 0 {
			if err := tx.Carts().Delete(ctx, lineID); err != nil {
				return fmt.Errorf("delete cart line: %w", err)
			}
			removed = true
			return nil
		}

		line, err = tx.Carts().UpdateQuantity(ctx, lineID, quantity)
		if err != nil {
			return fmt.Errorf("update cart line: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return line, removed, nil
}

// List returns the owner's lines in the order they were added.
func (s *CartService) List(ctx context.Context, owner models.Owner) ([]models.CartLine, error) {
	lines, err := s.store.Carts().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	return lines, nil
}

// Clear deletes every line the owner has, inside the caller's transaction.
func (s *CartService) Clear(ctx context.Context, tx repositories.Repositories, owner models.Owner) (int64, error) {
	n, err := tx.Carts().DeleteByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return n, nil
}

func resultLabel(err error) string {
	var stockErr *InsufficientStockError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
