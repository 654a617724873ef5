package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront/models"
)

type CartRepository interface {
	FindByID(ctx context.Context, id int64) (*models.CartLine, error)
	FindLine(ctx context.Context, owner models.Owner, productID int64) (*models.CartLine, error)
	// ListByOwner returns the owner's lines in creation order with a product view attached.
	ListByOwner(ctx context.Context, owner models.Owner) ([]models.CartLine, error)
	Insert(ctx context.Context, line *models.CartLine) error
	UpdateQuantity(ctx context.Context, id int64, quantity int) (*models.CartLine, error)
	Delete(ctx context.Context, id int64) error
	DeleteByOwner(ctx context.Context, owner models.Owner) (int64, error)
}

const cartColumns = `c.id, c.user_id, c.guest_id, c.product_id, c.quantity, c.created_at, c.updated_at`

type cartRepository struct {
	db DBTX
}

func scanCartLine(row pgx.Row) (*models.CartLine, error) {
	var l models.CartLine
	if err := row.Scan(&l.ID, &l.UserID, &l.GuestID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// ownerFilter returns a WHERE fragment for the owner column and its argument.
func ownerFilter(owner models.Owner) (string, int64) {
	if owner.UserID != nil {
		return "c.user_id = $1", *owner.UserID
	}
	if owner.GuestID != nil {
		return "c.guest_id = $1", *owner.GuestID
	}
	return "c.user_id = $1", 0
}

func (r *cartRepository) FindByID(ctx context.Context, id int64) (*models.CartLine, error) {
	line, err := scanCartLine(r.db.QueryRow(ctx, `SELECT `+cartColumns+` FROM cart c WHERE c.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return line, nil
}

func (r *cartRepository) FindLine(ctx context.Context, owner models.Owner, productID int64) (*models.CartLine, error) {
	filter, ownerID := ownerFilter(owner)
	line, err := scanCartLine(r.db.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM cart c WHERE `+filter+` AND c.product_id = $2`, ownerID, productID))
	if err != nil {
		return nil, notFound(err)
	}
	return line, nil
}

func (r *cartRepository) ListByOwner(ctx context.Context, owner models.Owner) ([]models.CartLine, error) {
	filter, ownerID := ownerFilter(owner)
	rows, err := r.db.Query(ctx,
		`SELECT `+cartColumns+`, p.name, p.price, p.image_url
		 FROM cart c
		 JOIN products p ON p.id = c.product_id
		 WHERE `+filter+`
		 ORDER BY c.created_at, c.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		var p models.CartProduct
		if err := rows.Scan(&l.ID, &l.UserID, &l.GuestID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt,
			&p.Name, &p.Price.Decimal, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		l.Product = &p
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *cartRepository) Insert(ctx context.Context, line *models.CartLine) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO cart (user_id, guest_id, product_id, quantity)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		line.UserID, line.GuestID, line.ProductID, line.Quantity,
	).Scan(&line.ID, &line.CreatedAt, &line.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) (*models.CartLine, error) {
	line, err := scanCartLine(r.db.QueryRow(ctx,
		`UPDATE cart c SET quantity = $1, updated_at = NOW() WHERE c.id = $2 RETURNING `+cartColumns,
		quantity, id))
	if err != nil {
		return nil, notFound(err)
	}
	return line, nil
}

func (r *cartRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *cartRepository) DeleteByOwner(ctx context.Context, owner models.Owner) (int64, error) {
	filter, ownerID := ownerFilter(owner)
	tag, err := r.db.Exec(ctx, `DELETE FROM cart c WHERE `+filter, ownerID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	return tag.RowsAffected(), nil
}
