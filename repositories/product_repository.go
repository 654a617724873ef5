package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront/models"
)

type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, limit, offset int, includeInactive bool) ([]models.Product, int, error)
	// LockForUpdate row-locks the active products among ids in ascending id
	// order and returns them keyed by id. Missing or inactive ids are absent.
	LockForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	SetStock(ctx context.Context, id int64, quantity int) error
	// DecrementStock subtracts quantity only if enough stock remains and
	// returns the remaining stock. It fails with ErrStockConflict otherwise.
	DecrementStock(ctx context.Context, id int64, quantity int) (int, error)
	Deactivate(ctx context.Context, id int64) error
}

const productColumns = `id, name, description, price, stock_quantity, image_url, cloudinary_public_id, is_active, created_at, updated_at`

type productRepository struct {
	db DBTX
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price.Decimal, &p.StockQuantity,
		&p.ImageURL, &p.CloudinaryPublicID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = true`
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *productRepository) List(ctx context.Context, limit, offset int, includeInactive bool) ([]models.Product, int, error) {
	filter := ` WHERE is_active = true`
	if includeInactive {
		filter = ``
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+filter).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products`+filter+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *productRepository) LockForUpdate(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE id = ANY($1) AND is_active = true
		 ORDER BY id
		 FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		locked[p.ID] = p
	}
	return locked, rows.Err()
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock_quantity, image_url, cloudinary_public_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING id, is_active, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		product.Name, product.Description, product.Price.Decimal, product.StockQuantity,
		product.ImageURL, product.CloudinaryPublicID,
	).Scan(&product.ID, &product.IsActive, &product.CreatedAt, &product.UpdatedAt)
}

// Update writes the descriptive columns. Stock is only changed through
// SetStock and DecrementStock.
func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4, cloudinary_public_id = $5, updated_at = NOW()
		WHERE id = $6 AND is_active = true
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		product.Name, product.Description, product.Price.Decimal,
		product.ImageURL, product.CloudinaryPublicID, product.ID,
	).Scan(&product.UpdatedAt)
	return notFound(err)
}

func (r *productRepository) SetStock(ctx context.Context, id int64, quantity int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET stock_quantity = $1, updated_at = NOW() WHERE id = $2 AND is_active = true`,
		quantity, id)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id int64, quantity int) (int, error) {
	var remaining int
	err := r.db.QueryRow(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		 WHERE id = $2 AND stock_quantity >= $1
		 RETURNING stock_quantity`,
		quantity, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrStockConflict
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return remaining, nil
}

func (r *productRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
