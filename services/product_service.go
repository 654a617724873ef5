package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront/cache"
	"storefront/logging"
	"storefront/metrics"
	"storefront/models"
	"storefront/repositories"
)

// ProductCache lookups return cache.ErrCacheMiss when nothing is stored.
type ProductCache interface {
	ProductCacheInvalidator
	GetPage(ctx context.Context, page, limit int) (*models.ProductPage, error)
	SetPage(ctx context.Context, page, limit int, p *models.ProductPage) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
}

type ImageStore interface {
	Validate(filename string, size int64) error
	Upload(ctx context.Context, img models.ImageUpload) (url, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

// ProductService serves the catalog and inventory administration.
type ProductService struct {
	store   repositories.Store
	ledger  *InventoryLedger
	cache   ProductCache
	images  ImageStore
	metrics *metrics.Metrics
	sfg     singleflight.Group

	staleWindow time.Duration
}

// NewProductService accepts nil cache and images; the service then reads
// straight from the store and rejects image uploads.
func NewProductService(store repositories.Store, ledger *InventoryLedger, productCache ProductCache, images ImageStore, m *metrics.Metrics) *ProductService {
	return &ProductService{
		store:       store,
		ledger:      ledger,
		cache:       productCache,
		images:      images,
		metrics:     m,
		staleWindow: staleReadWindow,
	}
}

func (s *ProductService) List(ctx context.Context, page, limit int) (*models.ProductPage, error) {
	page, limit = normalizePage(page, limit)

	if s.cache != nil {
		if cached, err := s.cache.GetPage(ctx, page, limit); err == nil {
			s.metrics.CacheLookup("hit")
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logging.FromContext(ctx).Warn("product page cache read failed", zap.Error(err))
		}
		s.metrics.CacheLookup("miss")
	}

	key := "page:" + strconv.Itoa(page) + ":" + strconv.Itoa(limit)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		ctx, cancel := fillContext(ctx)
		defer cancel()

		products, total, err := s.store.Products().List(ctx, limit, (page-1)*limit, false)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		result := &models.ProductPage{Items: products, Meta: models.NewPaginationMeta(page, limit, total)}
		if s.cache != nil {
			if err := s.cache.SetPage(ctx, page, limit, result); err != nil {
				logging.FromContext(ctx).Warn("product page cache write failed", zap.Error(err))
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ProductPage), nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetProduct(ctx, id); err == nil {
			s.metrics.CacheLookup("hit")
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logging.FromContext(ctx).Warn("product cache read failed", zap.Error(err))
		}
		s.metrics.CacheLookup("miss")
	}

	v, err, _ := s.sfg.Do("product:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		ctx, cancel := fillContext(ctx)
		defer cancel()

		product, err := s.store.Products().FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, &NotFoundError{Resource: "product", ID: id}
			}
			return nil, fmt.Errorf("load product: %w", err)
		}
		if s.cache != nil {
			if err := s.cache.SetProduct(ctx, product); err != nil {
				logging.FromContext(ctx).Warn("product cache write failed", zap.Error(err))
			}
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Product), nil
}

// ListAll includes deactivated products and bypasses the cache.
func (s *ProductService) ListAll(ctx context.Context, page, limit int) ([]models.Product, models.PaginationMeta, error) {
	page, limit = normalizePage(page, limit)
	products, total, err := s.store.Products().List(ctx, limit, (page-1)*limit, true)
	if err != nil {
		return nil, models.PaginationMeta{}, fmt.Errorf("list products: %w", err)
	}
	return products, models.NewPaginationMeta(page, limit, total), nil
}

func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest, image *models.ImageUpload) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("name is required")
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	if req.StockQuantity == nil || *req.StockQuantity < 0 {
		return nil, validationError("stock_quantity must not be negative")
	}

	product := &models.Product{
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		Price:         price,
		StockQuantity: *req.StockQuantity,
	}

	if image != nil {
		url, publicID, err := s.uploadImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		product.ImageURL, product.CloudinaryPublicID = &url, &publicID
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		s.discardImage(ctx, product.CloudinaryPublicID)
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidate(ctx, product.ID)
	return product, nil
}

// Update applies the non-nil fields of req. A new stock quantity goes through
// the ledger under the product's row lock; a new image replaces the old one.
func (s *ProductService) Update(ctx context.Context, id int64, req models.UpdateProductRequest, image *models.ImageUpload) (*models.Product, error) {
	var price *models.Money
	if req.Price != nil {
		parsed, err := parsePrice(*req.Price)
		if err != nil {
			return nil, err
		}
		price = &parsed
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, validationError("name must not be empty")
	}

	var newURL, newPublicID *string
	if image != nil {
		url, publicID, err := s.uploadImage(ctx, *image)
		if err != nil {
			return nil, err
		}
		newURL, newPublicID = &url, &publicID
	}

	var updated *models.Product
	var oldPublicID *string
	err := s.store.WithTx(ctx, func(tx repositories.Repositories) error {
		locked, err := tx.Products().LockForUpdate(ctx, []int64{id})
		if err != nil {
			return err
		}
		product, ok := locked[id]
		if !ok {
			return &NotFoundError{Resource: "product", ID: id}
		}

		if req.Name != nil {
			product.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			product.Description = strings.TrimSpace(*req.Description)
		}
		if price != nil {
			product.Price = *price
		}
		if newPublicID != nil {
			oldPublicID = product.CloudinaryPublicID
			product.ImageURL, product.CloudinaryPublicID = newURL, newPublicID
		}

		if err := tx.Products().Update(ctx, product); err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		if req.StockQuantity != nil {
			if err := s.ledger.SetStock(ctx, tx, id, *req.StockQuantity); err != nil {
				return err
			}
			product.StockQuantity = *req.StockQuantity
		}

		updated = product
		return nil
	})
	if err != nil {
		s.discardImage(ctx, newPublicID)
		return nil, err
	}

	s.discardImage(ctx, oldPublicID)
	s.invalidate(ctx, id)
	return updated, nil
}

// Delete deactivates the product. Carts still holding it fail at checkout.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "product", ID: id}
		}
		return fmt.Errorf("load product: %w", err)
	}

	if err := s.store.Products().Deactivate(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &NotFoundError{Resource: "product", ID: id}
		}
		return fmt.Errorf("deactivate product: %w", err)
	}

	s.discardImage(ctx, product.CloudinaryPublicID)
	s.invalidate(ctx, id)
	return nil
}

func (s *ProductService) uploadImage(ctx context.Context, image models.ImageUpload) (string, string, error) {
	if s.images == nil {
		return "", "", validationError("image uploads are not configured")
	}
	if err := s.images.Validate(image.Filename, image.Size); err != nil {
		return "", "", validationError("%s", err.Error())
	}
	url, publicID, err := s.images.Upload(ctx, image)
	if err != nil {
		return "", "", fmt.Errorf("upload image: %w", err)
	}
	return url, publicID, nil
}

func (s *ProductService) discardImage(ctx context.Context, publicID *string) {
	if s.images == nil || publicID == nil || *publicID == "" {
		return
	}
	if err := s.images.Delete(ctx, *publicID); err != nil {
		logging.FromContext(ctx).Warn("image delete failed", zap.String("public_id", *publicID), zap.Error(err))
	}
}

func (s *ProductService) invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	invalidateProducts(ctx, s.cache, s.staleWindow, ids...)
}

// fillContext detaches a shared cache fill from the caller that happened to
// start it; other callers wait on the same result.
func fillContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cacheCallTimeout)
}

func parsePrice(raw string) (models.Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return models.Money{}, validationError("price must be a decimal number")
	}
	if d.IsNegative() {
		return models.Money{}, validationError("price must not be negative")
	}
	if !d.Equal(d.Round(2)) {
		return models.Money{}, validationError("price must have at most two decimal places")
	}
	return models.NewMoney(d), nil
}
