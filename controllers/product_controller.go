package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/models"
)

type ProductCatalog interface {
	List(ctx context.Context, page, limit int) (*models.ProductPage, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	ListAll(ctx context.Context, page, limit int) ([]models.Product, models.PaginationMeta, error)
	Create(ctx context.Context, req models.CreateProductRequest, image *models.ImageUpload) (*models.Product, error)
	Update(ctx context.Context, id int64, req models.UpdateProductRequest, image *models.ImageUpload) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ProductController struct {
	products ProductCatalog
}

func NewProductController(products ProductCatalog) *ProductController {
	return &ProductController{products: products}
}

// @Summary Get all products
// @Description Get paginated list of active products
// @Tags Products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} models.PaginationResponse
// @Router /products [get]
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := ctrl.products.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PaginationResponse{
		Success: true,
		Message: "Products retrieved",
		Data:    result.Items,
		Meta:    result.Meta,
	})
}

// @Summary Get product by ID
// @Tags Products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Response{data=models.Product}
// @Failure 404 {object} models.ErrorResponse
// @Router /products/{id} [get]
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := ctrl.products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Product retrieved", Data: product})
}

// @Summary Create product
// @Description Create a product with optional image (admin only)
// @Tags Inventory
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Product name"
// @Param description formData string false "Description"
// @Param price formData string true "Unit price, two decimal places"
// @Param stock_quantity formData int true "Stock quantity"
// @Param image formData file false "Product image"
// @Success 201 {object} models.Response{data=models.Product}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /inventory/product [post]
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closeImage()

	product, err := ctrl.products.Create(c.Request.Context(), req, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.Response{Success: true, Message: "Product created", Data: product})
}

// @Summary Update product
// @Description Partial update; stock_quantity overwrites the current stock (admin only)
// @Tags Inventory
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Product ID"
// @Param name formData string false "Product name"
// @Param description formData string false "Description"
// @Param price formData string false "Unit price"
// @Param stock_quantity formData int false "Stock quantity"
// @Param image formData file false "Product image"
// @Success 200 {object} models.Response{data=models.Product}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /inventory/product/{id} [put]
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	image, closeImage, err := formImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closeImage()

	product, err := ctrl.products.Update(c.Request.Context(), id, req, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Product updated", Data: product})
}

// @Summary Delete product
// @Description Deactivates the product; carts still holding it fail at checkout (admin only)
// @Tags Inventory
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Response
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /inventory/product/{id} [delete]
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := ctrl.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Success: true, Message: "Product deleted"})
}

// formImage opens the optional "image" part. The returned close func is
// always safe to call.
func formImage(c *gin.Context) (*models.ImageUpload, func(), error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &models.ImageUpload{Filename: header.Filename, Size: header.Size, File: file}, func() { file.Close() }, nil
}
