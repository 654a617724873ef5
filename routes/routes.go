package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront/controllers"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/utils"
)

// Deps is everything the router needs; nil controllers are not allowed.
type Deps struct {
	Tokens   *utils.TokenManager
	Metrics  *metrics.Metrics
	Health   gin.HandlerFunc
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController
	Admin    *controllers.AdminController
}

func SetupRoutes(router *gin.Engine, d Deps) {
	health := d.Health
	if health == nil {
		health = func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", health)
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	router.POST("/auth/register", d.Auth.Register)
	router.POST("/auth/login", d.Auth.Login)
	router.GET("/products", d.Products.GetAllProducts)
	router.GET("/products/:id", d.Products.GetProductByID)

	cart := router.Group("/cart")
	cart.Use(middleware.OptionalAuth(d.Tokens))
	{
		cart.GET("", d.Cart.GetCart)
		cart.POST("/add", d.Cart.AddToCart)
		cart.PATCH("/update-qty", d.Cart.UpdateQuantity)
	}

	orders := router.Group("/orders")
	orders.Use(middleware.AuthMiddleware(d.Tokens))
	{
		orders.POST("/checkout", d.Orders.Checkout)
		orders.GET("/history", d.Orders.History)
	}

	inventory := router.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(d.Tokens), middleware.AdminMiddleware())
	{
		inventory.POST("/product", d.Products.CreateProduct)
		inventory.PUT("/product/:id", d.Products.UpdateProduct)
		inventory.DELETE("/product/:id", d.Products.DeleteProduct)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(d.Tokens), middleware.AdminMiddleware())
	{
		admin.GET("/users", d.Admin.GetAllUsers)
		admin.GET("/orders", d.Admin.GetAllOrders)
		admin.GET("/products", d.Admin.GetAllProducts)
	}
}
