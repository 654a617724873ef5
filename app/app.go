package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/cache"
	"storefront/config"
	"storefront/controllers"
	"storefront/events"
	"storefront/libs"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/repositories"
	"storefront/routes"
	"storefront/services"
	"storefront/utils"
)

const notifierTimeout = 5 * time.Second

// App holds the wired router and the connections it owns.
type App struct {
	Router  *gin.Engine
	Metrics *metrics.Metrics

	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher *events.KafkaPublisher
	logger    *zap.Logger
}

// New connects to Postgres (required), applies migrations and wires the
// optional collaborators that are configured: Redis, Cloudinary, SMTP, Kafka.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := config.RunMigrations(cfg.Database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	pool, err := config.ConnectDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected")

	a := &App{pool: pool, logger: logger, Metrics: metrics.New()}
	store := repositories.NewPgStore(pool)

	var productCache services.ProductCache
	if client, err := config.ConnectRedis(ctx, cfg.Redis); err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
	} else {
		a.redis = client
		productCache = cache.NewProductCache(client, cfg.Redis.CacheTTL)
		logger.Info("redis connected")
	}

	var images services.ImageStore
	if cfg.Cloudinary.Enabled() {
		if cld, err := libs.NewCloudinaryStore(cfg.Cloudinary, cfg.MaxUploadSize, logger); err != nil {
			logger.Warn("cloudinary disabled", zap.Error(err))
		} else {
			images = cld
		}
	}

	var notifiers []services.OrderNotifier
	if cfg.Kafka.Enabled() {
		a.publisher = events.NewKafkaPublisher(cfg.Kafka, logger)
		notifiers = append(notifiers, services.NewGuardedNotifier(a.publisher, notifierTimeout, logger))
	}
	if cfg.SMTP.Enabled() {
		if mailer, err := libs.NewOrderMailer(cfg.SMTP); err != nil {
			logger.Warn("order e-mails disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, services.NewGuardedNotifier(mailer, notifierTimeout, logger))
		}
	}

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	ledger := services.NewInventoryLedger(store)
	carts := services.NewCartService(store, ledger, a.Metrics)

	checkoutOpts := []services.CheckoutOption{services.WithNotifiers(notifiers...)}
	if productCache != nil {
		checkoutOpts = append(checkoutOpts, services.WithCacheInvalidator(productCache))
	}
	checkout := services.NewCheckoutService(store, ledger, carts, a.Metrics, cfg.Checkout.Timeout, checkoutOpts...)

	orders := services.NewOrderService(store)
	products := services.NewProductService(store, ledger, productCache, images, a.Metrics)

	a.Router = NewRouter(cfg, logger, a.Metrics, routes.Deps{
		Tokens:   tokens,
		Metrics:  a.Metrics,
		Health:   a.health,
		Auth:     controllers.NewAuthController(services.NewAuthService(store, tokens)),
		Products: controllers.NewProductController(products),
		Cart:     controllers.NewCartController(carts, services.NewIdentityService(store)),
		Orders:   controllers.NewOrderController(checkout, orders),
		Admin:    controllers.NewAdminController(services.NewUserService(store), orders, products),
	})
	return a, nil
}

// NewRouter builds the gin engine with the shared middleware stack.
func NewRouter(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics, deps routes.Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadSize
	router.Use(gin.Recovery())
	router.Use(middleware.Observability(logger, m))
	router.Use(middleware.CORSMiddleware(cfg.AllowOrigins))

	routes.SetupRoutes(router, deps)
	return router
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "database": "ok", "cache": "disabled"}
	code := http.StatusOK
	if err := a.pool.Ping(ctx); err != nil {
		status["status"], status["database"] = "degraded", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if a.redis != nil {
		status["cache"] = "ok"
		if err := a.redis.Ping(ctx).Err(); err != nil {
			status["cache"] = "unreachable"
		}
	}
	c.JSON(code, status)
}

// Close releases connections. Safe to call once after the server stopped.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("close kafka publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}
