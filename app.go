package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"royalchoice/internal/cache"
	"royalchoice/internal/config"
	"royalchoice/internal/handlers"
	"royalchoice/internal/metrics"
	"royalchoice/internal/middleware"
	"royalchoice/internal/services"
	"royalchoice/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Infra carries the optional collaborators of the app. Nil fields disable the
// corresponding feature.
type Infra struct {
	Logger    *zap.Logger
	Cache     cache.ProductCache
	Gateway   services.PaymentGateway
	Publisher services.EventPublisher
}

// NewApp wires services and handlers on top of store and returns the Fiber app
// together with the auth service it uses.
func NewApp(cfg config.Config, store *storage.Store, infra Infra) (*fiber.App, *services.AuthService) {
	log := infra.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// --- Initialize Services ---
	authService := services.NewAuthService(store.Users, cfg.JWTSecret, cfg.JWTTTL)
	productService := services.NewProductService(store.Products, infra.Cache, log)
	cartService := services.NewCartService(store.Users, store.Products)
	orderService := services.NewOrderService(store.Orders, cartService, infra.Publisher, log)
	paymentService := services.NewPaymentService(cartService, orderService, infra.Gateway, cfg.StripeWebhookSecret, cfg.StripeCurrency, log)

	// --- Initialize Handlers ---
	productHandler := handlers.NewProductHandler(productService, cartService, authService, log)
	authHandler := handlers.NewAuthHandler(authService, log)
	cartHandler := handlers.NewCartHandler(cartService, authService)
	orderHandler := handlers.NewOrderHandler(orderService, authService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, authService, log)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      "royalchoice",
		ErrorHandler: errorHandler(cfg.IsProduction(), log),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger(log))

	// The webhook verifies a signature over the exact bytes sent, so it is
	// registered ahead of CORS and the JSON routes.
	paymentHandler.RegisterWebhook(app)

	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(origins, ","),
			AllowMethods:     "GET,POST,PUT,DELETE",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowCredentials: true,
		}))
	} else {
		log.Warn("no CORS origins configured, cross-origin requests will be rejected by browsers")
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Server is running!")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status, storageState := "healthy", "up"
		if err := store.Ping(ctx); err != nil {
			status, storageState = "degraded", "down"
		}
		return c.JSON(fiber.Map{
			"status":  status,
			"storage": storageState,
			"driver":  store.Driver,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)
	authHandler.RegisterRoutes(apiV1)
	cartHandler.RegisterRoutes(apiV1)
	orderHandler.RegisterRoutes(apiV1)
	paymentHandler.RegisterRoutes(apiV1)

	return app, authService
}

// errorHandler is the catch-all for errors returned by handlers. Fiber errors
// keep their status; everything else is a 500 whose detail is hidden in production.
func errorHandler(production bool, log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"message": fe.Message,
			})
		}

		log.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))

		body := fiber.Map{
			"success": false,
			"message": "Internal server error",
		}
		if !production {
			body["error"] = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}
}
