package handlers

import (
	"errors"
	"strings"

	"royalchoice/internal/middleware"
	"royalchoice/internal/models"
	"royalchoice/internal/repositories"
	"royalchoice/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	products    *services.ProductService
	cart        *services.CartService
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products *services.ProductService, cart *services.CartService, authService *services.AuthService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products:    products,
		cart:        cart,
		authService: authService,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	auth := middleware.AuthRequired(h.authService)
	admin := middleware.RequireAdmin(h.authService)

	productRoutes := router.Group("/product")
	productRoutes.Post("/", auth, admin, h.HandleCreateProduct)
	productRoutes.Get("/all-products", auth, h.HandleGetAllProducts)
	productRoutes.Get("/featuredProducts", h.HandleGetFeaturedProducts)
	productRoutes.Post("/user-products", auth, h.HandleGetUserProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Put("/:id", auth, admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, admin, h.HandleDeleteProduct)
}

// parseProduct reads and validates the seven product fields from the body.
func (h *ProductHandler) parseProduct(c *fiber.Ctx) (models.Product, map[string]string) {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return product, map[string]string{"body": "Invalid request body"}
	}
	product.Title = strings.TrimSpace(product.Title)
	product.Description = strings.TrimSpace(product.Description)
	product.Brand = strings.TrimSpace(product.Brand)
	product.Category = strings.TrimSpace(product.Category)
	product.ImageURL = strings.TrimSpace(product.ImageURL)
	product.AmazonURL = strings.TrimSpace(product.AmazonURL)
	if err := h.validate.Struct(product); err != nil {
		return product, validationErrors(err)
	}
	return product, nil
}

// HandleCreateProduct adds a product to the catalog. The created document is
// not echoed back.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	product, errs := h.parseProduct(c)
	if errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Provide all required arguments",
			"errors": errs,
		})
	}

	if err := h.products.CreateProduct(c.UserContext(), &product); err != nil {
		h.log.Error("create product failed", zap.Error(err))
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": "Product added successfully",
	})
}

// HandleGetAllProducts lists the whole catalog.
func (h *ProductHandler) HandleGetAllProducts(c *fiber.Ctx) error {
	products, err := h.products.GetAllProducts(c.UserContext())
	if err != nil {
		h.log.Error("list products failed", zap.Error(err))
		return err
	}
	return c.JSON(products)
}

// HandleGetFeaturedProducts returns the public featured feed.
func (h *ProductHandler) HandleGetFeaturedProducts(c *fiber.Ctx) error {
	products, err := h.products.GetFeaturedProducts(c.UserContext())
	if errors.Is(err, services.ErrNoFeaturedProducts) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "No featured products found",
		})
	}
	if err != nil {
		h.log.Error("featured products failed", zap.Error(err))
		return err
	}
	return c.JSON(products)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.products.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Product not found")
	}
	return c.JSON(product)
}

// HandleUpdateProduct replaces the mutable fields of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	fields, errs := h.parseProduct(c)
	if errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Provide all required arguments",
			"errors": errs,
		})
	}

	id := c.Params("id")
	product, err := h.products.UpdateProduct(c.UserContext(), id, fields)
	if err != nil {
		if !errors.Is(err, repositories.ErrProductNotFound) {
			h.log.Error("update product failed", zap.String("product_id", id), zap.Error(err))
		}
		return respondError(c, err, "Product not found")
	}

	return c.JSON(fiber.Map{
		"success": "Product updated successfully",
		"product": product,
	})
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.products.DeleteProduct(c.UserContext(), id); err != nil {
		if !errors.Is(err, repositories.ErrProductNotFound) {
			h.log.Error("delete product failed", zap.String("product_id", id), zap.Error(err))
		}
		return respondError(c, err, "Product not found")
	}
	return c.JSON(fiber.Map{"success": "Product deleted successfully"})
}

type userProductsRequest struct {
	Email string `json:"email"`
}

// HandleGetUserProducts returns the products in the cart of the user named by
// email, which must be the caller.
func (h *ProductHandler) HandleGetUserProducts(c *fiber.Ctx) error {
	var req userProductsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	lines, err := h.cart.GetUserProducts(c.UserContext(), middleware.UserID(c), req.Email)
	switch {
	case err == nil:
		return c.JSON(lines)
	case errors.Is(err, services.ErrEmailRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
	case errors.Is(err, repositories.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrEmailMismatch):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
	default:
		return err
	}
}
