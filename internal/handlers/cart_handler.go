package handlers

import (
	"royalchoice/internal/middleware"
	"royalchoice/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	cart        *services.CartService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(cart *services.CartService, authService *services.AuthService) *CartHandler {
	return &CartHandler{
		cart:        cart,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/user/cart", middleware.AuthRequired(h.authService))
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddItem)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Put("/:productId", h.HandleUpdateItem)
	cartRoutes.Delete("/:productId", h.HandleRemoveItem)
}

// AddItemRequest represents the body of an add-to-cart request. A missing
// quantity means one.
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=999"`
}

// UpdateItemRequest represents the body of a quantity change.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=999"`
}

// HandleGetCart returns the populated cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	lines, err := h.cart.GetCart(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err, "User not found")
	}
	return c.JSON(lines)
}

// HandleAddItem puts a product in the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"errors": validationErrors(err),
		})
	}

	lines, err := h.cart.AddItem(c.UserContext(), middleware.UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, err, cartErrorMessage(err))
	}
	return c.JSON(fiber.Map{
		"success": "Product added to cart",
		"cart":    lines,
	})
}

// HandleUpdateItem sets the quantity of a product already in the cart.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"errors": validationErrors(err),
		})
	}

	lines, err := h.cart.UpdateItemQuantity(c.UserContext(), middleware.UserID(c), c.Params("productId"), req.Quantity)
	if err != nil {
		return respondError(c, err, cartErrorMessage(err))
	}
	return c.JSON(fiber.Map{
		"success": "Cart updated",
		"cart":    lines,
	})
}

// HandleRemoveItem drops a product from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	lines, err := h.cart.RemoveItem(c.UserContext(), middleware.UserID(c), c.Params("productId"))
	if err != nil {
		return respondError(c, err, cartErrorMessage(err))
	}
	return c.JSON(fiber.Map{
		"success": "Product removed from cart",
		"cart":    lines,
	})
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	if err := h.cart.ClearCart(c.UserContext(), middleware.UserID(c)); err != nil {
		return respondError(c, err, "User not found")
	}
	return c.JSON(fiber.Map{"success": "Cart cleared"})
}
