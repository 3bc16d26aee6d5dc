package handlers

import (
	"errors"

	"royalchoice/internal/middleware"
	"royalchoice/internal/repositories"
	"royalchoice/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/user")
	userRoutes.Post("/signup", h.HandleSignUp)
	userRoutes.Post("/signin", h.HandleSignIn)
	userRoutes.Get("/me", middleware.AuthRequired(h.authService), h.HandleMe)
}

// SignUpRequest represents the request body for registration.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SignInRequest represents the request body for login.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// bind parses the body into req and validates it. On failure it returns the
// 400 response body.
func (h *AuthHandler) bind(c *fiber.Ctx, req interface{}) fiber.Map {
	if err := c.BodyParser(req); err != nil {
		return fiber.Map{"error": "Invalid request body"}
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.Map{
			"error":  "Validation failed",
			"errors": validationErrors(err),
		}
	}
	return nil
}

// HandleSignUp handles new user registration.
func (h *AuthHandler) HandleSignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if resp := h.bind(c, &req); resp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}

	user, err := h.authService.RegisterUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email is already registered",
			})
		}
		h.log.Error("register user failed", zap.Error(err))
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": "User registered successfully",
		"user":    user,
	})
}

// HandleSignIn handles user login and issues a JWT token.
func (h *AuthHandler) HandleSignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if resp := h.bind(c, &req); resp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		h.log.Error("login failed", zap.Error(err))
		return err
	}

	return c.JSON(fiber.Map{
		"success": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// HandleMe returns the profile of the caller.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err, "User not found")
	}
	return c.JSON(user)
}
