package handlers

import (
	"errors"

	"royalchoice/internal/middleware"
	"royalchoice/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MaxWebhookBodySize bounds the raw webhook payload.
const MaxWebhookBodySize = 64 * 1024

// PaymentHandler handles checkout and the payment provider webhook.
type PaymentHandler struct {
	payments    *services.PaymentService
	authService *services.AuthService
	log         *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService, authService *services.AuthService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		authService: authService,
		log:         log,
	}
}

// RegisterWebhook registers the webhook route. It must be mounted before any
// middleware that consumes or rewrites the body.
func (h *PaymentHandler) RegisterWebhook(router fiber.Router) {
	router.Post("/api/v1/payment/webhook", h.HandleWebhook)
}

// RegisterRoutes registers the authenticated payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payment")
	paymentRoutes.Post("/create-payment-intent", middleware.AuthRequired(h.authService), h.HandleCreatePaymentIntent)
}

// HandleCreatePaymentIntent starts a checkout for the caller's cart.
func (h *PaymentHandler) HandleCreatePaymentIntent(c *fiber.Ctx) error {
	intent, err := h.payments.CreatePaymentIntent(c.UserContext(), middleware.UserID(c), middleware.Email(c))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cart is empty"})
		case errors.Is(err, services.ErrPaymentsDisabled):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Payments are not configured"})
		}
		h.log.Error("create payment intent failed", zap.String("user_id", middleware.UserID(c)), zap.Error(err))
		return err
	}

	return c.JSON(fiber.Map{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
		"amount":          intent.Amount,
	})
}

// HandleWebhook verifies and applies a payment provider event.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) > MaxWebhookBodySize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Payload too large"})
	}

	// c.Body is only valid for the lifetime of the handler.
	raw := append([]byte(nil), payload...)
	eventType, err := h.payments.HandleWebhook(c.UserContext(), raw, c.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			h.log.Warn("webhook signature verification failed", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
		case errors.Is(err, services.ErrPaymentsDisabled):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Webhook secret not configured"})
		}
		h.log.Error("webhook processing failed", zap.String("type", eventType), zap.Error(err))
		return err
	}

	return c.JSON(fiber.Map{"received": true})
}
