package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"royalchoice/internal/metrics"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"
)

// PaymentIntent is the part of a provider payment intent the client needs.
type PaymentIntent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// PaymentGateway creates payment intents with a payment provider.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
}

// StripeGateway is the Stripe implementation of PaymentGateway.
type StripeGateway struct{}

// NewStripeGateway configures the Stripe SDK with secretKey.
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

// CreatePaymentIntent implements PaymentGateway.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}

// PaymentService turns carts into payment intents and confirmed payments into orders.
type PaymentService struct {
	cart          *CartService
	orders        *OrderService
	gateway       PaymentGateway // nil when Stripe is not configured
	webhookSecret string
	currency      string
	log           *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(cart *CartService, orders *OrderService, gateway PaymentGateway, webhookSecret, currency string, log *zap.Logger) *PaymentService {
	if currency == "" {
		currency = "usd"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{
		cart:          cart,
		orders:        orders,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		currency:      currency,
		log:           log,
	}
}

// CreatePaymentIntent charges the current cart total of userID.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID, email string) (*PaymentIntent, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	lines, err := s.cart.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	amount := toMinorUnits(CartTotal(lines))
	if len(lines) == 0 || amount <= 0 {
		return nil, ErrEmptyCart
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, amount, s.currency, map[string]string{
		"user_id": userID,
		"email":   email,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("user_id", userID),
		zap.Int64("amount", amount))
	return intent, nil
}

// HandleWebhook verifies a raw Stripe event and applies it. It returns the
// event type. Unknown event types are accepted and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	if s.webhookSecret == "" {
		return "", ErrPaymentsDisabled
	}

	// Events pinned to another API version still carry the fields read below.
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.log.Warn("webhook verification failed", zap.Error(err))
		metrics.RecordWebhookEvent("unknown", "rejected")
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	eventType := string(event.Type)
	if event.APIVersion != stripe.APIVersion {
		s.log.Warn("webhook event uses a different API version",
			zap.String("event_api_version", event.APIVersion),
			zap.String("library_api_version", stripe.APIVersion))
	}

	if eventType != "payment_intent.succeeded" {
		s.log.Info("ignoring webhook event", zap.String("type", eventType))
		metrics.RecordWebhookEvent(eventType, "ignored")
		return eventType, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		metrics.RecordWebhookEvent(eventType, "failed")
		return eventType, fmt.Errorf("decode payment intent: %w", err)
	}

	userID := pi.Metadata["user_id"]
	if userID == "" {
		s.log.Warn("payment intent without user_id metadata", zap.String("payment_intent_id", pi.ID))
		metrics.RecordWebhookEvent(eventType, "ignored")
		return eventType, nil
	}

	order, err := s.orders.CreatePaidOrder(ctx, userID, pi.ID)
	if errors.Is(err, ErrEmptyCart) {
		s.log.Warn("payment succeeded for an empty cart", zap.String("payment_intent_id", pi.ID), zap.String("user_id", userID))
		metrics.RecordWebhookEvent(eventType, "ignored")
		return eventType, nil
	}
	if err != nil {
		metrics.RecordWebhookEvent(eventType, "failed")
		return eventType, err
	}

	s.log.Info("order created from payment",
		zap.String("order_id", order.ID),
		zap.String("payment_intent_id", pi.ID),
		zap.String("user_id", userID))
	metrics.RecordWebhookEvent(eventType, "processed")
	return eventType, nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
