package services_test

import (
	"context"
	"fmt"
	"testing"

	"royalchoice/internal/repositories"
	"royalchoice/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// MockGateway is a mock implementation of services.PaymentGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*services.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentIntent), args.Error(1)
}

func signedEvent(t *testing.T, eventType, body string) ([]byte, string) {
	t.Helper()
	return signedEventWithVersion(t, stripe.APIVersion, eventType, body)
}

func signedEventWithVersion(t *testing.T, apiVersion, eventType, body string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": %s}
	}`, apiVersion, eventType, body))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func TestPaymentService_CreatePaymentIntent(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	gateway := new(MockGateway)
	orderService := services.NewOrderService(repositories.NewMockOrderRepository(), f.cart, nil, nil)
	paymentService := services.NewPaymentService(f.cart, orderService, gateway, testWebhookSecret, "usd", nil)

	_, err := paymentService.CreatePaymentIntent(ctx, f.user.ID, f.user.Email)
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	_, err = f.cart.AddItem(ctx, f.user.ID, f.mouse.ID, 2)
	require.NoError(t, err)

	expected := &services.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret", Amount: 5100, Currency: "usd"}
	gateway.On("CreatePaymentIntent", ctx, int64(5100), "usd", map[string]string{
		"user_id": f.user.ID,
		"email":   f.user.Email,
	}).Return(expected, nil).Once()

	intent, err := paymentService.CreatePaymentIntent(ctx, f.user.ID, f.user.Email)
	require.NoError(t, err)
	assert.Equal(t, expected, intent)
	gateway.AssertExpectations(t)

	disabled := services.NewPaymentService(f.cart, orderService, nil, "", "", nil)
	_, err = disabled.CreatePaymentIntent(ctx, f.user.ID, f.user.Email)
	assert.ErrorIs(t, err, services.ErrPaymentsDisabled)
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	orderRepo := repositories.NewMockOrderRepository()
	orderService := services.NewOrderService(orderRepo, f.cart, nil, nil)
	paymentService := services.NewPaymentService(f.cart, orderService, nil, testWebhookSecret, "usd", nil)

	_, err := f.cart.AddItem(ctx, f.user.ID, f.laptop.ID, 1)
	require.NoError(t, err)

	t.Run("bad signature", func(t *testing.T) {
		payload, _ := signedEvent(t, "payment_intent.succeeded", `{"id":"pi_1","object":"payment_intent"}`)
		_, err := paymentService.HandleWebhook(ctx, payload, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, services.ErrInvalidSignature)
	})

	t.Run("ignored event type", func(t *testing.T) {
		payload, header := signedEvent(t, "charge.refunded", `{"id":"ch_1","object":"charge"}`)
		eventType, err := paymentService.HandleWebhook(ctx, payload, header)
		require.NoError(t, err)
		assert.Equal(t, "charge.refunded", eventType)
	})

	t.Run("succeeded intent creates order", func(t *testing.T) {
		body := fmt.Sprintf(`{"id":"pi_ok","object":"payment_intent","amount":120000,"metadata":{"user_id":%q}}`, f.user.ID)
		payload, header := signedEvent(t, "payment_intent.succeeded", body)

		eventType, err := paymentService.HandleWebhook(ctx, payload, header)
		require.NoError(t, err)
		assert.Equal(t, "payment_intent.succeeded", eventType)

		orders, err := orderRepo.GetByUser(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "pi_ok", orders[0].PaymentIntentID)

		lines, err := f.cart.GetCart(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("replay against empty cart is acknowledged", func(t *testing.T) {
		body := fmt.Sprintf(`{"id":"pi_ok","object":"payment_intent","metadata":{"user_id":%q}}`, f.user.ID)
		payload, header := signedEvent(t, "payment_intent.succeeded", body)

		_, err := paymentService.HandleWebhook(ctx, payload, header)
		assert.NoError(t, err)
	})

	t.Run("secret not configured", func(t *testing.T) {
		disabled := services.NewPaymentService(f.cart, orderService, nil, "", "usd", nil)
		_, err := disabled.HandleWebhook(ctx, []byte(`{}`), "")
		assert.ErrorIs(t, err, services.ErrPaymentsDisabled)
	})
}

func TestPaymentService_HandleWebhookOlderAPIVersion(t *testing.T) {
	ctx := context.Background()
	f := newCartFixture(t)
	orderRepo := repositories.NewMockOrderRepository()
	orderService := services.NewOrderService(orderRepo, f.cart, nil, nil)
	paymentService := services.NewPaymentService(f.cart, orderService, nil, testWebhookSecret, "usd", nil)

	_, err := f.cart.AddItem(ctx, f.user.ID, f.mouse.ID, 2)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"id":"pi_old","object":"payment_intent","amount":5100,"metadata":{"user_id":%q}}`, f.user.ID)
	payload, header := signedEventWithVersion(t, "2020-08-27", "payment_intent.succeeded", body)

	eventType, err := paymentService.HandleWebhook(ctx, payload, header)
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.succeeded", eventType)

	orders, err := orderRepo.GetByUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "pi_old", orders[0].PaymentIntentID)
}
