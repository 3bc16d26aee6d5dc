package services

import (
	"context"
	"encoding/json"
	"fmt"

	"royalchoice/internal/models"
	"royalchoice/internal/repositories"
	"royalchoice/pkg/rabbitmq"

	"go.uber.org/zap"
)

// EventPublisher sends a message body to a named queue.
type EventPublisher interface {
	Publish(queue string, body []byte) error
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo repositories.OrderRepository
	cart      *CartService
	publisher EventPublisher // optional
	log       *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, cart *CartService, publisher EventPublisher, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		orderRepo: orderRepo,
		cart:      cart,
		publisher: publisher,
		log:       log,
	}
}

// CreatePaidOrder freezes the user's current cart into a paid order, empties
// the cart and announces the order on the event queue.
func (s *OrderService) CreatePaidOrder(ctx context.Context, userID, paymentIntentID string) (*models.Order, error) {
	lines, err := s.cart.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPaid,
		PaymentIntentID: paymentIntentID,
		TotalAmount:     CartTotal(lines),
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.Product.ID,
			Title:     line.Product.Title,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	if err := s.cart.ClearCart(ctx, userID); err != nil {
		s.log.Error("failed to clear cart after order", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.publishPaid(order)
	return order, nil
}

func (s *OrderService) publishPaid(order *models.Order) {
	if s.publisher == nil {
		s.log.Debug("no event publisher configured, skipping order.paid", zap.String("order_id", order.ID))
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event":           "order.paid",
		"orderId":         order.ID,
		"userId":          order.UserID,
		"totalAmount":     order.TotalAmount,
		"paymentIntentId": order.PaymentIntentID,
		"items":           order.Items,
	})
	if err != nil {
		s.log.Error("failed to marshal order event", zap.Error(err))
		return
	}

	if err := s.publisher.Publish(rabbitmq.OrderEventsQueue, body); err != nil {
		s.log.Warn("failed to publish order.paid", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	s.log.Info("published order.paid", zap.String("order_id", order.ID))
}

// GetOrdersForUser lists the orders of userID.
func (s *OrderService) GetOrdersForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUser(ctx, userID)
}

// GetOrderForUser returns one order, hiding orders that belong to someone else.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order with ID %s: %w", orderID, repositories.ErrOrderNotFound)
	}
	return order, nil
}
