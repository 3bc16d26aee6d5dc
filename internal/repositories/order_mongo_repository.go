package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"royalchoice/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderItemDocument struct {
	ProductID string  `bson:"productId"`
	Title     string  `bson:"title"`
	Quantity  int     `bson:"quantity"`
	Price     float64 `bson:"price"`
}

type orderDocument struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	UserID          string              `bson:"userId"`
	Items           []orderItemDocument `bson:"items"`
	TotalAmount     float64             `bson:"totalAmount"`
	Status          string              `bson:"status"`
	PaymentIntentID string              `bson:"paymentIntentId"`
	CreatedAt       time.Time           `bson:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt"`
}

func (d orderDocument) toModel() models.Order {
	items := make([]models.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return models.Order{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Items:           items,
		TotalAmount:     d.TotalAmount,
		Status:          d.Status,
		PaymentIntentID: d.PaymentIntentID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// MongoOrderRepository is a MongoDB implementation of OrderRepository.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new instance of MongoOrderRepository.
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection(ordersCollection)}
}

// Create inserts an order and sets its ID and timestamps.
func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	doc := orderDocument{
		ID:              primitive.NewObjectID(),
		UserID:          order.UserID,
		TotalAmount:     order.TotalAmount,
		Status:          order.Status,
		PaymentIntentID: order.PaymentIntentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	*order = doc.toModel()
	return nil
}

// GetByID retrieves an order by hex ID.
func (r *MongoOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrOrderNotFound)
	}

	var doc orderDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	order := doc.toModel()
	return &order, nil
}

// GetByUser retrieves the orders of a user, newest first.
func (r *MongoOrderRepository) GetByUser(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.toModel())
	}
	return orders, nil
}
