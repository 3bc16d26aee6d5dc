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

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Brand       string             `bson:"brand"`
	Price       float64            `bson:"price"`
	Category    string             `bson:"category"`
	ImageURL    string             `bson:"imageUrl"`
	AmazonURL   string             `bson:"amazonUrl"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d productDocument) toModel() models.Product {
	return models.Product{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Brand:       d.Brand,
		Price:       d.Price,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		AmazonURL:   d.AmazonURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	collection *mongo.Collection
}

// NewMongoProductRepository creates a new instance of MongoProductRepository.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		collection: db.Collection(productsCollection),
	}
}

// GetAll retrieves every product.
func (r *MongoProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// GetLimited retrieves at most limit products.
func (r *MongoProductRepository) GetLimited(ctx context.Context, limit int) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

// GetByID retrieves a product by its hex ID. Malformed IDs are reported as not found.
func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}

	var doc productDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	product := doc.toModel()
	return &product, nil
}

// GetByIDs retrieves the products that exist among ids.
func (r *MongoProductRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.Product{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// Create inserts a new product and sets its ID.
func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	doc := productDocument{
		ID:          primitive.NewObjectID(),
		Title:       product.Title,
		Description: product.Description,
		Brand:       product.Brand,
		Price:       product.Price,
		Category:    product.Category,
		ImageURL:    product.ImageURL,
		AmazonURL:   product.AmazonURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	*product = doc.toModel()
	return nil
}

// Update overwrites the mutable fields and returns the new document through product.
func (r *MongoProductRepository) Update(ctx context.Context, product *models.Product) error {
	oid, err := primitive.ObjectIDFromHex(product.ID)
	if err != nil {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrProductNotFound)
	}

	update := bson.M{"$set": bson.M{
		"title":       product.Title,
		"description": product.Description,
		"brand":       product.Brand,
		"price":       product.Price,
		"category":    product.Category,
		"imageUrl":    product.ImageURL,
		"amazonUrl":   product.AmazonURL,
		"updatedAt":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("product with ID %s: %w", product.ID, ErrProductNotFound)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	*product = doc.toModel()
	return nil
}

// Delete removes a product. Carts referencing it are left untouched.
func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return nil
}

func (r *MongoProductRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Product, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toModel())
	}
	return products, nil
}
