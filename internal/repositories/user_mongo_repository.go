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
	"go.uber.org/zap"
)

type cartItemDocument struct {
	ProductID primitive.ObjectID `bson:"productId"`
	Quantity  int                `bson:"quantity"`
}

// userDocument keeps userCart raw so that documents still in the legacy
// bare-id layout decode without error.
type userDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Email         string             `bson:"email"`
	Password      string             `bson:"password"`
	IsAdmin       bool               `bson:"isAdmin"`
	UserCart      bson.RawValue      `bson:"userCart"`
	SchemaVersion int                `bson:"schemaVersion"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

// toModel converts d, dropping cart entries that cannot be read. A userCart
// that is not an array at all reads as an empty cart.
func (d userDocument) toModel(log *zap.Logger) *models.User {
	upgraded, err := upgradeCart(d.UserCart)
	if err != nil {
		log.Warn("unreadable cart ignored", zap.String("user_id", d.ID.Hex()), zap.Error(err))
	} else if upgraded.Dropped > 0 {
		log.Warn("unreadable cart entries ignored",
			zap.String("user_id", d.ID.Hex()), zap.Int("dropped", upgraded.Dropped))
	}
	cart := make([]models.CartItem, 0, len(upgraded.Items))
	for _, item := range upgraded.Items {
		cart = append(cart, models.CartItem{ProductID: item.ProductID.Hex(), Quantity: item.Quantity})
	}
	return &models.User{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		Password:      d.Password,
		IsAdmin:       d.IsAdmin,
		UserCart:      cart,
		SchemaVersion: d.SchemaVersion,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoUserRepository is a MongoDB implementation of UserRepository and CartMigrator.
type MongoUserRepository struct {
	collection *mongo.Collection
	log        *zap.Logger
}

// NewMongoUserRepository creates a new instance of MongoUserRepository.
func NewMongoUserRepository(db *mongo.Database, log *zap.Logger) *MongoUserRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &MongoUserRepository{
		collection: db.Collection(usersCollection),
		log:        log,
	}
}

// Create inserts a new user. A duplicate email yields ErrEmailTaken.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	doc := bson.M{
		"_id":           primitive.NewObjectID(),
		"email":         user.Email,
		"password":      user.Password,
		"isAdmin":       user.IsAdmin,
		"userCart":      bson.A{},
		"schemaVersion": models.CurrentUserSchemaVersion,
		"createdAt":     now,
		"updatedAt":     now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %s: %w", user.Email, ErrEmailTaken)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = doc["_id"].(primitive.ObjectID).Hex()
	user.SchemaVersion = models.CurrentUserSchemaVersion
	user.UserCart = []models.CartItem{}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByEmail retrieves a user by email.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, email)
}

// GetByID retrieves a user by hex ID.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", key, ErrUserNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", key, err)
	}
	return doc.toModel(r.log), nil
}

// UpdateCart replaces the user's cart with record-form entries.
func (r *MongoUserRepository) UpdateCart(ctx context.Context, userID string, cart []models.CartItem) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}

	items := make([]cartItemDocument, 0, len(cart))
	for _, item := range cart {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return fmt.Errorf("invalid product ID %q in cart: %w", item.ProductID, err)
		}
		items = append(items, cartItemDocument{ProductID: productID, Quantity: item.Quantity})
	}

	update := bson.M{"$set": bson.M{
		"userCart":      items,
		"schemaVersion": models.CurrentUserSchemaVersion,
		"updatedAt":     time.Now().UTC(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}
	return nil
}

// MigrateCarts rewrites legacy carts of users below the current schema version.
// Users already stamped are never selected, so repeated runs are no-ops.
func (r *MongoUserRepository) MigrateCarts(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	filter := bson.M{"$or": bson.A{
		bson.M{"schemaVersion": bson.M{"$exists": false}},
		bson.M{"schemaVersion": bson.M{"$lt": models.CurrentUserSchemaVersion}},
	}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return report, fmt.Errorf("failed to scan users: %w", err)
	}
	defer cursor.Close(ctx)

	var errs []error
	for cursor.Next(ctx) {
		var doc struct {
			ID       primitive.ObjectID `bson:"_id"`
			UserCart bson.RawValue      `bson:"userCart"`
		}
		if err := cursor.Decode(&doc); err != nil {
			errs = append(errs, fmt.Errorf("decode user: %w", err))
			continue
		}
		report.Scanned++

		upgraded, err := upgradeCart(doc.UserCart)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", doc.ID.Hex(), err))
			continue
		}
		if upgraded.Dropped > 0 {
			r.log.Warn("dropping unreadable cart entries",
				zap.String("user_id", doc.ID.Hex()), zap.Int("dropped", upgraded.Dropped))
		}

		update := bson.M{"$set": bson.M{
			"userCart":      upgraded.Items,
			"schemaVersion": models.CurrentUserSchemaVersion,
		}}
		if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, update); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", doc.ID.Hex(), err))
			continue
		}
		report.Upgraded++
		report.EntriesRewritten += upgraded.Rewritten
		report.EntriesDropped += upgraded.Dropped
	}
	if err := cursor.Err(); err != nil {
		errs = append(errs, fmt.Errorf("cursor: %w", err))
	}
	return report, errors.Join(errs...)
}

type cartUpgrade struct {
	Items     []cartItemDocument
	Rewritten int // bare ids turned into records and records without a product
	Dropped   int // entries that could not be read
}

// upgradeCart decodes a userCart value in either layout. Bare ids (ObjectID or
// hex string) become {productId, quantity: 1} and are counted as rewritten;
// records without a product id are removed. Entries that cannot be read are
// dropped. Only a userCart that is not an array fails.
func upgradeCart(raw bson.RawValue) (cartUpgrade, error) {
	out := cartUpgrade{Items: make([]cartItemDocument, 0)}

	switch raw.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return out, nil
	case bson.TypeArray:
	default:
		return out, fmt.Errorf("unexpected userCart type %s", raw.Type)
	}

	values, err := raw.Array().Values()
	if err != nil {
		return out, fmt.Errorf("read userCart: %w", err)
	}

	for _, v := range values {
		switch v.Type {
		case bson.TypeObjectID:
			out.Items = append(out.Items, cartItemDocument{ProductID: v.ObjectID(), Quantity: 1})
			out.Rewritten++
		case bson.TypeString:
			oid, err := primitive.ObjectIDFromHex(v.StringValue())
			if err != nil {
				out.Dropped++
				continue
			}
			out.Items = append(out.Items, cartItemDocument{ProductID: oid, Quantity: 1})
			out.Rewritten++
		case bson.TypeEmbeddedDocument:
			var item cartItemDocument
			if err := v.Unmarshal(&item); err != nil {
				out.Dropped++
				continue
			}
			if item.ProductID.IsZero() {
				out.Rewritten++
				continue
			}
			if item.Quantity < 1 {
				item.Quantity = 1
			}
			out.Items = append(out.Items, item)
		default:
			out.Dropped++
		}
	}
	return out, nil
}
