package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andenet/shop-backend/internal/models"
)

// MongoOrderStore persists orders in the orders collection.
type MongoOrderStore struct {
	col *mongo.Collection
}

// NewMongoOrderStore returns a Mongo-backed order store.
func NewMongoOrderStore(db *mongo.Database) *MongoOrderStore {
	return &MongoOrderStore{col: db.Collection("orders")}
}

// EnsureIndexes creates the indexes the payment flow depends on: sparse
// unique indexes on each provider reference (confirmation lookups) and a
// compound index for per-user listing newest first.
func (s *MongoOrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_ref", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "checkoutRequestId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}},
		},
	})
	return err
}

// Create assigns identity and creation time and inserts the order.
func (s *MongoOrderStore) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	if missing := o.MissingFields(); len(missing) > 0 {
		return nil, models.NewValidationError(missing...)
	}
	o.ID = uuid.NewString()
	o.Date = time.Now().UTC()
	if _, err := s.col.InsertOne(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *MongoOrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoOrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.list(ctx, bson.M{"userId": userID})
}

func (s *MongoOrderStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, bson.M{})
}

// Update merges the non-nil fields of upd into the order and returns the
// updated document.
func (s *MongoOrderStore) Update(ctx context.Context, id string, upd OrderUpdate) (*models.Order, error) {
	set := bson.M{}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Payment != nil {
		set["payment"] = *upd.Payment
	}
	if upd.TxRef != nil {
		set["tx_ref"] = *upd.TxRef
	}
	if upd.CheckoutRequestID != nil {
		set["checkoutRequestId"] = *upd.CheckoutRequestID
	}
	if upd.MpesaReceiptNumber != nil {
		set["mpesaReceiptNumber"] = *upd.MpesaReceiptNumber
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	var out models.Order
	err := s.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MongoOrderStore) FindByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	if txRef == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"tx_ref": txRef})
}

func (s *MongoOrderStore) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Order, error) {
	if checkoutRequestID == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"checkoutRequestId": checkoutRequestID})
}

func (s *MongoOrderStore) Delete(ctx context.Context, id string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoOrderStore) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var out models.Order
	err := s.col.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MongoOrderStore) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// MongoCartStore clears carts in the users collection.
type MongoCartStore struct {
	col *mongo.Collection
}

// NewMongoCartStore returns a Mongo-backed cart store.
func NewMongoCartStore(db *mongo.Database) *MongoCartStore {
	return &MongoCartStore{col: db.Collection("users")}
}

// ClearCart resets the user's cart data. A missing user is not an error; the
// call is fire-and-forget from the payment flow's point of view.
func (s *MongoCartStore) ClearCart(ctx context.Context, userID string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"cartData": bson.M{}}})
	return err
}
