package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/services"
)

// MongoLedger persists payment transactions in the transactions collection.
// Per-document atomicity of UpdateOne/FindOneAndUpdate gives the per-key
// linearizability the reconciler relies on; different checkout request ids
// never contend.
type MongoLedger struct {
	collection *mongo.Collection
}

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{collection: db.Collection("transactions")}
}

// EnsureIndexes creates the unique correlation index and the listing
// indexes. The unique index is the defensive backstop for duplicate
// gateway-assigned ids.
func (l *MongoLedger) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.M{"checkout_request_id": 1},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "order_ref", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := l.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		log.Printf("Failed to create transaction indexes: %v", err)
		return fmt.Errorf("failed to create transaction indexes: %v", err)
	}
	return nil
}

func (l *MongoLedger) Insert(ctx context.Context, tx *models.PaymentTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := l.collection.InsertOne(ctx, tx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: checkout request %s", services.ErrConflict, tx.CheckoutRequestID)
		}
		return fmt.Errorf("%w: insert transaction %s: %v", services.ErrPersistence, tx.CheckoutRequestID, err)
	}
	return nil
}

func (l *MongoLedger) FindByCheckoutRequestID(ctx context.Context, id string) (*models.PaymentTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tx models.PaymentTransaction
	if err := l.collection.FindOne(ctx, bson.M{"checkout_request_id": id}).Decode(&tx); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: checkout request %s", services.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: fetch transaction %s: %v", services.ErrPersistence, id, err)
	}
	return &tx, nil
}

// UpdateStatus transitions the pending record to a terminal status in a
// single FindOneAndUpdate. The status filter makes the transition
// write-once: the second of two racing identical updates matches nothing
// and is reported as applied=false with the already terminal record.
func (l *MongoLedger) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus, resultCode, resultDesc string) (*models.PaymentTransaction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"checkout_request_id": id,
		"status":              models.StatusPending,
	}
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"result_code": resultCode,
			"result_desc": resultDesc,
			"updated_at":  time.Now(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tx models.PaymentTransaction
	err := l.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&tx)
	if err == nil {
		return &tx, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("%w: update transaction %s: %v", services.ErrPersistence, id, err)
	}

	// No pending record matched. Either the record is already terminal
	// (duplicate delivery) or it never existed.
	existing, ferr := l.FindByCheckoutRequestID(ctx, id)
	if ferr != nil {
		return nil, false, ferr
	}
	return existing, false, nil
}

func (l *MongoLedger) List(ctx context.Context, status *models.TransactionStatus, start, end *time.Time) ([]models.PaymentTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if status != nil {
		query["status"] = *status
	}
	if start != nil || end != nil {
		window := bson.M{}
		if start != nil {
			window["$gte"] = *start
		}
		if end != nil {
			window["$lte"] = *end
		}
		query["created_at"] = window
	}

	cur, err := l.collection.Find(ctx, query, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", services.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var txs []models.PaymentTransaction
	if err := cur.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("%w: decode transactions: %v", services.ErrPersistence, err)
	}
	return txs, nil
}
