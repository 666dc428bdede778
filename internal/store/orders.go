package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/services"
)

// MongoOrderStore holds storefront orders. The payment core only ever moves
// an order from pending_payment to processing; everything else about orders
// belongs to the storefront.
type MongoOrderStore struct {
	collection *mongo.Collection
}

func NewMongoOrderStore(db *mongo.Database) *MongoOrderStore {
	return &MongoOrderStore{collection: db.Collection("orders")}
}

func (s *MongoOrderStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	order.Status = models.OrderPendingPayment
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	if _, err := s.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: order %s", services.ErrConflict, order.ID)
		}
		return nil, fmt.Errorf("%w: insert order %s: %v", services.ErrPersistence, order.ID, err)
	}
	return order, nil
}

func (s *MongoOrderStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var order models.Order
	if err := s.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: order %s", services.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: fetch order %s: %v", services.ErrPersistence, orderID, err)
	}
	return &order, nil
}

// MarkProcessing moves the order out of pending_payment. The status filter
// makes replays harmless: an order already in processing matches nothing
// and is left alone.
func (s *MongoOrderStore) MarkProcessing(ctx context.Context, orderRef string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": orderRef, "status": models.OrderPendingPayment},
		bson.M{"$set": bson.M{
			"status":     models.OrderProcessing,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("%w: update order %s: %v", services.ErrPersistence, orderRef, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: distinguish an already processed order from a
	// missing one.
	order, err := s.GetOrder(ctx, orderRef)
	if err != nil {
		return err
	}
	if order.Status == models.OrderProcessing {
		log.Printf("Order %s already processing, no update needed", orderRef)
		return nil
	}
	return fmt.Errorf("%w: order %s in unexpected status %s", services.ErrPersistence, orderRef, order.Status)
}
