package models

import (
	"time"
)

// OrderStatus values the payment core cares about. The storefront owns the
// rest of the order lifecycle.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderProcessing     OrderStatus = "processing"
)

// Order is the narrow view of a storefront order held here. Only the
// reconciler moves an order from pending_payment to processing, and only on
// a completed transaction.
type Order struct {
	ID           string      `bson:"_id,omitempty" json:"id"`
	CustomerName string      `bson:"customer_name" json:"customer_name"`
	PhoneNumber  string      `bson:"phone_number" json:"phone_number"`
	Total        int64       `bson:"total" json:"total"`
	Status       OrderStatus `bson:"status" json:"status"`
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updated_at"`
}
