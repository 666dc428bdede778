package models

import (
	"time"
)

// TransactionStatus represents the lifecycle state of a payment transaction
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// PaymentTransaction is one record per initiated STK push attempt. The
// gateway-assigned CheckoutRequestID is the unique key used to match the
// asynchronous callback back to its transaction; MerchantRequestID is kept
// for audit only. An order may have several attempts, so OrderRef is not
// unique.
type PaymentTransaction struct {
	ID                string            `bson:"_id,omitempty" json:"id"`
	OrderRef          string            `bson:"order_ref" json:"order_ref"`
	CheckoutRequestID string            `bson:"checkout_request_id" json:"checkout_request_id"`
	MerchantRequestID string            `bson:"merchant_request_id" json:"merchant_request_id"`
	PhoneNumber       string            `bson:"phone_number" json:"phone_number"`
	Amount            int64             `bson:"amount" json:"amount"`
	Status            TransactionStatus `bson:"status" json:"status"`
	ResultCode        string            `bson:"result_code,omitempty" json:"result_code,omitempty"`
	ResultDesc        string            `bson:"result_desc,omitempty" json:"result_desc,omitempty"`
	CreatedAt         time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updated_at"`
}

// IsValidTransition checks if a status transition is allowed. A pending
// transaction completes or fails exactly once; terminal states admit no
// further transitions, so a duplicate callback can never regress a record.
func IsValidTransition(from, to TransactionStatus) bool {
	validTransitions := map[TransactionStatus][]TransactionStatus{
		StatusPending:   {StatusCompleted, StatusFailed},
		StatusCompleted: {},
		StatusFailed:    {},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, validTo := range allowed {
		if validTo == to {
			return true
		}
	}

	return false
}
