package services

import (
	"context"
	"time"

	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/mpesa"
)

// GatewayClient defines the narrow surface of the Daraja client the
// initiator needs: request in, structured acknowledgment out.
type GatewayClient interface {
	Push(ctx context.Context, cfg *models.MerchantConfig, req mpesa.PushRequest) (*mpesa.PushResponse, error)
}

// TransactionLedger defines the payment transaction store responsibility.
// Updates to a single record by checkout request id are linearizable;
// different keys are fully independent.
type TransactionLedger interface {
	// Insert persists a new transaction. Returns ErrConflict when the
	// checkout request id is already present.
	Insert(ctx context.Context, tx *models.PaymentTransaction) error
	// FindByCheckoutRequestID returns the matching record or ErrNotFound.
	// Absence is a normal outcome the reconciler branches on.
	FindByCheckoutRequestID(ctx context.Context, id string) (*models.PaymentTransaction, error)
	// UpdateStatus atomically transitions the pending record with the given
	// checkout request id to a terminal status. When the record is already
	// terminal it is returned unchanged with applied=false; when absent the
	// error is ErrNotFound.
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus, resultCode, resultDesc string) (tx *models.PaymentTransaction, applied bool, err error)
	// List returns transactions filtered by optional status and creation
	// date range, newest first.
	List(ctx context.Context, status *models.TransactionStatus, start, end *time.Time) ([]models.PaymentTransaction, error)
}

// OrderStore defines the order mutation this core is permitted to make.
type OrderStore interface {
	// MarkProcessing moves the order from pending_payment to processing.
	// Re-applying processing is a safe no-op; an absent order is ErrNotFound.
	MarkProcessing(ctx context.Context, orderRef string) error
}
