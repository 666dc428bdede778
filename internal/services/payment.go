package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dukapay/dukapay-gobackend/internal/config"
	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/mpesa"
)

const (
	callbackPath    = "/api/payment/callback"
	transactionDesc = "DukaPay order payment"
	ackMessage      = "STK push sent. Check your phone to complete the payment."

	// Upper bound on the whole token+push exchange. The initiator performs
	// no ledger write once this trips, so the caller may retry the whole
	// initiation without leaving an orphaned pending record.
	gatewayTimeout = 15 * time.Second
)

// Safaricom subscriber numbers in international format: exactly 12 digits
// with the literal 254 prefix.
var phonePattern = regexp.MustCompile(`^254\d{9}$`)

// STKCallback is the essential shape of the gateway's asynchronous result.
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
}

// STKPushAck is returned to the storefront once the gateway has accepted
// the push. Acceptance is not payment: the terminal result arrives later on
// the callback.
type STKPushAck struct {
	Message string             `json:"message"`
	Data    *mpesa.PushResponse `json:"data"`
}

type PaymentService struct {
	config  config.Provider
	gateway GatewayClient
	ledger  TransactionLedger
	orders  OrderStore
}

func NewPaymentService(cfg config.Provider, gateway GatewayClient, ledger TransactionLedger, orders OrderStore) *PaymentService {
	return &PaymentService{
		config:  cfg,
		gateway: gateway,
		ledger:  ledger,
		orders:  orders,
	}
}

// InitiateSTKPush is the synchronous half of the protocol: validate, look up
// merchant config, push against the gateway, then persist a pending
// transaction keyed by the gateway-assigned checkout request id. No ledger
// write happens on any failure path.
func (s *PaymentService) InitiateSTKPush(ctx context.Context, orderRef, phoneNumber string, amount int64) (*STKPushAck, error) {
	if orderRef == "" {
		return nil, fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	if phoneNumber == "" {
		return nil, fmt.Errorf("%w: phoneNumber is required", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}
	if !phonePattern.MatchString(phoneNumber) {
		return nil, fmt.Errorf("%w: phoneNumber must be exactly 12 digits starting with 254, e.g. 254712345678", ErrValidation)
	}

	cfg, err := s.config.MerchantConfig(ctx)
	if err != nil {
		log.Printf("Merchant config lookup failed for order %s: %v", orderRef, err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	resp, err := s.gateway.Push(ctx, cfg, mpesa.PushRequest{
		Amount:           amount,
		PhoneNumber:      phoneNumber,
		AccountReference: orderRef,
		CallbackURL:      cfg.CallbackBaseURL + callbackPath,
		Description:      transactionDesc,
	})
	if err != nil {
		log.Printf("STK push failed for order %s: %v", orderRef, err)
		return nil, err
	}

	now := time.Now()
	tx := &models.PaymentTransaction{
		ID:                uuid.NewString(),
		OrderRef:          orderRef,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		PhoneNumber:       phoneNumber,
		Amount:            amount,
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.ledger.Insert(ctx, tx); err != nil {
		log.Printf("Failed to record pending transaction %s for order %s: %v", resp.CheckoutRequestID, orderRef, err)
		return nil, err
	}

	log.Printf("STK push accepted: order=%s checkout_request_id=%s amount=%d", orderRef, resp.CheckoutRequestID, amount)
	return &STKPushAck{Message: ackMessage, Data: resp}, nil
}

// HandleCallback is the asynchronous half: match the callback to its pending
// transaction by checkout request id, apply the terminal status exactly
// once, and move the order to processing iff the payment completed.
// Duplicate deliveries converge on the same terminal state and never
// re-trigger the order transition.
func (s *PaymentService) HandleCallback(ctx context.Context, cb STKCallback) error {
	_, _, err := s.reconcile(ctx, cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc)
	return err
}

// MarkPaid is the administrative completion path. Unlike the gateway
// callback it refuses records that are already terminal, so an operator
// gets told instead of silently no-opping.
func (s *PaymentService) MarkPaid(ctx context.Context, checkoutRequestID string) (*models.PaymentTransaction, error) {
	tx, err := s.ledger.FindByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: no transaction for checkout request %s", ErrUnknownTransaction, checkoutRequestID)
		}
		return nil, err
	}
	if tx.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: transaction %s is already %s", ErrConflict, checkoutRequestID, tx.Status)
	}

	updated, _, err := s.reconcile(ctx, checkoutRequestID, 0, "Marked as paid by operator")
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PaymentService) reconcile(ctx context.Context, checkoutRequestID string, resultCode int, resultDesc string) (*models.PaymentTransaction, bool, error) {
	tx, err := s.ledger.FindByCheckoutRequestID(ctx, checkoutRequestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("%w: no transaction for checkout request %s", ErrUnknownTransaction, checkoutRequestID)
		}
		return nil, false, err
	}

	status := models.StatusFailed
	if resultCode == 0 {
		status = models.StatusCompleted
	}

	// Duplicate or late delivery of an already reconciled result.
	if tx.Status != models.StatusPending {
		log.Printf("Duplicate callback for checkout request %s ignored: already %s", checkoutRequestID, tx.Status)
		return tx, false, nil
	}

	updated, applied, err := s.ledger.UpdateStatus(ctx, checkoutRequestID, status, strconv.Itoa(resultCode), resultDesc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("%w: no transaction for checkout request %s", ErrUnknownTransaction, checkoutRequestID)
		}
		return nil, false, err
	}
	if !applied {
		// Lost the race against a concurrent delivery of the same callback.
		// The winner already owns the order transition.
		log.Printf("Callback for checkout request %s raced a duplicate: record already %s", checkoutRequestID, updated.Status)
		return updated, false, nil
	}

	log.Printf("Transaction %s reconciled: order=%s status=%s result_code=%d", checkoutRequestID, updated.OrderRef, status, resultCode)

	if status == models.StatusCompleted {
		if err := s.orders.MarkProcessing(ctx, updated.OrderRef); err != nil {
			// The transaction is completed but the order write failed. This
			// leaves a real inconsistency that needs manual reconciliation,
			// so it is surfaced loudly rather than swallowed.
			log.Printf("WARNING: transaction %s completed but order %s was not moved to processing, manual reconciliation needed: %v", checkoutRequestID, updated.OrderRef, err)
			return updated, true, fmt.Errorf("%w: order %s update after completed transaction: %v", ErrPersistence, updated.OrderRef, err)
		}
		log.Printf("Order %s moved to processing", updated.OrderRef)
	}

	return updated, true, nil
}

// ListTransactions returns ledger records filtered by optional status and
// RFC3339 creation date range, newest first.
func (s *PaymentService) ListTransactions(ctx context.Context, statusFilter, startDate, endDate *string) ([]models.PaymentTransaction, error) {
	var status *models.TransactionStatus
	if statusFilter != nil && *statusFilter != "" {
		st := models.TransactionStatus(*statusFilter)
		switch st {
		case models.StatusPending, models.StatusCompleted, models.StatusFailed:
			status = &st
		default:
			return nil, fmt.Errorf("%w: invalid status filter, must be pending, completed or failed", ErrValidation)
		}
	}

	var start, end *time.Time
	if startDate != nil && *startDate != "" && endDate != nil && *endDate != "" {
		from, err := time.Parse(time.RFC3339, *startDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid start_date format: %v", ErrValidation, err)
		}
		to, err := time.Parse(time.RFC3339, *endDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end_date format: %v", ErrValidation, err)
		}
		start, end = &from, &to
	}

	return s.ledger.List(ctx, status, start, end)
}
