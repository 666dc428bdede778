package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"

	"github.com/dukapay/dukapay-gobackend/internal/config"
	"github.com/dukapay/dukapay-gobackend/internal/models"
	"github.com/dukapay/dukapay-gobackend/internal/mpesa"
	"github.com/dukapay/dukapay-gobackend/internal/services"
)

// PaymentService is the slice of the payment core the HTTP layer needs.
type PaymentService interface {
	InitiateSTKPush(ctx context.Context, orderRef, phoneNumber string, amount int64) (*services.STKPushAck, error)
	HandleCallback(ctx context.Context, cb services.STKCallback) error
	MarkPaid(ctx context.Context, checkoutRequestID string) (*models.PaymentTransaction, error)
	ListTransactions(ctx context.Context, statusFilter, startDate, endDate *string) ([]models.PaymentTransaction, error)
}

type PaymentHandler struct {
	service   PaymentService
	jwtSecret []byte
}

func NewPaymentHandler(service PaymentService, jwtSecret []byte) *PaymentHandler {
	return &PaymentHandler{service: service, jwtSecret: jwtSecret}
}

type stkPushRequest struct {
	OrderID     string `json:"orderId"`
	PhoneNumber string `json:"phoneNumber"`
	Amount      int64  `json:"amount"`
}

type callbackEnvelope struct {
	Body struct {
		StkCallback services.STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// InitiateSTKPush accepts {orderId, phoneNumber, amount} and answers with
// the gateway's acceptance. Validation, configuration and all gateway
// failure points come back as 400 with a human-readable message.
func (h *PaymentHandler) InitiateSTKPush(w http.ResponseWriter, r *http.Request) {
	var req stkPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		return
	}

	ack, err := h.service.InitiateSTKPush(r.Context(), req.OrderID, req.PhoneNumber, req.Amount)
	if err != nil {
		log.Printf("Failed to initiate STK push for order %s: %v", req.OrderID, err)
		writeJSON(w, initiateStatus(err), map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": ack.Message,
		"data":    ack.Data,
	})
}

func initiateStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, config.ErrNotConfigured),
		errors.Is(err, mpesa.ErrAuth),
		errors.Is(err, mpesa.ErrTimeout),
		errors.Is(err, mpesa.ErrRequest),
		errors.Is(err, mpesa.ErrRejected):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Callback receives the gateway's asynchronous result. A callback that
// matches no ledger record is acknowledged with 200 so the gateway stops
// redelivering; only persistence failures come back as errors.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var payload callbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Invalid callback payload",
		})
		return
	}

	cb := payload.Body.StkCallback
	if err := h.service.HandleCallback(r.Context(), cb); err != nil {
		if errors.Is(err, services.ErrUnknownTransaction) {
			log.Printf("Callback rejected: %v", err)
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
			return
		}
		log.Printf("Callback processing failed for checkout request %s: %v", cb.CheckoutRequestID, err)
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("Callback processing failed: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MarkPaid is the operator's manual completion path, guarded by a JWT
// bearer token.
func (h *PaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "Authorization header required",
		})
		return
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "Invalid token",
		})
		return
	}

	checkoutRequestID := mux.Vars(r)["checkoutRequestID"]
	if checkoutRequestID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Checkout request ID is required",
		})
		return
	}

	tx, err := h.service.MarkPaid(r.Context(), checkoutRequestID)
	if err != nil {
		log.Printf("Failed to mark transaction %s as paid: %v", checkoutRequestID, err)
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrUnknownTransaction) || errors.Is(err, services.ErrConflict) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tx,
	})
}

// ListTransactions serves the admin listing with optional status and
// RFC3339 date range filters.
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")

	var statusPtr, startDatePtr, endDatePtr *string
	if statusFilter != "" {
		statusPtr = &statusFilter
	}
	if startDate != "" {
		startDatePtr = &startDate
	}
	if endDate != "" {
		endDatePtr = &endDate
	}

	txs, err := h.service.ListTransactions(r.Context(), statusPtr, startDatePtr, endDatePtr)
	if err != nil {
		log.Printf("Failed to list transactions: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txs,
	})
}
