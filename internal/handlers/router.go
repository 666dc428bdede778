package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// CORS answers cross-origin preflights with permissive headers and stamps
// every response so browser storefronts can call the payment endpoints
// directly.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter wires all HTTP routes.
func NewRouter(payments *PaymentHandler, orders *OrderHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(CORS)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
			"success": false,
			"error":   "Method not allowed",
		})
	})

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "HEAD")

	router.HandleFunc("/api/payment/stkpush", payments.InitiateSTKPush).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/payment/callback", payments.Callback).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/payments", payments.ListTransactions).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/admin/payment/{checkoutRequestID}/markpaid", payments.MarkPaid).Methods("POST", "OPTIONS")

	router.HandleFunc("/api/order", orders.CreateOrder).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/order/{orderID}", orders.GetOrder).Methods("GET", "OPTIONS")

	return router
}
