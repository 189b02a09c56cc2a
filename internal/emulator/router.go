package emulator

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router. Gateway routes live
// under /v1, so a client points its base URL at <host>/v1.
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(h.RecoveryMiddleware)
	r.Use(h.LoggingMiddleware)

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/pay/{token}", h.PaymentPage).Methods("GET")
	r.HandleFunc("/ws/payments", h.hub.ServeWS).Methods("GET")

	// Gateway routes
	api := r.PathPrefix("/v1").Subrouter()
	api.Use(h.AuthMiddleware)

	api.HandleFunc("/egw/payments/create", h.CreatePayment).Methods("POST")
	api.HandleFunc("/egw/payments/retry", h.RetryPayment).Methods("POST")
	api.HandleFunc("/egw/payments/revoke", h.RevokePayment).Methods("POST")
	api.HandleFunc("/egw/payments/process/{token}", h.ProcessPayment).Methods("POST")
	api.HandleFunc("/egw/payments/history", h.GetPaymentHistory).Methods("GET")
	api.HandleFunc("/egw/payments/history/download", h.DownloadPaymentHistory).Methods("GET")
	api.HandleFunc("/egw/payments/info/{token}", h.GetPaymentInfoByToken).Methods("GET")
	api.HandleFunc("/egw/payments/{id}", h.GetPaymentDetails).Methods("GET")
	api.HandleFunc("/payments/{transactionId}/status", h.GetPaymentStatus).Methods("GET")

	return r
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
