package emulator

import (
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexbotov/alqaseh/pkg/alqaseh"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Config holds the credentials and URLs the emulator answers with
type Config struct {
	APIKey     string
	MerchantID string
	// PublicURL prefixes the paymentUrl returned by create
	PublicURL string
	// PaymentTTL is how long a prepared payment stays payable
	PaymentTTL time.Duration
}

// Handler contains all HTTP handlers
type Handler struct {
	cfg    Config
	store  Store
	tokens *TokenService
	hub    *Hub
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new emulator handler
func New(cfg Config, store Store, tokens *TokenService, hub *Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PaymentTTL == 0 {
		cfg.PaymentTTL = 30 * time.Minute
	}
	return &Handler{
		cfg:    cfg,
		store:  store,
		tokens: tokens,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError writes the gateway's error shape: err, error_code and a
// fresh reference_code.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success":        false,
		"err":            message,
		"error_code":     code,
		"reference_code": uuid.NewString(),
	})
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
	case errors.Is(err, ErrInvalidTransition):
		respondError(w, http.StatusConflict, "INVALID_STATUS", fmt.Sprintf("Payment cannot be %s in its current status", action))
	default:
		h.logger.Error("payment store failure", zap.String("action", action), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func (h *Handler) paymentURL(token string) string {
	return strings.TrimRight(h.cfg.PublicURL, "/") + "/pay/" + token
}

// paymentData renders a payment the way the gateway nests it under data
func paymentData(p *Payment) map[string]interface{} {
	data := map[string]interface{}{
		"payment_id":       p.PaymentID,
		"transactionId":    p.TransactionID,
		"order_id":         p.OrderID,
		"amount":           p.Amount,
		"currency":         p.Currency,
		"description":      p.Description,
		"transaction_type": p.TransactionType,
		"payment_status":   p.Status,
		"created_at":       p.CreatedAt.Format(time.RFC3339),
		"updated_at":       p.UpdatedAt.Format(time.RFC3339),
	}
	for key, value := range map[string]string{
		"rrn":       p.RRN,
		"rc":        p.RC,
		"approval":  p.Approval,
		"card_mask": p.CardMask,
		"details":   p.Details,
		"email":     p.Email,
		"country":   p.Country,
	} {
		if value != "" {
			data[key] = value
		}
	}
	if p.CustomData != nil {
		data["custom_data"] = p.CustomData
	}
	return data
}

func (h *Handler) publish(eventType string, p *Payment) {
	h.hub.Publish(newEvent(eventType, p))
	h.logger.Info("payment status changed",
		zap.String("event", eventType),
		zap.String("payment_id", p.PaymentID),
		zap.String("status", string(p.Status)),
	)
}

// digits derives a fixed-width decimal string from a fresh UUID
func digits(n int) string {
	id := uuid.New()
	v := binary.BigEndian.Uint64(id[:8])
	s := strconv.FormatUint(v, 10)
	for len(s) < n {
		s = "0" + s
	}
	return s[len(s)-n:]
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"subscribers": h.hub.Subscribers(),
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":        "alqaseh-emulator",
		"version":     "1.0.0",
		"description": "Sandbox emulator for the AlQaseh payment gateway",
		"merchant_id": h.cfg.MerchantID,
	})
}

// === Payments ===

// CreatePayment handles POST /v1/egw/payments/create
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req alqaseh.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	now := h.now().UTC()
	p := &Payment{
		PaymentID:       uuid.NewString(),
		TransactionID:   uuid.NewString(),
		OrderID:         req.OrderID,
		Amount:          req.Amount,
		Currency:        strings.ToUpper(req.Currency),
		Description:     req.Description,
		RedirectURL:     req.RedirectURL,
		WebhookURL:      req.WebhookURL,
		Email:           req.Email,
		Country:         req.Country,
		TransactionType: req.TransactionType,
		Status:          alqaseh.StatusPrepared,
		CustomData:      req.CustomData,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	token, err := h.tokens.Issue(p.PaymentID, h.cfg.MerchantID)
	if err != nil {
		h.logger.Error("failed to issue payment token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	if err := h.store.Create(r.Context(), p); err != nil {
		h.respondStoreError(w, err, "created")
		return
	}
	h.publish("payment.created", p)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"payment_id": p.PaymentID,
		"token":      token,
		"data": map[string]interface{}{
			"transactionId": p.TransactionID,
			"paymentUrl":    h.paymentURL(token),
		},
	})
}

// paymentForToken verifies token and loads its payment, expiring it first
// when it has outlived the payment TTL.
func (h *Handler) paymentForToken(w http.ResponseWriter, r *http.Request) (*Payment, bool) {
	paymentID, err := h.tokens.Verify(mux.Vars(r)["token"])
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired payment token")
		return nil, false
	}

	p, err := h.store.Get(r.Context(), paymentID)
	if err != nil {
		h.respondStoreError(w, err, "loaded")
		return nil, false
	}
	return h.expireIfStale(r, p), true
}

func (h *Handler) expireIfStale(r *http.Request, p *Payment) *Payment {
	if p.Status != alqaseh.StatusPrepared || h.now().Sub(p.CreatedAt) <= h.cfg.PaymentTTL {
		return p
	}
	expired, err := h.store.Transition(r.Context(), p.PaymentID, []alqaseh.PaymentStatus{alqaseh.StatusPrepared}, func(p *Payment) {
		p.Status = alqaseh.StatusExpired
	})
	if err != nil {
		return p
	}
	h.publish("payment.expired", expired)
	return expired
}

// GetPaymentInfoByToken handles GET /v1/egw/payments/info/{token}
func (h *Handler) GetPaymentInfoByToken(w http.ResponseWriter, r *http.Request) {
	p, ok := h.paymentForToken(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"payment_id": p.PaymentID,
		"data":       paymentData(p),
	})
}

// PaymentPage handles GET /pay/{token}, the hosted page paymentUrl points at
func (h *Handler) PaymentPage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.paymentForToken(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"order_id":     p.OrderID,
		"amount":       p.Amount,
		"currency":     p.Currency,
		"description":  p.Description,
		"status":       p.Status,
		"redirect_url": p.RedirectURL,
	})
}

// GetPaymentDetails handles GET /v1/egw/payments/{id}
func (h *Handler) GetPaymentDetails(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondStoreError(w, err, "loaded")
		return
	}
	p = h.expireIfStale(r, p)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"payment_id": p.PaymentID,
		"data":       paymentData(p),
	})
}

// GetPaymentStatus handles GET /v1/payments/{transactionId}/status
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetByTransaction(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		h.respondStoreError(w, err, "loaded")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"payment_id": p.PaymentID,
		"data": map[string]interface{}{
			"transactionId":  p.TransactionID,
			"payment_status": p.Status,
			"rc":             p.RC,
			"updated_at":     p.UpdatedAt.Format(time.RFC3339),
		},
	})
}

// ProcessPayment handles POST /v1/egw/payments/process/{token}
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.paymentForToken(w, r)
	if !ok {
		return
	}

	var req alqaseh.ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	approved := luhnValid(req.CardNumber)
	p, err := h.store.Transition(r.Context(), p.PaymentID, []alqaseh.PaymentStatus{alqaseh.StatusPrepared}, func(p *Payment) {
		p.CardMask = maskCard(req.CardNumber)
		p.RRN = digits(12)
		if approved {
			p.Status = alqaseh.StatusSucceeded
			p.RC = "00"
			p.Approval = digits(6)
		} else {
			p.Status = alqaseh.StatusDeclined
			p.RC = "05"
		}
	})
	if err != nil {
		h.respondStoreError(w, err, "processed")
		return
	}
	h.publish("payment."+string(p.Status), p)

	body := map[string]interface{}{
		"success":    approved,
		"payment_id": p.PaymentID,
		"data":       paymentData(p),
	}
	if !approved {
		body["message"] = "Card declined"
		body["code"] = p.RC
	}
	respondJSON(w, http.StatusOK, body)
}

// RetryPayment handles POST /v1/egw/payments/retry
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	var req alqaseh.RetryPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	retryable := []alqaseh.PaymentStatus{alqaseh.StatusFailed, alqaseh.StatusDeclined, alqaseh.StatusExpired}
	p, err := h.store.Transition(r.Context(), req.PaymentID, retryable, func(p *Payment) {
		p.Status = alqaseh.StatusRetried
		if req.Details != nil {
			p.Details = *req.Details
		}
	})
	if err != nil {
		h.respondStoreError(w, err, "retried")
		return
	}
	h.publish("payment.retried", p)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"payment_id": p.PaymentID,
		"data":       paymentData(p),
	})
}

// RevokePayment handles POST /v1/egw/payments/revoke
func (h *Handler) RevokePayment(w http.ResponseWriter, r *http.Request) {
	var req alqaseh.RevokePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	p, err := h.store.Transition(r.Context(), req.PaymentID, []alqaseh.PaymentStatus{alqaseh.StatusPrepared}, func(p *Payment) {
		p.Status = alqaseh.StatusRevoked
		if req.Details != nil {
			p.Details = *req.Details
		}
	})
	if err != nil {
		h.respondStoreError(w, err, "revoked")
		return
	}
	h.publish("payment.revoked", p)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"payment_id": p.PaymentID,
		"data":       paymentData(p),
	})
}

// === History ===

// historyQuery reads the history query string into the client's query type
// so the emulator applies the same validation rules as the client.
func historyQuery(r *http.Request) (*alqaseh.HistoryQuery, error) {
	v := r.URL.Query()
	q := &alqaseh.HistoryQuery{
		OrderBy:         alqaseh.SortOrder(v.Get("order_by")),
		OrderField:      v.Get("order_field"),
		Approval:        v.Get("approval"),
		Currency:        v.Get("currency"),
		From:            v.Get("from"),
		To:              v.Get("to"),
		Language:        v.Get("language"),
		OrderID:         v.Get("order_id"),
		PaymentID:       v.Get("payment_id"),
		PaymentStatus:   alqaseh.PaymentStatus(v.Get("payment_status")),
		RC:              v.Get("rc"),
		RRN:             v.Get("rrn"),
		TransactionType: alqaseh.TransactionType(v.Get("transaction_type")),
	}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New("Limit must be a positive integer")
		}
		q.Limit = alqaseh.Int(n)
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.New("Offset must be a positive integer")
		}
		q.Offset = alqaseh.Int(n)
	}
	if s := v.Get("amount"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.New("Amount must be a number")
		}
		q.Amount = alqaseh.Float(f)
	}
	return q, nil
}

// filterFor converts a validated query into a store filter
func filterFor(q *alqaseh.HistoryQuery) Filter {
	f := Filter{
		Limit:           alqaseh.DefaultHistoryLimit,
		Offset:          alqaseh.DefaultHistoryOffset,
		OrderBy:         alqaseh.DefaultHistoryOrderBy,
		OrderField:      alqaseh.DefaultHistoryOrderField,
		Amount:          q.Amount,
		Approval:        q.Approval,
		Currency:        q.Currency,
		OrderID:         q.OrderID,
		PaymentID:       q.PaymentID,
		RC:              q.RC,
		RRN:             q.RRN,
		Status:          q.PaymentStatus,
		TransactionType: q.TransactionType,
	}
	if q.Limit != nil {
		f.Limit = *q.Limit
	}
	if q.Offset != nil {
		f.Offset = *q.Offset
	}
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.OrderField != "" {
		f.OrderField = q.OrderField
	}
	if t, ok := alqaseh.ParseDate(q.From); ok {
		f.From = &t
	}
	if t, ok := alqaseh.ParseDate(q.To); ok {
		// a bare date covers the whole day
		if len(strings.TrimSpace(q.To)) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	return f
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request, download bool) ([]*Payment, Filter, int, bool) {
	q, err := historyQuery(r)
	if err == nil {
		if download {
			err = q.ValidateDownload()
		} else {
			err = q.Validate()
		}
	}
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return nil, Filter{}, 0, false
	}

	f := filterFor(q)
	payments, total, err := h.store.List(r.Context(), f)
	if err != nil {
		h.respondStoreError(w, err, "listed")
		return nil, Filter{}, 0, false
	}
	// limit=0 asks for the count only
	if f.Limit == 0 {
		payments = []*Payment{}
	}
	return payments, f, total, true
}

// GetPaymentHistory handles GET /v1/egw/payments/history
func (h *Handler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	payments, f, total, ok := h.listPayments(w, r, false)
	if !ok {
		return
	}

	list := make([]map[string]interface{}, len(payments))
	for i, p := range payments {
		list[i] = paymentData(p)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"payments": list,
			"total":    total,
			"limit":    f.Limit,
			"offset":   f.Offset,
		},
	})
}

var csvHeader = []string{
	"payment_id", "transaction_id", "order_id", "amount", "currency", "payment_status",
	"transaction_type", "rrn", "rc", "approval", "created_at",
}

// DownloadPaymentHistory handles GET /v1/egw/payments/history/download
func (h *Handler) DownloadPaymentHistory(w http.ResponseWriter, r *http.Request) {
	payments, _, _, ok := h.listPayments(w, r, true)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payments.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	for _, p := range payments {
		cw.Write([]string{
			p.PaymentID,
			p.TransactionID,
			p.OrderID,
			strconv.FormatFloat(p.Amount, 'f', -1, 64),
			p.Currency,
			string(p.Status),
			string(p.TransactionType),
			p.RRN,
			p.RC,
			p.Approval,
			p.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Warn("failed to write history csv", zap.Error(err))
	}
}
