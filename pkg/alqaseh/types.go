// Package alqaseh provides a client for the AlQaseh payment gateway API
package alqaseh

import (
	"time"

	"go.uber.org/zap"
)

// Sandbox credentials published by AlQaseh for testing
const (
	SandboxAPIKey     = "1X6Bvq65kpx1Yes5fYA5mbm8ixiexONo"
	SandboxMerchantID = "public_test"
	SandboxBaseURL    = "https://api-test.alqaseh.com/v1"
	ProductionBaseURL = "https://api.alqaseh.com/v1"
)

// Defaults applied to history queries before caller values
const (
	DefaultHistoryLimit      = 20
	DefaultHistoryOffset     = 0
	DefaultHistoryOrderBy    = SortDesc
	DefaultHistoryOrderField = "created_at"
)

// TransactionType represents how the gateway settles a payment
type TransactionType string

const (
	TransactionRetail        TransactionType = "Retail"
	TransactionAuthorization TransactionType = "Authorization"
	TransactionReversal      TransactionType = "Reversal"
	TransactionCompleteSales TransactionType = "CompleteSales"
)

// PaymentStatus represents the gateway-side state of a payment
type PaymentStatus string

const (
	StatusPrepared   PaymentStatus = "prepared"
	StatusRevoked    PaymentStatus = "revoked"
	StatusFailed     PaymentStatus = "failed"
	StatusRetried    PaymentStatus = "retried"
	StatusSucceeded  PaymentStatus = "succeeded"
	StatusExpired    PaymentStatus = "expired"
	StatusDuplicated PaymentStatus = "duplicated"
	StatusDeclined   PaymentStatus = "declined"
	StatusUnknown    PaymentStatus = "unknown"
)

// SortOrder is the history ordering direction
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// CreatePaymentRequest is the request body for /egw/payments/create
type CreatePaymentRequest struct {
	Amount          float64                `json:"amount"`
	Currency        string                 `json:"currency"`
	OrderID         string                 `json:"order_id"`
	Description     string                 `json:"description"`
	RedirectURL     string                 `json:"redirect_url"`
	TransactionType TransactionType        `json:"transaction_type"`
	Country         string                 `json:"country,omitempty"`
	CustomData      map[string]interface{} `json:"custom_data,omitempty"`
	Email           string                 `json:"email,omitempty"`
	Nonce           string                 `json:"nonce,omitempty"`
	Signature       string                 `json:"p_sing,omitempty"`
	WebhookURL      string                 `json:"webhook_url,omitempty"`
}

// HistoryQuery holds pagination and filters for the history endpoints.
// Nil and empty fields are not sent.
type HistoryQuery struct {
	Limit      *int
	Offset     *int
	OrderBy    SortOrder
	OrderField string

	Amount          *float64
	Approval        string
	Currency        string
	From            string
	To              string
	Language        string
	OrderID         string
	PaymentID       string
	PaymentStatus   PaymentStatus
	RC              string
	RRN             string
	TransactionType TransactionType
}

// ProcessPaymentRequest is the request body for /egw/payments/process/{token}
type ProcessPaymentRequest struct {
	CardNumber string `json:"CardNumber"`
	CVV        string `json:"Cvv"`
	ExpMonth   string `json:"EXPMon"`
	ExpYear    string `json:"EXPYear"`
}

// RetryPaymentRequest is the request body for /egw/payments/retry
type RetryPaymentRequest struct {
	PaymentID string  `json:"payment_id"`
	Details   *string `json:"details,omitempty"`
}

// RevokePaymentRequest is the request body for /egw/payments/revoke
type RevokePaymentRequest struct {
	PaymentID string  `json:"payment_id"`
	Details   *string `json:"details,omitempty"`
}

// ClientConfig holds the configuration for the AlQaseh client. The zero
// value targets production: a literal config talks to the live gateway
// unless Sandbox is set. Use DefaultConfig for a sandbox configuration.
type ClientConfig struct {
	APIKey     string
	MerchantID string
	BaseURL    string
	Sandbox    bool
	Timeout    time.Duration
	Logger     *zap.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Sandbox: true,
		Timeout: 30 * time.Second,
	}
}

// resolve applies the sandbox override and defaults. Sandbox mode always
// uses the published test credentials, whatever was supplied.
func (c ClientConfig) resolve() ClientConfig {
	if c.Sandbox {
		c.APIKey = SandboxAPIKey
		c.MerchantID = SandboxMerchantID
		c.BaseURL = SandboxBaseURL
	} else if c.BaseURL == "" {
		c.BaseURL = ProductionBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Int returns a pointer to n, for HistoryQuery pagination fields
func Int(n int) *int {
	return &n
}

// Float returns a pointer to f, for HistoryQuery.Amount
func Float(f float64) *float64 {
	return &f
}

// String returns a pointer to s, for optional details
func String(s string) *string {
	return &s
}
