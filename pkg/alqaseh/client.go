package alqaseh

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPDoer is the transport the client sends requests through.
// *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an AlQaseh payment gateway API client. It keeps no state between
// calls and is safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient HTTPDoer
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a new AlQaseh API client. TLS verification is disabled
// in sandbox mode only, because the test host does not serve a valid chain.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := config.resolve()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Sandbox {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// NewClientWithHTTPClient creates a new AlQaseh API client with a custom transport
func NewClientWithHTTPClient(config *ClientConfig, httpClient HTTPDoer) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := config.resolve()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        time.Now,
	}
}

// BaseURL returns the effective base URL after the sandbox override
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Sandbox reports whether the client runs against the sandbox
func (c *Client) Sandbox() bool {
	return c.config.Sandbox
}

func (c *Client) headers() http.Header {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.config.MerchantID + ":" + c.config.APIKey))

	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("API-Key", c.config.APIKey)
	h.Set("X-Merchant-ID", c.config.MerchantID)
	h.Set("Authorization", "Basic "+credentials)
	return h
}

// doRequest resolves the endpoint, performs exactly one HTTP call and maps
// the outcome to a *PaymentResponse or a *GatewayError.
func (c *Client) doRequest(ctx context.Context, endpoint Endpoint, params map[string]string, query url.Values, body interface{}) (*PaymentResponse, error) {
	path, err := endpoint.Path(params)
	if err != nil {
		return nil, err
	}

	target := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, &ValidationError{Field: "request", Message: "request body is not JSON-encodable: " + err.Error()}
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, endpoint.Method(), target, reader)
	if err != nil {
		return nil, transportError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header = c.headers()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("alqaseh request failed",
			zap.String("operation", endpoint.String()),
			zap.Error(err),
		)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("alqaseh request completed",
		zap.String("operation", endpoint.String()),
		zap.String("method", endpoint.Method()),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	result := NewPaymentResponse(resp.StatusCode, respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gErr := gatewayError(result)
		c.logger.Warn("alqaseh gateway error",
			zap.String("operation", endpoint.String()),
			zap.Int("status", resp.StatusCode),
			zap.String("reference_code", gErr.ReferenceCode),
		)
		return nil, gErr
	}

	if details := result.ErrorDetails(); details != nil && details.Message != "" {
		return nil, gatewayError(result)
	}

	return result, nil
}

func gatewayError(resp *PaymentResponse) *GatewayError {
	gErr := &GatewayError{
		Kind:       KindGateway,
		Message:    "Unknown error occurred",
		HTTPStatus: resp.StatusCode(),
	}
	if details := resp.ErrorDetails(); details != nil {
		if details.Message != "" {
			gErr.Message = details.Message
		}
		gErr.ErrorCode = details.Code
		gErr.ReferenceCode = details.Reference
	}
	return gErr
}

// CreatePayment creates a new payment and returns its token and payment URL
func (c *Client) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointCreatePayment, nil, nil, req)
}

// GetPaymentHistory lists payments matching query
func (c *Client) GetPaymentHistory(ctx context.Context, query *HistoryQuery) (*PaymentResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointPaymentHistory, nil, query.values(), nil)
}

// DownloadPaymentHistory fetches the CSV export of payments matching query.
// The CSV is available through Raw on the returned response.
func (c *Client) DownloadPaymentHistory(ctx context.Context, query *HistoryQuery) (*PaymentResponse, error) {
	if err := query.ValidateDownload(); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointDownloadPaymentHistory, nil, query.values(), nil)
}

// GetPaymentInfo retrieves payment details by payment ID
func (c *Client) GetPaymentInfo(ctx context.Context, id string) (*PaymentResponse, error) {
	if err := validateIdentifier("id", "Payment ID", id); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointPaymentDetails, map[string]string{"id": id}, nil, nil)
}

// GetPaymentInfoByToken retrieves payment details by the token returned from CreatePayment
func (c *Client) GetPaymentInfoByToken(ctx context.Context, token string) (*PaymentResponse, error) {
	if err := validateIdentifier("token", "Payment token", token); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointPaymentInfoByToken, map[string]string{"token": token}, nil, nil)
}

// GetPaymentStatus retrieves the status of a processed transaction
func (c *Client) GetPaymentStatus(ctx context.Context, transactionID string) (*PaymentResponse, error) {
	if err := validateIdentifier("transactionId", "Transaction ID", transactionID); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointPaymentStatus, map[string]string{"transactionId": transactionID}, nil, nil)
}

// ProcessPayment charges a card against a payment token
func (c *Client) ProcessPayment(ctx context.Context, token string, req *ProcessPaymentRequest) (*PaymentResponse, error) {
	if err := validateIdentifier("token", "Payment token", token); err != nil {
		return nil, err
	}
	if err := req.validateAt(c.now()); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointProcessPayment, map[string]string{"token": token}, nil, req)
}

// RetryPayment retries a failed or expired payment
func (c *Client) RetryPayment(ctx context.Context, req *RetryPaymentRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointRetryPayment, nil, nil, req)
}

// RevokePayment revokes a payment before it is processed
func (c *Client) RevokePayment(ctx context.Context, req *RevokePaymentRequest) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.doRequest(ctx, EndpointRevokePayment, nil, nil, req)
}

// values merges the pagination defaults with the caller's query
func (q *HistoryQuery) values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(DefaultHistoryLimit))
	v.Set("offset", strconv.Itoa(DefaultHistoryOffset))
	v.Set("order_by", string(DefaultHistoryOrderBy))
	v.Set("order_field", DefaultHistoryOrderField)

	if q == nil {
		return v
	}

	if q.Limit != nil {
		v.Set("limit", strconv.Itoa(*q.Limit))
	}
	if q.Offset != nil {
		v.Set("offset", strconv.Itoa(*q.Offset))
	}
	if q.OrderBy != "" {
		v.Set("order_by", string(q.OrderBy))
	}
	if q.OrderField != "" {
		v.Set("order_field", q.OrderField)
	}
	if q.Amount != nil {
		v.Set("amount", strconv.FormatFloat(*q.Amount, 'f', -1, 64))
	}

	for key, value := range map[string]string{
		"approval":         q.Approval,
		"currency":         q.Currency,
		"from":             q.From,
		"to":               q.To,
		"language":         q.Language,
		"order_id":         q.OrderID,
		"payment_id":       q.PaymentID,
		"payment_status":   string(q.PaymentStatus),
		"rc":               q.RC,
		"rrn":              q.RRN,
		"transaction_type": string(q.TransactionType),
	} {
		if value != "" {
			v.Set(key, value)
		}
	}

	return v
}
