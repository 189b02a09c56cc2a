package alqaseh_test

import (
	"context"
	"encoding/base64"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/alexbotov/alqaseh/pkg/alqaseh"
	"github.com/alexbotov/alqaseh/pkg/alqaseh/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_ValidationFailuresNeverCallTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Times(0)

	client := alqaseh.NewClientWithHTTPClient(&alqaseh.ClientConfig{APIKey: "k", MerchantID: "m", BaseURL: "https://gw.example"}, doer)
	ctx := context.Background()

	calls := map[string]func() error{
		"create missing currency": func() error {
			_, err := client.CreatePayment(ctx, &alqaseh.CreatePaymentRequest{Amount: 10, OrderID: "o", Description: "d", RedirectURL: "r", TransactionType: alqaseh.TransactionRetail})
			return err
		},
		"create zero amount": func() error {
			_, err := client.CreatePayment(ctx, &alqaseh.CreatePaymentRequest{Currency: "IQD", OrderID: "o", Description: "d", RedirectURL: "r", TransactionType: alqaseh.TransactionRetail})
			return err
		},
		"create custom data nan": func() error {
			_, err := client.CreatePayment(ctx, &alqaseh.CreatePaymentRequest{Amount: 10, Currency: "IQD", OrderID: "o", Description: "d", RedirectURL: "r", TransactionType: alqaseh.TransactionRetail, CustomData: map[string]interface{}{"ratio": math.NaN()}})
			return err
		},
		"create nil": func() error {
			_, err := client.CreatePayment(ctx, nil)
			return err
		},
		"history status": func() error {
			_, err := client.GetPaymentHistory(ctx, &alqaseh.HistoryQuery{PaymentStatus: "invalid-status"})
			return err
		},
		"download blank rrn": func() error {
			_, err := client.DownloadPaymentHistory(ctx, &alqaseh.HistoryQuery{RRN: " "})
			return err
		},
		"info": func() error {
			_, err := client.GetPaymentInfo(ctx, " ")
			return err
		},
		"info by token": func() error {
			_, err := client.GetPaymentInfoByToken(ctx, "")
			return err
		},
		"status": func() error {
			_, err := client.GetPaymentStatus(ctx, "")
			return err
		},
		"process": func() error {
			_, err := client.ProcessPayment(ctx, "tok", &alqaseh.ProcessPaymentRequest{CardNumber: "4111111111111111"})
			return err
		},
		"retry": func() error {
			_, err := client.RetryPayment(ctx, &alqaseh.RetryPaymentRequest{})
			return err
		},
		"revoke": func() error {
			_, err := client.RevokePayment(ctx, &alqaseh.RevokePaymentRequest{PaymentID: strings.Repeat("x", 251)})
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, alqaseh.IsValidationError(err), "got %T: %v", err, err)
		})
	}
}

func TestClient_CreatePaymentIssuesOnePost(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)

	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "https://gw.example/v1/egw/payments/create", req.URL.String())
		return okResponse(`{"success": true, "token": "tok"}`), nil
	}).Times(1)

	client := alqaseh.NewClientWithHTTPClient(&alqaseh.ClientConfig{APIKey: "k", MerchantID: "m", BaseURL: "https://gw.example/v1"}, doer)
	resp, err := client.CreatePayment(context.Background(), &alqaseh.CreatePaymentRequest{
		Amount:          0.5,
		Currency:        "IQD",
		OrderID:         "o-1",
		Description:     "d",
		RedirectURL:     "https://shop.example/back",
		TransactionType: alqaseh.TransactionAuthorization,
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token())
}

func TestClient_HistoryStatusFilterIssuesOneGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)

	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/egw/payments/history", req.URL.Path)
		assert.Equal(t, "succeeded", req.URL.Query().Get("payment_status"))
		assert.Nil(t, req.Body)
		return okResponse(`{"success": true}`), nil
	}).Times(1)

	client := alqaseh.NewClientWithHTTPClient(&alqaseh.ClientConfig{APIKey: "k", MerchantID: "m", BaseURL: "https://gw.example"}, doer)
	_, err := client.GetPaymentHistory(context.Background(), &alqaseh.HistoryQuery{PaymentStatus: alqaseh.StatusSucceeded})
	require.NoError(t, err)
}

func TestClient_SandboxOverridesCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)

	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, alqaseh.SandboxAPIKey, req.Header.Get("API-Key"))
		assert.Equal(t, alqaseh.SandboxMerchantID, req.Header.Get("X-Merchant-ID"))
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte(alqaseh.SandboxMerchantID+":"+alqaseh.SandboxAPIKey))
		assert.Equal(t, want, req.Header.Get("Authorization"))
		assert.True(t, strings.HasPrefix(req.URL.String(), alqaseh.SandboxBaseURL+"/"))
		return okResponse(`{}`), nil
	}).Times(1)

	client := alqaseh.NewClientWithHTTPClient(&alqaseh.ClientConfig{
		APIKey:     "production-key",
		MerchantID: "production-merchant",
		BaseURL:    "https://api.alqaseh.com/v1",
		Sandbox:    true,
	}, doer)

	assert.True(t, client.Sandbox())
	assert.Equal(t, alqaseh.SandboxBaseURL, client.BaseURL())

	_, err := client.GetPaymentInfo(context.Background(), "pay-1")
	require.NoError(t, err)
}

func TestNewClient_BaseURL(t *testing.T) {
	sandbox := alqaseh.NewClient(alqaseh.DefaultConfig())
	assert.Equal(t, alqaseh.SandboxBaseURL, sandbox.BaseURL())

	prod := alqaseh.NewClient(&alqaseh.ClientConfig{APIKey: "k", MerchantID: "m"})
	assert.Equal(t, alqaseh.ProductionBaseURL, prod.BaseURL())
	assert.False(t, prod.Sandbox())

	literal := alqaseh.NewClient(&alqaseh.ClientConfig{})
	assert.Equal(t, alqaseh.ProductionBaseURL, literal.BaseURL())
	assert.False(t, literal.Sandbox())
}
