package alqaseh

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_Table(t *testing.T) {
	cases := []struct {
		endpoint Endpoint
		method   string
		template string
	}{
		{EndpointCreatePayment, http.MethodPost, "/egw/payments/create"},
		{EndpointPaymentHistory, http.MethodGet, "/egw/payments/history"},
		{EndpointDownloadPaymentHistory, http.MethodGet, "/egw/payments/history/download"},
		{EndpointPaymentInfoByToken, http.MethodGet, "/egw/payments/info/{token}"},
		{EndpointProcessPayment, http.MethodPost, "/egw/payments/process/{token}"},
		{EndpointPaymentStatus, http.MethodGet, "/payments/{transactionId}/status"},
		{EndpointRetryPayment, http.MethodPost, "/egw/payments/retry"},
		{EndpointRevokePayment, http.MethodPost, "/egw/payments/revoke"},
		{EndpointPaymentDetails, http.MethodGet, "/egw/payments/{id}"},
	}

	for _, tc := range cases {
		t.Run(tc.endpoint.String(), func(t *testing.T) {
			assert.Equal(t, tc.method, tc.endpoint.Method())
			assert.Equal(t, tc.template, tc.endpoint.Template())
		})
	}
}

func TestEndpoint_PathSubstitution(t *testing.T) {
	path, err := EndpointPaymentInfoByToken.Path(map[string]string{"token": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "/egw/payments/info/abc", path)

	path, err = EndpointPaymentStatus.Path(map[string]string{"transactionId": "T1"})
	require.NoError(t, err)
	assert.Equal(t, "/payments/T1/status", path)
}

func TestEndpoint_PathIgnoresUnknownKeys(t *testing.T) {
	path, err := EndpointCreatePayment.Path(map[string]string{"token": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "/egw/payments/create", path)

	path, err = EndpointPaymentDetails.Path(map[string]string{"id": "p-1", "extra": "x"})
	require.NoError(t, err)
	assert.Equal(t, "/egw/payments/p-1", path)
}

func TestEndpoint_PathUnresolvedPlaceholder(t *testing.T) {
	_, err := EndpointProcessPayment.Path(nil)
	require.ErrorIs(t, err, ErrUnresolvedPlaceholder)

	_, err = EndpointPaymentDetails.Path(map[string]string{"token": "abc"})
	require.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	assert.Contains(t, err.Error(), "{id}")
}

func TestEndpoint_PathEscapesValues(t *testing.T) {
	path, err := EndpointPaymentDetails.Path(map[string]string{"id": "a/b c"})
	require.NoError(t, err)
	assert.Equal(t, "/egw/payments/a%2Fb%20c", path)
}

func TestEndpoint_Unknown(t *testing.T) {
	_, err := Endpoint(99).Path(nil)
	require.Error(t, err)
	assert.Equal(t, "Endpoint(99)", Endpoint(99).String())
}
