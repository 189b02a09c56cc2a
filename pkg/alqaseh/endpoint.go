package alqaseh

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// ErrUnresolvedPlaceholder is returned when a path template still contains
// a {placeholder} after substitution.
var ErrUnresolvedPlaceholder = errors.New("alqaseh: unresolved path placeholder")

// Endpoint identifies one gateway operation
type Endpoint int

const (
	EndpointCreatePayment Endpoint = iota
	EndpointPaymentHistory
	EndpointDownloadPaymentHistory
	EndpointPaymentInfoByToken
	EndpointProcessPayment
	EndpointPaymentStatus
	EndpointRetryPayment
	EndpointRevokePayment
	EndpointPaymentDetails
)

type endpointSpec struct {
	name     string
	method   string
	template string
}

var endpoints = map[Endpoint]endpointSpec{
	EndpointCreatePayment:          {"createPayment", http.MethodPost, "/egw/payments/create"},
	EndpointPaymentHistory:         {"paymentHistory", http.MethodGet, "/egw/payments/history"},
	EndpointDownloadPaymentHistory: {"downloadPaymentHistory", http.MethodGet, "/egw/payments/history/download"},
	EndpointPaymentInfoByToken:     {"paymentInfoByToken", http.MethodGet, "/egw/payments/info/{token}"},
	EndpointProcessPayment:         {"processPayment", http.MethodPost, "/egw/payments/process/{token}"},
	EndpointPaymentStatus:          {"paymentStatus", http.MethodGet, "/payments/{transactionId}/status"},
	EndpointRetryPayment:           {"retryPayment", http.MethodPost, "/egw/payments/retry"},
	EndpointRevokePayment:          {"revokePayment", http.MethodPost, "/egw/payments/revoke"},
	EndpointPaymentDetails:         {"paymentDetails", http.MethodGet, "/egw/payments/{id}"},
}

var placeholderPattern = regexp.MustCompile(`\{[^{}/]+\}`)

// String returns the operation name
func (e Endpoint) String() string {
	if s, ok := endpoints[e]; ok {
		return s.name
	}
	return fmt.Sprintf("Endpoint(%d)", int(e))
}

// Method returns the HTTP method used by the endpoint
func (e Endpoint) Method() string {
	return endpoints[e].method
}

// Template returns the raw path template, placeholders included
func (e Endpoint) Template() string {
	return endpoints[e].template
}

// Path substitutes params into the template. Keys the template does not
// reference are ignored; a placeholder with no matching key is an error.
func (e Endpoint) Path(params map[string]string) (string, error) {
	s, ok := endpoints[e]
	if !ok {
		return "", fmt.Errorf("alqaseh: unknown endpoint %d", int(e))
	}

	path := s.template
	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", url.PathEscape(value))
	}

	if missing := placeholderPattern.FindAllString(path, -1); len(missing) > 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrUnresolvedPlaceholder, strings.Join(missing, ", "), s.name)
	}

	return path, nil
}
