package alqaseh

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PaymentResponse wraps a decoded gateway body. It does not assume a schema:
// every accessor returns a zero value when the path is absent or not a scalar.
type PaymentResponse struct {
	status int
	raw    []byte
	data   map[string]interface{}
}

// ErrorDetails is the structured error embedded in some gateway bodies
type ErrorDetails struct {
	Message   string
	Code      string
	Reference string
}

// NewPaymentResponse wraps a raw body. Bodies that are not JSON objects
// (CSV downloads, plain text) are kept in Raw and project nothing.
func NewPaymentResponse(status int, raw []byte) *PaymentResponse {
	return &PaymentResponse{
		status: status,
		raw:    raw,
		data:   decodeObject(raw),
	}
}

func decodeObject(raw []byte) map[string]interface{} {
	data := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return data
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return data
}

// IsSuccessful reports whether the body carries "success": true
func (r *PaymentResponse) IsSuccessful() bool {
	v, ok := r.Lookup("success")
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// TransactionID returns data.transactionId
func (r *PaymentResponse) TransactionID() string {
	return r.String("data", "transactionId")
}

// PaymentURL returns data.paymentUrl
func (r *PaymentResponse) PaymentURL() string {
	return r.String("data", "paymentUrl")
}

// ErrorMessage returns message, or "Unknown error" when absent or null.
// An empty message is returned as is.
func (r *PaymentResponse) ErrorMessage() string {
	if _, ok := r.Lookup("message"); ok {
		return r.String("message")
	}
	return "Unknown error"
}

// ErrorCode returns code; numeric codes are rendered as strings
func (r *PaymentResponse) ErrorCode() string {
	return r.String("code")
}

// PaymentID returns payment_id
func (r *PaymentResponse) PaymentID() string {
	return r.String("payment_id")
}

// Token returns token
func (r *PaymentResponse) Token() string {
	return r.String("token")
}

// ErrorDetails returns the err/error_code/reference_code triple, or nil when
// the body has no err field.
func (r *PaymentResponse) ErrorDetails() *ErrorDetails {
	if _, ok := r.Lookup("err"); !ok {
		return nil
	}
	return &ErrorDetails{
		Message:   r.String("err"),
		Code:      r.String("error_code"),
		Reference: r.String("reference_code"),
	}
}

// Data returns the decoded body; empty when the body was not a JSON object
func (r *PaymentResponse) Data() map[string]interface{} {
	return r.data
}

// Raw returns the body bytes as received
func (r *PaymentResponse) Raw() []byte {
	return r.raw
}

// StatusCode returns the HTTP status of the response
func (r *PaymentResponse) StatusCode() int {
	return r.status
}

// Lookup walks nested objects along path
func (r *PaymentResponse) Lookup(path ...string) (interface{}, bool) {
	if r == nil || len(path) == 0 {
		return nil, false
	}

	var cur interface{} = r.data
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the scalar at path as a string, or "" if it is absent or
// an object/array.
func (r *PaymentResponse) String(path ...string) string {
	v, ok := r.Lookup(path...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
