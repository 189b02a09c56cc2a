package alqaseh

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches nothing per call
var validate = validator.New()

var (
	transactionTypesTag = "oneof=Retail Authorization Reversal CompleteSales"
	paymentStatusesTag  = "oneof=prepared revoked failed retried succeeded expired duplicated declined unknown"
	orderByTag          = "oneof=asc desc"
)

// dateLayouts are the formats accepted for history from/to filters
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2-1-2006",
	"2.1.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"20060102",
	time.RFC1123,
	time.RFC1123Z,
	time.ANSIC,
}

func check(field string, value interface{}, tag, format string, args ...interface{}) error {
	if err := validate.Var(value, tag); err != nil {
		return invalid(field, format, args...)
	}
	return nil
}

// Validate checks a create-payment request. Checks run in a fixed order and
// stop at the first violation.
func (r *CreatePaymentRequest) Validate() error {
	if r == nil {
		return invalid("request", "payment request is required")
	}

	required := []struct {
		field   string
		missing bool
		label   string
	}{
		{"amount", r.Amount == 0, "Amount"},
		{"currency", r.Currency == "", "Currency"},
		{"order_id", r.OrderID == "", "Order ID"},
		{"description", r.Description == "", "Description"},
		{"redirect_url", r.RedirectURL == "", "Redirect URL"},
		{"transaction_type", r.TransactionType == "", "Transaction type"},
	}
	for _, f := range required {
		if f.missing {
			return invalid(f.field, "%s is required", f.label)
		}
	}

	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount <= 0 {
		return invalid("amount", "Amount must be a positive number")
	}
	if err := check("order_id", r.OrderID, "max=250", "Order ID must not exceed 250 characters"); err != nil {
		return err
	}
	if err := check("transaction_type", r.TransactionType, transactionTypesTag,
		"Invalid transaction type. Allowed types: Retail, Authorization, Reversal, CompleteSales"); err != nil {
		return err
	}

	if r.Email != "" {
		if err := check("email", r.Email, "max=80", "Email must not exceed 80 characters"); err != nil {
			return err
		}
	}
	if r.Nonce != "" {
		if err := check("nonce", r.Nonce, "min=1,max=64", "Nonce must be between 1 and 64 characters"); err != nil {
			return err
		}
	}
	if r.Signature != "" {
		if err := check("p_sing", r.Signature, "min=1,max=256", "P_sing must be between 1 and 256 characters"); err != nil {
			return err
		}
	}
	if r.CustomData != nil {
		if _, err := json.Marshal(r.CustomData); err != nil {
			return invalid("custom_data", "Custom data must be JSON-encodable")
		}
	}

	return nil
}

// Validate checks a payment-history query
func (q *HistoryQuery) Validate() error {
	return q.validate(false)
}

// ValidateDownload checks a query for the CSV download endpoint, which also
// rejects blank string filters.
func (q *HistoryQuery) ValidateDownload() error {
	return q.validate(true)
}

func (q *HistoryQuery) validate(download bool) error {
	if q == nil {
		return nil
	}

	if q.Limit != nil && *q.Limit < 0 {
		return invalid("limit", "Limit must be a positive integer")
	}
	if q.Offset != nil && *q.Offset < 0 {
		return invalid("offset", "Offset must be a positive integer")
	}
	if q.OrderBy != "" {
		if err := check("order_by", q.OrderBy, orderByTag, "Order by must be either asc or desc"); err != nil {
			return err
		}
	}
	if q.Amount != nil && (math.IsNaN(*q.Amount) || math.IsInf(*q.Amount, 0)) {
		return invalid("amount", "Amount must be a number")
	}
	if q.PaymentStatus != "" {
		if err := check("payment_status", q.PaymentStatus, paymentStatusesTag,
			"Invalid payment status. Allowed values: prepared, revoked, failed, retried, succeeded, expired, duplicated, declined, unknown"); err != nil {
			return err
		}
	}
	if q.TransactionType != "" {
		if err := check("transaction_type", q.TransactionType, transactionTypesTag,
			"Invalid transaction type. Allowed values: Retail, Authorization, Reversal, CompleteSales"); err != nil {
			return err
		}
	}
	if q.From != "" && !isDate(q.From) {
		return invalid("from", "Invalid date format for from")
	}
	if q.To != "" && !isDate(q.To) {
		return invalid("to", "Invalid date format for to")
	}
	if q.Language != "" {
		if err := check("language", strings.ToLower(q.Language), "len=2,alpha",
			"Invalid language code format. Must be a 2-letter code"); err != nil {
			return err
		}
	}

	if !download {
		return nil
	}

	for _, f := range []struct{ field, value string }{
		{"approval", q.Approval},
		{"currency", q.Currency},
		{"order_id", q.OrderID},
		{"payment_id", q.PaymentID},
		{"rc", q.RC},
		{"rrn", q.RRN},
	} {
		if f.value != "" && strings.TrimSpace(f.value) == "" {
			return invalid(f.field, "%s must be a non-empty string", f.field)
		}
	}

	return nil
}

func isDate(value string) bool {
	_, ok := ParseDate(value)
	return ok
}

// ParseDate parses a history from/to filter using the accepted layouts
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validateIdentifier rejects identifiers that are empty after trimming
func validateIdentifier(field, label, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "%s is required", label)
	}
	return nil
}

// Validate checks card details against the current clock
func (r *ProcessPaymentRequest) Validate() error {
	return r.validateAt(time.Now())
}

// validateAt compares the expiry year as two digits against now's two-digit
// year. A four-digit year such as 2030 is therefore rejected, and the window
// wraps badly near a century boundary.
func (r *ProcessPaymentRequest) validateAt(now time.Time) error {
	if r == nil {
		return invalid("request", "card details are required")
	}

	required := []struct{ field, value, label string }{
		{"CardNumber", r.CardNumber, "Card number"},
		{"Cvv", r.CVV, "CVV"},
		{"EXPMon", r.ExpMonth, "Expiration month"},
		{"EXPYear", r.ExpYear, "Expiration year"},
	}
	for _, f := range required {
		if f.value == "" {
			return invalid(f.field, "%s is required", f.label)
		}
	}

	if err := check("CardNumber", r.CardNumber, "number,min=13,max=19", "Invalid card number format"); err != nil {
		return err
	}
	if err := check("Cvv", r.CVV, "number,min=3,max=4", "CVV must be 3 or 4 digits"); err != nil {
		return err
	}

	month, err := strconv.Atoi(r.ExpMonth)
	if err != nil || month < 1 || month > 12 {
		return invalid("EXPMon", "Invalid expiration month (1-12)")
	}

	currentYear := now.Year() % 100
	year, err := strconv.Atoi(r.ExpYear)
	if err != nil || year < currentYear || year > currentYear+20 {
		return invalid("EXPYear", "Invalid expiration year")
	}

	return nil
}

// Validate checks a retry request
func (r *RetryPaymentRequest) Validate() error {
	if r == nil || r.PaymentID == "" {
		return invalid("payment_id", "Payment ID is required")
	}
	return nil
}

// Validate checks a revoke request
func (r *RevokePaymentRequest) Validate() error {
	if r == nil || r.PaymentID == "" {
		return invalid("payment_id", "Payment ID is required")
	}
	return check("payment_id", r.PaymentID, "max=250", "Payment ID must not exceed 250 characters")
}
