package alqaseh

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest() *CreatePaymentRequest {
	return &CreatePaymentRequest{
		Amount:          100,
		Currency:        "IQD",
		OrderID:         "order-1",
		Description:     "Test Payment",
		RedirectURL:     "https://example.com/redirect",
		TransactionType: TransactionRetail,
	}
}

func requireInvalid(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %T", err)
	assert.Equal(t, field, vErr.Field)
}

func TestCreatePaymentRequest_Valid(t *testing.T) {
	require.NoError(t, validCreateRequest().Validate())

	req := validCreateRequest()
	req.Email = "test@example.com"
	req.Nonce = "n-1"
	req.Signature = "sig"
	req.CustomData = map[string]interface{}{"custom": "data"}
	require.NoError(t, req.Validate())
}

func TestCreatePaymentRequest_RequiredFieldsInOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *CreatePaymentRequest)
		field  string
	}{
		{"amount", func(r *CreatePaymentRequest) { r.Amount = 0 }, "amount"},
		{"currency", func(r *CreatePaymentRequest) { r.Currency = "" }, "currency"},
		{"order id", func(r *CreatePaymentRequest) { r.OrderID = "" }, "order_id"},
		{"description", func(r *CreatePaymentRequest) { r.Description = "" }, "description"},
		{"redirect url", func(r *CreatePaymentRequest) { r.RedirectURL = "" }, "redirect_url"},
		{"transaction type", func(r *CreatePaymentRequest) { r.TransactionType = "" }, "transaction_type"},
		{"first missing wins", func(r *CreatePaymentRequest) { r.Description = ""; r.Currency = "" }, "currency"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(req)
			requireInvalid(t, req.Validate(), tc.field)
		})
	}
}

func TestCreatePaymentRequest_Amount(t *testing.T) {
	for _, amount := range []float64{-1, -0.01, math.NaN(), math.Inf(1)} {
		req := validCreateRequest()
		req.Amount = amount
		err := req.Validate()
		requireInvalid(t, err, "amount")
		assert.Equal(t, "Amount must be a positive number", err.Error())
	}

	req := validCreateRequest()
	req.Amount = 0.01
	require.NoError(t, req.Validate())
}

func TestCreatePaymentRequest_Limits(t *testing.T) {
	t.Run("order id 250 ok", func(t *testing.T) {
		req := validCreateRequest()
		req.OrderID = strings.Repeat("o", 250)
		require.NoError(t, req.Validate())
	})

	t.Run("order id 251", func(t *testing.T) {
		req := validCreateRequest()
		req.OrderID = strings.Repeat("o", 251)
		requireInvalid(t, req.Validate(), "order_id")
	})

	t.Run("transaction type", func(t *testing.T) {
		req := validCreateRequest()
		req.TransactionType = "Refund"
		requireInvalid(t, req.Validate(), "transaction_type")
	})

	t.Run("email", func(t *testing.T) {
		req := validCreateRequest()
		req.Email = strings.Repeat("e", 81)
		requireInvalid(t, req.Validate(), "email")
	})

	t.Run("nonce", func(t *testing.T) {
		req := validCreateRequest()
		req.Nonce = strings.Repeat("n", 65)
		requireInvalid(t, req.Validate(), "nonce")
	})

	t.Run("signature", func(t *testing.T) {
		req := validCreateRequest()
		req.Signature = strings.Repeat("s", 257)
		requireInvalid(t, req.Validate(), "p_sing")

		req.Signature = strings.Repeat("s", 256)
		require.NoError(t, req.Validate())
	})

	t.Run("nil request", func(t *testing.T) {
		var req *CreatePaymentRequest
		requireInvalid(t, req.Validate(), "request")
	})
}

func TestCreatePaymentRequest_AllTransactionTypes(t *testing.T) {
	for _, tt := range []TransactionType{TransactionRetail, TransactionAuthorization, TransactionReversal, TransactionCompleteSales} {
		req := validCreateRequest()
		req.TransactionType = tt
		assert.NoError(t, req.Validate(), tt)
	}
}

func TestHistoryQuery_Validate(t *testing.T) {
	var nilQuery *HistoryQuery
	require.NoError(t, nilQuery.Validate())
	require.NoError(t, (&HistoryQuery{}).Validate())

	valid := &HistoryQuery{
		Limit:           Int(0),
		Offset:          Int(10),
		OrderBy:         SortAsc,
		Amount:          Float(10.5),
		PaymentStatus:   StatusSucceeded,
		TransactionType: TransactionAuthorization,
		From:            "2024-01-01",
		To:              "2024-12-31T23:59:59Z",
		Language:        "EN",
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name  string
		query HistoryQuery
		field string
	}{
		{"negative limit", HistoryQuery{Limit: Int(-1)}, "limit"},
		{"negative offset", HistoryQuery{Offset: Int(-5)}, "offset"},
		{"order by", HistoryQuery{OrderBy: "up"}, "order_by"},
		{"amount nan", HistoryQuery{Amount: Float(math.NaN())}, "amount"},
		{"payment status", HistoryQuery{PaymentStatus: "invalid-status"}, "payment_status"},
		{"transaction type", HistoryQuery{TransactionType: "retail"}, "transaction_type"},
		{"from", HistoryQuery{From: "yesterday-ish"}, "from"},
		{"from month out of range", HistoryQuery{From: "13/01/2024"}, "from"},
		{"to", HistoryQuery{To: "2024-13-45"}, "to"},
		{"language length", HistoryQuery{Language: "eng"}, "language"},
		{"language digits", HistoryQuery{Language: "e1"}, "language"},
		{"limit before status", HistoryQuery{Limit: Int(-1), PaymentStatus: "bogus"}, "limit"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.query
			requireInvalid(t, q.Validate(), tc.field)
		})
	}
}

func TestHistoryQuery_DateForms(t *testing.T) {
	for _, value := range []string{
		"2024-01-15",
		"2024-1-5",
		"2024-01-15 10:00",
		"2024-01-15 10:00:30",
		"2024-01-15T10:00",
		"2024-01-15T10:00:00+03:00",
		"2024/01/15",
		"2024/01/15 10:00",
		"01/15/2024",
		"1/5/2024 08:30",
		"15-01-2024",
		"15.01.2024",
		"15 January 2024",
		"5 Jan 2024",
		"January 15, 2024",
		"Jan 15 2024",
		"20240115",
		"Mon, 15 Jan 2024 10:00:00 GMT",
	} {
		t.Run(value, func(t *testing.T) {
			assert.NoError(t, (&HistoryQuery{From: value, To: value}).Validate())
			assert.NoError(t, (&HistoryQuery{From: value}).ValidateDownload())
		})
	}

	got, ok := ParseDate("15 January 2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseDate("01/15/2024")
	require.True(t, ok)
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 15, got.Day())
}

func TestCreatePaymentRequest_CustomDataMustEncode(t *testing.T) {
	for name, value := range map[string]interface{}{
		"nan":     math.NaN(),
		"func":    func() {},
		"channel": make(chan int),
	} {
		t.Run(name, func(t *testing.T) {
			req := validCreateRequest()
			req.CustomData = map[string]interface{}{"x": value}
			requireInvalid(t, req.Validate(), "custom_data")
		})
	}

	req := validCreateRequest()
	req.CustomData = map[string]interface{}{"cart": []string{"a", "b"}, "total": 2}
	assert.NoError(t, req.Validate())
}

func TestHistoryQuery_ValidateDownload(t *testing.T) {
	q := &HistoryQuery{Currency: "   "}
	require.NoError(t, q.Validate())
	requireInvalid(t, q.ValidateDownload(), "currency")

	for _, tc := range []struct {
		field string
		query HistoryQuery
	}{
		{"approval", HistoryQuery{Approval: " "}},
		{"order_id", HistoryQuery{OrderID: "\t"}},
		{"payment_id", HistoryQuery{PaymentID: "  "}},
		{"rc", HistoryQuery{RC: " "}},
		{"rrn", HistoryQuery{RRN: " "}},
	} {
		q := tc.query
		requireInvalid(t, q.ValidateDownload(), tc.field)
	}

	require.NoError(t, (&HistoryQuery{Approval: "A1", RRN: "123"}).ValidateDownload())
	requireInvalid(t, (&HistoryQuery{PaymentStatus: "nope"}).ValidateDownload(), "payment_status")
}

func TestValidateIdentifier(t *testing.T) {
	requireInvalid(t, validateIdentifier("id", "Payment ID", ""), "id")
	requireInvalid(t, validateIdentifier("id", "Payment ID", "  \t"), "id")
	require.NoError(t, validateIdentifier("id", "Payment ID", "p-1"))
}

func TestProcessPaymentRequest_Validate(t *testing.T) {
	now := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)
	valid := func() *ProcessPaymentRequest {
		return &ProcessPaymentRequest{
			CardNumber: "5341432908085972",
			CVV:        "972",
			ExpMonth:   "11",
			ExpYear:    "28",
		}
	}

	require.NoError(t, valid().validateAt(now))

	cases := []struct {
		name   string
		mutate func(r *ProcessPaymentRequest)
		field  string
	}{
		{"missing card", func(r *ProcessPaymentRequest) { r.CardNumber = "" }, "CardNumber"},
		{"missing cvv", func(r *ProcessPaymentRequest) { r.CVV = "" }, "Cvv"},
		{"missing month", func(r *ProcessPaymentRequest) { r.ExpMonth = "" }, "EXPMon"},
		{"missing year", func(r *ProcessPaymentRequest) { r.ExpYear = "" }, "EXPYear"},
		{"short card", func(r *ProcessPaymentRequest) { r.CardNumber = "123" }, "CardNumber"},
		{"long card", func(r *ProcessPaymentRequest) { r.CardNumber = strings.Repeat("4", 20) }, "CardNumber"},
		{"card letters", func(r *ProcessPaymentRequest) { r.CardNumber = "4111-1111-1111-1111" }, "CardNumber"},
		{"cvv short", func(r *ProcessPaymentRequest) { r.CVV = "12" }, "Cvv"},
		{"cvv letters", func(r *ProcessPaymentRequest) { r.CVV = "12a" }, "Cvv"},
		{"month zero", func(r *ProcessPaymentRequest) { r.ExpMonth = "0" }, "EXPMon"},
		{"month thirteen", func(r *ProcessPaymentRequest) { r.ExpMonth = "13" }, "EXPMon"},
		{"month text", func(r *ProcessPaymentRequest) { r.ExpMonth = "nov" }, "EXPMon"},
		{"year past", func(r *ProcessPaymentRequest) { r.ExpYear = "25" }, "EXPYear"},
		{"year too far", func(r *ProcessPaymentRequest) { r.ExpYear = "47" }, "EXPYear"},
		{"four digit year", func(r *ProcessPaymentRequest) { r.ExpYear = "2030" }, "EXPYear"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(req)
			requireInvalid(t, req.validateAt(now), tc.field)
		})
	}

	t.Run("year window bounds", func(t *testing.T) {
		req := valid()
		req.ExpYear = "26"
		require.NoError(t, req.validateAt(now))
		req.ExpYear = "46"
		require.NoError(t, req.validateAt(now))
	})

	t.Run("card lengths", func(t *testing.T) {
		req := valid()
		req.CardNumber = strings.Repeat("4", 13)
		require.NoError(t, req.validateAt(now))
		req.CardNumber = strings.Repeat("4", 19)
		require.NoError(t, req.validateAt(now))
	})
}

func TestRetryAndRevoke_Validate(t *testing.T) {
	requireInvalid(t, (&RetryPaymentRequest{}).Validate(), "payment_id")
	require.NoError(t, (&RetryPaymentRequest{PaymentID: strings.Repeat("p", 400), Details: String(strings.Repeat("d", 1000))}).Validate())

	requireInvalid(t, (&RevokePaymentRequest{}).Validate(), "payment_id")
	requireInvalid(t, (&RevokePaymentRequest{PaymentID: strings.Repeat("p", 251)}).Validate(), "payment_id")
	require.NoError(t, (&RevokePaymentRequest{PaymentID: strings.Repeat("p", 250), Details: String("customer cancelled")}).Validate())
}

func TestValidation_Idempotent(t *testing.T) {
	now := time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)

	bad := &CreatePaymentRequest{Amount: -5, Currency: "IQD", OrderID: "o", Description: "d", RedirectURL: "r", TransactionType: TransactionRetail}
	first := bad.Validate()
	second := bad.Validate()
	assert.Equal(t, first, second)
	assert.Equal(t, float64(-5), bad.Amount)

	card := &ProcessPaymentRequest{CardNumber: "4111111111111111", CVV: "123", ExpMonth: "1", ExpYear: "30"}
	require.NoError(t, card.validateAt(now))
	require.NoError(t, card.validateAt(now))

	q := &HistoryQuery{PaymentStatus: StatusSucceeded}
	require.NoError(t, q.Validate())
	require.NoError(t, q.Validate())
	assert.Nil(t, q.Limit)
}
