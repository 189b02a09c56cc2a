// Package alqaseh provides a client for the AlQaseh payment gateway API.
//
// The client covers the payment lifecycle exposed by the gateway: creating
// a payment, processing it with card details, inspecting it by ID, token or
// transaction, retrying or revoking it, and listing or downloading the
// payment history. Every operation validates its input locally and then
// performs exactly one HTTP request.
//
// # Authentication
//
// All API requests carry:
//   - API-Key: the merchant API key
//   - X-Merchant-ID: the merchant identifier
//   - Authorization: Basic base64(merchantID:apiKey)
//
// In sandbox mode the published test credentials and the test host are used
// regardless of the configured values, and TLS verification is disabled.
//
// # Basic Usage
//
//	client := alqaseh.NewClient(&alqaseh.ClientConfig{
//	    APIKey:     "your-api-key",
//	    MerchantID: "your-merchant-id",
//	    Sandbox:    false,
//	})
//
//	resp, err := client.CreatePayment(ctx, &alqaseh.CreatePaymentRequest{
//	    Amount:          100,
//	    Currency:        "IQD",
//	    OrderID:         "order-1",
//	    Description:     "Order #1",
//	    RedirectURL:     "https://shop.example/return",
//	    TransactionType: alqaseh.TransactionRetail,
//	})
//	token := resp.Token()
//
// # Error Handling
//
// Invalid input is returned as *ValidationError before anything is sent.
// Everything else is a *GatewayError; its Kind tells a gateway rejection
// apart from a connectivity failure:
//
//	resp, err := client.RevokePayment(ctx, req)
//	if gErr, ok := alqaseh.AsGatewayError(err); ok {
//	    if gErr.IsTransport() {
//	        // Network, TLS or timeout; gErr.Unwrap() holds the cause
//	    }
//	    log.Printf("rejected: %s ref=%s", gErr.Message, gErr.ReferenceCode)
//	}
package alqaseh
