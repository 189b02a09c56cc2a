// Package emulator serves a sandbox rendition of the AlQaseh gateway API.
// It speaks the same wire contract as the real gateway so the client can be
// exercised end to end without network access.
package emulator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/alexbotov/alqaseh/pkg/alqaseh"
)

var (
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrInvalidTransition = errors.New("payment status does not allow this operation")
	ErrDuplicatePayment  = errors.New("payment already exists")
)

// Payment is the emulator's record of one gateway payment
type Payment struct {
	PaymentID       string                  `json:"payment_id"`
	TransactionID   string                  `json:"transaction_id"`
	OrderID         string                  `json:"order_id"`
	Amount          float64                 `json:"amount"`
	Currency        string                  `json:"currency"`
	Description     string                  `json:"description"`
	RedirectURL     string                  `json:"redirect_url"`
	WebhookURL      string                  `json:"webhook_url,omitempty"`
	Email           string                  `json:"email,omitempty"`
	Country         string                  `json:"country,omitempty"`
	TransactionType alqaseh.TransactionType `json:"transaction_type"`
	Status          alqaseh.PaymentStatus   `json:"payment_status"`
	RRN             string                  `json:"rrn,omitempty"`
	RC              string                  `json:"rc,omitempty"`
	Approval        string                  `json:"approval,omitempty"`
	CardMask        string                  `json:"card_mask,omitempty"`
	Details         string                  `json:"details,omitempty"`
	CustomData      map[string]interface{}  `json:"custom_data,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Filter selects and orders payments for the history endpoints
type Filter struct {
	// Limit caps the page size. Stores treat 0 as unbounded; the history
	// handlers never pass 0 through for an explicit limit=0 request.
	Limit      int
	Offset     int
	OrderBy    alqaseh.SortOrder
	OrderField string

	Amount          *float64
	Approval        string
	Currency        string
	OrderID         string
	PaymentID       string
	RC              string
	RRN             string
	Status          alqaseh.PaymentStatus
	TransactionType alqaseh.TransactionType
	From            *time.Time
	To              *time.Time
}

// orderFields maps the sortable history fields to their columns
var orderFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"amount":     "amount",
	"order_id":   "order_id",
	"status":     "status",
}

// sortField returns a whitelisted order field, defaulting to created_at
func (f Filter) sortField() string {
	if col, ok := orderFields[f.OrderField]; ok {
		return col
	}
	return "created_at"
}

// Store persists emulator payments
type Store interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, paymentID string) (*Payment, error)
	GetByTransaction(ctx context.Context, transactionID string) (*Payment, error)
	// Transition applies fn to the payment if its current status is one of
	// from, atomically with respect to other transitions.
	Transition(ctx context.Context, paymentID string, from []alqaseh.PaymentStatus, fn func(*Payment)) (*Payment, error)
	// List returns one page of matching payments and the total match count
	List(ctx context.Context, f Filter) ([]*Payment, int, error)
}

func (f Filter) matches(p *Payment) bool {
	switch {
	case f.Amount != nil && p.Amount != *f.Amount:
		return false
	case f.Approval != "" && p.Approval != f.Approval:
		return false
	case f.Currency != "" && !strings.EqualFold(p.Currency, f.Currency):
		return false
	case f.OrderID != "" && p.OrderID != f.OrderID:
		return false
	case f.PaymentID != "" && p.PaymentID != f.PaymentID:
		return false
	case f.RC != "" && p.RC != f.RC:
		return false
	case f.RRN != "" && p.RRN != f.RRN:
		return false
	case f.Status != "" && p.Status != f.Status:
		return false
	case f.TransactionType != "" && p.TransactionType != f.TransactionType:
		return false
	case f.From != nil && p.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && p.CreatedAt.After(*f.To):
		return false
	}
	return true
}

func sortPayments(payments []*Payment, f Filter) {
	less := func(a, b *Payment) bool {
		switch f.sortField() {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "amount":
			return a.Amount < b.Amount
		case "order_id":
			return a.OrderID < b.OrderID
		case "status":
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(payments, func(i, j int) bool {
		if f.OrderBy == alqaseh.SortAsc {
			return less(payments[i], payments[j])
		}
		return less(payments[j], payments[i])
	})
}

func allowed(status alqaseh.PaymentStatus, from []alqaseh.PaymentStatus) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}

func (p *Payment) clone() *Payment {
	c := *p
	if p.CustomData != nil {
		c.CustomData = make(map[string]interface{}, len(p.CustomData))
		for k, v := range p.CustomData {
			c.CustomData[k] = v
		}
	}
	return &c
}
