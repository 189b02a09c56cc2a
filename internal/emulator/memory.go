package emulator

import (
	"context"
	"sync"
	"time"

	"github.com/alexbotov/alqaseh/pkg/alqaseh"
)

// MemoryStore keeps payments in process memory
type MemoryStore struct {
	mu            sync.RWMutex
	payments      map[string]*Payment
	byTransaction map[string]string
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:      make(map[string]*Payment),
		byTransaction: make(map[string]string),
		now:           time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.PaymentID]; exists {
		return ErrDuplicatePayment
	}
	s.payments[p.PaymentID] = p.clone()
	s.byTransaction[p.TransactionID] = p.PaymentID
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, paymentID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p.clone(), nil
}

func (s *MemoryStore) GetByTransaction(ctx context.Context, transactionID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTransaction[transactionID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return s.payments[id].clone(), nil
}

func (s *MemoryStore) Transition(ctx context.Context, paymentID string, from []alqaseh.PaymentStatus, fn func(*Payment)) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	if !allowed(p.Status, from) {
		return p.clone(), ErrInvalidTransition
	}

	fn(p)
	p.UpdatedAt = s.now().UTC()
	return p.clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]*Payment, int, error) {
	s.mu.RLock()
	matched := make([]*Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if f.matches(p) {
			matched = append(matched, p.clone())
		}
	}
	s.mu.RUnlock()

	sortPayments(matched, f)

	total := len(matched)
	if f.Offset >= total {
		return []*Payment{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}
