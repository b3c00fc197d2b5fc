package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andenet/shop-backend/internal/models"
)

// MemoryOrderStore is an in-memory OrderStore for tests and local runs.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

// NewMemoryOrderStore returns an empty in-memory store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]models.Order)}
}

func (s *MemoryOrderStore) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	if missing := o.MissingFields(); len(missing) > 0 {
		return nil, models.NewValidationError(missing...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = uuid.NewString()
	o.Date = time.Now().UTC()
	s.orders[o.ID] = *o
	return o, nil
}

func (s *MemoryOrderStore) Get(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryOrderStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (s *MemoryOrderStore) ListAll(_ context.Context) ([]models.Order, error) {
	return s.filter(func(models.Order) bool { return true }), nil
}

func (s *MemoryOrderStore) Update(_ context.Context, id string, upd OrderUpdate) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Status != nil {
		o.Status = *upd.Status
	}
	if upd.Payment != nil {
		o.Payment = *upd.Payment
	}
	if upd.TxRef != nil {
		o.TxRef = *upd.TxRef
	}
	if upd.CheckoutRequestID != nil {
		o.CheckoutRequestID = *upd.CheckoutRequestID
	}
	if upd.MpesaReceiptNumber != nil {
		o.MpesaReceiptNumber = *upd.MpesaReceiptNumber
	}
	s.orders[id] = o
	return &o, nil
}

func (s *MemoryOrderStore) FindByTxRef(_ context.Context, txRef string) (*models.Order, error) {
	return s.findOne(func(o models.Order) bool { return txRef != "" && o.TxRef == txRef })
}

func (s *MemoryOrderStore) FindByCheckoutRequestID(_ context.Context, checkoutRequestID string) (*models.Order, error) {
	return s.findOne(func(o models.Order) bool {
		return checkoutRequestID != "" && o.CheckoutRequestID == checkoutRequestID
	})
}

func (s *MemoryOrderStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryOrderStore) findOne(match func(models.Order) bool) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if match(o) {
			o := o
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryOrderStore) filter(match func(models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
