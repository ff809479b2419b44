package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"multi-merchant-settlement/internal/core/domain"
)

// Shop stands in for the host shop: it serves orders and records what the
// checkout hooks did to them.
type Shop struct {
	mu       sync.RWMutex
	orders   map[int64]domain.Order
	notes    map[int64][]string
	paidWith map[int64]string
	stock    map[int64]int
	carts    map[int64]int
}

func NewShop() *Shop {
	return &Shop{
		orders:   make(map[int64]domain.Order),
		notes:    make(map[int64][]string),
		paidWith: make(map[int64]string),
		stock:    make(map[int64]int),
		carts:    make(map[int64]int),
	}
}

// PutOrder stores or replaces an order.
func (s *Shop) PutOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Status == "" {
		o.Status = "pending"
	}
	s.orders[o.ID] = o
}

// SetStock tracks stock for a product; untracked products are not managed.
func (s *Shop) SetStock(productID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = qty
}

// SetCart records how many items a customer has in their cart.
func (s *Shop) SetCart(customerID int64, items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = items
}

func (s *Shop) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	o.Items = append([]domain.LineItem(nil), o.Items...)
	return &o, nil
}

func (s *Shop) MarkPaid(ctx context.Context, orderID int64, transactionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	o.Status = "processing"
	s.orders[orderID] = o
	s.paidWith[orderID] = strings.Join(transactionIDs, ",")
	return nil
}

func (s *Shop) AddOrderNote(ctx context.Context, orderID int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[orderID] = append(s.notes[orderID], note)
	return nil
}

func (s *Shop) ReduceStock(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, li := range s.orders[orderID].Items {
		if qty, managed := s.stock[li.ProductID]; managed {
			s.stock[li.ProductID] = qty - li.Quantity
		}
	}
	return nil
}

func (s *Shop) ClearCart(ctx context.Context, customerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}

// Notes returns the notes added to an order.
func (s *Shop) Notes(orderID int64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.notes[orderID]...)
}

// PaidWith returns the joined transaction ids an order was marked paid with.
func (s *Shop) PaidWith(orderID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.paidWith[orderID]
	return ids, ok
}

// Stock returns the tracked stock of a product.
func (s *Shop) Stock(productID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stock[productID]
}

// CartSize returns the number of items in a customer's cart.
func (s *Shop) CartSize(customerID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[customerID]
}
