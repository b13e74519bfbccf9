package testutil

import (
	"context"
	"sync"

	"github.com/chronobill/chronobill/internal/domain/customer"
	ierr "github.com/chronobill/chronobill/internal/errors"
)

// InMemoryCustomerStore implements customer.Directory
type InMemoryCustomerStore struct {
	mu        sync.RWMutex
	customers map[string]*customer.Customer
}

// NewInMemoryCustomerStore creates a new in-memory customer directory
func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		customers: make(map[string]*customer.Customer),
	}
}

// Add seeds a customer into the directory
func (s *InMemoryCustomerStore) Add(cust *customer.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[cust.ID] = cust
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cust, exists := s.customers[id]
	if !exists {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return cust, nil
}

// Remove deletes a single customer from the directory
func (s *InMemoryCustomerStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.customers, id)
}

// Clear removes all customers
func (s *InMemoryCustomerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = make(map[string]*customer.Customer)
}
