package testutil

import (
	"context"

	"github.com/chronobill/chronobill/internal/domain/invoice"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if inv == nil {
		return false
	}

	f, ok := filter.(*types.InvoiceFilter)
	if !ok {
		return true
	}

	if f.Status != nil && inv.Status != *f.Status {
		return false
	}

	if f.PlanID != "" && inv.PlanID != f.PlanID {
		return false
	}

	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}

	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && inv.CycleDate.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && inv.CycleDate.After(*f.EndTime) {
			return false
		}
	}

	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Create(ctx, inv.ID, inv); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) GetByCycle(ctx context.Context, planID, cycleKey string) (*invoice.Invoice, error) {
	all, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	for _, inv := range all {
		if inv.PlanID == planID && inv.CycleKey == cycleKey {
			return inv, nil
		}
	}

	return nil, ierr.NewError("invoice not found").
		WithHintf("No invoice exists for plan %s cycle %s", planID, cycleKey).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	return s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}
