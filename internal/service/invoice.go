package service

import (
	"context"

	"github.com/chronobill/chronobill/internal/api/dto"
	"github.com/chronobill/chronobill/internal/domain/customer"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
)

// InvoiceService exposes read access to generated invoices
type InvoiceService interface {
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
}

type invoiceService struct {
	ServiceParams
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	response := &dto.InvoiceResponse{Invoice: inv}
	response.Customer = s.resolveCustomer(ctx, inv.CustomerID)

	return response, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, &dto.InvoiceResponse{Invoice: inv})
	}

	response := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &response, nil
}

// resolveCustomer enriches a response with directory data. Lookup failures
// degrade to an unenriched response rather than failing the read.
func (s *invoiceService) resolveCustomer(ctx context.Context, customerID string) *customer.Customer {
	cust, err := s.CustomerDirectory.Get(ctx, customerID)
	if err != nil {
		s.Logger.Warnw("failed to resolve customer for invoice",
			"error", err,
			"customer_id", customerID,
		)
		return nil
	}
	return cust
}
