package dto

import (
	"github.com/chronobill/chronobill/internal/domain/customer"
	"github.com/chronobill/chronobill/internal/domain/invoice"
	"github.com/chronobill/chronobill/internal/types"
)

type InvoiceResponse struct {
	*invoice.Invoice

	// Customer is resolved from the directory when available; nil when the
	// lookup failed and the invoice is served without enrichment.
	Customer *customer.Customer `json:"customer,omitempty"`
}

// ListInvoicesResponse represents the response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]
