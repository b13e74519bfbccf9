package service

import (
	"time"

	"github.com/chronobill/chronobill/internal/domain/invoice"
	"github.com/chronobill/chronobill/internal/domain/plan"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/shopspring/decimal"
)

// InvoiceComposer materializes a plan's line-item template into an invoice
// for one cycle. Composition is pure: no clock reads, no I/O, no mutation
// of the plan. All arithmetic runs on decimals and rounds once per figure.
type InvoiceComposer interface {
	Compose(p *plan.Plan, cycleKey string, cycleDate time.Time, generatedAt time.Time) (*invoice.Invoice, error)
}

type invoiceComposer struct{}

// NewInvoiceComposer creates a new invoice composer
func NewInvoiceComposer() InvoiceComposer {
	return &invoiceComposer{}
}

var hundred = decimal.NewFromInt(100)

func (c *invoiceComposer) Compose(
	p *plan.Plan,
	cycleKey string,
	cycleDate time.Time,
	generatedAt time.Time,
) (*invoice.Invoice, error) {
	if len(p.LineItems) == 0 {
		return nil, ierr.NewError("plan has no line items").
			WithHint("Plan must have at least one line item").
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	invoiceID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)

	inv := &invoice.Invoice{
		ID:            invoiceID,
		InvoiceNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		PlanID:        p.ID,
		CustomerID:    p.CustomerID,
		CycleKey:      cycleKey,
		CycleDate:     cycleDate,
		GeneratedAt:   generatedAt,
		LineItems:     make([]invoice.LineItem, 0, len(p.LineItems)),
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
		TotalTax:      decimal.Zero,
		BaseModel: types.BaseModel{
			Status:    types.StatusPublished,
			CreatedAt: generatedAt,
			UpdatedAt: generatedAt,
			CreatedBy: types.DefaultUserID,
			UpdatedBy: types.DefaultUserID,
		},
	}

	for _, tmpl := range p.LineItems {
		itemTotal := tmpl.UnitPrice.Mul(tmpl.Quantity).Round(2)
		discountAmount := itemTotal.Mul(tmpl.DiscountPercent).Div(hundred).Round(2)
		taxableAmount := itemTotal.Sub(discountAmount)
		taxAmount := taxableAmount.Mul(tmpl.TaxRatePercent).Div(hundred).Round(2)

		inv.LineItems = append(inv.LineItems, invoice.LineItem{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			InvoiceID:       invoiceID,
			Name:            tmpl.Name,
			UnitPrice:       tmpl.UnitPrice,
			Quantity:        tmpl.Quantity,
			DiscountPercent: tmpl.DiscountPercent,
			TaxRatePercent:  tmpl.TaxRatePercent,
			ItemTotal:       itemTotal,
			DiscountAmount:  discountAmount,
			TaxAmount:       taxAmount,
			BaseModel:       inv.BaseModel,
		})

		inv.Subtotal = inv.Subtotal.Add(itemTotal)
		inv.TotalDiscount = inv.TotalDiscount.Add(discountAmount)
		inv.TotalTax = inv.TotalTax.Add(taxAmount)
	}

	inv.GrandTotal = inv.Subtotal.Sub(inv.TotalDiscount).Add(inv.TotalTax).Round(2)

	return inv, nil
}
