package invoice

import (
	"time"

	"github.com/chronobill/chronobill/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is one generated billing document for a single plan cycle. The
// (PlanID, CycleKey) pair is unique: the generation ledger guarantees at
// most one invoice exists per claimed cycle.
type Invoice struct {
	ID            string `db:"id" json:"id"`
	InvoiceNumber string `db:"invoice_number" json:"invoice_number"`
	PlanID        string `db:"plan_id" json:"plan_id"`
	CustomerID    string `db:"customer_id" json:"customer_id"`

	// CycleKey is the deterministic token identifying which occurrence this
	// invoice bills; CycleDate is that occurrence's due date.
	CycleKey  string    `db:"cycle_key" json:"cycle_key"`
	CycleDate time.Time `db:"cycle_date" json:"cycle_date"`

	LineItems []LineItem `json:"line_items"`

	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	TotalDiscount decimal.Decimal `db:"total_discount" json:"total_discount"`
	TotalTax      decimal.Decimal `db:"total_tax" json:"total_tax"`
	GrandTotal    decimal.Decimal `db:"grand_total" json:"grand_total"`

	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`

	types.BaseModel
}

// LineItem is one materialized row of an invoice, computed from the plan's
// template at generation time.
type LineItem struct {
	ID        string `db:"id" json:"id"`
	InvoiceID string `db:"invoice_id" json:"invoice_id"`
	Name      string `db:"name" json:"name"`

	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discount_percent"`
	TaxRatePercent  decimal.Decimal `db:"tax_rate_percent" json:"tax_rate_percent"`

	ItemTotal      decimal.Decimal `db:"item_total" json:"item_total"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`

	types.BaseModel
}
