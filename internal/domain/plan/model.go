package plan

import (
	"time"

	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is a recurring charge definition. The scheduler turns each active
// plan into one invoice per cycle, advancing NextInvoiceDate as it goes.
type Plan struct {
	ID         string                 `db:"id" json:"id"`
	CustomerID string                 `db:"customer_id" json:"customer_id"`
	Name       string                 `db:"name" json:"name"`
	Frequency  types.BillingFrequency `db:"frequency" json:"frequency"`
	Interval   int                    `db:"billing_interval" json:"interval"`

	// StartDate anchors the cadence: every occurrence is congruent to it
	// modulo (frequency, interval). EndDate nil means the plan runs
	// indefinitely.
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`

	// NextInvoiceDate is the earliest occurrence that has not generated an
	// invoice yet. Mutated only by the scheduler and by explicit resume.
	NextInvoiceDate time.Time `db:"next_invoice_date" json:"next_invoice_date"`

	LineItems []LineItem `json:"line_items"`

	TotalGenerated     int              `db:"total_generated" json:"total_generated"`
	PlanStatus         types.PlanStatus `db:"plan_status" json:"plan_status"`
	LastGeneratedCycle string           `db:"last_generated_cycle" json:"last_generated_cycle"`

	types.BaseModel
}

// LineItem is one row of a plan's line-item template. Amounts are decimals
// end to end; percentages are expressed as 0-100.
type LineItem struct {
	ID              string          `db:"id" json:"id"`
	PlanID          string          `db:"plan_id" json:"plan_id"`
	Name            string          `db:"name" json:"name"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discount_percent"`
	TaxRatePercent  decimal.Decimal `db:"tax_rate_percent" json:"tax_rate_percent"`

	types.BaseModel
}

// Validate checks the plan definition at creation time. A plan that fails
// here never reaches the scheduler.
func (p *Plan) Validate() error {
	if err := p.Frequency.Validate(); err != nil {
		return err
	}

	if p.Interval <= 0 {
		return ierr.NewError("billing interval must be a positive integer").
			WithHint("Billing interval must be a positive integer").
			WithReportableDetails(map[string]any{
				"interval": p.Interval,
			}).
			Mark(ierr.ErrValidation)
	}

	if p.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Customer ID is required").
			Mark(ierr.ErrValidation)
	}

	if p.StartDate.IsZero() {
		return ierr.NewError("start date is required").
			WithHint("Start date is required").
			Mark(ierr.ErrValidation)
	}

	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return ierr.NewError("end date must not be before start date").
			WithHint("End date must not be before start date").
			WithReportableDetails(map[string]any{
				"start_date": p.StartDate,
				"end_date":   p.EndDate,
			}).
			Mark(ierr.ErrValidation)
	}

	if len(p.LineItems) == 0 {
		return ierr.NewError("plan must have at least one line item").
			WithHint("Plan must have at least one line item").
			Mark(ierr.ErrValidation)
	}

	for _, item := range p.LineItems {
		if err := item.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (li *LineItem) Validate() error {
	if li.Name == "" {
		return ierr.NewError("line item name is required").
			WithHint("Line item name is required").
			Mark(ierr.ErrValidation)
	}

	if li.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price must not be negative").
			WithHint("Line item unit price must not be negative").
			WithReportableDetails(map[string]any{
				"name":       li.Name,
				"unit_price": li.UnitPrice,
			}).
			Mark(ierr.ErrValidation)
	}

	if !li.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be positive").
			WithHint("Line item quantity must be positive").
			WithReportableDetails(map[string]any{
				"name":     li.Name,
				"quantity": li.Quantity,
			}).
			Mark(ierr.ErrValidation)
	}

	hundred := decimal.NewFromInt(100)
	if li.DiscountPercent.IsNegative() || li.DiscountPercent.GreaterThan(hundred) {
		return ierr.NewError("line item discount percent must be between 0 and 100").
			WithHint("Line item discount percent must be between 0 and 100").
			WithReportableDetails(map[string]any{
				"name":             li.Name,
				"discount_percent": li.DiscountPercent,
			}).
			Mark(ierr.ErrValidation)
	}

	if li.TaxRatePercent.IsNegative() || li.TaxRatePercent.GreaterThan(hundred) {
		return ierr.NewError("line item tax rate percent must be between 0 and 100").
			WithHint("Line item tax rate percent must be between 0 and 100").
			WithReportableDetails(map[string]any{
				"name":             li.Name,
				"tax_rate_percent": li.TaxRatePercent,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// NextCycleAfter returns the earliest occurrence strictly after the given
// instant, honoring the plan's end date. ok is false when the cadence is
// exhausted, i.e. the computed occurrence would fall past EndDate.
func (p *Plan) NextCycleAfter(after time.Time) (time.Time, bool, error) {
	next, err := types.NextOccurrence(p.Frequency, p.Interval, p.StartDate, after)
	if err != nil {
		return time.Time{}, false, err
	}

	if p.EndDate != nil && next.After(*p.EndDate) {
		return time.Time{}, false, nil
	}

	return next, true, nil
}

// IsDue reports whether the plan should be picked up by a scheduler pass at
// the given instant.
func (p *Plan) IsDue(now time.Time) bool {
	return p.PlanStatus == types.PlanStatusActive && !p.NextInvoiceDate.After(now)
}
