package dto

import (
	"context"
	"time"

	"github.com/chronobill/chronobill/internal/domain/plan"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/chronobill/chronobill/internal/validator"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	CustomerID string                      `json:"customer_id" validate:"required"`
	Name       string                      `json:"name" validate:"required"`
	Frequency  types.BillingFrequency      `json:"frequency" validate:"required"`
	Interval   int                         `json:"interval" validate:"required,min=1"`
	StartDate  time.Time                   `json:"start_date" validate:"required"`
	EndDate    *time.Time                  `json:"end_date,omitempty"`
	LineItems  []CreatePlanLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

type CreatePlanLineItemRequest struct {
	Name            string          `json:"name" validate:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        decimal.Decimal `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
}

func (r *CreatePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ToPlan builds the domain plan. NextInvoiceDate starts at StartDate: the
// anchor itself is the first occurrence to bill.
func (r *CreatePlanRequest) ToPlan(ctx context.Context) *plan.Plan {
	p := &plan.Plan{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		CustomerID:      r.CustomerID,
		Name:            r.Name,
		Frequency:       r.Frequency,
		Interval:        r.Interval,
		StartDate:       r.StartDate.UTC(),
		NextInvoiceDate: r.StartDate.UTC(),
		PlanStatus:      types.PlanStatusActive,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}

	if r.EndDate != nil {
		end := r.EndDate.UTC()
		p.EndDate = &end
	}

	p.LineItems = make([]plan.LineItem, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		p.LineItems = append(p.LineItems, plan.LineItem{
			ID:              types.GenerateUUID(),
			PlanID:          p.ID,
			Name:            item.Name,
			UnitPrice:       item.UnitPrice,
			Quantity:        item.Quantity,
			DiscountPercent: item.DiscountPercent,
			TaxRatePercent:  item.TaxRatePercent,
			BaseModel:       p.BaseModel,
		})
	}

	return p
}

type ResumePlanRequest struct {
	// BackfillMissed controls what happens to cycles the plan skipped while
	// paused. False fast-forwards the cursor past them; true leaves the
	// cursor in place so subsequent scheduler runs generate each missed
	// cycle in order.
	BackfillMissed bool `json:"backfill_missed"`
}

type PlanResponse struct {
	*plan.Plan
}

// ListPlansResponse represents the response for listing plans
type ListPlansResponse = types.ListResponse[*PlanResponse]
