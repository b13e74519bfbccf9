package types

import (
	"time"

	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/samber/lo"
)

// BillingFrequency is the calendar unit of a plan's cadence. Together with
// the interval it defines the spacing between occurrences, e.g. frequency
// WEEKLY with interval 2 bills every two weeks.
type BillingFrequency string

const (
	BILLING_FREQUENCY_DAILY   BillingFrequency = "daily"
	BILLING_FREQUENCY_WEEKLY  BillingFrequency = "weekly"
	BILLING_FREQUENCY_MONTHLY BillingFrequency = "monthly"
	BILLING_FREQUENCY_YEARLY  BillingFrequency = "yearly"
)

func (f BillingFrequency) String() string {
	return string(f)
}

func (f BillingFrequency) Validate() error {
	allowedValues := []BillingFrequency{
		BILLING_FREQUENCY_DAILY,
		BILLING_FREQUENCY_WEEKLY,
		BILLING_FREQUENCY_MONTHLY,
		BILLING_FREQUENCY_YEARLY,
	}

	if !lo.Contains(allowedValues, f) {
		return ierr.NewError("invalid billing frequency").
			WithHint("Invalid billing frequency").
			WithReportableDetails(map[string]any{
				"allowed_values": allowedValues,
				"provided_value": f,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// PlanStatus is the billing lifecycle state of a plan. Completed and
// cancelled are terminal; the scheduler only selects active plans.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPaused    PlanStatus = "paused"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusCancelled PlanStatus = "cancelled"
)

func (s PlanStatus) String() string {
	return string(s)
}

// planStatusTransitions enumerates the allowed lifecycle transitions:
// active -> paused (pause), paused -> active (resume),
// active -> cancelled, paused -> cancelled, active -> completed.
var planStatusTransitions = map[PlanStatus][]PlanStatus{
	PlanStatusActive:    {PlanStatusPaused, PlanStatusCancelled, PlanStatusCompleted},
	PlanStatusPaused:    {PlanStatusActive, PlanStatusCancelled},
	PlanStatusCompleted: {},
	PlanStatusCancelled: {},
}

// CanTransitionTo reports whether the lifecycle allows moving to target.
func (s PlanStatus) CanTransitionTo(target PlanStatus) bool {
	return lo.Contains(planStatusTransitions[s], target)
}

func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCompleted || s == PlanStatusCancelled
}

// PlanFilter represents filters for plan queries
type PlanFilter struct {
	*QueryFilter
	*TimeRangeFilter

	// PlanStatuses filters by billing lifecycle state
	PlanStatuses []PlanStatus `json:"plan_statuses,omitempty" form:"plan_statuses"`
	// CustomerID filters plans belonging to a single customer
	CustomerID string `json:"customer_id,omitempty" form:"customer_id"`
	// DueBefore selects plans whose next invoice date is at or before the
	// given instant. Used by the scheduler to find due plans.
	DueBefore *time.Time `json:"due_before,omitempty" form:"due_before"`
}

// NewPlanFilter creates a new plan filter with default query options
func NewPlanFilter() *PlanFilter {
	return &PlanFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitPlanFilter creates a new plan filter without pagination
func NewNoLimitPlanFilter() *PlanFilter {
	return &PlanFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *PlanFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}

	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (f *PlanFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *PlanFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

func (f *PlanFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
