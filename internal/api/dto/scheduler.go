package dto

import (
	"time"
)

// SchedulerRunResponse summarizes one scheduler pass
type SchedulerRunResponse struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	PlansExamined     int `json:"plans_examined"`
	InvoicesGenerated int `json:"invoices_generated"`
	PlansCompleted    int `json:"plans_completed"`
	CyclesSkipped     int `json:"cycles_skipped"`
	PlansFailed       int `json:"plans_failed"`

	// FailedPlanIDs lists the plans whose cycle could not be billed this
	// run, for alerting. Their cursors are unadvanced and will be retried.
	FailedPlanIDs []string `json:"failed_plan_ids,omitempty"`
}
