package types

import (
	"encoding/json"
	"time"
)

// WebhookEvent represents a notification event to be delivered to the sink
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// plan event names
const (
	WebhookEventPlanCreated   = "plan.created"
	WebhookEventPlanPaused    = "plan.paused"
	WebhookEventPlanResumed   = "plan.resumed"
	WebhookEventPlanCancelled = "plan.cancelled"
	// WebhookEventPlanExhausted is emitted when a plan reaches its end date
	// and transitions to completed.
	WebhookEventPlanExhausted = "plan.exhausted"
)

// invoice event names
const (
	WebhookEventInvoiceGenerated = "invoice.generated"
)
