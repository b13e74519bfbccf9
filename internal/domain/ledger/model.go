package ledger

import (
	"time"
)

// Claim is an atomic reservation of one (plan, cycle) pair. A claim is
// inserted before invoice generation starts; InvoiceID is filled in once the
// invoice has been persisted. A claim without an InvoiceID therefore belongs
// to an in-flight worker, or to a worker that crashed before persisting.
type Claim struct {
	PlanID    string    `db:"plan_id" json:"plan_id"`
	CycleKey  string    `db:"cycle_key" json:"cycle_key"`
	ClaimedAt time.Time `db:"claimed_at" json:"claimed_at"`
	InvoiceID string    `db:"invoice_id" json:"invoice_id"`
}
