package ledger

import (
	"context"
)

// Repository is the generation ledger: the idempotency guard recording which
// (plan, cycle) pairs have already produced an invoice.
type Repository interface {
	// Claim atomically inserts a claim for the pair. It returns
	// ierr.ErrAlreadyExists when the pair is already claimed; the claim
	// insert is the scheduler's only critical section.
	Claim(ctx context.Context, claim *Claim) error

	// MarkInvoiced records the persisted invoice id on an existing claim,
	// making the claim durable evidence that the cycle was billed.
	MarkInvoiced(ctx context.Context, planID, cycleKey, invoiceID string) error

	// Release removes a claim whose worker failed before an invoice was
	// persisted, so the next run can retry the cycle.
	Release(ctx context.Context, planID, cycleKey string) error

	Get(ctx context.Context, planID, cycleKey string) (*Claim, error)
	ListByPlan(ctx context.Context, planID string) ([]*Claim, error)
}
