package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chronobill/chronobill/internal/api/dto"
	"github.com/chronobill/chronobill/internal/domain/invoice"
	"github.com/chronobill/chronobill/internal/domain/ledger"
	"github.com/chronobill/chronobill/internal/domain/plan"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// SchedulerService drives invoice generation. A single RunOnce pass claims
// each due (plan, cycle) pair in the generation ledger, composes and
// persists the invoice, then advances the plan's cursor. Concurrent passes
// are safe: the ledger's atomic claim ensures a cycle is billed once no
// matter how many runners race over it.
type SchedulerService interface {
	RunOnce(ctx context.Context) (*dto.SchedulerRunResponse, error)
}

type schedulerService struct {
	ServiceParams
	composer InvoiceComposer
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(params ServiceParams, composer InvoiceComposer) SchedulerService {
	return &schedulerService{
		ServiceParams: params,
		composer:      composer,
	}
}

// runResult accumulates per-plan outcomes across workers
type runResult struct {
	mu          sync.Mutex
	examined    int
	generated   int
	completed   int
	skipped     int
	failedPlans []string
}

func (r *runResult) add(fn func(*runResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// fail records one failed plan. The ids are surfaced to the caller so a cron
// trigger or operator can alert on the specific plans that need attention.
func (r *runResult) fail(planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedPlans = append(r.failedPlans, planID)
}

func (s *schedulerService) RunOnce(ctx context.Context) (*dto.SchedulerRunResponse, error) {
	startedAt := time.Now().UTC()

	if s.Config.Scheduler.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.Scheduler.RunTimeout)
		defer cancel()
	}

	result := &runResult{}

	// Successful processing moves a plan out of the due set, so each pass
	// re-reads from the front. Plans already attempted this run are skipped
	// to guarantee forward progress when a plan keeps failing, and a page
	// consisting entirely of attempted plans (failures stay due, oldest
	// first) advances the offset so due plans behind it are still reached.
	attempted := make(map[string]bool)
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			s.Logger.Warnw("scheduler run aborted", "error", err)
			break
		}

		duePlans, err := s.PlanRepo.ListDue(ctx, startedAt, s.Config.Scheduler.BatchSize, offset)
		if err != nil {
			return nil, err
		}

		batch := make([]*plan.Plan, 0, len(duePlans))
		for _, p := range duePlans {
			if !attempted[p.ID] {
				attempted[p.ID] = true
				batch = append(batch, p)
			}
		}
		if len(batch) == 0 {
			if len(duePlans) < s.Config.Scheduler.BatchSize {
				break
			}
			offset += s.Config.Scheduler.BatchSize
			continue
		}

		workers := pool.New().WithMaxGoroutines(s.Config.Scheduler.MaxWorkers)
		for _, p := range batch {
			workers.Go(func() {
				s.processPlan(ctx, p, startedAt, result)
			})
		}
		workers.Wait()

		// Processing mutates the due set, so restart from the front.
		offset = 0
	}

	completedAt := time.Now().UTC()

	response := &dto.SchedulerRunResponse{
		StartedAt:         startedAt,
		CompletedAt:       completedAt,
		PlansExamined:     result.examined,
		InvoicesGenerated: result.generated,
		PlansCompleted:    result.completed,
		CyclesSkipped:     result.skipped,
		PlansFailed:       len(result.failedPlans),
		FailedPlanIDs:     result.failedPlans,
	}

	s.Logger.Infow("scheduler run finished",
		"duration", completedAt.Sub(startedAt),
		"plans_examined", response.PlansExamined,
		"invoices_generated", response.InvoicesGenerated,
		"plans_completed", response.PlansCompleted,
		"cycles_skipped", response.CyclesSkipped,
		"plans_failed", response.PlansFailed,
	)

	return response, nil
}

// processPlan bills exactly one cycle of one plan. A plan several cycles in
// arrears converges over successive runs, one invoice per run.
func (s *schedulerService) processPlan(ctx context.Context, p *plan.Plan, now time.Time, result *runResult) {
	result.add(func(r *runResult) { r.examined++ })

	if !p.IsDue(now) {
		result.add(func(r *runResult) { r.skipped++ })
		return
	}

	cycleDate := p.NextInvoiceDate
	cycleKey := s.IdempotencyGen.CycleKey(p.ID, cycleDate)

	claim := &ledger.Claim{
		PlanID:    p.ID,
		CycleKey:  cycleKey,
		ClaimedAt: now,
	}

	if err := s.LedgerRepo.Claim(ctx, claim); err != nil {
		if ierr.IsAlreadyExists(err) {
			s.recoverClaimedCycle(ctx, p, cycleKey, cycleDate, result)
			return
		}
		s.Logger.Errorw("failed to claim billing cycle",
			"error", err,
			"plan_id", p.ID,
			"cycle_key", cycleKey,
		)
		result.fail(p.ID)
		return
	}

	// The customer must still resolve before we bill. A deleted customer or
	// a directory outage leaves the cycle unclaimed and the cursor in place
	// so a later run retries it.
	if _, err := s.CustomerDirectory.Get(ctx, p.CustomerID); err != nil {
		s.releaseClaim(ctx, p.ID, cycleKey)
		s.Logger.Errorw("failed to resolve customer for billing",
			"error", err,
			"plan_id", p.ID,
			"customer_id", p.CustomerID,
			"cycle_key", cycleKey,
		)
		result.fail(p.ID)
		return
	}

	inv, err := s.composer.Compose(p, cycleKey, cycleDate, now)
	if err != nil {
		s.releaseClaim(ctx, p.ID, cycleKey)
		s.Logger.Errorw("failed to compose invoice",
			"error", err,
			"plan_id", p.ID,
			"cycle_key", cycleKey,
		)
		result.fail(p.ID)
		return
	}

	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		s.releaseClaim(ctx, p.ID, cycleKey)
		s.Logger.Errorw("failed to persist invoice",
			"error", err,
			"plan_id", p.ID,
			"cycle_key", cycleKey,
		)
		result.fail(p.ID)
		return
	}

	if err := s.LedgerRepo.MarkInvoiced(ctx, p.ID, cycleKey, inv.ID); err != nil {
		// The invoice exists; a later run repairs the claim from it
		s.Logger.Errorw("failed to mark claim invoiced",
			"error", err,
			"plan_id", p.ID,
			"cycle_key", cycleKey,
			"invoice_id", inv.ID,
		)
	}

	if err := s.advancePlan(ctx, p, cycleKey, cycleDate, result); err != nil {
		result.fail(p.ID)
		return
	}

	result.add(func(r *runResult) { r.generated++ })

	s.Logger.Infow("generated invoice",
		"plan_id", p.ID,
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"cycle_key", cycleKey,
		"cycle_date", cycleDate,
		"grand_total", inv.GrandTotal,
	)

	s.publishInvoiceGenerated(ctx, inv)
}

// recoverClaimedCycle handles a claim conflict. Three cases:
//   - the claim carries an invoice id: a previous run billed this cycle but
//     died before advancing the cursor; advance it now without regenerating
//   - the claim is bare but an invoice for the cycle exists: the previous
//     run died between persisting and marking; repair the claim and advance
//   - the claim is bare and no invoice exists: another worker is in flight,
//     leave it alone
func (s *schedulerService) recoverClaimedCycle(ctx context.Context, p *plan.Plan, cycleKey string, cycleDate time.Time, result *runResult) {
	existing, err := s.LedgerRepo.Get(ctx, p.ID, cycleKey)
	if err != nil {
		s.Logger.Errorw("failed to load conflicting claim",
			"error", err,
			"plan_id", p.ID,
			"cycle_key", cycleKey,
		)
		result.fail(p.ID)
		return
	}

	invoiceID := existing.InvoiceID
	if invoiceID == "" {
		inv, err := s.InvoiceRepo.GetByCycle(ctx, p.ID, cycleKey)
		if err != nil {
			if ierr.IsNotFound(err) {
				// In-flight worker owns this cycle
				result.add(func(r *runResult) { r.skipped++ })
				return
			}
			result.fail(p.ID)
			return
		}

		invoiceID = inv.ID
		if err := s.LedgerRepo.MarkInvoiced(ctx, p.ID, cycleKey, invoiceID); err != nil {
			s.Logger.Errorw("failed to repair claim",
				"error", err,
				"plan_id", p.ID,
				"cycle_key", cycleKey,
			)
		}
	}

	s.Logger.Warnw("repairing cursor for already billed cycle",
		"plan_id", p.ID,
		"cycle_key", cycleKey,
		"invoice_id", invoiceID,
	)

	if err := s.advancePlan(ctx, p, cycleKey, cycleDate, result); err != nil {
		result.fail(p.ID)
		return
	}

	result.add(func(r *runResult) { r.skipped++ })
}

// advancePlan moves NextInvoiceDate to the occurrence after cycleDate, or
// completes the plan when the cadence is exhausted.
func (s *schedulerService) advancePlan(ctx context.Context, p *plan.Plan, cycleKey string, cycleDate time.Time, result *runResult) error {
	next, ok, err := p.NextCycleAfter(cycleDate)
	if err != nil {
		s.Logger.Errorw("failed to compute next cycle",
			"error", err,
			"plan_id", p.ID,
		)
		return err
	}

	p.TotalGenerated++
	p.LastGeneratedCycle = cycleKey
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.DefaultUserID

	if !ok {
		p.PlanStatus = types.PlanStatusCompleted
	} else {
		p.NextInvoiceDate = next
	}

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		s.Logger.Errorw("failed to advance plan cursor",
			"error", err,
			"plan_id", p.ID,
			"cycle_key", cycleKey,
		)
		return err
	}

	if !ok {
		result.add(func(r *runResult) { r.completed++ })
		s.Logger.Infow("plan exhausted its cadence",
			"plan_id", p.ID,
			"total_generated", p.TotalGenerated,
		)
		s.publishPlanExhausted(ctx, p)
	}

	return nil
}

func (s *schedulerService) releaseClaim(ctx context.Context, planID, cycleKey string) {
	if err := s.LedgerRepo.Release(ctx, planID, cycleKey); err != nil {
		s.Logger.Errorw("failed to release claim",
			"error", err,
			"plan_id", planID,
			"cycle_key", cycleKey,
		)
	}
}

func (s *schedulerService) publishInvoiceGenerated(ctx context.Context, inv *invoice.Invoice) {
	payload, err := json.Marshal(inv)
	if err != nil {
		s.Logger.Errorw("failed to marshal invoice event payload",
			"error", err,
			"invoice_id", inv.ID,
		)
		return
	}

	s.EventPublisher.Publish(ctx, &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: types.WebhookEventInvoiceGenerated,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func (s *schedulerService) publishPlanExhausted(ctx context.Context, p *plan.Plan) {
	payload, err := json.Marshal(p)
	if err != nil {
		s.Logger.Errorw("failed to marshal plan event payload",
			"error", err,
			"plan_id", p.ID,
		)
		return
	}

	s.EventPublisher.Publish(ctx, &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: types.WebhookEventPlanExhausted,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
