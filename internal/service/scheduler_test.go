package service

import (
	"testing"
	"time"

	"github.com/chronobill/chronobill/internal/api/dto"
	"github.com/chronobill/chronobill/internal/domain/customer"
	"github.com/chronobill/chronobill/internal/domain/ledger"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/idempotency"
	"github.com/chronobill/chronobill/internal/testutil"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SchedulerServiceSuite struct {
	testutil.BaseServiceTestSuite
	planService      PlanService
	schedulerService SchedulerService
	idempotencyGen   *idempotency.Generator
}

func TestSchedulerService(t *testing.T) {
	suite.Run(t, new(SchedulerServiceSuite))
}

func (s *SchedulerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.idempotencyGen = idempotency.NewGenerator()

	stores := s.GetStores()
	params := ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		PlanRepo:          stores.PlanRepo,
		InvoiceRepo:       stores.InvoiceRepo,
		LedgerRepo:        stores.LedgerRepo,
		CustomerDirectory: s.GetDirectory(),
		EventPublisher:    s.GetPublisher(),
		IdempotencyGen:    s.idempotencyGen,
	}

	s.planService = NewPlanService(params)
	s.schedulerService = NewSchedulerService(params, NewInvoiceComposer())

	s.GetDirectory().Add(&customer.Customer{
		ID:    "cust_acme",
		Name:  "Acme Corp",
		Email: "billing@acme.test",
	})
}

func (s *SchedulerServiceSuite) createPlan(startDate time.Time, endDate *time.Time) *dto.PlanResponse {
	resp, err := s.planService.CreatePlan(s.GetContext(), dto.CreatePlanRequest{
		CustomerID: "cust_acme",
		Name:       "Pro Monthly",
		Frequency:  types.BILLING_FREQUENCY_MONTHLY,
		Interval:   1,
		StartDate:  startDate,
		EndDate:    endDate,
		LineItems: []dto.CreatePlanLineItemRequest{
			{
				Name:            "Subscription",
				UnitPrice:       decimal.NewFromInt(100),
				Quantity:        decimal.NewFromInt(3),
				DiscountPercent: decimal.NewFromInt(10),
				TaxRatePercent:  decimal.NewFromInt(18),
			},
		},
	})
	s.NoError(err)
	return resp
}

func (s *SchedulerServiceSuite) TestRunOnceGeneratesDueInvoice() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, nil)

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.InvoicesGenerated)
	s.Equal(0, result.PlansFailed)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(invoices, 1)

	inv := invoices[0]
	s.Equal(created.ID, inv.PlanID)
	s.Equal("cust_acme", inv.CustomerID)
	s.True(inv.GrandTotal.Equal(decimal.NewFromFloat(318.60)), "grand total: %s", inv.GrandTotal)
	s.True(inv.CycleDate.Equal(start))

	// Cursor advanced past the billed cycle
	updated, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(updated.NextInvoiceDate.After(start))
	s.Equal(1, updated.TotalGenerated)
	s.Equal(inv.CycleKey, updated.LastGeneratedCycle)

	events := s.GetPublisher().EventsByName(types.WebhookEventInvoiceGenerated)
	s.Len(events, 1)
}

func (s *SchedulerServiceSuite) TestRunOnceIsIdempotent() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	s.createPlan(start, nil)

	first, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(1, first.InvoicesGenerated)

	second, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(0, second.InvoicesGenerated)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *SchedulerServiceSuite) TestRunOnceSkipsPausedPlans() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, nil)

	_, err := s.planService.PausePlan(s.GetContext(), created.ID)
	s.NoError(err)

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.InvoicesGenerated)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Empty(invoices)
}

func (s *SchedulerServiceSuite) TestBackfillOneCyclePerRun() {
	// Three months in arrears: each run bills exactly one missed cycle
	start := time.Now().UTC().AddDate(0, -3, 0)
	created := s.createPlan(start, nil)

	for i := 1; i <= 3; i++ {
		result, err := s.schedulerService.RunOnce(s.GetContext())
		s.NoError(err)
		s.Equal(1, result.InvoicesGenerated, "run %d", i)

		updated, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
		s.NoError(err)
		s.Equal(i, updated.TotalGenerated)
	}

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(invoices, 3)
}

func (s *SchedulerServiceSuite) TestExactEndDateCompletesPlan() {
	// One occurrence only: start == end
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, lo.ToPtr(start))

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.InvoicesGenerated)
	s.Equal(1, result.PlansCompleted)

	updated, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.PlanStatusCompleted, updated.PlanStatus)
	s.Equal(1, updated.TotalGenerated)

	events := s.GetPublisher().EventsByName(types.WebhookEventPlanExhausted)
	s.Len(events, 1)
}

func (s *SchedulerServiceSuite) TestRecoversInvoicedClaimWithoutRegenerating() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, nil)

	// Simulate a run that persisted the invoice and marked the claim but
	// crashed before advancing the cursor.
	plan, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	cycleKey := s.idempotencyGen.CycleKey(plan.ID, plan.NextInvoiceDate)

	err = s.GetStores().LedgerRepo.Claim(s.GetContext(), &ledger.Claim{
		PlanID:    plan.ID,
		CycleKey:  cycleKey,
		ClaimedAt: time.Now().UTC(),
		InvoiceID: "inv_already_persisted",
	})
	s.NoError(err)

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.InvoicesGenerated)
	s.Equal(1, result.CyclesSkipped)

	// No duplicate invoice, but the cursor moved on
	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Empty(invoices)

	updated, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(updated.NextInvoiceDate.After(start))
	s.Equal(cycleKey, updated.LastGeneratedCycle)
}

func (s *SchedulerServiceSuite) TestLeavesInFlightClaimAlone() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, nil)

	plan, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	cycleKey := s.idempotencyGen.CycleKey(plan.ID, plan.NextInvoiceDate)

	// A bare claim with no invoice belongs to an in-flight worker
	err = s.GetStores().LedgerRepo.Claim(s.GetContext(), &ledger.Claim{
		PlanID:    plan.ID,
		CycleKey:  cycleKey,
		ClaimedAt: time.Now().UTC(),
	})
	s.NoError(err)

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.InvoicesGenerated)
	s.Equal(1, result.CyclesSkipped)

	// Cursor untouched: the owning worker will advance it
	updated, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(plan.NextInvoiceDate, updated.NextInvoiceDate)
	s.Equal(0, updated.TotalGenerated)
}

func (s *SchedulerServiceSuite) TestRepairsBareClaimWithPersistedInvoice() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, nil)

	// First run bills the cycle normally
	_, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(invoices, 1)
	inv := invoices[0]

	// Rewind the cursor and strip the invoice id off the claim, simulating
	// a crash between persisting the invoice and marking the claim.
	plan, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	plan.NextInvoiceDate = inv.CycleDate
	plan.TotalGenerated = 0
	s.NoError(s.GetStores().PlanRepo.Update(s.GetContext(), plan))

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	ledgerStore.Clear()
	s.NoError(ledgerStore.Claim(s.GetContext(), &ledger.Claim{
		PlanID:    plan.ID,
		CycleKey:  inv.CycleKey,
		ClaimedAt: time.Now().UTC(),
	}))

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.InvoicesGenerated)

	// The claim was repaired from the persisted invoice
	claim, err := ledgerStore.Get(s.GetContext(), plan.ID, inv.CycleKey)
	s.NoError(err)
	s.Equal(inv.ID, claim.InvoiceID)

	invoices, err = s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *SchedulerServiceSuite) TestUnresolvableCustomerFailsPlanWithoutBilling() {
	start := time.Now().UTC().AddDate(0, 0, -1)
	created := s.createPlan(start, nil)

	// Customer deleted from the directory after the plan was created
	s.GetDirectory().Remove("cust_acme")

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.InvoicesGenerated)
	s.Equal(1, result.PlansFailed)
	s.Equal([]string{created.ID}, result.FailedPlanIDs)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Empty(invoices)

	// Cursor untouched and the claim released, so the cycle stays billable
	updated, err := s.GetStores().PlanRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(updated.NextInvoiceDate.Equal(start))
	s.Equal(0, updated.TotalGenerated)

	cycleKey := s.idempotencyGen.CycleKey(created.ID, updated.NextInvoiceDate)
	_, err = s.GetStores().LedgerRepo.Get(s.GetContext(), created.ID, cycleKey)
	s.True(ierr.IsNotFound(err))

	// Once the directory resolves again the next run bills the cycle
	s.GetDirectory().Add(&customer.Customer{ID: "cust_acme", Name: "Acme Corp"})

	retry, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(1, retry.InvoicesGenerated)
	s.Equal(0, retry.PlansFailed)
}

func (s *SchedulerServiceSuite) TestFullPageOfFailuresDoesNotStallThePass() {
	// With a batch size of 1 a persistently failing plan occupies the first
	// page on every read; the pass must still reach the plans behind it.
	s.GetConfig().Scheduler.BatchSize = 1

	s.GetDirectory().Add(&customer.Customer{
		ID:   "cust_gone",
		Name: "Gone Inc",
	})
	failing, err := s.planService.CreatePlan(s.GetContext(), dto.CreatePlanRequest{
		CustomerID: "cust_gone",
		Name:       "Legacy Monthly",
		Frequency:  types.BILLING_FREQUENCY_MONTHLY,
		Interval:   1,
		StartDate:  time.Now().UTC().AddDate(0, 0, -3),
		LineItems: []dto.CreatePlanLineItemRequest{
			{
				Name:      "Subscription",
				UnitPrice: decimal.NewFromInt(50),
				Quantity:  decimal.NewFromInt(1),
			},
		},
	})
	s.NoError(err)

	// Due later than the failing plan, so it sorts behind it
	healthy := s.createPlan(time.Now().UTC().AddDate(0, 0, -1), nil)

	s.GetDirectory().Remove("cust_gone")

	result, err := s.schedulerService.RunOnce(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.InvoicesGenerated)
	s.Equal(1, result.PlansFailed)
	s.Equal([]string{failing.ID}, result.FailedPlanIDs)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Len(invoices, 1)
	s.Equal(healthy.ID, invoices[0].PlanID)
}
