package service

import (
	"testing"
	"time"

	"github.com/chronobill/chronobill/internal/api/dto"
	"github.com/chronobill/chronobill/internal/domain/customer"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/idempotency"
	"github.com/chronobill/chronobill/internal/testutil"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	planService PlanService
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.planService = NewPlanService(ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		PlanRepo:          stores.PlanRepo,
		InvoiceRepo:       stores.InvoiceRepo,
		LedgerRepo:        stores.LedgerRepo,
		CustomerDirectory: s.GetDirectory(),
		EventPublisher:    s.GetPublisher(),
		IdempotencyGen:    idempotency.NewGenerator(),
	})

	s.GetDirectory().Add(&customer.Customer{
		ID:    "cust_acme",
		Name:  "Acme Corp",
		Email: "billing@acme.test",
	})
}

func (s *PlanServiceSuite) validCreateRequest() dto.CreatePlanRequest {
	return dto.CreatePlanRequest{
		CustomerID: "cust_acme",
		Name:       "Pro Monthly",
		Frequency:  types.BILLING_FREQUENCY_MONTHLY,
		Interval:   1,
		StartDate:  time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		LineItems: []dto.CreatePlanLineItemRequest{
			{
				Name:           "Subscription",
				UnitPrice:      decimal.NewFromInt(50),
				Quantity:       decimal.NewFromInt(1),
				TaxRatePercent: decimal.NewFromInt(18),
			},
		},
	}
}

func (s *PlanServiceSuite) TestCreatePlan() {
	resp, err := s.planService.CreatePlan(s.GetContext(), s.validCreateRequest())
	s.NoError(err)
	s.NotNil(resp)

	s.NotEmpty(resp.ID)
	s.Equal(types.PlanStatusActive, resp.PlanStatus)
	s.Equal(resp.StartDate, resp.NextInvoiceDate)
	s.Equal(0, resp.TotalGenerated)
	s.Len(resp.LineItems, 1)

	events := s.GetPublisher().EventsByName(types.WebhookEventPlanCreated)
	s.Len(events, 1)
}

func (s *PlanServiceSuite) TestCreatePlanUnknownCustomer() {
	req := s.validCreateRequest()
	req.CustomerID = "cust_ghost"

	resp, err := s.planService.CreatePlan(s.GetContext(), req)
	s.Error(err)
	s.Nil(resp)
	s.True(ierr.IsNotFound(err))
}

func (s *PlanServiceSuite) TestCreatePlanInvalidFrequency() {
	req := s.validCreateRequest()
	req.Frequency = "fortnightly"

	_, err := s.planService.CreatePlan(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceSuite) TestCreatePlanNoLineItems() {
	req := s.validCreateRequest()
	req.LineItems = nil

	_, err := s.planService.CreatePlan(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceSuite) TestCreatePlanEndDateBeforeStart() {
	req := s.validCreateRequest()
	req.EndDate = lo.ToPtr(req.StartDate.AddDate(0, 0, -1))

	_, err := s.planService.CreatePlan(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceSuite) TestPauseAndResume() {
	created, err := s.planService.CreatePlan(s.GetContext(), s.validCreateRequest())
	s.NoError(err)

	paused, err := s.planService.PausePlan(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.PlanStatusPaused, paused.PlanStatus)

	// Pausing twice is an invalid transition
	_, err = s.planService.PausePlan(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	resumed, err := s.planService.ResumePlan(s.GetContext(), created.ID, dto.ResumePlanRequest{})
	s.NoError(err)
	s.Equal(types.PlanStatusActive, resumed.PlanStatus)
}

func (s *PlanServiceSuite) TestResumeFastForwardsCursor() {
	req := s.validCreateRequest()
	req.StartDate = time.Now().UTC().AddDate(0, -3, 0).Truncate(24 * time.Hour)
	created, err := s.planService.CreatePlan(s.GetContext(), req)
	s.NoError(err)

	_, err = s.planService.PausePlan(s.GetContext(), created.ID)
	s.NoError(err)

	resumed, err := s.planService.ResumePlan(s.GetContext(), created.ID, dto.ResumePlanRequest{BackfillMissed: false})
	s.NoError(err)

	// Missed cycles are skipped: cursor lands strictly in the future
	s.True(resumed.NextInvoiceDate.After(time.Now().UTC()))
	s.Equal(types.PlanStatusActive, resumed.PlanStatus)
}

func (s *PlanServiceSuite) TestResumeWithBackfillKeepsCursor() {
	req := s.validCreateRequest()
	req.StartDate = time.Now().UTC().AddDate(0, -3, 0).Truncate(24 * time.Hour)
	created, err := s.planService.CreatePlan(s.GetContext(), req)
	s.NoError(err)

	_, err = s.planService.PausePlan(s.GetContext(), created.ID)
	s.NoError(err)

	resumed, err := s.planService.ResumePlan(s.GetContext(), created.ID, dto.ResumePlanRequest{BackfillMissed: true})
	s.NoError(err)

	// Cursor stays on the oldest unbilled cycle so the scheduler backfills
	s.Equal(created.NextInvoiceDate, resumed.NextInvoiceDate)
}

func (s *PlanServiceSuite) TestResumeExhaustedPlanCompletes() {
	req := s.validCreateRequest()
	req.StartDate = time.Now().UTC().AddDate(0, -3, 0).Truncate(24 * time.Hour)
	req.EndDate = lo.ToPtr(req.StartDate.AddDate(0, 1, 0))
	created, err := s.planService.CreatePlan(s.GetContext(), req)
	s.NoError(err)

	_, err = s.planService.PausePlan(s.GetContext(), created.ID)
	s.NoError(err)

	resumed, err := s.planService.ResumePlan(s.GetContext(), created.ID, dto.ResumePlanRequest{BackfillMissed: false})
	s.NoError(err)

	// Every remaining occurrence fell inside the paused window
	s.Equal(types.PlanStatusCompleted, resumed.PlanStatus)
}

func (s *PlanServiceSuite) TestCancelPlan() {
	created, err := s.planService.CreatePlan(s.GetContext(), s.validCreateRequest())
	s.NoError(err)

	cancelled, err := s.planService.CancelPlan(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.PlanStatusCancelled, cancelled.PlanStatus)

	// Terminal states admit no transitions
	_, err = s.planService.PausePlan(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.planService.ResumePlan(s.GetContext(), created.ID, dto.ResumePlanRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PlanServiceSuite) TestListDuePlans() {
	req := s.validCreateRequest()
	req.StartDate = time.Now().UTC().AddDate(0, 0, -1)
	_, err := s.planService.CreatePlan(s.GetContext(), req)
	s.NoError(err)

	future := s.validCreateRequest()
	future.StartDate = time.Now().UTC().AddDate(0, 1, 0)
	_, err = s.planService.CreatePlan(s.GetContext(), future)
	s.NoError(err)

	resp, err := s.planService.ListDuePlans(s.GetContext(), time.Now().UTC(), nil)
	s.NoError(err)
	s.Len(resp.Items, 1)
}

func (s *PlanServiceSuite) TestListPlansTimeRange() {
	aged, err := s.planService.CreatePlan(s.GetContext(), s.validCreateRequest())
	s.NoError(err)

	recent, err := s.planService.CreatePlan(s.GetContext(), s.validCreateRequest())
	s.NoError(err)

	// Age the first plan's creation timestamp so it falls off the window
	p, err := s.GetStores().PlanRepo.Get(s.GetContext(), aged.ID)
	s.NoError(err)
	p.CreatedAt = time.Now().UTC().AddDate(0, 0, -7)
	s.NoError(s.GetStores().PlanRepo.Update(s.GetContext(), p))

	filter := types.NewPlanFilter()
	filter.TimeRangeFilter = &types.TimeRangeFilter{
		StartTime: lo.ToPtr(time.Now().UTC().Add(-time.Hour)),
	}

	listed, err := s.planService.ListPlans(s.GetContext(), filter)
	s.NoError(err)
	s.Len(listed.Items, 1)
	s.Equal(recent.ID, listed.Items[0].ID)
}

func (s *PlanServiceSuite) TestGetPlanNotFound() {
	_, err := s.planService.GetPlan(s.GetContext(), "plan_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
