package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chronobill/chronobill/internal/api/dto"
	"github.com/chronobill/chronobill/internal/domain/plan"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/samber/lo"
)

// PlanService manages the billing plan lifecycle
type PlanService interface {
	CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	ListPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error)
	PausePlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	ResumePlan(ctx context.Context, id string, req dto.ResumePlanRequest) (*dto.PlanResponse, error)
	CancelPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	ListDuePlans(ctx context.Context, asOf time.Time, filter *types.QueryFilter) (*dto.ListPlansResponse, error)
}

type planService struct {
	ServiceParams
}

// NewPlanService creates a new plan service
func NewPlanService(params ServiceParams) PlanService {
	return &planService{
		ServiceParams: params,
	}
}

func (s *planService) CreatePlan(ctx context.Context, req dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The directory is authoritative for customer existence
	if _, err := s.CustomerDirectory.Get(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	p := req.ToPlan(ctx)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created billing plan",
		"plan_id", p.ID,
		"customer_id", p.CustomerID,
		"frequency", p.Frequency,
		"interval", p.Interval,
		"next_invoice_date", p.NextInvoiceDate,
	)

	s.publishPlanEvent(ctx, types.WebhookEventPlanCreated, p.ID, p)

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan id is required").
			WithHint("Plan ID is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) ListPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error) {
	if filter == nil {
		filter = types.NewPlanFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	plans, err := s.PlanRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.PlanRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, &dto.PlanResponse{Plan: p})
	}

	response := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &response, nil
}

func (s *planService) PausePlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(p.PlanStatus, types.PlanStatusPaused); err != nil {
		return nil, err
	}

	p.PlanStatus = types.PlanStatusPaused
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("paused billing plan", "plan_id", p.ID)
	s.publishPlanEvent(ctx, types.WebhookEventPlanPaused, p.ID, p)

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) ResumePlan(ctx context.Context, id string, req dto.ResumePlanRequest) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(p.PlanStatus, types.PlanStatusActive); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.PlanStatus = types.PlanStatusActive
	p.UpdatedAt = now
	p.UpdatedBy = types.GetUserID(ctx)

	// Without backfill the cursor jumps past every cycle missed while
	// paused. With backfill it stays put and the scheduler works through
	// the arrears one run at a time.
	if !req.BackfillMissed && p.NextInvoiceDate.Before(now) {
		next, ok, err := p.NextCycleAfter(now)
		if err != nil {
			return nil, err
		}
		if !ok {
			// No occurrence remains before the end date
			p.PlanStatus = types.PlanStatusCompleted
		} else {
			p.NextInvoiceDate = next
		}
	}

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("resumed billing plan",
		"plan_id", p.ID,
		"backfill_missed", req.BackfillMissed,
		"plan_status", p.PlanStatus,
		"next_invoice_date", p.NextInvoiceDate,
	)
	s.publishPlanEvent(ctx, types.WebhookEventPlanResumed, p.ID, p)

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) CancelPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(p.PlanStatus, types.PlanStatusCancelled); err != nil {
		return nil, err
	}

	p.PlanStatus = types.PlanStatusCancelled
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled billing plan", "plan_id", p.ID)
	s.publishPlanEvent(ctx, types.WebhookEventPlanCancelled, p.ID, p)

	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) ListDuePlans(ctx context.Context, asOf time.Time, filter *types.QueryFilter) (*dto.ListPlansResponse, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	if filter == nil || filter.IsUnlimited() {
		filter = types.NewDefaultQueryFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	plans, err := s.PlanRepo.ListDue(ctx, asOf, filter.GetLimit(), filter.GetOffset())
	if err != nil {
		return nil, err
	}

	items := lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
		return &dto.PlanResponse{Plan: p}
	})

	response := types.NewListResponse(items, len(items), filter.GetLimit(), filter.GetOffset())
	return &response, nil
}

func (s *planService) transition(from, to types.PlanStatus) error {
	if !from.CanTransitionTo(to) {
		return ierr.NewError("invalid plan status transition").
			WithHintf("Cannot transition plan from %s to %s", from, to).
			WithReportableDetails(map[string]any{
				"from": from,
				"to":   to,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (s *planService) publishPlanEvent(ctx context.Context, eventName, planID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.Logger.Errorw("failed to marshal plan event payload",
			"error", err,
			"event_name", eventName,
			"plan_id", planID,
		)
		return
	}

	s.EventPublisher.Publish(ctx, &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventName,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	})
}
