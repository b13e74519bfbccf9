package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chronobill/chronobill/internal/domain/plan"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/lib/pq"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (
			id,
			customer_id,
			name,
			frequency,
			billing_interval,
			start_date,
			end_date,
			next_invoice_date,
			total_generated,
			plan_status,
			last_generated_cycle,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:customer_id,
			:name,
			:frequency,
			:billing_interval,
			:start_date,
			:end_date,
			:next_invoice_date,
			:total_generated,
			:plan_status,
			:last_generated_cycle,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	r.logger.Debugw("creating plan", "plan_id", p.ID)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create plan").
				Mark(ierr.ErrDatabase)
		}

		for _, item := range p.LineItems {
			if err := r.createLineItem(ctx, &item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *planRepository) createLineItem(ctx context.Context, item *plan.LineItem) error {
	query := `
		INSERT INTO plan_line_items (
			id, plan_id, name, unit_price, quantity, discount_percent, tax_rate_percent,
			status, created_at, updated_at, created_by, updated_by
		)
		VALUES (
			:id, :plan_id, :name, :unit_price, :quantity, :discount_percent, :tax_rate_percent,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create plan line item").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	query := `
		SELECT * FROM plans
		WHERE id = $1
		AND status != $2
	`

	var p plan.Plan
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &p, query, id, types.StatusDeleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"plan_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.getLineItems(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.LineItems = items

	return &p, nil
}

func (r *planRepository) getLineItems(ctx context.Context, planID string) ([]plan.LineItem, error) {
	query := `
		SELECT * FROM plan_line_items
		WHERE plan_id = $1
		AND status = $2
		ORDER BY created_at ASC, id ASC
	`

	var items []plan.LineItem
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &items, query, planID, types.StatusPublished); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan line items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}

func (r *planRepository) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.Plan, error) {
	query := `SELECT * FROM plans WHERE status != $1`
	args := []interface{}{types.StatusDeleted}
	argIdx := 2

	if filter != nil {
		if filter.CustomerID != "" {
			query += fmt.Sprintf(" AND customer_id = $%d", argIdx)
			args = append(args, filter.CustomerID)
			argIdx++
		}
		if len(filter.PlanStatuses) > 0 {
			query += fmt.Sprintf(" AND plan_status = ANY($%d)", argIdx)
			statuses := make([]string, len(filter.PlanStatuses))
			for i, s := range filter.PlanStatuses {
				statuses[i] = s.String()
			}
			args = append(args, pq.Array(statuses))
			argIdx++
		}
		if filter.DueBefore != nil {
			query += fmt.Sprintf(" AND next_invoice_date <= $%d", argIdx)
			args = append(args, *filter.DueBefore)
			argIdx++
		}
		if filter.TimeRangeFilter != nil {
			if filter.TimeRangeFilter.StartTime != nil {
				query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
				args = append(args, *filter.TimeRangeFilter.StartTime)
				argIdx++
			}
			if filter.TimeRangeFilter.EndTime != nil {
				query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
				args = append(args, *filter.TimeRangeFilter.EndTime)
				argIdx++
			}
		}
	}

	query += " ORDER BY created_at DESC"

	if filter != nil && !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.GetLimit(), filter.GetOffset())
	}

	var plans []*plan.Plan
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}

	for _, p := range plans {
		items, err := r.getLineItems(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.LineItems = items
	}

	return plans, nil
}

func (r *planRepository) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	query := `SELECT COUNT(*) FROM plans WHERE status != $1`
	args := []interface{}{types.StatusDeleted}
	argIdx := 2

	if filter != nil {
		if filter.CustomerID != "" {
			query += fmt.Sprintf(" AND customer_id = $%d", argIdx)
			args = append(args, filter.CustomerID)
			argIdx++
		}
		if len(filter.PlanStatuses) > 0 {
			query += fmt.Sprintf(" AND plan_status = ANY($%d)", argIdx)
			statuses := make([]string, len(filter.PlanStatuses))
			for i, s := range filter.PlanStatuses {
				statuses[i] = s.String()
			}
			args = append(args, pq.Array(statuses))
			argIdx++
		}
	}

	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count plans").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE plans SET
			name = :name,
			end_date = :end_date,
			next_invoice_date = :next_invoice_date,
			total_generated = :total_generated,
			plan_status = :plan_status,
			last_generated_cycle = :last_generated_cycle,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update plan").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update plan").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("plan not found").
			WithHintf("Plan with ID %s was not found", p.ID).
			Mark(ierr.ErrNotFound)
	}

	return nil
}

// Delete soft-deletes the plan row. Historical invoices keep referencing the
// plan id, so rows are never removed physically.
func (r *planRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE plans SET
			status = $1,
			updated_at = $2,
			updated_by = $3
		WHERE id = $4
	`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, types.StatusDeleted, time.Now().UTC(), types.GetUserID(ctx), id); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete plan").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) ListDue(ctx context.Context, now time.Time, limit, offset int) ([]*plan.Plan, error) {
	query := `
		SELECT * FROM plans
		WHERE status = $1
		AND plan_status = $2
		AND next_invoice_date <= $3
		ORDER BY next_invoice_date ASC
		LIMIT $4 OFFSET $5
	`

	var plans []*plan.Plan
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &plans, query, types.StatusPublished, types.PlanStatusActive, now, limit, offset); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list due plans").
			Mark(ierr.ErrDatabase)
	}

	for _, p := range plans {
		items, err := r.getLineItems(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.LineItems = items
	}

	return plans, nil
}
