package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chronobill/chronobill/internal/domain/invoice"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
	"github.com/chronobill/chronobill/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			id,
			invoice_number,
			plan_id,
			customer_id,
			cycle_key,
			cycle_date,
			subtotal,
			total_discount,
			total_tax,
			grand_total,
			generated_at,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		)
		VALUES (
			:id,
			:invoice_number,
			:plan_id,
			:customer_id,
			:cycle_key,
			:cycle_date,
			:subtotal,
			:total_discount,
			:total_tax,
			:grand_total,
			:generated_at,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"plan_id", inv.PlanID,
		"cycle_key", inv.CycleKey,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create invoice").
				Mark(ierr.ErrDatabase)
		}

		for _, item := range inv.LineItems {
			if err := r.createLineItem(ctx, &item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) createLineItem(ctx context.Context, item *invoice.LineItem) error {
	query := `
		INSERT INTO invoice_line_items (
			id, invoice_id, name, unit_price, quantity, discount_percent, tax_rate_percent,
			item_total, discount_amount, tax_amount,
			status, created_at, updated_at, created_by, updated_by
		)
		VALUES (
			:id, :invoice_id, :name, :unit_price, :quantity, :discount_percent, :tax_rate_percent,
			:item_total, :discount_amount, :tax_amount,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice line item").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT * FROM invoices WHERE id = $1`

	var inv invoice.Invoice
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &inv, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.getLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items

	return &inv, nil
}

func (r *invoiceRepository) GetByCycle(ctx context.Context, planID, cycleKey string) (*invoice.Invoice, error) {
	query := `SELECT * FROM invoices WHERE plan_id = $1 AND cycle_key = $2`

	var inv invoice.Invoice
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &inv, query, planID, cycleKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("invoice not found for cycle").
				WithHint("No invoice exists for this plan cycle").
				WithReportableDetails(map[string]any{
					"plan_id":   planID,
					"cycle_key": cycleKey,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice by cycle").
			Mark(ierr.ErrDatabase)
	}

	items, err := r.getLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items

	return &inv, nil
}

func (r *invoiceRepository) getLineItems(ctx context.Context, invoiceID string) ([]invoice.LineItem, error) {
	query := `
		SELECT * FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var items []invoice.LineItem
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &items, query, invoiceID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice line items").
			Mark(ierr.ErrDatabase)
	}
	return items, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query := `SELECT * FROM invoices WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter != nil {
		if filter.PlanID != "" {
			query += fmt.Sprintf(" AND plan_id = $%d", argIdx)
			args = append(args, filter.PlanID)
			argIdx++
		}
		if filter.CustomerID != "" {
			query += fmt.Sprintf(" AND customer_id = $%d", argIdx)
			args = append(args, filter.CustomerID)
			argIdx++
		}
		if filter.TimeRangeFilter != nil {
			if filter.TimeRangeFilter.StartTime != nil {
				query += fmt.Sprintf(" AND generated_at >= $%d", argIdx)
				args = append(args, *filter.TimeRangeFilter.StartTime)
				argIdx++
			}
			if filter.TimeRangeFilter.EndTime != nil {
				query += fmt.Sprintf(" AND generated_at <= $%d", argIdx)
				args = append(args, *filter.TimeRangeFilter.EndTime)
				argIdx++
			}
		}
	}

	query += " ORDER BY generated_at DESC"

	if filter != nil && !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, filter.GetLimit(), filter.GetOffset())
	}

	var invoices []*invoice.Invoice
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	for _, inv := range invoices {
		items, err := r.getLineItems(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.LineItems = items
	}

	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query := `SELECT COUNT(*) FROM invoices WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter != nil {
		if filter.PlanID != "" {
			query += fmt.Sprintf(" AND plan_id = $%d", argIdx)
			args = append(args, filter.PlanID)
			argIdx++
		}
		if filter.CustomerID != "" {
			query += fmt.Sprintf(" AND customer_id = $%d", argIdx)
			args = append(args, filter.CustomerID)
			argIdx++
		}
	}

	var count int
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
