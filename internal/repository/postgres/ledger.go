package postgres

import (
	"context"
	"database/sql"

	"github.com/chronobill/chronobill/internal/domain/ledger"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
)

type ledgerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{db: db, logger: logger}
}

// Claim relies on the primary key (plan_id, cycle_key) and ON CONFLICT DO
// NOTHING: exactly one of any number of concurrent inserts for the same pair
// reports a row affected. No lock is held beyond the insert itself.
func (r *ledgerRepository) Claim(ctx context.Context, claim *ledger.Claim) error {
	query := `
		INSERT INTO generation_ledger (plan_id, cycle_key, claimed_at, invoice_id)
		VALUES (:plan_id, :cycle_key, :claimed_at, :invoice_id)
		ON CONFLICT (plan_id, cycle_key) DO NOTHING
	`

	result, err := r.db.NamedExecContext(ctx, query, claim)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to claim cycle").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to claim cycle").
			Mark(ierr.ErrDatabase)
	}

	if rows == 0 {
		return ierr.NewError("cycle already claimed").
			WithReportableDetails(map[string]any{
				"plan_id":   claim.PlanID,
				"cycle_key": claim.CycleKey,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	return nil
}

func (r *ledgerRepository) MarkInvoiced(ctx context.Context, planID, cycleKey, invoiceID string) error {
	query := `
		UPDATE generation_ledger
		SET invoice_id = $1
		WHERE plan_id = $2 AND cycle_key = $3
	`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, invoiceID, planID, cycleKey); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark cycle invoiced").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ledgerRepository) Release(ctx context.Context, planID, cycleKey string) error {
	// Only unfinished claims may be released; a claim that already points at
	// an invoice is permanent evidence the cycle was billed.
	query := `
		DELETE FROM generation_ledger
		WHERE plan_id = $1 AND cycle_key = $2 AND invoice_id = ''
	`

	q := r.db.GetQuerier(ctx)
	if _, err := q.ExecContext(ctx, query, planID, cycleKey); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to release claim").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ledgerRepository) Get(ctx context.Context, planID, cycleKey string) (*ledger.Claim, error) {
	query := `
		SELECT * FROM generation_ledger
		WHERE plan_id = $1 AND cycle_key = $2
	`

	var claim ledger.Claim
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &claim, query, planID, cycleKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("claim not found").
				WithReportableDetails(map[string]any{
					"plan_id":   planID,
					"cycle_key": cycleKey,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get claim").
			Mark(ierr.ErrDatabase)
	}

	return &claim, nil
}

func (r *ledgerRepository) ListByPlan(ctx context.Context, planID string) ([]*ledger.Claim, error) {
	query := `
		SELECT * FROM generation_ledger
		WHERE plan_id = $1
		ORDER BY claimed_at ASC
	`

	var claims []*ledger.Claim
	q := r.db.GetQuerier(ctx)
	if err := q.SelectContext(ctx, &claims, query, planID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list claims").
			Mark(ierr.ErrDatabase)
	}
	return claims, nil
}
