package postgres

import (
	"context"
	"database/sql"

	"github.com/chronobill/chronobill/internal/domain/customer"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/postgres"
)

// customerDirectory is the in-process customer directory used when no remote
// directory is configured. It reads the local customers table.
type customerDirectory struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerDirectory(db *postgres.DB, logger *logger.Logger) customer.Directory {
	return &customerDirectory{db: db, logger: logger}
}

func (r *customerDirectory) Get(ctx context.Context, id string) (*customer.Customer, error) {
	query := `SELECT id, name, email, phone FROM customers WHERE id = $1`

	var c customer.Customer
	q := r.db.GetQuerier(ctx)
	if err := q.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("customer not found").
				WithHintf("Customer with ID %s was not found", id).
				WithReportableDetails(map[string]any{
					"customer_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get customer").
			Mark(ierr.ErrDatabase)
	}

	return &c, nil
}
