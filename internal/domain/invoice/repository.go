package invoice

import (
	"context"

	"github.com/chronobill/chronobill/internal/types"
)

// Repository defines the interface for invoice persistence. Create must be
// called at most once per claimed cycle; the generation ledger enforces that
// upstream.
type Repository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByCycle(ctx context.Context, planID, cycleKey string) (*Invoice, error)
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)
}
