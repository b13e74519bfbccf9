package plan

import (
	"context"
	"time"

	"github.com/chronobill/chronobill/internal/types"
)

// Repository defines the interface for plan persistence
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context, filter *types.PlanFilter) ([]*Plan, error)
	Count(ctx context.Context, filter *types.PlanFilter) (int, error)
	Update(ctx context.Context, plan *Plan) error
	Delete(ctx context.Context, id string) error

	// ListDue returns active plans with next_invoice_date <= now, ordered
	// oldest-due first so starved plans are served before fresher ones.
	ListDue(ctx context.Context, now time.Time, limit, offset int) ([]*Plan, error)
}
