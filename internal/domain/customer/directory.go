package customer

import (
	"context"
)

// Directory resolves customers by id. Implementations must honor the
// caller's context deadline; a lookup failure is treated as a transient
// per-plan error by the scheduler, never as a fatal one.
type Directory interface {
	Get(ctx context.Context, id string) (*Customer, error)
}
