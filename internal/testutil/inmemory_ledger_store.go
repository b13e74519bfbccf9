package testutil

import (
	"context"
	"sync"

	"github.com/chronobill/chronobill/internal/domain/ledger"
	ierr "github.com/chronobill/chronobill/internal/errors"
)

// InMemoryLedgerStore implements ledger.Repository. Claim is atomic under a
// single mutex, mirroring the insert-if-absent semantics of the postgres
// implementation.
type InMemoryLedgerStore struct {
	mu     sync.Mutex
	claims map[string]*ledger.Claim
}

// NewInMemoryLedgerStore creates a new in-memory ledger store
func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		claims: make(map[string]*ledger.Claim),
	}
}

func claimKey(planID, cycleKey string) string {
	return planID + "|" + cycleKey
}

func (s *InMemoryLedgerStore) Claim(ctx context.Context, claim *ledger.Claim) error {
	if claim == nil {
		return ierr.NewError("claim cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := claimKey(claim.PlanID, claim.CycleKey)
	if _, exists := s.claims[key]; exists {
		return ierr.NewError("cycle already claimed").
			WithHintf("Cycle %s for plan %s is already claimed", claim.CycleKey, claim.PlanID).
			Mark(ierr.ErrAlreadyExists)
	}

	clone := *claim
	s.claims[key] = &clone
	return nil
}

func (s *InMemoryLedgerStore) MarkInvoiced(ctx context.Context, planID, cycleKey, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, exists := s.claims[claimKey(planID, cycleKey)]
	if !exists {
		return ierr.NewError("claim not found").
			WithHintf("No claim exists for plan %s cycle %s", planID, cycleKey).
			Mark(ierr.ErrNotFound)
	}

	claim.InvoiceID = invoiceID
	return nil
}

func (s *InMemoryLedgerStore) Release(ctx context.Context, planID, cycleKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := claimKey(planID, cycleKey)
	claim, exists := s.claims[key]
	if !exists {
		return nil
	}

	// Mirrors the postgres delete guard: invoiced claims are permanent
	if claim.InvoiceID != "" {
		return nil
	}

	delete(s.claims, key)
	return nil
}

func (s *InMemoryLedgerStore) Get(ctx context.Context, planID, cycleKey string) (*ledger.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, exists := s.claims[claimKey(planID, cycleKey)]
	if !exists {
		return nil, ierr.NewError("claim not found").
			WithHintf("No claim exists for plan %s cycle %s", planID, cycleKey).
			Mark(ierr.ErrNotFound)
	}

	clone := *claim
	return &clone, nil
}

func (s *InMemoryLedgerStore) ListByPlan(ctx context.Context, planID string) ([]*ledger.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*ledger.Claim
	for _, claim := range s.claims {
		if claim.PlanID == planID {
			clone := *claim
			result = append(result, &clone)
		}
	}
	return result, nil
}

// Clear removes all claims
func (s *InMemoryLedgerStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = make(map[string]*ledger.Claim)
}
