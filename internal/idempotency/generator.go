package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopePlanCycle keys one occurrence of one plan. Claims in the
	// generation ledger use keys of this scope.
	ScopePlanCycle Scope = "plan_cycle"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	// Sort params for consistent hashing
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:8])) // First 8 bytes for readability
}

// CycleKey returns the deterministic key for one plan occurrence. Two
// runners computing the key for the same (plan, occurrence) always agree,
// which is what makes the ledger claim race-free.
func (g *Generator) CycleKey(planID string, occurrence time.Time) string {
	return g.GenerateKey(ScopePlanCycle, map[string]interface{}{
		"plan_id":    planID,
		"occurrence": occurrence.UTC().Format(time.RFC3339),
	})
}

// ValidateKey validates if an idempotency key matches expected parameters
func (g *Generator) ValidateKey(scope Scope, params map[string]interface{}, key string) bool {
	generated := g.GenerateKey(scope, params)
	return generated == key
}
