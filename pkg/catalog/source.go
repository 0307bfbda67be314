package catalog

import (
	"context"
	"maps"
	"sync"
)

// Source defines how plans are loaded into consumers of the catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

type inMemSource struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemSource returns an in-memory Source with a deep copy of the given plans.
// Panics if no plans are provided to ensure consumers always have at least one
// valid plan. Deep copying prevents external modifications from affecting the
// source's state.
func NewInMemSource(plans ...Plan) Source {
	if len(plans) < 1 {
		panic("catalog: at least one plan is required")
	}
	plansCopy := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		plansCopy[plan.ID] = Plan{
			ID:      plan.ID,
			Name:    plan.Name,
			Pricing: maps.Clone(plan.Pricing),
		}
	}

	return &inMemSource{plans: plansCopy}
}

// Load returns a copy of all available plans from memory.
func (s *inMemSource) Load(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plansCopy := make(map[string]Plan, len(s.plans))
	for id, plan := range s.plans {
		plansCopy[id] = Plan{
			ID:      plan.ID,
			Name:    plan.Name,
			Pricing: maps.Clone(plan.Pricing),
		}
	}
	return plansCopy, nil
}
