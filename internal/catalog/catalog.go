// Package catalog manages the fixed set of billing plans: listing the
// active ones for signup and idempotently seeding the canonical set at
// startup. Plans are read far more often than written, so the active list
// is cached in memory and invalidated whenever the catalog changes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/internal/domain"
)

// PlanStore is the persistence the catalog needs.
type PlanStore interface {
	// ListActivePlans returns all plans with the active flag set.
	ListActivePlans(ctx context.Context) ([]domain.Plan, error)

	// FindPlanByName returns the plan with the given name.
	// Returns domain.ErrNotFound if no such plan exists.
	FindPlanByName(ctx context.Context, name domain.PlanKind) (*domain.Plan, error)

	// CreatePlan persists a new plan.
	CreatePlan(ctx context.Context, plan *domain.Plan) error
}

// Service is the plan catalog.
type Service struct {
	store PlanStore
	log   *slog.Logger

	mu     sync.RWMutex
	cached []domain.Plan // active plans in canonical order; nil when stale
}

// New creates a catalog service. Panics on a nil store to fail fast during
// initialization.
func New(store PlanStore, log *slog.Logger) *Service {
	if store == nil {
		panic("catalog: PlanStore is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// ListActivePlans returns the active plans ordered by period length
// (Daily first, Annually last). The result is served from cache until the
// catalog changes.
func (s *Service) ListActivePlans(ctx context.Context) ([]domain.Plan, error) {
	s.mu.RLock()
	if s.cached != nil {
		plans := slices.Clone(s.cached)
		s.mu.RUnlock()
		return plans, nil
	}
	s.mu.RUnlock()

	plans, err := s.store.ListActivePlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}

	slices.SortFunc(plans, func(a, b domain.Plan) int {
		return a.Name.Order() - b.Name.Order()
	})

	s.mu.Lock()
	s.cached = slices.Clone(plans)
	s.mu.Unlock()

	return plans, nil
}

// EnsureDefaults idempotently guarantees the given plans exist, creating any
// missing by name. Existing plans keep their attributes and active flag
// untouched, so a deactivated plan stays deactivated across restarts.
func (s *Service) EnsureDefaults(ctx context.Context, kinds []domain.PlanKind) error {
	var created int
	for _, kind := range kinds {
		if !kind.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidPlan, kind)
		}

		_, err := s.store.FindPlanByName(ctx, kind)
		if err == nil {
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("look up plan %q: %w", kind, err)
		}

		plan := &domain.Plan{ID: uuid.New(), Name: kind, Active: true}
		if err := s.store.CreatePlan(ctx, plan); err != nil {
			return fmt.Errorf("create plan %q: %w", kind, err)
		}
		created++
	}

	if created > 0 {
		s.invalidate()
		s.log.InfoContext(ctx, "seeded missing plans", slog.Int("created", created))
	}
	return nil
}

// invalidate drops the cached active list so the next read hits the store.
func (s *Service) invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
