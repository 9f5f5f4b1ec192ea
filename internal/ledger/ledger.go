// Package ledger holds each member's subscription record: signup creates
// member and subscription as one unit, updates to the plan or start date
// force the end date to be recomputed, and the Active/Expired status is
// always derived from the clock at read time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/period"
)

// Store is the persistence the ledger needs. Implementations must make
// CreateMemberAndSubscription atomic (both rows exist or neither does) and
// serialize concurrent updates to the same subscription.
type Store interface {
	// FindPlanByID returns the plan with the given id.
	// Returns domain.ErrNotFound if no such plan exists.
	FindPlanByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error)

	// CreateMemberAndSubscription persists a member and their subscription
	// as one logical unit. Returns domain.ErrDuplicateEmail when the email
	// is already registered.
	CreateMemberAndSubscription(ctx context.Context, member *domain.Member, sub *domain.Subscription) error

	// FindSubscriptionByID returns the subscription with the given id.
	// Returns domain.ErrNotFound if no such subscription exists.
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)

	// UpdateSubscription persists changed subscription fields.
	UpdateSubscription(ctx context.Context, sub *domain.Subscription) error

	// ListMembersWithSubscription returns every member joined with their
	// subscription and plan name.
	ListMembersWithSubscription(ctx context.Context) ([]domain.MemberOverview, error)
}

// Service is the subscription ledger.
type Service struct {
	store Store
	log   *slog.Logger
}

// New creates a ledger service. Panics on a nil store to fail fast during
// initialization.
func New(store Store, log *slog.Logger) *Service {
	if store == nil {
		panic("ledger: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// CreateInput is the validated signup request: a new member together with
// their first subscription. Phone is optional.
type CreateInput struct {
	Name    string
	Email   string
	Phone   string
	PlanID  uuid.UUID
	StartAt time.Time
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func (in CreateInput) validate() error {
	var errs domain.ValidationErrors
	if strings.TrimSpace(in.Name) == "" {
		errs.Add("name", "is required")
	}
	if !emailRegex.MatchString(in.Email) {
		errs.Add("email", "must be a valid email address")
	}
	if in.PlanID == uuid.Nil {
		errs.Add("plan_id", "is required")
	}
	if in.StartAt.IsZero() {
		errs.Add("start_at", "is required")
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// CreateSubscription validates the signup, computes the period end from the
// plan and start date, and persists member and subscription atomically.
// No writes happen when validation fails or the plan doesn't exist.
func (s *Service) CreateSubscription(ctx context.Context, in CreateInput) (*domain.Member, *domain.Subscription, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	plan, err := s.store.FindPlanByID(ctx, in.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("plan %s: %w", in.PlanID, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("look up plan: %w", err)
	}

	end, err := period.End(plan.Name, in.StartAt)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	member := &domain.Member{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
	}
	sub := &domain.Subscription{
		ID:        uuid.New(),
		MemberID:  member.ID,
		PlanID:    plan.ID,
		StartAt:   in.StartAt,
		EndAt:     end,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateMemberAndSubscription(ctx, member, sub); err != nil {
		return nil, nil, fmt.Errorf("create member and subscription: %w", err)
	}

	s.log.InfoContext(ctx, "subscription created",
		slog.String("member_id", member.ID.String()),
		slog.String("plan", string(plan.Name)),
		slog.Time("end_at", sub.EndAt))

	return member, sub, nil
}

// UpdateInput carries the optional subscription changes; nil fields are
// left untouched.
type UpdateInput struct {
	PlanID    *uuid.UUID
	StartAt   *time.Time
	Cancelled *bool
}

// UpdateSubscription applies the given changes to an existing subscription.
// Changing the plan recomputes the end date from the existing start date;
// changing the start date recomputes it from the existing plan; changing
// both recomputes from both. Returns domain.ErrNotFound for an unknown id.
func (s *Service) UpdateSubscription(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Subscription, error) {
	sub, err := s.store.FindSubscriptionByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("subscription %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("look up subscription: %w", err)
	}

	planID := sub.PlanID
	if in.PlanID != nil {
		planID = *in.PlanID
	}
	startAt := sub.StartAt
	if in.StartAt != nil {
		if in.StartAt.IsZero() {
			var errs domain.ValidationErrors
			errs.Add("start_at", "must be a valid date")
			return nil, errs
		}
		startAt = *in.StartAt
	}

	recompute := in.PlanID != nil || in.StartAt != nil
	if recompute {
		plan, err := s.store.FindPlanByID(ctx, planID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("plan %s: %w", planID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("look up plan: %w", err)
		}

		end, err := period.End(plan.Name, startAt)
		if err != nil {
			return nil, err
		}
		sub.PlanID = plan.ID
		sub.StartAt = startAt
		sub.EndAt = end
	}

	if in.Cancelled != nil {
		sub.Cancelled = *in.Cancelled
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	s.log.InfoContext(ctx, "subscription updated",
		slog.String("subscription_id", sub.ID.String()),
		slog.Bool("recomputed_end", recompute))

	return sub, nil
}

// ListMembers returns every member with their subscription and the status
// derived at the time of the call.
func (s *Service) ListMembers(ctx context.Context) ([]domain.MemberOverview, error) {
	rows, err := s.store.ListMembersWithSubscription(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	now := time.Now().UTC()
	for i := range rows {
		rows[i].Status = rows[i].Subscription.StatusAt(now)
	}
	return rows, nil
}
