package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/internal/domain"
)

// Memory is an in-memory store for tests and local development. A single
// mutex serializes all mutations, which trivially satisfies the per-entity
// exclusion the services require.
type Memory struct {
	mu            sync.RWMutex
	plans         map[uuid.UUID]domain.Plan
	members       map[uuid.UUID]domain.Member
	subscriptions map[uuid.UUID]domain.Subscription
	payments      []domain.Payment
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		plans:         make(map[uuid.UUID]domain.Plan),
		members:       make(map[uuid.UUID]domain.Member),
		subscriptions: make(map[uuid.UUID]domain.Subscription),
	}
}

// --- plans ---

func (m *Memory) ListActivePlans(ctx context.Context) ([]domain.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var plans []domain.Plan
	for _, p := range m.plans {
		if p.Active {
			plans = append(plans, p)
		}
	}
	slices.SortFunc(plans, func(a, b domain.Plan) int {
		return a.Name.Order() - b.Name.Order()
	})
	return plans, nil
}

func (m *Memory) FindPlanByName(ctx context.Context, name domain.PlanKind) (*domain.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.plans {
		if p.Name == name {
			plan := p
			return &plan, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) FindPlanByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	m.plans[plan.ID] = *plan
	return nil
}

// --- members and subscriptions ---

func (m *Memory) CreateMemberAndSubscription(ctx context.Context, member *domain.Member, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.members {
		if strings.EqualFold(existing.Email, member.Email) {
			return domain.ErrDuplicateEmail
		}
	}

	m.members[member.ID] = *member
	m.subscriptions[sub.ID] = *sub
	return nil
}

func (m *Memory) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, member := range m.members {
		if strings.EqualFold(member.Email, email) {
			found := member
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) MarkMemberPaid(ctx context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	member, ok := m.members[memberID]
	if !ok {
		return domain.ErrNotFound
	}
	member.Paid = true
	m.members[memberID] = member
	return nil
}

func (m *Memory) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (m *Memory) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subscriptions[sub.ID]; !ok {
		return domain.ErrNotFound
	}
	m.subscriptions[sub.ID] = *sub
	return nil
}

func (m *Memory) SetLastReminderAt(ctx context.Context, subID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subID]
	if !ok {
		return domain.ErrNotFound
	}
	sub.LastReminderAt = &at
	m.subscriptions[subID] = sub
	return nil
}

func (m *Memory) ListMembersWithSubscription(ctx context.Context) ([]domain.MemberOverview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []domain.MemberOverview
	for _, sub := range m.subscriptions {
		member, ok := m.members[sub.MemberID]
		if !ok {
			continue
		}
		rows = append(rows, domain.MemberOverview{
			Member:       member,
			Subscription: sub,
			PlanName:     m.plans[sub.PlanID].Name,
		})
	}
	slices.SortFunc(rows, func(a, b domain.MemberOverview) int {
		return a.Member.CreatedAt.Compare(b.Member.CreatedAt)
	})
	return rows, nil
}

func (m *Memory) ListActiveWithMembers(ctx context.Context, now time.Time) ([]domain.ActiveSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []domain.ActiveSubscription
	for _, sub := range m.subscriptions {
		if !sub.IsActiveAt(now) {
			continue
		}
		member, ok := m.members[sub.MemberID]
		if !ok {
			continue
		}
		rows = append(rows, domain.ActiveSubscription{
			Subscription: sub,
			Member:       member,
			PlanName:     m.plans[sub.PlanID].Name,
		})
	}
	slices.SortFunc(rows, func(a, b domain.ActiveSubscription) int {
		return a.Subscription.EndAt.Compare(b.Subscription.EndAt)
	})
	return rows, nil
}

func (m *Memory) FindActiveByMember(ctx context.Context, memberID uuid.UUID, now time.Time) (*domain.ActiveSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member, ok := m.members[memberID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, sub := range m.subscriptions {
		if sub.MemberID == memberID && sub.IsActiveAt(now) {
			return &domain.ActiveSubscription{
				Subscription: sub,
				Member:       member,
				PlanName:     m.plans[sub.PlanID].Name,
			}, nil
		}
	}
	return nil, domain.ErrNotFound
}

// --- payments ---

func (m *Memory) AppendPayment(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.members[payment.MemberID]; !ok {
		return domain.ErrNotFound
	}
	m.payments = append(m.payments, *payment)
	return nil
}

func (m *Memory) ListPaidMembers(ctx context.Context) ([]domain.PaidMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []domain.PaidMember
	for _, member := range m.members {
		if !member.Paid {
			continue
		}

		row := domain.PaidMember{Member: member}
		for _, sub := range m.subscriptions {
			if sub.MemberID == member.ID {
				row.PlanName = m.plans[sub.PlanID].Name
				break
			}
		}
		for i := range m.payments {
			p := m.payments[i]
			if p.MemberID != member.ID {
				continue
			}
			if row.LastPayment == nil || p.CreatedAt.After(row.LastPayment.CreatedAt) {
				payment := p
				row.LastPayment = &payment
			}
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b domain.PaidMember) int {
		return a.Member.CreatedAt.Compare(b.Member.CreatedAt)
	})
	return rows, nil
}
