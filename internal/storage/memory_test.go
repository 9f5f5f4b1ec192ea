package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/storage"
)

func newMember(email string) (*domain.Member, *domain.Subscription) {
	member := &domain.Member{
		ID:        uuid.New(),
		Name:      "Member",
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	sub := &domain.Subscription{
		ID:       uuid.New(),
		MemberID: member.ID,
		PlanID:   uuid.New(),
		StartAt:  time.Now().UTC(),
		EndAt:    time.Now().UTC().AddDate(0, 1, 0),
	}
	return member, sub
}

func TestMemoryCreateMemberAndSubscription(t *testing.T) {
	t.Parallel()

	t.Run("duplicate email is rejected case-insensitively", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		m1, s1 := newMember("john@example.com")
		require.NoError(t, store.CreateMemberAndSubscription(context.Background(), m1, s1))

		m2, s2 := newMember("JOHN@example.com")
		err := store.CreateMemberAndSubscription(context.Background(), m2, s2)
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)

		// Neither row of the rejected pair exists.
		_, err = store.FindSubscriptionByID(context.Background(), s2.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lookup by email is case-insensitive", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		m, s := newMember("john@example.com")
		require.NoError(t, store.CreateMemberAndSubscription(context.Background(), m, s))

		got, err := store.FindMemberByEmail(context.Background(), "John@Example.COM")
		require.NoError(t, err)
		require.Equal(t, m.ID, got.ID)
	})
}

func TestMemoryListPaidMembers(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	ctx := context.Background()

	plan := &domain.Plan{ID: uuid.New(), Name: domain.PlanMonthly, Active: true}
	require.NoError(t, store.CreatePlan(ctx, plan))

	m, s := newMember("john@example.com")
	s.PlanID = plan.ID
	require.NoError(t, store.CreateMemberAndSubscription(ctx, m, s))
	require.NoError(t, store.MarkMemberPaid(ctx, m.ID))

	older := &domain.Payment{
		ID:        uuid.New(),
		MemberID:  m.ID,
		Amount:    domain.Money{Amount: 4999, Currency: "usd"},
		Status:    domain.PaymentFailed,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	latest := &domain.Payment{
		ID:        uuid.New(),
		MemberID:  m.ID,
		Amount:    domain.Money{Amount: 4999, Currency: "usd"},
		Status:    domain.PaymentSucceeded,
		GatewayID: "pi_123",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.AppendPayment(ctx, older))
	require.NoError(t, store.AppendPayment(ctx, latest))

	rows, err := store.ListPaidMembers(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, domain.PlanMonthly, rows[0].PlanName)
	require.NotNil(t, rows[0].LastPayment)
	require.Equal(t, latest.ID, rows[0].LastPayment.ID)
}

func TestMemoryActiveSubscriptions(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	active, activeSub := newMember("active@example.com")
	require.NoError(t, store.CreateMemberAndSubscription(ctx, active, activeSub))

	expired, expiredSub := newMember("expired@example.com")
	expiredSub.EndAt = now.AddDate(0, 0, -1)
	require.NoError(t, store.CreateMemberAndSubscription(ctx, expired, expiredSub))

	rows, err := store.ListActiveWithMembers(ctx, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, active.ID, rows[0].Member.ID)

	got, err := store.FindActiveByMember(ctx, active.ID, now)
	require.NoError(t, err)
	require.Equal(t, activeSub.ID, got.Subscription.ID)

	_, err = store.FindActiveByMember(ctx, expired.ID, now)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemorySetLastReminderAt(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	ctx := context.Background()

	m, s := newMember("john@example.com")
	require.NoError(t, store.CreateMemberAndSubscription(ctx, m, s))

	at := time.Now().UTC()
	require.NoError(t, store.SetLastReminderAt(ctx, s.ID, at))

	got, err := store.FindSubscriptionByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastReminderAt)
	require.True(t, got.LastReminderAt.Equal(at))

	require.ErrorIs(t, store.SetLastReminderAt(ctx, uuid.New(), at), domain.ErrNotFound)
}
