package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/internal/catalog"
	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/ledger"
	"github.com/dmitrymomot/billingkit/internal/storage"
)

func seedPlans(t *testing.T, store *storage.Memory) map[domain.PlanKind]uuid.UUID {
	t.Helper()

	svc := catalog.New(store, nil)
	require.NoError(t, svc.EnsureDefaults(context.Background(), domain.DefaultPlanKinds))

	ids := make(map[domain.PlanKind]uuid.UUID)
	for _, kind := range domain.DefaultPlanKinds {
		plan, err := store.FindPlanByName(context.Background(), kind)
		require.NoError(t, err)
		ids[kind] = plan.ID
	}
	return ids
}

func TestCreateSubscription(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	t.Run("creates member and subscription", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		plans := seedPlans(t, store)
		svc := ledger.New(store, nil)

		member, sub, err := svc.CreateSubscription(context.Background(), ledger.CreateInput{
			Name:    "John Doe",
			Email:   "John@Example.com",
			Phone:   "555-0100",
			PlanID:  plans[domain.PlanMonthly],
			StartAt: start,
		})
		require.NoError(t, err)
		require.Equal(t, "john@example.com", member.Email)
		require.False(t, member.Paid)
		require.Equal(t, member.ID, sub.MemberID)
		require.Equal(t, start.AddDate(0, 1, 0), sub.EndAt)
	})

	t.Run("rejects invalid input without writes", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		seedPlans(t, store)
		svc := ledger.New(store, nil)

		_, _, err := svc.CreateSubscription(context.Background(), ledger.CreateInput{
			Email: "not-an-email",
		})
		require.ErrorIs(t, err, domain.ErrValidation)

		var verrs domain.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		fields := make([]string, 0, len(verrs))
		for _, ve := range verrs {
			fields = append(fields, ve.Field)
		}
		require.ElementsMatch(t, []string{"name", "email", "plan_id", "start_at"}, fields)

		rows, err := svc.ListMembers(context.Background())
		require.NoError(t, err)
		require.Empty(t, rows)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		seedPlans(t, store)
		svc := ledger.New(store, nil)

		_, _, err := svc.CreateSubscription(context.Background(), ledger.CreateInput{
			Name:    "John Doe",
			Email:   "john@example.com",
			PlanID:  uuid.New(),
			StartAt: start,
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		plans := seedPlans(t, store)
		svc := ledger.New(store, nil)

		in := ledger.CreateInput{
			Name:    "John Doe",
			Email:   "john@example.com",
			PlanID:  plans[domain.PlanMonthly],
			StartAt: start,
		}
		_, _, err := svc.CreateSubscription(context.Background(), in)
		require.NoError(t, err)

		in.Email = "JOHN@example.com"
		_, _, err = svc.CreateSubscription(context.Background(), in)
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})
}

func TestUpdateSubscription(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	create := func(t *testing.T) (*ledger.Service, *storage.Memory, map[domain.PlanKind]uuid.UUID, *domain.Subscription) {
		t.Helper()

		store := storage.NewMemory()
		plans := seedPlans(t, store)
		svc := ledger.New(store, nil)

		_, sub, err := svc.CreateSubscription(context.Background(), ledger.CreateInput{
			Name:    "John Doe",
			Email:   "john@example.com",
			PlanID:  plans[domain.PlanMonthly],
			StartAt: start,
		})
		require.NoError(t, err)
		return svc, store, plans, sub
	}

	t.Run("plan change recomputes end date", func(t *testing.T) {
		t.Parallel()

		svc, _, plans, sub := create(t)

		quarterly := plans[domain.PlanQuarterly]
		updated, err := svc.UpdateSubscription(context.Background(), sub.ID, ledger.UpdateInput{
			PlanID: &quarterly,
		})
		require.NoError(t, err)
		require.Equal(t, quarterly, updated.PlanID)
		require.Equal(t, start.AddDate(0, 3, 0), updated.EndAt)
		require.Equal(t, start, updated.StartAt)
	})

	t.Run("start change recomputes end date", func(t *testing.T) {
		t.Parallel()

		svc, _, _, sub := create(t)

		newStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
		updated, err := svc.UpdateSubscription(context.Background(), sub.ID, ledger.UpdateInput{
			StartAt: &newStart,
		})
		require.NoError(t, err)
		require.Equal(t, newStart.AddDate(0, 1, 0), updated.EndAt)
	})

	t.Run("cancel alone keeps end date", func(t *testing.T) {
		t.Parallel()

		svc, _, _, sub := create(t)

		cancelled := true
		updated, err := svc.UpdateSubscription(context.Background(), sub.ID, ledger.UpdateInput{
			Cancelled: &cancelled,
		})
		require.NoError(t, err)
		require.True(t, updated.Cancelled)
		require.Equal(t, sub.EndAt, updated.EndAt)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		svc, _, _, _ := create(t)

		_, err := svc.UpdateSubscription(context.Background(), uuid.New(), ledger.UpdateInput{})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListMembers(t *testing.T) {
	t.Parallel()

	t.Run("derives status from clock", func(t *testing.T) {
		t.Parallel()

		store := storage.NewMemory()
		plans := seedPlans(t, store)
		svc := ledger.New(store, nil)

		// Ends a day from now: active.
		_, _, err := svc.CreateSubscription(context.Background(), ledger.CreateInput{
			Name:    "Active Member",
			Email:   "active@example.com",
			PlanID:  plans[domain.PlanDaily],
			StartAt: time.Now().UTC(),
		})
		require.NoError(t, err)

		// Ended last year: expired.
		_, _, err = svc.CreateSubscription(context.Background(), ledger.CreateInput{
			Name:    "Expired Member",
			Email:   "expired@example.com",
			PlanID:  plans[domain.PlanMonthly],
			StartAt: time.Now().UTC().AddDate(-1, 0, 0),
		})
		require.NoError(t, err)

		rows, err := svc.ListMembers(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 2)

		byEmail := make(map[string]domain.MemberOverview, len(rows))
		for _, row := range rows {
			byEmail[row.Member.Email] = row
		}
		require.Equal(t, domain.StatusActive, byEmail["active@example.com"].Status)
		require.Equal(t, domain.StatusExpired, byEmail["expired@example.com"].Status)
		require.Equal(t, domain.PlanDaily, byEmail["active@example.com"].PlanName)
	})
}
