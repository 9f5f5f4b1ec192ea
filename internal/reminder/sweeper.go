// Package reminder decides who gets an expiry reminder and when. A sweep
// scans all active subscriptions, selects those with exactly the configured
// number of days left, and dispatches at most one reminder per expiry
// period. Sweeps are single-flight: a trigger while another sweep is
// running is a no-op.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/mailer"
)

// DefaultThresholdDays selects subscriptions with exactly this many whole
// days remaining (rounded up).
const DefaultThresholdDays = 3

// SubscriptionStore is the persistence the sweeper needs.
type SubscriptionStore interface {
	// ListActiveWithMembers returns every subscription active at the given
	// instant (not cancelled, end after now) joined with its member and
	// plan name.
	ListActiveWithMembers(ctx context.Context, now time.Time) ([]domain.ActiveSubscription, error)

	// FindActiveByMember returns the member's subscription if it is active
	// at the given instant. Returns domain.ErrNotFound otherwise.
	FindActiveByMember(ctx context.Context, memberID uuid.UUID, now time.Time) (*domain.ActiveSubscription, error)

	// SetLastReminderAt records when a reminder was dispatched for the
	// subscription.
	SetLastReminderAt(ctx context.Context, subID uuid.UUID, at time.Time) error
}

// Stats summarizes one sweep invocation.
type Stats struct {
	Scanned int  // active subscriptions inspected
	Due     int  // matched the days-left threshold
	Sent    int  // reminders dispatched
	Failed  int  // dispatch failures, left for a later sweep to retry
	Skipped int  // already reminded this period
	Locked  bool // another sweep held the lock and this one was a no-op
}

// Sweeper runs reminder sweeps.
type Sweeper struct {
	store     SubscriptionStore
	mailer    mailer.Sender
	lock      Locker
	log       *slog.Logger
	threshold int
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithThreshold overrides the days-left threshold.
func WithThreshold(days int) Option {
	return func(s *Sweeper) {
		if days > 0 {
			s.threshold = days
		}
	}
}

// WithLocker replaces the default in-process lock, e.g. with the
// redis-backed one when multiple instances run the sweep.
func WithLocker(l Locker) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.lock = l
		}
	}
}

// NewSweeper creates a sweeper. Panics on nil dependencies to fail fast
// during initialization.
func NewSweeper(store SubscriptionStore, sender mailer.Sender, log *slog.Logger, opts ...Option) *Sweeper {
	if store == nil {
		panic("reminder: SubscriptionStore is required")
	}
	if sender == nil {
		panic("reminder: mailer.Sender is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Sweeper{
		store:     store,
		mailer:    sender,
		lock:      NewMemoryLock(),
		log:       log,
		threshold: DefaultThresholdDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one sweep against the current clock.
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	return s.SweepAt(ctx, time.Now().UTC())
}

// SweepAt runs one sweep using the given instant as "now".
//
// A subscription is reminded when its days left equal the threshold and no
// reminder has been recorded for the current expiry period. The marker is
// written only after a successful dispatch, so a failed send stays eligible
// and a later sweep retries it. Repeated sweeps on the same day therefore
// never double-send.
func (s *Sweeper) SweepAt(ctx context.Context, now time.Time) (Stats, error) {
	acquired, err := s.lock.TryLock(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		s.log.InfoContext(ctx, "sweep already running, skipping")
		return Stats{Locked: true}, nil
	}
	defer func() {
		if err := s.lock.Unlock(ctx); err != nil {
			s.log.ErrorContext(ctx, "release sweep lock", slog.Any("error", err))
		}
	}()

	subs, err := s.store.ListActiveWithMembers(ctx, now)
	if err != nil {
		return Stats{}, fmt.Errorf("list active subscriptions: %w", err)
	}

	stats := Stats{Scanned: len(subs)}
	for _, row := range subs {
		if row.Subscription.DaysLeftAt(now) != s.threshold {
			continue
		}
		stats.Due++

		if row.Subscription.ReminderSentThisPeriod() {
			stats.Skipped++
			continue
		}

		if err := s.dispatch(ctx, row, now); err != nil {
			stats.Failed++
			s.log.ErrorContext(ctx, "reminder not delivered",
				slog.String("subscription_id", row.Subscription.ID.String()),
				slog.Any("error", err))
			continue
		}
		stats.Sent++
	}

	s.log.InfoContext(ctx, "reminder sweep finished",
		slog.Int("scanned", stats.Scanned),
		slog.Int("due", stats.Due),
		slog.Int("sent", stats.Sent),
		slog.Int("failed", stats.Failed),
		slog.Int("skipped", stats.Skipped))

	return stats, nil
}

// Resend dispatches a reminder to a single member regardless of how many
// days their subscription has left, for manual operator resends. The
// subscription must still be active; the dispatch marker is updated the
// same way the sweep updates it.
func (s *Sweeper) Resend(ctx context.Context, memberID uuid.UUID) error {
	now := time.Now().UTC()

	row, err := s.store.FindActiveByMember(ctx, memberID, now)
	if err != nil {
		return fmt.Errorf("find active subscription for member %s: %w", memberID, err)
	}

	if err := s.dispatch(ctx, *row, now); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "manual reminder sent",
		slog.String("member_id", memberID.String()))
	return nil
}

// dispatch sends the reminder and records the marker on success. The marker
// write follows the send: if it fails the worst case is one duplicate
// reminder on the next sweep, which beats silently marking an unsent one.
func (s *Sweeper) dispatch(ctx context.Context, row domain.ActiveSubscription, now time.Time) error {
	msg := mailer.PaymentReminder(row.Member.Email, row.Member.Name, row.PlanName)
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailed, err)
	}

	if err := s.store.SetLastReminderAt(ctx, row.Subscription.ID, now); err != nil {
		return fmt.Errorf("record reminder marker: %w", err)
	}
	return nil
}
