// Package payment processes charge attempts against members. Each attempt
// is one-shot: the gateway is asked once, the outcome is appended to the
// payment log, and a retried payment is a brand-new attempt with its own
// record.
//
// Side effects are strictly ordered. The payment record is written before
// any notification goes out, and a notification failure never rolls back or
// hides the recorded outcome - it is reported to the caller as a separate
// error alongside the payment result.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/gateway"
	"github.com/dmitrymomot/billingkit/internal/mailer"
)

// Store is the persistence the payment service needs.
type Store interface {
	// FindMemberByEmail returns the member with the given email.
	// Returns domain.ErrNotFound if no such member exists.
	FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error)

	// AppendPayment persists a new payment record. Records are append-only.
	AppendPayment(ctx context.Context, payment *domain.Payment) error

	// MarkMemberPaid sets the member's paid flag.
	MarkMemberPaid(ctx context.Context, memberID uuid.UUID) error

	// ListPaidMembers returns members whose paid flag is set, each with
	// their most recent payment record.
	ListPaidMembers(ctx context.Context) ([]domain.PaidMember, error)
}

// Service is the payment state machine.
type Service struct {
	store   Store
	gateway gateway.Gateway
	mailer  mailer.Sender
	log     *slog.Logger
}

// New creates a payment service. Panics on nil dependencies to fail fast
// during initialization.
func New(store Store, gw gateway.Gateway, sender mailer.Sender, log *slog.Logger) *Service {
	if store == nil {
		panic("payment: Store is required")
	}
	if gw == nil {
		panic("payment: Gateway is required")
	}
	if sender == nil {
		panic("payment: mailer.Sender is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, gateway: gw, mailer: sender, log: log}
}

// Outcome reports the result of one charge attempt.
type Outcome struct {
	Payment   *domain.Payment
	Succeeded bool

	// NotifyErr carries a failure-notice dispatch error. It is distinct
	// from the payment result: the recorded outcome stands regardless.
	NotifyErr error
}

// Charge runs one charge attempt for the member identified by email.
//
// On gateway success the attempt is recorded as succeeded and the member's
// paid flag is set. On an explicit decline or a gateway transport failure
// the attempt is recorded as failed, the paid flag is left untouched, and a
// failure notice is sent. Persistence failures abort the attempt.
func (s *Service) Charge(ctx context.Context, email string, amount domain.Money) (*Outcome, error) {
	if amount.Amount <= 0 {
		var errs domain.ValidationErrors
		errs.Add("amount", "must be positive")
		return nil, errs
	}

	member, err := s.store.FindMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("member %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("look up member: %w", err)
	}

	result, gwErr := s.gateway.CreateCharge(ctx, gateway.Charge{
		AmountMinor:  amount.Amount,
		Currency:     amount.Currency,
		Description:  fmt.Sprintf("Payment for %s", member.Name),
		ReceiptEmail: member.Email,
	})

	switch {
	case gwErr != nil:
		// Transport failure or timeout: the gateway's verdict is unknown,
		// so the attempt is recorded as failed and flagged for operators to
		// reconcile against the gateway's own record.
		s.log.ErrorContext(ctx, "gateway call failed",
			slog.String("member_id", member.ID.String()),
			slog.String("reason", "indeterminate"),
			slog.Any("error", gwErr))
		return s.recordFailure(ctx, member, amount, "")

	case result.Status == gateway.StatusDeclined:
		s.log.InfoContext(ctx, "charge declined",
			slog.String("member_id", member.ID.String()),
			slog.String("gateway_id", result.GatewayID),
			slog.String("reason", "declined"))
		return s.recordFailure(ctx, member, amount, result.GatewayID)
	}

	record := &domain.Payment{
		ID:        uuid.New(),
		MemberID:  member.ID,
		Amount:    amount,
		Status:    domain.PaymentSucceeded,
		GatewayID: result.GatewayID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendPayment(ctx, record); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	if err := s.store.MarkMemberPaid(ctx, member.ID); err != nil {
		return nil, fmt.Errorf("mark member paid: %w", err)
	}

	s.log.InfoContext(ctx, "charge succeeded",
		slog.String("member_id", member.ID.String()),
		slog.String("gateway_id", result.GatewayID),
		slog.String("amount", amount.Display()))

	return &Outcome{Payment: record, Succeeded: true}, nil
}

// recordFailure appends the failed record first, then sends the failure
// notice. The record must be durable before the notice goes out so a mail
// outage can never hide a charge outcome.
func (s *Service) recordFailure(ctx context.Context, member *domain.Member, amount domain.Money, gatewayID string) (*Outcome, error) {
	record := &domain.Payment{
		ID:        uuid.New(),
		MemberID:  member.ID,
		Amount:    amount,
		Status:    domain.PaymentFailed,
		GatewayID: gatewayID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendPayment(ctx, record); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	outcome := &Outcome{Payment: record, Succeeded: false}

	msg := mailer.PaymentFailure(member.Email, member.Name, amount)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.ErrorContext(ctx, "failure notice not delivered",
			slog.String("member_id", member.ID.String()),
			slog.Any("error", err))
		outcome.NotifyErr = errors.Join(domain.ErrNotificationFailed, err)
	}

	return outcome, nil
}

// ListPaidMembers returns members whose paid flag is set alongside their
// most recent payment record.
func (s *Service) ListPaidMembers(ctx context.Context) ([]domain.PaidMember, error) {
	rows, err := s.store.ListPaidMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list paid members: %w", err)
	}
	return rows, nil
}
