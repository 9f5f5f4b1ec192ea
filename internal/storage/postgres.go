package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/pkg/pg"
)

// Postgres is the production store backed by a pgx connection pool.
// Member+subscription creation runs in a transaction; all other mutations
// are single-statement updates, atomic per row.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	if pool == nil {
		panic("storage: pgx pool is required")
	}
	return &Postgres{pool: pool}
}

// --- plans ---

const planColumns = "id, name, active, created_at"

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var p domain.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) ListActivePlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plans WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *Postgres) FindPlanByName(ctx context.Context, name domain.PlanKind) (*domain.Plan, error) {
	return scanPlan(s.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE name = $1`, name))
}

func (s *Postgres) FindPlanByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	return scanPlan(s.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
}

func (s *Postgres) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO plans (id, name, active, created_at) VALUES ($1, $2, $3, $4)`,
		plan.ID, plan.Name, plan.Active, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// --- members and subscriptions ---

func (s *Postgres) CreateMemberAndSubscription(ctx context.Context, member *domain.Member, sub *domain.Subscription) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO members (id, name, email, phone, paid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		member.ID, member.Name, member.Email, member.Phone, member.Paid, member.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert member: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO subscriptions (id, member_id, plan_id, start_at, end_at, cancelled, last_reminder_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.MemberID, sub.PlanID, sub.StartAt, sub.EndAt,
		sub.Cancelled, sub.LastReminderAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Postgres) FindMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	var m domain.Member
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, paid, created_at
		 FROM members WHERE lower(email) = lower($1)`, email).
		Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Paid, &m.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query member: %w", err)
	}
	return &m, nil
}

func (s *Postgres) MarkMemberPaid(ctx context.Context, memberID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE members SET paid = true WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("mark member paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const subscriptionColumns = "id, member_id, plan_id, start_at, end_at, cancelled, last_reminder_at, created_at, updated_at"

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(&sub.ID, &sub.MemberID, &sub.PlanID, &sub.StartAt, &sub.EndAt,
		&sub.Cancelled, &sub.LastReminderAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *Postgres) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	return scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
}

func (s *Postgres) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions
		 SET plan_id = $2, start_at = $3, end_at = $4, cancelled = $5, updated_at = $6
		 WHERE id = $1`,
		sub.ID, sub.PlanID, sub.StartAt, sub.EndAt, sub.Cancelled, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) SetLastReminderAt(ctx context.Context, subID uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET last_reminder_at = $2, updated_at = $2 WHERE id = $1`,
		subID, at)
	if err != nil {
		return fmt.Errorf("set reminder marker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListMembersWithSubscription(ctx context.Context) ([]domain.MemberOverview, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.name, m.email, m.phone, m.paid, m.created_at,
		        s.id, s.member_id, s.plan_id, s.start_at, s.end_at, s.cancelled, s.last_reminder_at, s.created_at, s.updated_at,
		        p.name
		 FROM members m
		 JOIN subscriptions s ON s.member_id = m.id
		 JOIN plans p ON p.id = s.plan_id
		 ORDER BY m.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var result []domain.MemberOverview
	for rows.Next() {
		var row domain.MemberOverview
		m, sub := &row.Member, &row.Subscription
		err := rows.Scan(
			&m.ID, &m.Name, &m.Email, &m.Phone, &m.Paid, &m.CreatedAt,
			&sub.ID, &sub.MemberID, &sub.PlanID, &sub.StartAt, &sub.EndAt, &sub.Cancelled, &sub.LastReminderAt, &sub.CreatedAt, &sub.UpdatedAt,
			&row.PlanName)
		if err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Postgres) ListActiveWithMembers(ctx context.Context, now time.Time) ([]domain.ActiveSubscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.member_id, s.plan_id, s.start_at, s.end_at, s.cancelled, s.last_reminder_at, s.created_at, s.updated_at,
		        m.id, m.name, m.email, m.phone, m.paid, m.created_at,
		        p.name
		 FROM subscriptions s
		 JOIN members m ON m.id = s.member_id
		 JOIN plans p ON p.id = s.plan_id
		 WHERE NOT s.cancelled AND s.end_at > $1
		 ORDER BY s.end_at`, now)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions: %w", err)
	}
	defer rows.Close()

	var result []domain.ActiveSubscription
	for rows.Next() {
		row, err := scanActiveSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *row)
	}
	return result, rows.Err()
}

func (s *Postgres) FindActiveByMember(ctx context.Context, memberID uuid.UUID, now time.Time) (*domain.ActiveSubscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.member_id, s.plan_id, s.start_at, s.end_at, s.cancelled, s.last_reminder_at, s.created_at, s.updated_at,
		        m.id, m.name, m.email, m.phone, m.paid, m.created_at,
		        p.name
		 FROM subscriptions s
		 JOIN members m ON m.id = s.member_id
		 JOIN plans p ON p.id = s.plan_id
		 WHERE s.member_id = $1 AND NOT s.cancelled AND s.end_at > $2
		 LIMIT 1`, memberID, now)
	if err != nil {
		return nil, fmt.Errorf("query subscription: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	return scanActiveSubscription(rows)
}

func scanActiveSubscription(rows pgx.Rows) (*domain.ActiveSubscription, error) {
	var row domain.ActiveSubscription
	sub, m := &row.Subscription, &row.Member
	err := rows.Scan(
		&sub.ID, &sub.MemberID, &sub.PlanID, &sub.StartAt, &sub.EndAt, &sub.Cancelled, &sub.LastReminderAt, &sub.CreatedAt, &sub.UpdatedAt,
		&m.ID, &m.Name, &m.Email, &m.Phone, &m.Paid, &m.CreatedAt,
		&row.PlanName)
	if err != nil {
		return nil, fmt.Errorf("scan subscription row: %w", err)
	}
	return &row, nil
}

// --- payments ---

func (s *Postgres) AppendPayment(ctx context.Context, payment *domain.Payment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payments (id, member_id, amount_minor, currency, status, gateway_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		payment.ID, payment.MemberID, payment.Amount.Amount, payment.Amount.Currency,
		payment.Status, payment.GatewayID, payment.CreatedAt)
	if err != nil {
		if pg.IsForeignKeyViolationError(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Postgres) ListPaidMembers(ctx context.Context) ([]domain.PaidMember, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.name, m.email, m.phone, m.paid, m.created_at,
		        p.name,
		        pay.id, pay.member_id, pay.amount_minor, pay.currency, pay.status, pay.gateway_id, pay.created_at
		 FROM members m
		 JOIN subscriptions s ON s.member_id = m.id
		 JOIN plans p ON p.id = s.plan_id
		 LEFT JOIN LATERAL (
		     SELECT * FROM payments WHERE member_id = m.id ORDER BY created_at DESC LIMIT 1
		 ) pay ON true
		 WHERE m.paid
		 ORDER BY m.created_at`)
	if err != nil {
		return nil, fmt.Errorf("query paid members: %w", err)
	}
	defer rows.Close()

	var result []domain.PaidMember
	for rows.Next() {
		var (
			row       domain.PaidMember
			payID     *uuid.UUID
			payMember *uuid.UUID
			amount    *int64
			currency  *string
			status    *domain.PaymentStatus
			gatewayID *string
			createdAt *time.Time
		)
		m := &row.Member
		err := rows.Scan(
			&m.ID, &m.Name, &m.Email, &m.Phone, &m.Paid, &m.CreatedAt,
			&row.PlanName,
			&payID, &payMember, &amount, &currency, &status, &gatewayID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan paid member row: %w", err)
		}
		if payID != nil {
			row.LastPayment = &domain.Payment{
				ID:        *payID,
				MemberID:  *payMember,
				Amount:    domain.Money{Amount: *amount, Currency: *currency},
				Status:    *status,
				GatewayID: *gatewayID,
				CreatedAt: *createdAt,
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
