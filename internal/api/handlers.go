package api

import (
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/ledger"
)

type handlers struct {
	deps Deps
}

// --- plans ---

type planResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

func (h *handlers) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.deps.Catalog.ListActivePlans(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{ID: p.ID, Name: string(p.Name), Active: p.Active})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// --- members ---

type createMemberRequest struct {
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone,omitempty"`
	PlanID  uuid.UUID `json:"plan_id"`
	StartAt time.Time `json:"start_at"`
}

type memberResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"created_at"`
}

type subscriptionResponse struct {
	ID        uuid.UUID  `json:"id"`
	MemberID  uuid.UUID  `json:"member_id"`
	PlanID    uuid.UUID  `json:"plan_id"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     time.Time  `json:"end_at"`
	Cancelled bool       `json:"cancelled"`
	Status    string     `json:"status,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toMemberResponse(m domain.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Paid:      m.Paid,
		CreatedAt: m.CreatedAt,
	}
}

func toSubscriptionResponse(s domain.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        s.ID,
		MemberID:  s.MemberID,
		PlanID:    s.PlanID,
		StartAt:   s.StartAt,
		EndAt:     s.EndAt,
		Cancelled: s.Cancelled,
	}
}

func (h *handlers) createMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	member, sub, err := h.deps.Ledger.CreateSubscription(r.Context(), ledger.CreateInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		PlanID:  req.PlanID,
		StartAt: req.StartAt,
	})
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, struct {
		Member       memberResponse       `json:"member"`
		Subscription subscriptionResponse `json:"subscription"`
	}{
		Member:       toMemberResponse(*member),
		Subscription: toSubscriptionResponse(*sub),
	})
}

type memberOverviewResponse struct {
	Member       memberResponse       `json:"member"`
	Subscription subscriptionResponse `json:"subscription"`
	Plan         string               `json:"plan"`
	Status       string               `json:"status"`
}

func (h *handlers) listMembers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Ledger.ListMembers(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	out := make([]memberOverviewResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberOverviewResponse{
			Member:       toMemberResponse(row.Member),
			Subscription: toSubscriptionResponse(row.Subscription),
			Plan:         string(row.PlanName),
			Status:       string(row.Status),
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

type paidMemberResponse struct {
	Member      memberResponse   `json:"member"`
	Plan        string           `json:"plan"`
	LastPayment *paymentResponse `json:"last_payment,omitempty"`
}

func (h *handlers) listPaidMembers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Payments.ListPaidMembers(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	out := make([]paidMemberResponse, 0, len(rows))
	for _, row := range rows {
		resp := paidMemberResponse{
			Member: toMemberResponse(row.Member),
			Plan:   string(row.PlanName),
		}
		if row.LastPayment != nil {
			p := toPaymentResponse(*row.LastPayment)
			resp.LastPayment = &p
		}
		out = append(out, resp)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// --- subscriptions ---

type updateSubscriptionRequest struct {
	PlanID    *uuid.UUID `json:"plan_id,omitempty"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	Cancelled *bool      `json:"cancelled,omitempty"`
}

func (h *handlers) updateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		var errs domain.ValidationErrors
		errs.Add("id", "must be a valid UUID")
		h.writeError(r.Context(), w, errs)
		return
	}

	var req updateSubscriptionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	sub, err := h.deps.Ledger.UpdateSubscription(r.Context(), id, ledger.UpdateInput{
		PlanID:    req.PlanID,
		StartAt:   req.StartAt,
		Cancelled: req.Cancelled,
	})
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	resp := toSubscriptionResponse(*sub)
	resp.UpdatedAt = &sub.UpdatedAt
	h.writeJSON(w, http.StatusOK, resp)
}

// --- payments ---

type chargeRequest struct {
	Email    string  `json:"email"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	MemberID  uuid.UUID `json:"member_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	GatewayID string    `json:"gateway_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		MemberID:  p.MemberID,
		Amount:    p.Amount.Display(),
		Currency:  p.Amount.Currency,
		Status:    string(p.Status),
		GatewayID: p.GatewayID,
		CreatedAt: p.CreatedAt,
	}
}

func (h *handlers) charge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	amount := domain.Money{
		Amount:   int64(math.Round(req.Amount * 100)),
		Currency: req.Currency,
	}

	outcome, err := h.deps.Payments.Charge(r.Context(), req.Email, amount)
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	if !outcome.Succeeded {
		status = http.StatusPaymentRequired
	}
	h.writeJSON(w, status, struct {
		Payment  paymentResponse `json:"payment"`
		Notified bool            `json:"failure_notice_sent,omitempty"`
	}{
		Payment:  toPaymentResponse(*outcome.Payment),
		Notified: !outcome.Succeeded && outcome.NotifyErr == nil,
	})
}

// --- reminders ---

type sweepResponse struct {
	Scanned int  `json:"scanned"`
	Due     int  `json:"due"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
	Locked  bool `json:"locked,omitempty"`
}

func (h *handlers) sweepReminders(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Reminder.Sweep(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sweepResponse{
		Scanned: stats.Scanned,
		Due:     stats.Due,
		Sent:    stats.Sent,
		Failed:  stats.Failed,
		Skipped: stats.Skipped,
		Locked:  stats.Locked,
	})
}

type resendRequest struct {
	MemberID uuid.UUID `json:"member_id"`
}

func (h *handlers) resendReminder(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decode(r, &req); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}
	if req.MemberID == uuid.Nil {
		var errs domain.ValidationErrors
		errs.Add("member_id", "is required")
		h.writeError(r.Context(), w, errs)
		return
	}

	if err := h.deps.Reminder.Resend(r.Context(), req.MemberID); err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, struct {
		Sent bool `json:"sent"`
	}{Sent: true})
}
