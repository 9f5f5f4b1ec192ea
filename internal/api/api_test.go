package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/internal/api"
	"github.com/dmitrymomot/billingkit/internal/catalog"
	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/gateway"
	"github.com/dmitrymomot/billingkit/internal/ledger"
	"github.com/dmitrymomot/billingkit/internal/mailer"
	"github.com/dmitrymomot/billingkit/internal/payment"
	"github.com/dmitrymomot/billingkit/internal/reminder"
	"github.com/dmitrymomot/billingkit/internal/storage"
)

type stubGateway struct {
	result *gateway.Result
	err    error
}

func (g *stubGateway) CreateCharge(ctx context.Context, charge gateway.Charge) (*gateway.Result, error) {
	return g.result, g.err
}

type nopSender struct{}

func (nopSender) Send(ctx context.Context, msg mailer.Message) error { return nil }

type testApp struct {
	handler http.Handler
	store   *storage.Memory
	gateway *stubGateway
	plans   map[domain.PlanKind]uuid.UUID
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := storage.NewMemory()
	gw := &stubGateway{result: &gateway.Result{GatewayID: "pi_123", Status: gateway.StatusSucceeded}}

	plansSvc := catalog.New(store, nil)
	require.NoError(t, plansSvc.EnsureDefaults(context.Background(), domain.DefaultPlanKinds))

	planIDs := make(map[domain.PlanKind]uuid.UUID)
	for _, kind := range domain.DefaultPlanKinds {
		plan, err := store.FindPlanByName(context.Background(), kind)
		require.NoError(t, err)
		planIDs[kind] = plan.ID
	}

	handler := api.NewRouter(api.Deps{
		Catalog:  plansSvc,
		Ledger:   ledger.New(store, nil),
		Payments: payment.New(store, gw, nopSender{}, nil),
		Reminder: reminder.NewSweeper(store, nopSender{}, nil),
	})

	return &testApp{handler: handler, store: store, gateway: gw, plans: planIDs}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signup(t *testing.T, email string, kind domain.PlanKind) map[string]any {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/members", map[string]any{
		"name":     "John Doe",
		"email":    email,
		"plan_id":  a.plans[kind],
		"start_at": time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestListPlans(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.Len(t, plans, 5)
	assert.Equal(t, "Daily", plans[0]["name"])
	assert.Equal(t, "Annually", plans[4]["name"])
}

func TestCreateMember(t *testing.T) {
	t.Parallel()

	t.Run("valid signup", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		resp := app.signup(t, "john@example.com", domain.PlanMonthly)

		member := resp["member"].(map[string]any)
		assert.Equal(t, "john@example.com", member["email"])
		assert.Equal(t, false, member["paid"])

		sub := resp["subscription"].(map[string]any)
		assert.NotEmpty(t, sub["end_at"])
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPost, "/members", map[string]any{"email": "nope"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Fields, "name")
		assert.Contains(t, resp.Fields, "email")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		app.signup(t, "john@example.com", domain.PlanMonthly)

		rec := app.do(t, http.MethodPost, "/members", map[string]any{
			"name":     "John Again",
			"email":    "john@example.com",
			"plan_id":  app.plans[domain.PlanMonthly],
			"start_at": time.Now().UTC().Format(time.RFC3339),
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPost, "/members", map[string]any{
			"name":     "John Doe",
			"email":    "john@example.com",
			"plan_id":  uuid.New(),
			"start_at": time.Now().UTC().Format(time.RFC3339),
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateSubscription(t *testing.T) {
	t.Parallel()

	t.Run("cancel", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		resp := app.signup(t, "john@example.com", domain.PlanMonthly)
		subID := resp["subscription"].(map[string]any)["id"].(string)

		rec := app.do(t, http.MethodPut, "/subscriptions/"+subID, map[string]any{
			"cancelled": true,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sub map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
		assert.Equal(t, true, sub["cancelled"])
	})

	t.Run("bad id", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPut, "/subscriptions/not-a-uuid", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPut, "/subscriptions/"+uuid.NewString(), map[string]any{})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCharge(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		app.signup(t, "john@example.com", domain.PlanMonthly)

		rec := app.do(t, http.MethodPost, "/payments", map[string]any{
			"email":  "john@example.com",
			"amount": 49.99,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		pay := resp["payment"].(map[string]any)
		assert.Equal(t, "succeeded", pay["status"])
		assert.Equal(t, "49.99", pay["amount"])
	})

	t.Run("decline answers 402 with the recorded attempt", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		app.signup(t, "john@example.com", domain.PlanMonthly)
		app.gateway.result = &gateway.Result{GatewayID: "pi_456", Status: gateway.StatusDeclined}

		rec := app.do(t, http.MethodPost, "/payments", map[string]any{
			"email":  "john@example.com",
			"amount": 49.99,
		})
		require.Equal(t, http.StatusPaymentRequired, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		pay := resp["payment"].(map[string]any)
		assert.Equal(t, "failed", pay["status"])
	})

	t.Run("unknown member", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPost, "/payments", map[string]any{
			"email":  "nobody@example.com",
			"amount": 49.99,
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPost, "/payments", map[string]any{
			"email":  "john@example.com",
			"amount": 0,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReminderEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("sweep returns stats", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		app.signup(t, "john@example.com", domain.PlanMonthly)

		rec := app.do(t, http.MethodPost, "/reminders/sweep", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.EqualValues(t, 1, stats["scanned"])
	})

	t.Run("resend requires member id", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		rec := app.do(t, http.MethodPost, "/reminders/resend", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("resend dispatches for active member", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		resp := app.signup(t, "john@example.com", domain.PlanMonthly)
		memberID := resp["member"].(map[string]any)["id"].(string)

		rec := app.do(t, http.MethodPost, "/reminders/resend", map[string]any{
			"member_id": memberID,
		})
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	})
}

func TestListMembers(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.signup(t, "john@example.com", domain.PlanMonthly)
	app.signup(t, "jane@example.com", domain.PlanAnnually)

	rec := app.do(t, http.MethodGet, "/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "active", rows[0]["status"])
}

func TestListPaidMembers(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	app.signup(t, "john@example.com", domain.PlanMonthly)
	app.signup(t, "jane@example.com", domain.PlanMonthly)

	rec := app.do(t, http.MethodPost, "/payments", map[string]any{
		"email":  "john@example.com",
		"amount": 49.99,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/members/paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	member := rows[0]["member"].(map[string]any)
	assert.Equal(t, "john@example.com", member["email"])
	require.NotNil(t, rows[0]["last_payment"])
}
