package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/dmitrymomot/billingkit/internal/domain"
)

// Config holds Stripe gateway configuration.
type Config struct {
	SecretKey      string        `env:"STRIPE_SECRET_KEY,required"`
	RequestTimeout time.Duration `env:"STRIPE_REQUEST_TIMEOUT" envDefault:"15s"` // upper bound per charge call
}

// StripeGateway implements Gateway on top of Stripe payment intents.
// The client is constructed once at startup and injected, never reached
// through package-level state.
type StripeGateway struct {
	api     *client.API
	timeout time.Duration
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(cfg Config) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: stripe secret key is required", ErrInvalidConfig)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	return &StripeGateway{api: api, timeout: timeout}, nil
}

// CreateCharge creates and reports on a payment intent for the given charge.
// The call is bounded by the configured timeout; on expiry the outcome is
// unknown to us even though Stripe may still settle it, so the error wraps
// domain.ErrGatewayUnavailable for the caller to record as failed and flag
// for reconciliation.
func (g *StripeGateway) CreateCharge(ctx context.Context, charge Charge) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Params:       stripe.Params{Context: ctx},
		Amount:       stripe.Int64(charge.AmountMinor),
		Currency:     stripe.String(charge.Currency),
		Description:  stripe.String(charge.Description),
		ReceiptEmail: stripe.String(charge.ReceiptEmail),
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		// Card errors are the gateway answering "no", not transport trouble.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			res := &Result{Status: StatusDeclined}
			if stripeErr.PaymentIntent != nil {
				res.GatewayID = stripeErr.PaymentIntent.ID
			}
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(domain.ErrGatewayUnavailable, fmt.Errorf("charge timed out: %w", ctxErr))
		}
		return nil, errors.Join(domain.ErrGatewayUnavailable, err)
	}

	return &Result{GatewayID: intent.ID, Status: StatusSucceeded}, nil
}
