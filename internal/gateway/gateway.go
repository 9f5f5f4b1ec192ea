// Package gateway is the payment gateway port: a single createCharge
// contract plus the Stripe-backed implementation used in production.
//
// The port separates "the gateway answered and said no" from "the gateway
// could not be reached": an explicit decline comes back as a Result with
// StatusDeclined and no error, while transport trouble (network failure,
// timeout) is returned as an error wrapping domain.ErrGatewayUnavailable.
// The payment service treats both as a failed charge but logs them apart.
package gateway

import "context"

// Status is the gateway's verdict on a completed charge call.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusDeclined  Status = "declined"
)

// Charge describes one charge attempt handed to the gateway.
type Charge struct {
	AmountMinor  int64  // smallest currency unit, e.g. cents
	Currency     string // ISO 4217, lower case
	Description  string
	ReceiptEmail string
}

// Result is the gateway's answer for a call that reached it.
type Result struct {
	GatewayID string // provider's charge identifier, for reconciliation
	Status    Status
}

// Gateway executes charges against an external payment provider.
// Calls are synchronous and must be bounded by the implementation with an
// explicit timeout; expiry surfaces as domain.ErrGatewayUnavailable.
type Gateway interface {
	CreateCharge(ctx context.Context, charge Charge) (*Result, error)
}
