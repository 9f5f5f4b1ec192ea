// Package domain defines the core entities of the membership billing system:
// plans, members, subscriptions and payment records, together with the
// derived-state rules that the services build on.
//
// Entities reference each other by identity, never by embedding. A
// subscription's end date is derived from its plan and start date at write
// time; its Active/Expired status is always recomputed from the clock and is
// never stored. Payment records form an append-only log and a member's paid
// flag is a projection of that log: it is set when a charge succeeds and is
// deliberately never cleared afterwards.
package domain
