// Package storage provides the persistence for plans, members,
// subscriptions and payment records: a Postgres implementation backed by
// pgx for production and an in-memory implementation for tests and local
// development. Both satisfy the store interfaces declared by the consuming
// services (catalog, ledger, payment, reminder).
package storage
