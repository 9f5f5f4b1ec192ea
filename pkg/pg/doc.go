// Package pg wires up the PostgreSQL layer: a pgx/v5 connection pool
// configured from environment variables, goose schema migrations run on
// startup, a health check closure, and helpers for classifying common
// database errors (no rows, duplicate key, foreign key violation).
package pg
