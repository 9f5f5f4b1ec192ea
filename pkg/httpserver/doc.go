// Package httpserver runs the HTTP API: an http.Server configured from
// environment variables with graceful shutdown on context cancellation or
// SIGINT/SIGTERM, plus a combined liveness/readiness handler.
package httpserver
