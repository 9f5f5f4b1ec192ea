// Package logger builds the application's slog.Logger: JSON or text output
// selected per environment, static service attributes, and request-scoped
// attributes injected from context through a handler decorator.
package logger
