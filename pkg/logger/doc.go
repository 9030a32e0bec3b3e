// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package, switches to JSON output in
// production and can mirror records into an append-only log file.
package logger
