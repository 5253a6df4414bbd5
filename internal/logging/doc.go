// Package logging assembles structured slog loggers and formatting helpers used
// across audiosub.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so generation and recording code can tag
// log lines with request and session identifiers. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
