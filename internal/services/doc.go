// Package services defines shared utilities consumed by the capture,
// generation, and session packages and the external model client.
//
// Key responsibilities:
//   - Context helpers that stamp request and recording session identifiers for
//     logging.
//   - Structured error markers plus the Wrap helper that tag failures with one
//     of the user-facing failure classes (configuration, device access, empty
//     response, safety rejection, rate limit, unknown).
//   - Classify, Retryable and UserMessage, which turn any tagged error into the
//     single human-readable message the CLI shows.
package services
