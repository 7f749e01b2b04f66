// Package services defines shared utilities consumed by the acquisition
// pipeline components and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp operation names and correlation identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (Kind) and surface an operator hint (Hint).
package services
