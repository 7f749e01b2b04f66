// Package notifications pushes install and library events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never need to check whether notifications are enabled.
// FromBusEvent translates pipeline broadcasts into notification events.
package notifications
