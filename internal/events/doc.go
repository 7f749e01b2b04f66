// Package events carries the "library changed" signal from the installer to
// its consumers (the daemon's rescan hook, its event stream, notifications).
//
// Delivery is fire-and-forget. Publishers never wait on subscribers, and a
// small ring of recent events lets late readers catch up by sequence number.
package events
