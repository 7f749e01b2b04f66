// Package daemon coordinates the long-running gamedeck process.
//
// It wires the library scanner, artwork resolver, catalog scraper and
// installer into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon keeps the latest library snapshot in
// memory, rescans it after every library_changed event, forwards events to
// the notifier, and serves everything over a small local JSON API.
//
// Keep orchestration logic here: pipeline behaviour belongs in the component
// packages while the daemon focuses on startup, shutdown and coordination.
package daemon
