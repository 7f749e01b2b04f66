// Package artwork resolves cover art for titles from a SteamGridDB-compatible
// registry.
//
// Client speaks the registry's JSON API (bearer auth, {success, data}
// envelopes) and can cache successful response bodies in a SQLite database
// through Cache. Resolver layers the explicit-content policy on top: game
// search ordering, the explicit-first image fallback, and assembly of a
// poster/hero/logo Set. Resolver never returns errors; failed lookups are
// logged and yield nothing, and a Resolver without a registry performs no I/O.
package artwork
