// Package preflight provides readiness checks for the filesystem paths and
// remote services gamedeck depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and serves the results on /api/status.
//   - The CLI "gamedeck status" command runs the same checks and renders them
//     as a table.
//
// Remote checks are gated by configuration; an unset artwork key skips the
// registry probe instead of failing it.
package preflight
