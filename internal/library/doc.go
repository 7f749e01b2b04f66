// Package library discovers installed titles on disk and decorates them with
// artwork.
//
// Scanner treats every immediate subdirectory of a library root as a title
// candidate and keeps those containing at least one executable. Enrich fans
// artwork lookups out over a bounded worker pool; Filter narrows a listing by
// fuzzy name match.
package library
