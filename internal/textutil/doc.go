// Package textutil provides the small string helpers shared by the scanner,
// installer and CLI: filename sanitization, title slugs and filesystem-safe
// tokens.
package textutil
