package library

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type titleSource []Title

func (t titleSource) String(i int) string { return strings.ToLower(t[i].Name) }

func (t titleSource) Len() int { return len(t) }

// Filter returns the titles whose names fuzzy-match query, best match first.
// A blank query returns titles unchanged.
func Filter(titles []Title, query string) []Title {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return titles
	}
	matches := fuzzy.FindFrom(query, titleSource(titles))
	out := make([]Title, 0, len(matches))
	for _, match := range matches {
		out = append(out, titles[match.Index])
	}
	return out
}

type enrichedSource []EnrichedTitle

func (t enrichedSource) String(i int) string { return strings.ToLower(t[i].Name) }

func (t enrichedSource) Len() int { return len(t) }

// FilterEnriched is Filter for titles that already carry artwork.
func FilterEnriched(titles []EnrichedTitle, query string) []EnrichedTitle {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return titles
	}
	matches := fuzzy.FindFrom(query, enrichedSource(titles))
	out := make([]EnrichedTitle, 0, len(matches))
	for _, match := range matches {
		out = append(out, titles[match.Index])
	}
	return out
}
