package artwork

import "gamedeck/internal/config"

// ContentMode selects whether explicit artwork may be returned at all.
type ContentMode int

const (
	ContentExcluded ContentMode = iota
	ContentIncluded
)

func (m ContentMode) String() string {
	if m == ContentIncluded {
		return "included"
	}
	return "excluded"
}

// Policy is the caller's explicit-content preference for a lookup.
type Policy struct {
	Mode               ContentMode
	PrioritizeExplicit bool
}

// PolicyFromConfig maps the [content] section onto a lookup policy.
func PolicyFromConfig(cfg *config.Config) Policy {
	if cfg == nil || !cfg.Content.ExplicitEnabled {
		return Policy{Mode: ContentExcluded}
	}
	return Policy{Mode: ContentIncluded, PrioritizeExplicit: cfg.Content.PrioritizeExplicit}
}

// preferExplicit reports whether the explicit-first pass runs.
func (p Policy) preferExplicit() bool {
	return p.Mode == ContentIncluded && p.PrioritizeExplicit
}

// searchFilter is the nsfw query value used for game search.
func (p Policy) searchFilter() string {
	if p.Mode == ContentIncluded {
		return nsfwAny
	}
	return nsfwFalse
}
