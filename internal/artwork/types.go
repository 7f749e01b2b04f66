package artwork

// Kind identifies an artwork collection on the registry.
type Kind string

const (
	KindGrid Kind = "grids"
	KindHero Kind = "heroes"
	KindLogo Kind = "logos"
)

// ParseKind accepts singular or plural kind names.
func ParseKind(value string) (Kind, bool) {
	switch value {
	case "grid", "grids", "poster":
		return KindGrid, true
	case "hero", "heroes":
		return KindHero, true
	case "logo", "logos":
		return KindLogo, true
	default:
		return "", false
	}
}

const (
	nsfwTrue  = "true"
	nsfwFalse = "false"
	nsfwAny   = "any"

	heroMimes = "image/png,image/jpeg,image/webp"
)

// Game is a registry search match.
type Game struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Explicit bool   `json:"nsfw" yaml:"nsfw"`
	Verified bool   `json:"verified,omitempty" yaml:"verified,omitempty"`
}

// Image is a single registry artwork asset.
type Image struct {
	ID       int64  `json:"id" yaml:"id"`
	Score    int    `json:"score" yaml:"score"`
	Style    string `json:"style" yaml:"style"`
	URL      string `json:"url" yaml:"url"`
	Thumb    string `json:"thumb" yaml:"thumb"`
	Explicit bool   `json:"nsfw" yaml:"nsfw"`
}

// Set bundles the artwork a presentation layer needs for one title. Absent
// fields are omitted from JSON.
type Set struct {
	PosterURL        string   `json:"posterUrl,omitempty" yaml:"posterUrl,omitempty"`
	HeroURLs         []string `json:"heroUrls,omitempty" yaml:"heroUrls,omitempty"`
	LogoURL          string   `json:"logoUrl,omitempty" yaml:"logoUrl,omitempty"`
	SourceRegistryID int64    `json:"sourceRegistryId,omitempty" yaml:"sourceRegistryId,omitempty"`
}

// Empty reports whether no artwork was resolved.
func (s Set) Empty() bool {
	return s.PosterURL == "" && len(s.HeroURLs) == 0 && s.LogoURL == "" && s.SourceRegistryID == 0
}
