package catalog

// Entry is one search hit from the catalog listing, in site order.
type Entry struct {
	Title     string `json:"title" yaml:"title"`
	DetailURL string `json:"detailUrl" yaml:"detailUrl"`
	PosterURL string `json:"posterUrl,omitempty" yaml:"posterUrl,omitempty"`
}

// Details is the structured metadata extracted from a detail page.
type Details struct {
	Description      string            `json:"description" yaml:"description"`
	SizeLabel        string            `json:"sizeLabel" yaml:"sizeLabel"`
	SizeBytes        uint64            `json:"sizeBytes,omitempty" yaml:"sizeBytes,omitempty"`
	AllLinks         map[string]string `json:"allLinks" yaml:"allLinks"`
	PriorityLink     string            `json:"priorityLink,omitempty" yaml:"priorityLink,omitempty"`
	DirectInstallAPI string            `json:"directInstallApi,omitempty" yaml:"directInstallApi,omitempty"`
}

const (
	defaultDescription = "No description found."
	defaultSizeLabel   = "Unknown"
)
