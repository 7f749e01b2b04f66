package installer

// Outcome is the per-operation result surfaced to callers.
type Outcome struct {
	Success        bool     `json:"success" yaml:"success"`
	Message        string   `json:"message" yaml:"message"`
	ItemsInstalled int      `json:"itemsInstalled" yaml:"itemsInstalled"`
	Installed      []string `json:"installed,omitempty" yaml:"installed,omitempty"`
	CorrelationID  string   `json:"correlationId,omitempty" yaml:"correlationId,omitempty"`
}

const (
	msgDirsMissing    = "Downloads or Local Games directory not found. Please check paths in Settings."
	msgNothingToDo    = "No new games found in downloads."
	msgBatchAllFailed = "Scan finished, but failed to install any games from the found archives. Check server logs for details."
	msgBatchListing   = "An unexpected error occurred while scanning for new games."
)
