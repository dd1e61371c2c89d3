package models

// ScenarioSummary is the derived per-scenario aggregate returned by
// Storage.ListScenarios. It is recomputed on every query, never stored.
type ScenarioSummary struct {
	// ScenarioID is the shared grouping value.
	ScenarioID string `json:"scenarioId"`

	// LogCount is the number of records carrying this scenario id.
	LogCount int64 `json:"logCount"`

	// FirstLogAt and LastLogAt are the min and max Timestamp among the
	// grouped records.
	FirstLogAt string `json:"firstLogAt"`
	LastLogAt  string `json:"lastLogAt"`

	// Levels is the distinct set of levels observed, sorted.
	Levels []string `json:"levels"`
}
