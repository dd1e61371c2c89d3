package models

// ListFilter restricts which records Storage.List returns. All present
// fields are ANDed together; within a set field, membership is an OR. A
// zero filter matches everything.
type ListFilter struct {
	// Levels, Labels and Sources are set-membership filters. Empty means
	// no restriction on that field.
	Levels  []string
	Labels  []string
	Sources []string

	// Start and End are inclusive bounds compared against the stored
	// Timestamp string. Both are canonical UTC RFC3339 strings, which is
	// what makes the lexicographic comparison sound.
	Start string
	End   string

	// Search matches records whose message or serialized context contains
	// the value as a substring. Matching is case-insensitive for ASCII
	// (SQLite's LIKE default; the other backends mirror it).
	Search string

	// ScenarioID, when set, restricts to exact equality.
	ScenarioID string

	// SinceID restricts to records with id > SinceID, letting clients
	// page forward by last-seen id instead of offset.
	SinceID int64
}

// ListPage is the pagination window for Storage.List.
type ListPage struct {
	Limit  int
	Offset int
}

// ListResult is one page of records. HasMore reports whether strictly
// more than Limit records matched at the given offset; backends compute
// it by fetching Limit+1 rows, not with a count query.
type ListResult struct {
	Items   []LogRecord
	HasMore bool
}

// ClampScenarioLimit normalizes the ListScenarios limit to 1-100, using
// the default when the input is unset or out of range.
func ClampScenarioLimit(limit int) int {
	const (
		defaultLimit = 50
		maxLimit     = 100
	)
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
