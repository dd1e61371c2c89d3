// Package models defines the log record data model shared by storage
// backends, the API layer, and the receivers.
package models

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidScenarioID is returned when a scenario id fails validation.
	ErrInvalidScenarioID = errors.New("invalid scenario id")

	// ErrValidation is returned when required ingestion fields are missing.
	ErrValidation = errors.New("validation failed")
)

// MaxScenarioIDLength is the maximum accepted scenario id length.
const MaxScenarioIDLength = 100

var scenarioIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateScenarioID checks that a scenario id is non-empty, at most
// MaxScenarioIDLength characters, and contains only [a-zA-Z0-9_-].
func ValidateScenarioID(id string) error {
	if id == "" || len(id) > MaxScenarioIDLength {
		return ErrInvalidScenarioID
	}
	if !scenarioIDRegex.MatchString(id) {
		return ErrInvalidScenarioID
	}
	return nil
}

// LogRecord is one stored log event.
type LogRecord struct {
	// ID is assigned by the store on insert, strictly increasing.
	ID int64 `json:"id"`

	// Level is the severity string (ERROR, WARN, INFO, ...). Free-form.
	Level string `json:"level"`

	// Label identifies the emitting service or component.
	Label string `json:"label"`

	// Message is the log text.
	Message string `json:"message"`

	// Context is an optional structured payload, stored as a canonical
	// string: JSON when the caller supplied structured data, the raw
	// string otherwise. Nil when absent.
	Context *string `json:"context"`

	// Timestamp is the logical event time as a UTC RFC3339 string. It is
	// caller-supplied and may be backdated; display ordering and range
	// filters use this field, never CreatedAt.
	Timestamp string `json:"timestamp"`

	// Source optionally identifies the origin (hostname, path). Nil when
	// absent.
	Source *string `json:"source"`

	// ScenarioID optionally groups related events. Nil when absent.
	ScenarioID *string `json:"scenario_id"`

	// CreatedAt is the server-side insertion time, used only for
	// retention purging.
	CreatedAt string `json:"created_at"`
}

// InsertLog is the payload accepted by Storage.Insert.
type InsertLog struct {
	Level      string
	Label      string
	Message    string
	Context    any    // string kept as-is, anything else JSON-serialized
	Timestamp  string // empty means "now"
	Source     string
	ScenarioID string
}

// Validate checks the required fields and the scenario id pattern.
func (in *InsertLog) Validate() error {
	if in.Level == "" || in.Label == "" || in.Message == "" {
		return ErrValidation
	}
	if in.ScenarioID != "" {
		return ValidateScenarioID(in.ScenarioID)
	}
	return nil
}

// ContextString serializes the context payload to its canonical stored
// form. Strings pass through untouched; structured values are JSON
// encoded. Returns nil when no context was supplied.
func (in *InsertLog) ContextString() (*string, error) {
	if in.Context == nil {
		return nil, nil
	}
	if s, ok := in.Context.(string); ok {
		return &s, nil
	}
	data, err := json.Marshal(in.Context)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

// TimestampLayout is the canonical stored timestamp format: UTC RFC3339
// with fixed millisecond precision. The fixed width keeps lexicographic
// comparison in range filters consistent with chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// NormalizeTimestamp parses a caller-supplied RFC3339 timestamp and
// renders it in TimestampLayout. An empty input defaults to now.
func NormalizeTimestamp(value string, now time.Time) (string, error) {
	if value == "" {
		return now.UTC().Format(TimestampLayout), nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(TimestampLayout), nil
}

// NormalizeRangeEnd renders an inclusive range end in TimestampLayout.
// An input with no sub-second digits names a whole second, so it is
// widened to the last millisecond of that second; otherwise an end like
// 10:00:00 would stop matching a record stored at 10:00:00.500.
func NormalizeRangeEnd(value string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return "", err
	}
	if !strings.Contains(value, ".") {
		t = t.Add(999 * time.Millisecond)
	}
	return t.UTC().Format(TimestampLayout), nil
}
