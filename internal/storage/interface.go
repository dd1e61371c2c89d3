// Package storage defines the storage interface for log records.
package storage

import (
	"context"

	"github.com/poslog/poslog/pkg/models"
)

// Storage is the interface for storing and querying log records.
// Implementations must be safe for concurrent use. List orders by
// Timestamp descending; ties are left to the engine, an explicit design
// choice to sort by logical event time rather than insertion order.
type Storage interface {
	// Insert stores one record and returns its assigned id. Ids are
	// unique and strictly increasing in insertion order.
	Insert(ctx context.Context, in models.InsertLog) (int64, error)

	// List returns records matching the filter within the page window.
	List(ctx context.Context, filter models.ListFilter, page models.ListPage) (models.ListResult, error)

	// DeleteByID removes one record, reporting whether it existed.
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// DeleteAll removes every record and returns the count removed.
	DeleteAll(ctx context.Context) (int64, error)

	// ListScenarios aggregates records carrying a scenario id, ordered by
	// last log time descending, capped at limit (clamped to 1-100).
	ListScenarios(ctx context.Context, limit int) ([]models.ScenarioSummary, error)

	// PurgeOlderThan deletes records whose created_at precedes now-days.
	// Used only by the retention sweeper.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)

	// Close releases the backend's resources.
	Close() error
}
