// Package clickhouse provides a ClickHouse-backed storage implementation
// for high-volume deployments.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/poslog/poslog/pkg/models"
)

const createdAtLayout = "2006-01-02 15:04:05"

const logsTableDDL = `
CREATE TABLE IF NOT EXISTS logs (
    id UInt64,
    level String,
    label String,
    message String,
    context Nullable(String),
    timestamp String,
    source Nullable(String),
    scenario_id Nullable(String),
    created_at DateTime('UTC') DEFAULT now()
) ENGINE = MergeTree()
ORDER BY (timestamp, id)
`

// Store is a ClickHouse-backed log record store.
type Store struct {
	conn   driver.Conn
	logger *slog.Logger

	// nextID hands out insert ids. ClickHouse has no autoincrement; the
	// counter is seeded from max(id) at startup, which holds under the
	// same single-writer-process assumption the rest of the system makes.
	nextID atomic.Int64
}

// NewStore connects to ClickHouse, creates the schema if needed, and
// seeds the id counter.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := conn.Exec(ctx, logsTableDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating logs table: %w", err)
	}

	s := &Store{conn: conn, logger: logger}

	var maxID uint64
	row := conn.QueryRow(ctx, "SELECT coalesce(max(id), 0) FROM logs")
	if err := row.Scan(&maxID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seeding id counter: %w", err)
	}
	s.nextID.Store(int64(maxID))

	logger.Info("connected to ClickHouse", "addr", cfg.Addr, "max_id", maxID)
	return s, nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Insert stores one record and returns its assigned id.
func (s *Store) Insert(ctx context.Context, in models.InsertLog) (int64, error) {
	timestamp, err := models.NormalizeTimestamp(in.Timestamp, time.Now())
	if err != nil {
		return 0, fmt.Errorf("normalizing timestamp: %w", err)
	}

	contextStr, err := in.ContextString()
	if err != nil {
		return 0, fmt.Errorf("serializing context: %w", err)
	}

	id := s.nextID.Add(1)

	err = s.conn.Exec(ctx, `
		INSERT INTO logs (id, level, label, message, context, timestamp, source, scenario_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, now())
	`, uint64(id), in.Level, in.Label, in.Message, contextStr, timestamp,
		nullable(in.Source), nullable(in.ScenarioID))
	if err != nil {
		return 0, fmt.Errorf("inserting log: %w", err)
	}
	return id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// buildWhere mirrors the SQLite clause builder over the same fixed set of
// filter fields; values are always bound parameters.
func buildWhere(f models.ListFilter) (string, []any) {
	var clauses []string
	var args []any

	set := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, placeholders))
		for _, v := range values {
			args = append(args, v)
		}
	}

	set("level", f.Levels)
	set("label", f.Labels)
	set("source", f.Sources)

	if f.Start != "" {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, f.Start)
	}
	if f.End != "" {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, f.End)
	}
	if f.Search != "" {
		// ILIKE keeps free-text search case-insensitive, matching the
		// SQLite backend.
		clauses = append(clauses, "(message ILIKE ? OR coalesce(context, '') ILIKE ?)")
		pattern := "%" + escapeLike(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.ScenarioID != "" {
		clauses = append(clauses, "scenario_id = ?")
		args = append(args, f.ScenarioID)
	}
	if f.SinceID > 0 {
		clauses = append(clauses, "id > ?")
		args = append(args, uint64(f.SinceID))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// List returns records matching the filter, ordered by timestamp
// descending, fetching limit+1 rows to compute HasMore.
func (s *Store) List(ctx context.Context, filter models.ListFilter, page models.ListPage) (models.ListResult, error) {
	where, args := buildWhere(filter)

	query := fmt.Sprintf(`
		SELECT id, level, label, message, context, timestamp, source, scenario_id, created_at
		FROM logs
		%s
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, page.Limit+1, page.Offset)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return models.ListResult{}, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	items := make([]models.LogRecord, 0, page.Limit)
	for rows.Next() {
		var rec models.LogRecord
		var id uint64
		var createdAt time.Time

		if err := rows.Scan(&id, &rec.Level, &rec.Label, &rec.Message,
			&rec.Context, &rec.Timestamp, &rec.Source, &rec.ScenarioID, &createdAt); err != nil {
			return models.ListResult{}, fmt.Errorf("scanning log row: %w", err)
		}
		rec.ID = int64(id)
		rec.CreatedAt = createdAt.UTC().Format(createdAtLayout)
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return models.ListResult{}, fmt.Errorf("reading log rows: %w", err)
	}

	hasMore := len(items) > page.Limit
	if hasMore {
		items = items[:page.Limit]
	}

	return models.ListResult{Items: items, HasMore: hasMore}, nil
}

// DeleteByID removes one record, reporting whether it existed.
func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, "SELECT count() FROM logs WHERE id = ?", uint64(id))
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("checking log %d: %w", id, err)
	}
	if count == 0 {
		return false, nil
	}

	if err := s.conn.Exec(ctx, "DELETE FROM logs WHERE id = ?", uint64(id)); err != nil {
		return false, fmt.Errorf("deleting log %d: %w", id, err)
	}
	return true, nil
}

// DeleteAll removes every record and returns the count removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, "SELECT count() FROM logs")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting logs: %w", err)
	}

	if err := s.conn.Exec(ctx, "TRUNCATE TABLE logs"); err != nil {
		return 0, fmt.Errorf("truncating logs: %w", err)
	}
	return int64(count), nil
}

// ListScenarios aggregates records carrying a scenario id.
func (s *Store) ListScenarios(ctx context.Context, limit int) ([]models.ScenarioSummary, error) {
	limit = models.ClampScenarioLimit(limit)

	rows, err := s.conn.Query(ctx, `
		SELECT scenario_id, count(), min(timestamp), max(timestamp), arraySort(groupUniqArray(level))
		FROM logs
		WHERE scenario_id IS NOT NULL
		GROUP BY scenario_id
		ORDER BY max(timestamp) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ScenarioSummary, 0, limit)
	for rows.Next() {
		var summary models.ScenarioSummary
		var scenarioID *string
		var count uint64

		if err := rows.Scan(&scenarioID, &count, &summary.FirstLogAt, &summary.LastLogAt, &summary.Levels); err != nil {
			return nil, fmt.Errorf("scanning scenario row: %w", err)
		}
		if scenarioID != nil {
			summary.ScenarioID = *scenarioID
		}
		summary.LogCount = int64(count)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading scenario rows: %w", err)
	}

	return summaries, nil
}

// PurgeOlderThan deletes records whose created_at precedes now-days.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	var count uint64
	row := s.conn.QueryRow(ctx,
		"SELECT count() FROM logs WHERE created_at < now() - toIntervalDay(?)", days)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting purgeable logs: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	err := s.conn.Exec(ctx,
		"DELETE FROM logs WHERE created_at < now() - toIntervalDay(?)", days)
	if err != nil {
		return 0, fmt.Errorf("purging logs: %w", err)
	}
	return int64(count), nil
}
