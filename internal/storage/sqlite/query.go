package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/poslog/poslog/pkg/models"
)

// buildWhere translates a ListFilter into a WHERE clause over the fixed
// set of supported filter fields. Every user-supplied value is a bound
// parameter; nothing is concatenated into the SQL text except
// placeholders.
func buildWhere(f models.ListFilter) (string, []any) {
	var clauses []string
	var args []any

	set := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		placeholders := strings.Repeat("?,", len(values))
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", column, placeholders[:len(placeholders)-1]))
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
		// LIKE is case-insensitive for ASCII by default, which pins the
		// free-text semantics for this backend.
		clauses = append(clauses, `(message LIKE ? ESCAPE '\' OR context LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.ScenarioID != "" {
		clauses = append(clauses, "scenario_id = ?")
		args = append(args, f.ScenarioID)
	}
	if f.SinceID > 0 {
		clauses = append(clauses, "id > ?")
		args = append(args, f.SinceID)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike neutralizes LIKE wildcards in user input so a search for
// "50%" matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// List returns records matching the filter, ordered by timestamp
// descending. It fetches limit+1 rows to compute HasMore without a
// separate count query.
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

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.ListResult{}, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	items := make([]models.LogRecord, 0, page.Limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return models.ListResult{}, err
		}
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

func scanRecord(rows *sql.Rows) (models.LogRecord, error) {
	var rec models.LogRecord
	var contextVal, sourceVal, scenarioVal sql.NullString

	if err := rows.Scan(&rec.ID, &rec.Level, &rec.Label, &rec.Message,
		&contextVal, &rec.Timestamp, &sourceVal, &scenarioVal, &rec.CreatedAt); err != nil {
		return models.LogRecord{}, fmt.Errorf("scanning log row: %w", err)
	}

	if contextVal.Valid {
		rec.Context = &contextVal.String
	}
	if sourceVal.Valid {
		rec.Source = &sourceVal.String
	}
	if scenarioVal.Valid {
		rec.ScenarioID = &scenarioVal.String
	}
	return rec, nil
}

// ListScenarios aggregates records carrying a scenario id.
func (s *Store) ListScenarios(ctx context.Context, limit int) ([]models.ScenarioSummary, error) {
	limit = models.ClampScenarioLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario_id, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM logs
		WHERE scenario_id IS NOT NULL
		GROUP BY scenario_id
		ORDER BY MAX(timestamp) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scenarios: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ScenarioSummary, 0, limit)
	for rows.Next() {
		var s models.ScenarioSummary
		if err := rows.Scan(&s.ScenarioID, &s.LogCount, &s.FirstLogAt, &s.LastLogAt); err != nil {
			return nil, fmt.Errorf("scanning scenario row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading scenario rows: %w", err)
	}

	// Distinct levels per scenario in a second pass; GROUP_CONCAT has no
	// portable DISTINCT-with-ordering, so collect them directly.
	for i := range summaries {
		levels, err := s.scenarioLevels(ctx, summaries[i].ScenarioID)
		if err != nil {
			return nil, err
		}
		summaries[i].Levels = levels
	}

	return summaries, nil
}

func (s *Store) scenarioLevels(ctx context.Context, scenarioID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT level FROM logs WHERE scenario_id = ?", scenarioID)
	if err != nil {
		return nil, fmt.Errorf("listing scenario levels: %w", err)
	}
	defer rows.Close()

	var levels []string
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return nil, fmt.Errorf("scanning level: %w", err)
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading levels: %w", err)
	}

	sort.Strings(levels)
	return levels, nil
}
