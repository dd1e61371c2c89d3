// Package memory provides an in-memory storage implementation for log
// records. It backs tests and throwaway deployments; filter semantics
// match the SQLite backend exactly.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/poslog/poslog/pkg/models"
)

// Store is an in-memory log record store.
type Store struct {
	mu      sync.RWMutex
	records []models.LogRecord
	nextID  int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{nextID: 1}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Insert stores one record and returns its assigned id.
func (s *Store) Insert(ctx context.Context, in models.InsertLog) (int64, error) {
	now := time.Now()

	timestamp, err := models.NormalizeTimestamp(in.Timestamp, now)
	if err != nil {
		return 0, fmt.Errorf("normalizing timestamp: %w", err)
	}

	contextStr, err := in.ContextString()
	if err != nil {
		return 0, fmt.Errorf("serializing context: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := models.LogRecord{
		ID:        s.nextID,
		Level:     in.Level,
		Label:     in.Label,
		Message:   in.Message,
		Context:   contextStr,
		Timestamp: timestamp,
		CreatedAt: now.UTC().Format("2006-01-02 15:04:05"),
	}
	if in.Source != "" {
		source := in.Source
		rec.Source = &source
	}
	if in.ScenarioID != "" {
		scenario := in.ScenarioID
		rec.ScenarioID = &scenario
	}

	s.nextID++
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// matches applies the same AND-of-filters predicate the SQL backends
// express as a WHERE clause.
func matches(rec models.LogRecord, f models.ListFilter) bool {
	if len(f.Levels) > 0 && !contains(f.Levels, rec.Level) {
		return false
	}
	if len(f.Labels) > 0 && !contains(f.Labels, rec.Label) {
		return false
	}
	if len(f.Sources) > 0 && (rec.Source == nil || !contains(f.Sources, *rec.Source)) {
		return false
	}
	if f.Start != "" && rec.Timestamp < f.Start {
		return false
	}
	if f.End != "" && rec.Timestamp > f.End {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		inMessage := strings.Contains(strings.ToLower(rec.Message), needle)
		inContext := rec.Context != nil && strings.Contains(strings.ToLower(*rec.Context), needle)
		if !inMessage && !inContext {
			return false
		}
	}
	if f.ScenarioID != "" && (rec.ScenarioID == nil || *rec.ScenarioID != f.ScenarioID) {
		return false
	}
	if f.SinceID > 0 && rec.ID <= f.SinceID {
		return false
	}
	return true
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// List returns records matching the filter, ordered by timestamp
// descending.
func (s *Store) List(ctx context.Context, filter models.ListFilter, page models.ListPage) (models.ListResult, error) {
	s.mu.RLock()
	matched := make([]models.LogRecord, 0, len(s.records))
	for _, rec := range s.records {
		if matches(rec, filter) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp > matched[j].Timestamp
	})

	if page.Offset >= len(matched) {
		return models.ListResult{Items: []models.LogRecord{}}, nil
	}
	matched = matched[page.Offset:]

	hasMore := len(matched) > page.Limit
	if hasMore {
		matched = matched[:page.Limit]
	}

	return models.ListResult{Items: matched, HasMore: hasMore}, nil
}

// DeleteByID removes one record, reporting whether it existed.
func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// DeleteAll removes every record and returns the count removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := int64(len(s.records))
	s.records = nil
	return count, nil
}

// ListScenarios aggregates records carrying a scenario id.
func (s *Store) ListScenarios(ctx context.Context, limit int) ([]models.ScenarioSummary, error) {
	limit = models.ClampScenarioLimit(limit)

	s.mu.RLock()
	byScenario := make(map[string]*models.ScenarioSummary)
	levelSets := make(map[string]map[string]struct{})
	for _, rec := range s.records {
		if rec.ScenarioID == nil {
			continue
		}
		id := *rec.ScenarioID
		summary, ok := byScenario[id]
		if !ok {
			summary = &models.ScenarioSummary{
				ScenarioID: id,
				FirstLogAt: rec.Timestamp,
				LastLogAt:  rec.Timestamp,
			}
			byScenario[id] = summary
			levelSets[id] = make(map[string]struct{})
		}
		summary.LogCount++
		if rec.Timestamp < summary.FirstLogAt {
			summary.FirstLogAt = rec.Timestamp
		}
		if rec.Timestamp > summary.LastLogAt {
			summary.LastLogAt = rec.Timestamp
		}
		levelSets[id][rec.Level] = struct{}{}
	}
	s.mu.RUnlock()

	summaries := make([]models.ScenarioSummary, 0, len(byScenario))
	for id, summary := range byScenario {
		levels := make([]string, 0, len(levelSets[id]))
		for level := range levelSets[id] {
			levels = append(levels, level)
		}
		sort.Strings(levels)
		summary.Levels = levels
		summaries = append(summaries, *summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastLogAt > summaries[j].LastLogAt
	})

	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// PurgeOlderThan deletes records whose created_at precedes now-days.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02 15:04:05")

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var purged int64
	for _, rec := range s.records {
		if rec.CreatedAt < cutoff {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return purged, nil
}

// SetCreatedAt overrides a record's created_at; used by retention tests.
func (s *Store) SetCreatedAt(id int64, createdAt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].CreatedAt = createdAt
			return
		}
	}
}
