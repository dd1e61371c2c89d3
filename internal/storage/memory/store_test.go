package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/poslog/poslog/pkg/models"
)

func insertN(t *testing.T, store *Store, logs []models.InsertLog) []int64 {
	t.Helper()

	ids := make([]int64, 0, len(logs))
	for _, in := range logs {
		id, err := store.Insert(context.Background(), in)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestInsertAndList(t *testing.T) {
	store := New()
	ctx := context.Background()

	ids := insertN(t, store, []models.InsertLog{
		{Level: "INFO", Label: "svc", Message: "first", Timestamp: "2025-06-01T10:00:00Z"},
		{Level: "ERROR", Label: "svc", Message: "second", Timestamp: "2025-06-01T11:00:00Z"},
	})
	if ids[1] <= ids[0] {
		t.Errorf("expected increasing ids, got %v", ids)
	}

	result, err := store.List(ctx, models.ListFilter{}, models.ListPage{Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].Message != "second" {
		t.Errorf("expected newest first, got %q", result.Items[0].Message)
	}
}

func TestFilterSemantics(t *testing.T) {
	store := New()
	ctx := context.Background()

	insertN(t, store, []models.InsertLog{
		{Level: "ERROR", Label: "api", Message: "Connection refused", Source: "host-a", Timestamp: "2025-06-01T10:00:00Z"},
		{Level: "INFO", Label: "api", Message: "started", Timestamp: "2025-06-01T11:00:00Z", ScenarioID: "run-1"},
		{Level: "WARN", Label: "worker", Message: "slow job", Source: "host-a", Timestamp: "2025-06-01T12:00:00Z"},
	})

	cases := []struct {
		name   string
		filter models.ListFilter
		want   int
	}{
		{"level", models.ListFilter{Levels: []string{"ERROR"}}, 1},
		{"level set", models.ListFilter{Levels: []string{"ERROR", "WARN"}}, 2},
		{"label", models.ListFilter{Labels: []string{"api"}}, 2},
		{"source", models.ListFilter{Sources: []string{"host-a"}}, 2},
		{"source excludes nil", models.ListFilter{Sources: []string{"host-b"}}, 0},
		{"start", models.ListFilter{Start: "2025-06-01T11:00:00.000Z"}, 2},
		{"end", models.ListFilter{End: "2025-06-01T10:30:00.000Z"}, 1},
		{"search case-insensitive", models.ListFilter{Search: "CONNECTION"}, 1},
		{"scenario", models.ListFilter{ScenarioID: "run-1"}, 1},
		{"scenario miss", models.ListFilter{ScenarioID: "run-2"}, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			result, err := store.List(ctx, c.filter, models.ListPage{Limit: 10})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(result.Items) != c.want {
				t.Errorf("expected %d items, got %d", c.want, len(result.Items))
			}
		})
	}
}

func TestPaginationAndHasMore(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		insertN(t, store, []models.InsertLog{{
			Level:     "INFO",
			Label:     "svc",
			Message:   fmt.Sprintf("m%d", i),
			Timestamp: fmt.Sprintf("2025-06-01T12:00:0%dZ", i),
		}})
	}

	result, err := store.List(ctx, models.ListFilter{}, models.ListPage{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Items) != 2 || !result.HasMore {
		t.Errorf("expected 2 items with HasMore, got %d (hasMore=%v)", len(result.Items), result.HasMore)
	}

	result, err = store.List(ctx, models.ListFilter{}, models.ListPage{Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Items) != 0 || result.HasMore {
		t.Errorf("expected empty page past the end")
	}
}

func TestDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	ids := insertN(t, store, []models.InsertLog{
		{Level: "INFO", Label: "svc", Message: "a"},
		{Level: "INFO", Label: "svc", Message: "b"},
	})

	existed, err := store.DeleteByID(ctx, ids[0])
	if err != nil || !existed {
		t.Fatalf("expected delete to succeed, existed=%v err=%v", existed, err)
	}
	existed, _ = store.DeleteByID(ctx, ids[0])
	if existed {
		t.Error("expected repeat delete to report false")
	}

	deleted, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 remaining record deleted, got %d", deleted)
	}
}

func TestScenarioAggregation(t *testing.T) {
	store := New()
	ctx := context.Background()

	insertN(t, store, []models.InsertLog{
		{Level: "INFO", Label: "svc", Message: "1", ScenarioID: "s1", Timestamp: "2025-06-01T10:00:00Z"},
		{Level: "ERROR", Label: "svc", Message: "2", ScenarioID: "s1", Timestamp: "2025-06-01T10:10:00Z"},
		{Level: "INFO", Label: "svc", Message: "3", ScenarioID: "s2", Timestamp: "2025-06-01T11:00:00Z"},
	})

	summaries, err := store.ListScenarios(ctx, 10)
	if err != nil {
		t.Fatalf("ListScenarios failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(summaries))
	}
	if summaries[0].ScenarioID != "s2" {
		t.Errorf("expected most recently active scenario first, got %s", summaries[0].ScenarioID)
	}
	if summaries[1].LogCount != 2 || len(summaries[1].Levels) != 2 {
		t.Errorf("unexpected s1 aggregation: %+v", summaries[1])
	}
}

func TestPurgeOlderThan(t *testing.T) {
	store := New()
	ctx := context.Background()

	ids := insertN(t, store, []models.InsertLog{
		{Level: "INFO", Label: "svc", Message: "old"},
		{Level: "INFO", Label: "svc", Message: "new"},
	})
	store.SetCreatedAt(ids[0], "2020-01-01 00:00:00")

	purged, err := store.PurgeOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}

	result, _ := store.List(ctx, models.ListFilter{}, models.ListPage{Limit: 10})
	if len(result.Items) != 1 || result.Items[0].Message != "new" {
		t.Errorf("expected only the fresh record to survive")
	}
}
