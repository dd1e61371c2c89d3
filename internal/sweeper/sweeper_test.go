package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/poslog/poslog/internal/storage/memory"
	"github.com/poslog/poslog/pkg/models"
)

func TestSweepPurgesOldRecords(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	oldID, err := store.Insert(ctx, models.InsertLog{Level: "INFO", Label: "svc", Message: "old"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := store.Insert(ctx, models.InsertLog{Level: "INFO", Label: "svc", Message: "new"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	store.SetCreatedAt(oldID, "2020-01-01 00:00:00")

	s := New(Config{RetentionDays: 30}, store)
	purged, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}

	result, _ := store.List(ctx, models.ListFilter{}, models.ListPage{Limit: 10})
	if len(result.Items) != 1 || result.Items[0].Message != "new" {
		t.Errorf("expected only the fresh record to survive")
	}
}

func TestConfigDefaults(t *testing.T) {
	s := New(Config{}, memory.New())
	if s.cfg.RetentionDays != 30 {
		t.Errorf("expected 30 day default, got %d", s.cfg.RetentionDays)
	}
	if s.cfg.Cron != "@daily" {
		t.Errorf("expected @daily default, got %q", s.cfg.Cron)
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	s := New(Config{Cron: "not a cron expression"}, memory.New())
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(Config{Interval: time.Hour}, memory.New())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()
	s.Stop()

	s = New(Config{}, memory.New())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()
	s.Stop()
}

func TestTickerSweep(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	id, err := store.Insert(ctx, models.InsertLog{Level: "INFO", Label: "svc", Message: "old"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	store.SetCreatedAt(id, "2020-01-01 00:00:00")

	s := New(Config{RetentionDays: 30, Interval: 10 * time.Millisecond}, store)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for {
		result, _ := store.List(ctx, models.ListFilter{}, models.ListPage{Limit: 10})
		if len(result.Items) == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("expected ticker sweep to purge the aged record")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
