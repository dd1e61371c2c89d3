// Package sweeper runs the retention sweep: a background schedule that
// purges records older than the configured age. It is the only
// autonomous behavior in the system; everything else is request-driven.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/poslog/poslog/internal/storage"
	"github.com/robfig/cron/v3"
)

// Config holds sweeper configuration.
type Config struct {
	// RetentionDays is the purge threshold passed to the store.
	RetentionDays int

	// Cron is the sweep schedule (default "@daily"). Ignored when
	// Interval is set.
	Cron string

	// Interval, when non-zero, replaces the cron schedule with a plain
	// ticker.
	Interval time.Duration
}

// Sweeper periodically purges old records.
type Sweeper struct {
	cfg      Config
	store    storage.Storage
	cron     *cron.Cron
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a sweeper over the given store.
func New(cfg Config, store storage.Storage) *Sweeper {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Cron == "" {
		cfg.Cron = "@daily"
	}
	return &Sweeper{
		cfg:    cfg,
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start arms the schedule. Sweep failures are logged and swallowed; the
// schedule always continues.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.cfg.Interval > 0 {
		log.Printf("Starting retention sweeper with interval %s (retention %d days)", s.cfg.Interval, s.cfg.RetentionDays)
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.sweep(ctx)
				case <-s.stopCh:
					return
				}
			}
		}()
		return nil
	}

	log.Printf("Starting retention sweeper with cron %q (retention %d days)", s.cfg.Cron, s.cfg.RetentionDays)
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Cron, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
			close(s.stopCh)
		}
		if s.cron != nil {
			s.cron.Stop()
		}
	})
}

// Sweep runs one purge pass immediately. Exposed so operators can force
// a pass and the schedule callbacks stay trivial.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.store.PurgeOlderThan(ctx, s.cfg.RetentionDays)
}

func (s *Sweeper) sweep(ctx context.Context) {
	purged, err := s.Sweep(ctx)
	if err != nil {
		log.Printf("Retention sweep error: %v", err)
		return
	}
	if purged > 0 {
		log.Printf("Retention sweep purged %d records older than %d days", purged, s.cfg.RetentionDays)
	}
}
