package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ExpirySweeper drops expired sessions on a cron schedule so idle transcripts
// do not wait for their next lookup to be released.
type ExpirySweeper struct {
	store    Sweeper
	schedule string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewExpirySweeper(store Sweeper, schedule string) (*ExpirySweeper, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
	}
	return &ExpirySweeper{store: store, schedule: schedule}, nil
}

func (s *ExpirySweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()

	s.cron = c
	s.running = true
	slog.Info("Session sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep, bounded by ctx.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		slog.Info("Session sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce sweeps immediately and reports how many sessions were removed.
func (s *ExpirySweeper) RunOnce() int {
	removed := s.store.Sweep()
	if removed > 0 {
		slog.Info("Expired sessions removed", "count", removed)
	}
	return removed
}
