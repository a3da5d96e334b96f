package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/polaris/internal/config"
	"github.com/harunnryd/polaris/internal/daemon"
	"github.com/harunnryd/polaris/internal/session"
)

// SessionStoreComponent owns the bounded transcript cache and its expiry sweep.
type SessionStoreComponent struct {
	cfg         *config.SessionsConfig
	store       *session.CacheStore
	sweeper     *session.ExpirySweeper
	initialized bool
	started     bool
	mu          sync.RWMutex
	startTime   time.Time
}

func NewSessionStoreComponent(cfg *config.SessionsConfig) *SessionStoreComponent {
	return &SessionStoreComponent{cfg: cfg}
}

func (s *SessionStoreComponent) Name() string {
	return "SessionStore"
}

func (s *SessionStoreComponent) Dependencies() []string {
	return []string{}
}

func (s *SessionStoreComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("SessionStore init cancelled: %w", ctx.Err())
	default:
	}

	ttlValue, capacity, schedule := "", 0, ""
	if s.cfg != nil {
		ttlValue = s.cfg.TTL
		capacity = s.cfg.Capacity
		schedule = s.cfg.SweepSchedule
	}

	ttl, err := config.DurationOrDefault(ttlValue, config.DefaultSessionsTTL)
	if err != nil {
		return fmt.Errorf("parse sessions ttl: %w", err)
	}
	if capacity <= 0 {
		capacity = config.DefaultSessionsCapacity
	}
	if schedule == "" {
		schedule = config.DefaultSessionsSweepSchedule
	}

	store := session.NewCacheStore(ttl, capacity)
	sweeper, err := session.NewExpirySweeper(store, schedule)
	if err != nil {
		return fmt.Errorf("create session sweeper: %w", err)
	}

	s.store = store
	s.sweeper = sweeper
	s.initialized = true
	slog.Info("SessionStore initialized", "component", s.Name(), "ttl", ttl, "capacity", capacity, "sweep_schedule", schedule)
	return nil
}

func (s *SessionStoreComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("SessionStore not initialized")
	}
	if err := s.sweeper.Start(); err != nil {
		return fmt.Errorf("start session sweeper: %w", err)
	}

	s.started = true
	s.startTime = time.Now()
	slog.Info("SessionStore started", "component", s.Name())
	return nil
}

func (s *SessionStoreComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		slog.Info("SessionStore not started, skipping stop", "component", s.Name())
		return nil
	}

	slog.Info("Stopping SessionStore...", "component", s.Name())
	if err := s.sweeper.Stop(ctx); err != nil {
		return err
	}
	s.started = false
	slog.Info("SessionStore stopped", "component", s.Name(), "sessions", s.store.Len())
	return nil
}

func (s *SessionStoreComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if !s.started {
		return &daemon.ComponentHealth{Name: s.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	return &daemon.ComponentHealth{Name: s.Name(), Healthy: true}, nil
}

func (s *SessionStoreComponent) Store() *session.CacheStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}
