package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/polaris/internal/activity"
	"github.com/harunnryd/polaris/internal/config"
	"github.com/harunnryd/polaris/internal/daemon"
)

// ActivityLogComponent opens the activity feed file. When the log is
// disabled the component stays healthy and Log returns nil.
type ActivityLogComponent struct {
	cfg         *config.ActivityConfig
	log         *activity.Log
	initialized bool
	mu          sync.RWMutex
}

func NewActivityLogComponent(cfg *config.ActivityConfig) *ActivityLogComponent {
	return &ActivityLogComponent{cfg: cfg}
}

func (a *ActivityLogComponent) Name() string {
	return "ActivityLog"
}

func (a *ActivityLogComponent) Dependencies() []string {
	return []string{}
}

func (a *ActivityLogComponent) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cfg == nil || !a.cfg.Enabled {
		a.initialized = true
		slog.Info("ActivityLog disabled", "component", a.Name())
		return nil
	}

	log, err := activity.NewLog(*a.cfg)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	if err := log.Init(ctx); err != nil {
		return fmt.Errorf("init activity log: %w", err)
	}

	a.log = log
	a.initialized = true
	slog.Info("ActivityLog initialized", "component", a.Name(), "path", log.Path())
	return nil
}

func (a *ActivityLogComponent) Start(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.initialized {
		return fmt.Errorf("ActivityLog not initialized")
	}
	return nil
}

func (a *ActivityLogComponent) Stop(ctx context.Context) error {
	return nil
}

func (a *ActivityLogComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.initialized {
		return &daemon.ComponentHealth{Name: a.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	return &daemon.ComponentHealth{Name: a.Name(), Healthy: true}, nil
}

func (a *ActivityLogComponent) Log() *activity.Log {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.log
}
