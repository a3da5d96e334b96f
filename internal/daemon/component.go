package daemon

import (
	"context"
)

// HealthStatus is the daemon lifecycle state reported by Daemon.Health.
type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

// ComponentHealth is one entry of the /health payload; a non-nil Error marks
// the service as degraded.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
}

// Component is a unit the daemon initializes in dependency order and stops in
// reverse: SessionStore, ActivityLog, Chat and HTTPServer. Dependencies names
// other components by Name.
type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
