package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
)

// LockConfig bounds how long a writer waits for the feed file lock.
type LockConfig struct {
	LockTimeout time.Duration
	LockRetry   time.Duration
}

// fileLock guards the feed against writers in other processes, such as a
// second server instance sharing the same activity path.
type fileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	acquiredAt time.Time
}

func acquireFileLock(ctx context.Context, lockPath string, cfg LockConfig) (*fileLock, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.LockTimeout)
	defer cancel()

	fl := &fileLock{
		fileLock: flock.New(lockPath),
		lockPath: lockPath,
	}

	if err := fl.acquireWithRetry(ctx, cfg); err != nil {
		return nil, err
	}

	fl.acquiredAt = time.Now()
	slog.Debug("Activity lock acquired", "path", lockPath)
	return fl, nil
}

func (fl *fileLock) acquireWithRetry(ctx context.Context, cfg LockConfig) error {
	for {
		locked, err := fl.fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to attempt lock: %w", err)
		}
		if locked {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("activity feed %s is locked by another writer (timeout after %v): %w", fl.lockPath, cfg.LockTimeout, ctx.Err())
		case <-time.After(cfg.LockRetry):
		}
	}
}

func (fl *fileLock) Unlock() {
	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release activity lock", "path", fl.lockPath, "error", err)
		return
	}
	slog.Debug("Activity lock released", "path", fl.lockPath, "held_duration_ms", time.Since(fl.acquiredAt).Milliseconds())
}
