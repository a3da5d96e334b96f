// Package activity keeps the dashboard's activity feed: one entry per
// completed chat turn, newest first, in a flat JSON file.
package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/polaris/internal/config"

	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"
)

type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Summary   string    `json:"summary"`
	ToolsUsed []string  `json:"toolsUsed"`
	Truncated bool      `json:"truncated"`
	CreatedAt time.Time `json:"createdAt"`
}

type feed struct {
	Entries []Entry `json:"entries"`
}

// Log is the file-backed activity feed.
type Log struct {
	path       string
	maxEntries int
	lock       LockConfig
	mu         sync.Mutex
}

func NewLog(cfg config.ActivityConfig) (*Log, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("activity path is empty")
	}

	lockTimeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultActivityLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse activity lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultActivityLockRetry)
	if err != nil {
		return nil, fmt.Errorf("parse activity lock retry: %w", err)
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = config.DefaultActivityMaxEntries
	}

	return &Log{
		path:       cfg.Path,
		maxEntries: maxEntries,
		lock:       LockConfig{LockTimeout: lockTimeout, LockRetry: lockRetry},
	}, nil
}

func (l *Log) Path() string {
	return l.path
}

// Init creates the feed directory and an empty feed when none exists.
func (l *Log) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create activity dir: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return l.write(feed{Entries: []Entry{}})
}

// Record prepends an entry and trims the feed to its cap. ID and CreatedAt
// are filled in when empty.
func (l *Log) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.ToolsUsed == nil {
		entry.ToolsUsed = []string{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fl, err := acquireFileLock(ctx, l.path+".lock", l.lock)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	current, err := l.read()
	if err != nil {
		return err
	}

	entries := make([]Entry, 0, len(current.Entries)+1)
	entries = append(entries, entry)
	entries = append(entries, current.Entries...)
	if len(entries) > l.maxEntries {
		entries = entries[:l.maxEntries]
	}

	return l.write(feed{Entries: entries})
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (l *Log) List(ctx context.Context, limit int) ([]Entry, error) {
	current, err := l.read()
	if err != nil {
		return nil, err
	}

	entries := current.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (l *Log) read() (feed, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return feed{}, nil
	}
	if err != nil {
		return feed{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return feed{}, nil
	}

	var f feed
	if err := json.Unmarshal(data, &f); err != nil {
		return feed{}, fmt.Errorf("decode activity feed %s: %w", l.path, err)
	}
	return f, nil
}

func (l *Log) write(f feed) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(l.path, bytes.NewReader(data))
}
