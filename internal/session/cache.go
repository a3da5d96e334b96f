package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/polaris/internal/model/contract"
)

type cacheEntry struct {
	id       string
	messages []contract.Message
	lastUsed time.Time
}

// CacheStore is a Store bounded by capacity (least recently used sessions are
// evicted first) whose entries expire after ttl without activity.
type CacheStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	now      func() time.Time
}

// NewCacheStore builds a CacheStore. A ttl <= 0 disables expiry and a
// capacity <= 0 disables eviction.
func NewCacheStore(ttl time.Duration, capacity int) *CacheStore {
	return &CacheStore{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

func (s *CacheStore) Get(ctx context.Context, sessionID string) ([]contract.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[sessionID]
	if !ok {
		return nil, false, nil
	}

	entry := elem.Value.(*cacheEntry)
	now := s.now()
	if s.expired(entry, now) {
		s.remove(elem)
		return nil, false, nil
	}

	entry.lastUsed = now
	s.lru.MoveToFront(elem)
	return contract.CloneMessages(entry.messages), true, nil
}

func (s *CacheStore) Append(ctx context.Context, sessionID string, messages ...contract.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if elem, ok := s.entries[sessionID]; ok {
		entry := elem.Value.(*cacheEntry)
		if s.expired(entry, now) {
			entry.messages = nil
		}
		entry.messages = append(entry.messages, contract.CloneMessages(messages)...)
		entry.lastUsed = now
		s.lru.MoveToFront(elem)
		return nil
	}

	s.insert(sessionID, contract.CloneMessages(messages), now)
	return nil
}

func (s *CacheStore) Replace(ctx context.Context, sessionID string, messages ...contract.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if elem, ok := s.entries[sessionID]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.messages = contract.CloneMessages(messages)
		entry.lastUsed = now
		s.lru.MoveToFront(elem)
		return nil
	}

	s.insert(sessionID, contract.CloneMessages(messages), now)
	return nil
}

func (s *CacheStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[sessionID]; ok {
		s.remove(elem)
	}
	return nil
}

// Sweep removes every expired session and returns how many were dropped.
func (s *CacheStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	// Least recently used entries sit at the back; stop at the first live one.
	for elem := s.lru.Back(); elem != nil; {
		entry := elem.Value.(*cacheEntry)
		if !s.expired(entry, now) {
			break
		}
		prev := elem.Prev()
		s.remove(elem)
		removed++
		elem = prev
	}
	return removed
}

func (s *CacheStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *CacheStore) expired(entry *cacheEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastUsed) > s.ttl
}

// insert adds a new entry at the front and evicts from the back while the
// cache is over capacity. Callers hold s.mu.
func (s *CacheStore) insert(sessionID string, messages []contract.Message, now time.Time) {
	entry := &cacheEntry{id: sessionID, messages: messages, lastUsed: now}
	s.entries[sessionID] = s.lru.PushFront(entry)

	for s.capacity > 0 && s.lru.Len() > s.capacity {
		oldest := s.lru.Back()
		slog.Debug("Evicting least recently used session", "session_id", oldest.Value.(*cacheEntry).id)
		s.remove(oldest)
	}
}

func (s *CacheStore) remove(elem *list.Element) {
	entry := s.lru.Remove(elem).(*cacheEntry)
	delete(s.entries, entry.id)
}
