package session

import (
	"context"
	"sync"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Cache is the process-local, write-through view of the session store.
//
// Cached records are never mutated in place: writers clone, persist and then Put
// the new pointer. Readers may therefore share a cached pointer without holding
// the per-session lock, as long as they clone before handing it out.
type Cache struct {
	store ports.SessionStore

	mu      sync.RWMutex
	entries map[string]*domain.Session
	// epoch advances on every Remove/Reset so an in-flight load that started
	// before a removal does not put the removed record back.
	epoch uint64

	loads singleflight.Group
}

// NewCache creates an empty cache backed by store.
func NewCache(store ports.SessionStore) *Cache {
	return &Cache{
		store:   store,
		entries: make(map[string]*domain.Session),
	}
}

// Store returns the backing store.
func (c *Cache) Store() ports.SessionStore {
	return c.store
}

// Peek returns the cached record without consulting the store.
// The returned pointer must not be mutated.
func (c *Cache) Peek(sessionID string) (*domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[sessionID]
	return s, ok
}

// GetOrLoad returns the cached record or loads it from the store and caches it.
// Concurrent misses for the same session share a single store load.
// Returns domain.ErrSessionNotFound if the store has no record.
// The returned pointer must not be mutated.
func (c *Cache) GetOrLoad(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s, ok := c.Peek(sessionID); ok {
		return s, nil
	}

	v, err, _ := c.loads.Do(sessionID, func() (any, error) {
		c.mu.RLock()
		s, ok := c.entries[sessionID]
		epoch := c.epoch
		c.mu.RUnlock()
		if ok {
			return s, nil
		}

		loaded, err := c.store.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if current, ok := c.entries[sessionID]; ok {
			return current, nil
		}
		if c.epoch == epoch {
			c.entries[sessionID] = loaded
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Session), nil
}

// Put installs s as the current record for its session.
// The cache takes ownership; callers must not mutate s afterwards.
func (c *Cache) Put(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.SessionID] = s
}

// Remove evicts a session and reports whether it was cached.
func (c *Cache) Remove(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	_, ok := c.entries[sessionID]
	delete(c.entries, sessionID)
	return ok
}

// Entry is a point-in-time view of a cached session used by the sweep.
type Entry struct {
	SessionID    string
	LastActivity time.Time
}

// Snapshot copies the identifiers and activity times of all cached sessions.
// The read lock is held only for the copy.
func (c *Cache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for id, s := range c.entries {
		out = append(out, Entry{SessionID: id, LastActivity: s.LastActivity})
	}
	return out
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached session, as a process restart would.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.entries = make(map[string]*domain.Session)
}
