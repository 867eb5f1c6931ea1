package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock is held if its owner dies.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager is the session lifecycle API. It composes the Cache and the store
// into one consistent contract: every mutation runs under the per-session lock,
// is written through to the store, and only then becomes visible in the cache.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	cache *Cache

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL requested from the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new session Manager on top of the given cache.
func NewManager(cache *Cache, opts ...Option) *Manager {
	m := &Manager{
		cache:   cache,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create starts a fresh session, replacing any record with the same ID.
func (m *Manager) Create(ctx context.Context, sessionID string, index *domain.DocumentIndex, filename string) (*domain.Session, error) {
	start := m.now()
	saved, err := m.mutate(ctx, sessionID, func(ctx context.Context) (*domain.Session, error) {
		return domain.NewSession(sessionID, index, filename, m.now()), nil
	})
	m.emit(ctx, domain.OpCreate, sessionID, start, err)
	return saved.Clone(), err
}

// Ensure returns the session, creating an empty one when it does not exist.
// The lookup and the create run under one session lock, so an existing record
// is never replaced. created reports whether a new record was saved.
func (m *Manager) Ensure(ctx context.Context, sessionID string) (s *domain.Session, created bool, err error) {
	start := m.now()
	var existing *domain.Session
	saved, err := m.mutate(ctx, sessionID, func(ctx context.Context) (*domain.Session, error) {
		current, err := m.cache.GetOrLoad(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			created = true
			return domain.NewSession(sessionID, nil, domain.DefaultFilename, m.now()), nil
		}
		if err != nil {
			return nil, err
		}
		existing = current
		return nil, nil
	})
	if created || err != nil {
		m.emit(ctx, domain.OpCreate, sessionID, start, err)
	}
	if err != nil {
		return nil, false, err
	}
	if created {
		return saved.Clone(), true, nil
	}
	return existing.Clone(), false, nil
}

// Get returns a copy of the session, loading it into the cache on a miss.
// It never refreshes LastActivity. Returns domain.ErrSessionNotFound if absent.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	s, err := m.cache.GetOrLoad(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// AttachDocument replaces the session's document index and merges filename into its label.
// A missing session is created.
func (m *Manager) AttachDocument(ctx context.Context, sessionID string, index *domain.DocumentIndex, filename string) (*domain.Session, error) {
	start := m.now()
	saved, err := m.mutate(ctx, sessionID, func(ctx context.Context) (*domain.Session, error) {
		current, err := m.cache.GetOrLoad(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.NewSession(sessionID, index, filename, m.now()), nil
		}
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		next.AttachDocument(index, filename, m.now())
		return next, nil
	})
	m.emit(ctx, domain.OpAttachDocument, sessionID, start, err)
	return saved.Clone(), err
}

// AppendMessage adds a message to the session history, keeping the newest MaxChatHistory entries.
// Appending to a missing session is a logged no-op.
func (m *Manager) AppendMessage(ctx context.Context, sessionID string, role domain.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	start := m.now()
	missing := false
	_, err := m.mutate(ctx, sessionID, func(ctx context.Context) (*domain.Session, error) {
		current, err := m.cache.GetOrLoad(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			missing = true
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		next.AppendMessage(role, content, m.now())
		return next, nil
	})

	if missing {
		m.logger.Warn("append to missing session", "session_id", sessionID, "role", role)
		if m.hooks.OnMissingSession != nil {
			m.hooks.OnMissingSession(ctx, &domain.SessionEvent{
				EventBase: domain.EventBase{Timestamp: m.now(), Type: domain.EventMissingSession},
				SessionID: sessionID,
				Op:        domain.OpAppendMessage,
			})
		}
	}
	m.emit(ctx, domain.OpAppendMessage, sessionID, start, err)
	return err
}

// Delete removes the session from the store, including its document index, and then from the cache.
// Deleting a missing session is not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	start := m.now()
	err := domain.ValidateSessionID(sessionID)
	if err == nil {
		err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
			if err := m.cache.Store().Delete(ctx, sessionID); err != nil {
				return err
			}
			m.cache.Remove(sessionID)
			return nil
		})
	}
	m.emit(ctx, domain.OpDelete, sessionID, start, err)
	return err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.cache.Store().List(ctx)
}

// Cache returns the underlying cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// SweepReport lists what one aging pass removed.
type SweepReport struct {
	StoreRemoved []string
	CacheEvicted []string
}

// Sweep ages out sessions idle for maxAge or longer: first in the store, then in
// the cache. The cache scan works on a snapshot and takes each session's lock
// only while re-checking that one entry.
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) (SweepReport, error) {
	start := m.now()
	var report SweepReport

	removed, storeErr := m.cache.Store().Sweep(ctx, maxAge)
	report.StoreRemoved = removed
	if storeErr != nil {
		m.logger.Error("store sweep finished with errors", "removed", len(removed), "err", storeErr)
	}

	cutoff := m.now().Add(-maxAge)
	var errs []error
	for _, entry := range m.cache.Snapshot() {
		if entry.LastActivity.After(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := m.WithLock(ctx, entry.SessionID, func(context.Context) error {
			current, ok := m.cache.Peek(entry.SessionID)
			// Refreshed since the snapshot.
			if !ok || current.LastActivity.After(cutoff) {
				return nil
			}
			m.cache.Remove(entry.SessionID)
			report.CacheEvicted = append(report.CacheEvicted, entry.SessionID)
			return nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(append([]error{storeErr}, errs...)...)
	m.logger.Info("session sweep completed",
		"max_age", maxAge,
		"store_removed", len(report.StoreRemoved),
		"cache_evicted", len(report.CacheEvicted),
		"duration", m.now().Sub(start),
	)
	if m.hooks.OnSweep != nil {
		m.hooks.OnSweep(ctx, &domain.SweepEvent{
			EventBase:    domain.EventBase{Timestamp: m.now(), Type: domain.EventSweep},
			MaxAge:       maxAge,
			StoreRemoved: report.StoreRemoved,
			CacheEvicted: report.CacheEvicted,
			CacheSize:    m.cache.Len(),
			Err:          err,
		})
	}
	return report, err
}

// mutate runs a read-modify-write under the session lock. build returns the next
// record (nil for no change); it is saved and only then installed in the cache,
// so a failed save leaves the previous record in place.
// The returned record is owned by the cache and must be cloned before use.
func (m *Manager) mutate(ctx context.Context, sessionID string, build func(context.Context) (*domain.Session, error)) (*domain.Session, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	var saved *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		next, err := build(ctx)
		if err != nil || next == nil {
			return err
		}
		if err := m.cache.Store().Save(ctx, sessionID, next); err != nil {
			m.logger.Error("write-through failed, keeping previous session state",
				"session_id", sessionID,
				"err", err,
			)
			return err
		}
		m.cache.Put(next)
		saved = next
		return nil
	})
	return saved, err
}

func (m *Manager) emit(ctx context.Context, op domain.Operation, sessionID string, start time.Time, err error) {
	if m.hooks.OnOperation == nil {
		return
	}
	m.hooks.OnOperation(ctx, &domain.SessionEvent{
		EventBase: domain.EventBase{Timestamp: m.now(), Type: domain.EventOperation},
		SessionID: sessionID,
		Op:        op,
		Duration:  m.now().Sub(start),
		Err:       err,
	})
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
