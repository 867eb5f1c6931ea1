package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/memory"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
)

var errDiskFull = errors.New("disk full")

// SlowStore wraps the memory store, simulating latency to provoke race conditions
// if locking is missing, and optionally failing writes.
type SlowStore struct {
	*memory.Store

	delay     time.Duration
	failSaves atomic.Bool
	loads     atomic.Int32
	saves     atomic.Int32

	// loadGate, when set, is closed by the test to let pending loads finish.
	loadGate    chan struct{}
	loadStarted chan struct{}
	once        sync.Once
}

func NewSlowStore(delay time.Duration) *SlowStore {
	return &SlowStore{Store: memory.NewStore(), delay: delay}
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	time.Sleep(s.delay) // Simulate IO
	if s.failSaves.Load() {
		return domain.NewStorageError(domain.StorageWrite, sessionID, errDiskFull)
	}
	s.saves.Add(1)
	return s.Store.Save(ctx, sessionID, session)
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.loads.Add(1)
	session, err := s.Store.Load(ctx, sessionID)
	if s.loadStarted != nil {
		s.once.Do(func() { close(s.loadStarted) })
	}
	if s.loadGate != nil {
		<-s.loadGate
	}
	time.Sleep(s.delay) // Simulate IO
	return session, err
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t.UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
