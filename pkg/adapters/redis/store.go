package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the Store.
const DefaultPrefix = "chatbot:session:"

// sweepScript deletes a session only if its activity score is still at or below the cutoff,
// so a record refreshed between ZRANGEBYSCORE and the delete survives.
var sweepScript = backend.NewScript(`
local score = redis.call("ZSCORE", KEYS[1], ARGV[1])
if score and tonumber(score) <= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[2], KEYS[3])
	redis.call("ZREM", KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// Store implements ports.SessionStore using Redis.
// Records and document indexes are separate keys; a sorted set scored by
// LastActivity (unix milliseconds) indexes all sessions for List and Sweep.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) vectorKey(sessionID string) string {
	return s.prefix + "vectors:" + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Save persists the record, its document index and the activity score in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, err)
	}
	if session == nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, errors.New("nil session"))
	}

	data, err := json.Marshal(session)
	if err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to marshal session: %w", err))
	}

	var index []byte
	if session.DocumentIndex != nil {
		if index, err = json.Marshal(session.DocumentIndex); err != nil {
			return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to marshal document index: %w", err))
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sessionID), data, s.ttl)
	if index != nil {
		pipe.Set(ctx, s.vectorKey(sessionID), index, s.ttl)
	} else {
		pipe.Del(ctx, s.vectorKey(sessionID))
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score(session.LastActivity),
		Member: sessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to save to redis: %w", err))
	}
	return nil
}

// Load retrieves the record and its document index.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to get from redis: %w", err))
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to unmarshal session: %w", err))
	}
	if session.ChatHistory == nil {
		session.ChatHistory = []domain.Message{}
	}

	raw, err := s.client.Get(ctx, s.vectorKey(sessionID)).Bytes()
	switch {
	case errors.Is(err, backend.Nil):
	case err != nil:
		return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to get document index: %w", err))
	default:
		var index domain.DocumentIndex
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, domain.NewStorageError(domain.StorageRead, sessionID, fmt.Errorf("failed to unmarshal document index: %w", err))
		}
		session.DocumentIndex = &index
	}

	return &session, nil
}

// Delete removes the session and its document index.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()

	pipe.Del(ctx, s.key(sessionID), s.vectorKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return domain.NewStorageError(domain.StorageWrite, sessionID, fmt.Errorf("failed to delete from redis: %w", err))
	}
	return nil
}

// List returns the indexed sessions.
// With a TTL configured, index entries whose keys have expired are pruned first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		expired := strconv.FormatFloat(score(s.now().Add(-s.ttl)), 'f', 0, 64)
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", expired).Err(); err != nil {
			return nil, domain.NewStorageError(domain.StorageRead, "", fmt.Errorf("failed to prune expired sessions: %w", err))
		}
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, "", fmt.Errorf("failed to list sessions: %w", err))
	}
	return sessions, nil
}

// Sweep removes sessions whose activity score is at or below now-maxAge.
func (s *Store) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := strconv.FormatFloat(score(s.now().Add(-maxAge)), 'f', 0, 64)

	candidates, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return nil, domain.NewStorageError(domain.StorageRead, "", fmt.Errorf("failed to scan session index: %w", err))
	}

	var (
		removed []string
		errs    []error
	)
	for _, id := range candidates {
		keys := []string{s.indexKey(), s.key(id), s.vectorKey(id)}
		n, err := sweepScript.Run(ctx, s.client, keys, id, cutoff).Int()
		if err != nil {
			errs = append(errs, domain.NewStorageError(domain.StorageWrite, id, fmt.Errorf("failed to sweep session: %w", err)))
			continue
		}
		if n == 1 {
			removed = append(removed, id)
		}
	}
	return removed, errors.Join(errs...)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
