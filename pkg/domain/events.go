package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventOperation      EventType = "operation"
	EventMissingSession EventType = "missing_session"
	EventSweep          EventType = "sweep"
)

// Operation names a lifecycle operation.
type Operation string

const (
	OpCreate         Operation = "create"
	OpGet            Operation = "get"
	OpAttachDocument Operation = "attach_document"
	OpAppendMessage  Operation = "append_message"
	OpDelete         Operation = "delete"
	OpSweep          Operation = "sweep"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// SessionEvent reports the outcome of one lifecycle operation on a session.
type SessionEvent struct {
	EventBase
	SessionID string        `json:"session_id"`
	Op        Operation     `json:"op"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// SweepEvent reports one aging pass over store and cache.
type SweepEvent struct {
	EventBase
	MaxAge       time.Duration `json:"max_age"`
	StoreRemoved []string      `json:"store_removed,omitempty"`
	CacheEvicted []string      `json:"cache_evicted,omitempty"`
	CacheSize    int           `json:"cache_size"`
	Err          error         `json:"-"`
}

// LifecycleHooks defines callbacks for session observability.
// Every field is optional.
type LifecycleHooks struct {
	OnOperation      func(context.Context, *SessionEvent)
	OnMissingSession func(context.Context, *SessionEvent)
	OnSweep          func(context.Context, *SweepEvent)
}
