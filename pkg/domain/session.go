package domain

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentIndex is the processed content of the documents attached to a session.
// Stores persist it apart from the session record; the lifecycle treats it as an opaque value.
type DocumentIndex struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
}

// Clone returns a copy of the index (nil-safe).
func (d *DocumentIndex) Clone() *DocumentIndex {
	if d == nil {
		return nil
	}
	c := *d
	c.Sources = slices.Clone(d.Sources)
	return &c
}

// Session is the unit of persisted conversational state.
type Session struct {
	SessionID string `json:"session_id"`

	// DocumentIndex is optional and stored separately by every SessionStore.
	DocumentIndex *DocumentIndex `json:"-"`

	// Filename is a display label: DefaultFilename, or the sorted set of attached document names.
	Filename string `json:"filename"`

	// ChatHistory is ordered oldest first and never longer than MaxChatHistory.
	ChatHistory []Message `json:"chat_history"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession creates a fresh record with both timestamps set to now.
func NewSession(sessionID string, index *DocumentIndex, filename string, now time.Time) *Session {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Session{
		SessionID:     sessionID,
		DocumentIndex: index.Clone(),
		Filename:      filename,
		ChatHistory:   []Message{},
		CreatedAt:     now,
		LastActivity:  now,
	}
}

// HasDocument reports whether a document index is attached.
func (s *Session) HasDocument() bool {
	return s.DocumentIndex != nil
}

// Clone returns a deep copy, so callers and stores never share memory with the cache.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.DocumentIndex = s.DocumentIndex.Clone()
	c.ChatHistory = make([]Message, len(s.ChatHistory))
	copy(c.ChatHistory, s.ChatHistory)
	return &c
}

// Touch refreshes LastActivity, never letting it fall behind CreatedAt.
func (s *Session) Touch(now time.Time) {
	if now.Before(s.CreatedAt) {
		now = s.CreatedAt
	}
	s.LastActivity = now
}

// AppendMessage adds a message stamped with now and drops the oldest entries beyond MaxChatHistory.
func (s *Session) AppendMessage(role Role, content string, now time.Time) {
	s.ChatHistory = append(s.ChatHistory, Message{Role: role, Content: content, Timestamp: now})
	if n := len(s.ChatHistory); n > MaxChatHistory {
		// Copy so the backing array does not grow without bound.
		s.ChatHistory = append([]Message(nil), s.ChatHistory[n-MaxChatHistory:]...)
	}
	s.Touch(now)
}

// AttachDocument replaces the document index and merges filename into the label set.
func (s *Session) AttachDocument(index *DocumentIndex, filename string, now time.Time) {
	s.DocumentIndex = index.Clone()
	s.Filename = MergeFilename(s.Filename, filename)
	s.Touch(now)
}

// MergeFilename adds name to the comma-joined set in existing.
// The DefaultFilename sentinel (or an empty label) is replaced outright.
// Adding a name that is already present leaves existing unchanged.
func MergeFilename(existing, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		if existing == "" {
			return DefaultFilename
		}
		return existing
	}
	if existing == "" || existing == DefaultFilename {
		return name
	}

	names := SplitFilenames(existing)
	for _, n := range names {
		if n == name {
			return existing
		}
	}
	names = append(names, name)
	return JoinFilenames(names)
}

// SplitFilenames returns the trimmed, non-empty names of a filename label.
func SplitFilenames(label string) []string {
	parts := strings.Split(label, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinFilenames deduplicates, sorts and joins names into a label.
func JoinFilenames(names []string) string {
	set := make(map[string]struct{}, len(names))
	uniq := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := set[n]; ok {
			continue
		}
		set[n] = struct{}{}
		uniq = append(uniq, n)
	}
	slices.Sort(uniq)
	return strings.Join(uniq, filenameSeparator)
}

// ValidateSessionID rejects identifiers that cannot be used as a storage key.
func ValidateSessionID(sessionID string) error {
	switch {
	case sessionID == "":
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	case sessionID == "." || sessionID == "..":
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	case strings.ContainsAny(sessionID, `/\`) || filepath.Base(sessionID) != sessionID:
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSessionID, sessionID)
	case len(sessionID) > 128:
		return fmt.Errorf("%w: longer than 128 bytes", ErrInvalidSessionID)
	}
	return nil
}
