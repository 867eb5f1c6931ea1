package middleware

import (
	"context"
	"regexp"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
)

// RedactedValue replaces every match of a PII pattern.
const RedactedValue = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks message text matching the patterns
// before it reaches the store. Only the persisted copy is masked.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	if session == nil {
		return m.next.Save(ctx, sessionID, session)
	}
	// Deep Clone to avoid side effects on the in-memory record served by the cache.
	cloned := session.Clone()
	for i := range cloned.ChatHistory {
		cloned.ChatHistory[i].Content = m.mask(cloned.ChatHistory[i].Content)
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) Sweep(ctx context.Context, maxAge time.Duration) ([]string, error) {
	return m.next.Sweep(ctx, maxAge)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, RedactedValue)
	}
	return s
}
