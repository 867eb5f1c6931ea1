package ports

import (
	"context"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
)

// SessionStore defines the interface for persisting session records.
// Implementations store the DocumentIndex apart from the record itself.
type SessionStore interface {
	// Save overwrites the record for a given session ID.
	// A nil DocumentIndex removes any previously stored index.
	// Failures are reported as *domain.StorageError with Op StorageWrite.
	Save(ctx context.Context, sessionID string, session *domain.Session) error

	// Load retrieves the record for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist,
	// and a *domain.StorageError with Op StorageRead if it cannot be decoded.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the record and its document index. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)

	// Sweep deletes every record whose LastActivity is maxAge old or older.
	// It continues past individual failures and returns the IDs it removed
	// together with the joined errors.
	Sweep(ctx context.Context, maxAge time.Duration) ([]string, error)
}
