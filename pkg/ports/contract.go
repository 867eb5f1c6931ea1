package ports

import (
	"context"
	"testing"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
// The store must be empty; the final subtest sweeps it with a zero age.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID, &domain.DocumentIndex{Text: "chapter one"}, "a.pdf", now)
		session.AppendMessage(domain.RoleUser, "hello", now)
		session.AppendMessage(domain.RoleAssistant, "hi there", now.Add(time.Second))

		require.NoError(t, store.Save(ctx, sessionID, session), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, "a.pdf", loaded.Filename)
		require.Len(t, loaded.ChatHistory, 2)
		assert.Equal(t, domain.RoleUser, loaded.ChatHistory[0].Role)
		assert.Equal(t, "hi there", loaded.ChatHistory[1].Content)
		assert.True(t, session.CreatedAt.Equal(loaded.CreatedAt))
		assert.True(t, session.LastActivity.Equal(loaded.LastActivity))
		require.NotNil(t, loaded.DocumentIndex)
		assert.Equal(t, "chapter one", loaded.DocumentIndex.Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		session := domain.NewSession(sessionID, nil, "", now)
		session.AppendMessage(domain.RoleUser, "only", now)
		require.NoError(t, store.Save(ctx, sessionID, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultFilename, loaded.Filename)
		assert.Len(t, loaded.ChatHistory, 1)
		assert.Nil(t, loaded.DocumentIndex, "saving a nil index clears the stored one")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewSession(sessionID, &domain.DocumentIndex{Text: "x"}, "x.pdf", now)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete should be idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1, nil, "", now)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2, nil, "", now)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Sweep", func(t *testing.T) {
		staleID := sessionID + "-stale"
		freshID := sessionID + "-fresh"
		stale := domain.NewSession(staleID, &domain.DocumentIndex{Text: "old"}, "old.pdf", time.Now().Add(-48*time.Hour))
		fresh := domain.NewSession(freshID, nil, "", time.Now())
		require.NoError(t, store.Save(ctx, staleID, stale))
		require.NoError(t, store.Save(ctx, freshID, fresh))
		defer func() { _ = store.Delete(ctx, freshID) }()

		removed, err := store.Sweep(ctx, 24*time.Hour)
		require.NoError(t, err)
		assert.Contains(t, removed, staleID)
		assert.NotContains(t, removed, freshID)

		_, err = store.Load(ctx, staleID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		_, err = store.Load(ctx, freshID)
		assert.NoError(t, err)
	})

	t.Run("Sweep Zero Age", func(t *testing.T) {
		id := sessionID + "-zero"
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id, nil, "", time.Now().Add(-time.Millisecond))))

		removed, err := store.Sweep(ctx, 0)
		require.NoError(t, err)
		assert.Contains(t, removed, id)

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
