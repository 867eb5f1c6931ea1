package sql_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/internal/adapters/sql"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*sql.Store)(nil)

func openTestStore(t *testing.T) *sql.Store {
	t.Helper()
	store, err := sql.Open(sql.DriverSQLite, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err, "open sqlite")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, openTestStore(t))
}

func TestSQLStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := sql.Open(sql.DriverSQLite, path)
	require.NoError(t, err)

	now := time.Now().UTC()
	session := domain.NewSession("s1", &domain.DocumentIndex{Text: "body"}, "a.pdf", now)
	session.AppendMessage(domain.RoleUser, "hi", now)
	require.NoError(t, store.Save(ctx, "s1", session))
	require.NoError(t, store.Close())

	reopened, err := sql.Open(sql.DriverSQLite, path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session, loaded)
}

func TestSQLStore_UnsupportedDriver(t *testing.T) {
	_, err := sql.Open("oracle", "dsn")
	assert.Error(t, err)
}
