package chatbot_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	chatbot "github.com/Vijaya2621/Chatbot-using-API"
	"github.com/Vijaya2621/Chatbot-using-API/internal/config"
	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGenerator string

func (g staticGenerator) Generate(context.Context, string) (string, error) {
	return string(g), nil
}

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = backend
	cfg.Store.Dir = filepath.Join(t.TempDir(), "store")
	cfg.Server.UploadsDir = filepath.Join(t.TempDir(), "uploads")
	cfg.SQL.DSN = filepath.Join(t.TempDir(), "chatbot.db")
	return cfg
}

func newApp(t *testing.T, cfg config.Config) *chatbot.App {
	t.Helper()
	app, err := chatbot.New(context.Background(), cfg,
		chatbot.WithLogger(logging.NewNop()),
		chatbot.WithGenerator(staticGenerator("hi!")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestApp_ChatOverHTTP(t *testing.T) {
	app := newApp(t, testConfig(t, config.BackendMemory))
	h := app.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message": "hello there", "session_id": "s1"}`)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"response": "hi!", "session_id": "s1"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `chatbot_session_operations_total{op="create",result="ok"} 1`)
	assert.Contains(t, body, `chatbot_session_operations_total{op="append_message",result="ok"} 2`)
	assert.Contains(t, body, `chatbot_chat_messages_total{route="general"} 1`)
}

func TestApp_UnknownProvider(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.LLM.Provider = "ollama"
	_, err := chatbot.New(context.Background(), cfg, chatbot.WithLogger(logging.NewNop()))
	assert.Error(t, err)
}

func TestApp_DefaultProvider(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.LLM.APIKey = "test"
	app, err := chatbot.New(context.Background(), cfg, chatbot.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	roundTrip := func(t *testing.T, cfg config.Config) {
		store, _, closeFn, err := chatbot.OpenStore(cfg)
		require.NoError(t, err)
		defer closeFn()

		s := domain.NewSession("s1", &domain.DocumentIndex{Text: "doc"}, "a.pdf", time.Now())
		require.NoError(t, store.Save(ctx, "s1", s))
		loaded, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", loaded.Filename)
		assert.Equal(t, "doc", loaded.DocumentIndex.Text)
	}

	t.Run("File", func(t *testing.T) { roundTrip(t, testConfig(t, config.BackendFile)) })
	t.Run("Memory", func(t *testing.T) { roundTrip(t, testConfig(t, config.BackendMemory)) })
	t.Run("SQL", func(t *testing.T) { roundTrip(t, testConfig(t, config.BackendSQL)) })

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(t, config.BackendRedis)
		cfg.Redis.Addr = mr.Addr()
		cfg.Redis.Lock = true
		roundTrip(t, cfg)

		_, locker, closeFn, err := chatbot.OpenStore(cfg)
		require.NoError(t, err)
		defer closeFn()
		assert.NotNil(t, locker)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, _, err := chatbot.OpenStore(testConfig(t, "mongo"))
		assert.Error(t, err)
	})
}

func TestApp_EncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendFile)
	cfg.Security.EncryptionKey = strings.Repeat("0f", 32)
	cfg.Security.RedactPatterns = []string{`\d{3}-\d{2}-\d{4}`}
	app := newApp(t, cfg)

	_, err := app.Sessions.Create(ctx, "s1", nil, "")
	require.NoError(t, err)
	require.NoError(t, app.Sessions.AppendMessage(ctx, "s1", domain.RoleUser, "my ssn is 123-45-6789, keep it secret"))

	raw, err := os.ReadFile(filepath.Join(cfg.Store.Dir, "sessions", "s1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "enc:v1:")
	assert.NotContains(t, string(raw), "keep it secret")

	// Served from the cache: the caller still sees what it wrote.
	s, err := app.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "my ssn is 123-45-6789, keep it secret", s.ChatHistory[0].Content)

	// Reloaded from disk: decrypted, with the pattern redacted.
	app.Sessions.Cache().Reset()
	s, err = app.Sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "my ssn is ***, keep it secret", s.ChatHistory[0].Content)
}

func TestApp_Serve(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second
	app := newApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestOpenSessions(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendFile)

	mgr, closeFn, err := chatbot.OpenSessions(cfg)
	require.NoError(t, err)
	defer closeFn()

	_, err = mgr.Create(ctx, "s1", nil, "")
	require.NoError(t, err)

	// A second manager over the same directory sees the session.
	other, closeOther, err := chatbot.OpenSessions(cfg)
	require.NoError(t, err)
	defer closeOther()
	ids, err := other.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	cfg.Security.EncryptionKey = "not-a-key"
	_, _, err = chatbot.OpenSessions(cfg)
	assert.Error(t, err)
}
