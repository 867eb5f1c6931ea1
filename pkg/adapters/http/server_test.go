package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/internal/chat"
	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/memory"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcessor treats the uploaded bytes as the document text.
type fakeProcessor struct{}

func (fakeProcessor) Process(_ context.Context, path, name string) (*domain.DocumentIndex, error) {
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if string(data) == "broken" {
		return nil, errors.New("no content found in PDF")
	}
	return &domain.DocumentIndex{Text: string(data), Sources: []string{name}}, nil
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return "answer", nil
}

type fixture struct {
	server   *Server
	handler  http.Handler
	sessions *session.Manager
	uploads  string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	streams := NewStreamManager(logging.NewNop())
	mgr := session.NewManager(
		session.NewCache(memory.NewStore()),
		session.WithLifecycleHooks(streams.Hooks(domain.LifecycleHooks{})),
	)
	uploads := filepath.Join(t.TempDir(), "uploads")
	opts = append([]Option{
		WithUploadsDir(uploads),
		WithStreams(streams),
		WithInfo("groq", "1.2.3\n"),
		WithSessionIDGenerator(func() string { return "generated-id" }),
	}, opts...)
	s := NewServer(mgr, chat.NewHandler(mgr, echoGenerator{}), fakeProcessor{}, opts...)
	return &fixture{server: s, handler: s.Handler(), sessions: mgr, uploads: uploads}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, filename, content, sessionID string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if sessionID != "" {
		require.NoError(t, mw.WriteField("session_id", sessionID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload-pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func chatRequestBody(t *testing.T, sessionID, message string) *http.Request {
	t.Helper()
	b, err := json.Marshal(chatRequest{Message: message, SessionID: sessionID})
	require.NoError(t, err)
	return httptest.NewRequest("POST", "/chat", bytes.NewReader(b))
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestGetHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "Server running with groq API", resp["message"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetInfo(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest("GET", "/info", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]string](t, rr)
	assert.Equal(t, "chatbot-http", resp["app"])
	assert.Equal(t, "1.2.3", resp["version"])
}

func TestPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest("OPTIONS", "/chat", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rr := f.do(t, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "req-1", rr.Header().Get("X-Request-Id"))
}

func TestUploadPDF(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, uploadRequest(t, "notes.pdf", "chapter one", "s1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[uploadResponse](t, rr)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, "notes.pdf", resp.Filename)

	rr = f.do(t, uploadRequest(t, "appendix.pdf", "chapter two", "s1"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "appendix.pdf, notes.pdf", decode[uploadResponse](t, rr).Filename)

	s, err := f.sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "chapter two", s.DocumentIndex.Text)
	assert.Equal(t, []string{"appendix.pdf"}, s.DocumentIndex.Sources)

	entries, err := os.ReadDir(f.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged uploads are consumed by the processor")
}

func TestUploadPDF_NewSession(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, uploadRequest(t, "notes.pdf", "text", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "generated-id", decode[uploadResponse](t, rr).SessionID)
}

func TestUploadPDF_Rejected(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, uploadRequest(t, "notes.txt", "text", "s1"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Only PDF files allowed", decode[errorResponse](t, rr).Detail)

	rr = f.do(t, uploadRequest(t, "notes.pdf", "text", ".."))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, httptest.NewRequest("POST", "/upload-pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadPDF_ProcessingFailure(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, uploadRequest(t, "empty.pdf", "broken", "s1"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, strings.HasPrefix(decode[errorResponse](t, rr).Detail, "Error: "))

	_, err := f.sessions.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "a failed upload leaves no session behind")
}

func TestChatAndHistory(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, chatRequestBody(t, "s1", "hello there"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[chatResponse](t, rr)
	assert.Equal(t, "answer", resp.Response)
	assert.Equal(t, "s1", resp.SessionID)

	rr = f.do(t, httptest.NewRequest("GET", "/chat-history/s1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	hist := decode[historyResponse](t, rr)
	assert.Equal(t, domain.DefaultFilename, hist.Filename)
	assert.False(t, hist.HasVectorStore)
	require.Len(t, hist.History, 2)
	assert.Equal(t, domain.RoleUser, hist.History[0].Role)
	assert.Equal(t, "hello there", hist.History[0].Content)
	assert.Equal(t, "answer", hist.History[1].Content)
}

func TestChat_BadRequests(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, httptest.NewRequest("POST", "/chat", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, chatRequestBody(t, "", "hello"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, chatRequestBody(t, "a/b", "hello"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHistory_NotFound(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest("GET", "/chat-history/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Session not found", decode[errorResponse](t, rr).Detail)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, chatRequestBody(t, "s1", "hello there")).Code)

	rr := f.do(t, httptest.NewRequest("DELETE", "/session/s1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Session deleted", decode[map[string]string](t, rr)["message"])

	rr = f.do(t, httptest.NewRequest("GET", "/chat-history/s1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, httptest.NewRequest("DELETE", "/session/s1", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "deleting twice is not an error")
}

func TestMetricsMounted(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(t, httptest.NewRequest("GET", "/metrics", nil)).Code)

	f = newFixture(t, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chatbot_up 1\n"))
	})))
	rr := f.do(t, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "chatbot_up 1\n", rr.Body.String())
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?session_id=s1", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	// The ping is written after the subscription is registered.
	chatResp, err := srv.Client().Post(srv.URL+"/chat", "application/json",
		strings.NewReader(`{"message": "hello there", "session_id": "s1"}`))
	require.NoError(t, err)
	chatResp.Body.Close()

	var ops []string
	for len(ops) < 3 && lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var e domain.SessionEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		assert.Equal(t, "s1", e.SessionID)
		ops = append(ops, string(e.Op))
	}
	assert.Equal(t, []string{"create", "append_message", "append_message"}, ops)
}

func TestSubscribeEvents_RequiresSession(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, httptest.NewRequest("GET", "/events", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
