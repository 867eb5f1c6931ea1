package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes caps the size of an uploaded document.
const DefaultMaxUploadBytes = 32 << 20

// Chatter answers a chat message for a session.
type Chatter interface {
	HandleMessage(ctx context.Context, sessionID, message string) (string, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	Sessions  *session.Manager
	Chat      Chatter
	Processor ports.DocumentProcessor
	Streams   *StreamManager

	uploadsDir     string
	maxUploadBytes int64
	provider       string
	version        string
	metrics        http.Handler
	logger         *slog.Logger
	newSessionID   func() string
}

// Option configures the Server.
type Option func(*Server)

// WithUploadsDir sets where uploads are staged before processing.
func WithUploadsDir(dir string) Option {
	return func(s *Server) {
		if dir != "" {
			s.uploadsDir = dir
		}
	}
}

// WithMaxUploadBytes caps the request body of /upload-pdf.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithInfo sets the provider and version reported by /health and /info.
func WithInfo(provider, version string) Option {
	return func(s *Server) {
		s.provider = provider
		s.version = version
	}
}

// WithStreams shares a StreamManager whose hooks are installed on the session Manager.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithSessionIDGenerator replaces uuid.NewString for new upload sessions.
func WithSessionIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newSessionID = fn
	}
}

// NewServer creates a Server.
func NewServer(sessions *session.Manager, chat Chatter, processor ports.DocumentProcessor, opts ...Option) *Server {
	s := &Server{
		Sessions:       sessions,
		Chat:           chat,
		Processor:      processor,
		uploadsDir:     "uploads",
		maxUploadBytes: DefaultMaxUploadBytes,
		version:        "dev",
		logger:         logging.NewNop(),
		newSessionID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Post("/upload-pdf", s.UploadPDF)
	r.Post("/chat", s.PostChat)
	r.Get("/chat-history/{session_id}", s.GetChatHistory)
	r.Delete("/session/{session_id}", s.DeleteSession)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type uploadResponse struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// UploadPDF handles POST /upload-pdf.
func (s *Server) UploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A PDF file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files allowed")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = s.newSessionID()
	}
	if err := domain.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.stage(sessionID, name, file)
	if err != nil {
		s.logger.Error("failed to stage upload", "session_id", sessionID, "file", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	index, err := s.Processor.Process(r.Context(), path, name)
	if err != nil {
		s.logger.Error("PDF processing failed", "session_id", sessionID, "file", name, "err", err)
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	sess, err := s.Sessions.AttachDocument(r.Context(), sessionID, index, name)
	if err != nil {
		s.logger.Error("failed to attach document", "session_id", sessionID, "file", name, "err", err)
		writeError(w, statusFor(err), "Error: "+err.Error())
		return
	}

	s.logger.Info("PDF processed", "session_id", sessionID, "file", name)
	writeJSON(w, http.StatusOK, uploadResponse{SessionID: sessionID, Filename: sess.Filename})
}

// stage copies the upload to <uploads>/<session>_<name>.
func (s *Server) stage(sessionID, name string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads dir: %w", err)
	}
	path := filepath.Join(s.uploadsDir, sessionID+"_"+name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}
	return path, nil
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// PostChat handles POST /chat.
func (s *Server) PostChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	answer, err := s.Chat.HandleMessage(r.Context(), body.SessionID, body.Message)
	if err != nil {
		s.logger.Error("chat failed", "session_id", body.SessionID, "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: answer, SessionID: body.SessionID})
}

type historyResponse struct {
	History        []domain.Message `json:"history"`
	Filename       string           `json:"filename"`
	HasVectorStore bool             `json:"has_vector_store"`
}

// GetChatHistory handles GET /chat-history/{session_id}.
func (s *Server) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Error("failed to load session", "err", err)
		}
		writeError(w, statusFor(err), detailFor(err))
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		History:        sess.ChatHistory,
		Filename:       sess.Filename,
		HasVectorStore: sess.HasDocument(),
	})
}

// DeleteSession handles DELETE /session/{session_id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "session_id")); err != nil {
		s.logger.Error("failed to delete session", "err", err)
		writeError(w, statusFor(err), detailFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	msg := "Server running"
	if s.provider != "" {
		msg = fmt.Sprintf("Server running with %s API", s.provider)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": msg})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":      "chatbot-http",
		"version":  strings.TrimSpace(s.version),
		"provider": s.provider,
	})
}
