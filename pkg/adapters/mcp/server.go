package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionURIPrefix is the scheme of the session transcript resources.
const SessionURIPrefix = "session://"

// Chatter answers one user message within a session.
type Chatter interface {
	HandleMessage(ctx context.Context, sessionID, message string) (string, error)
}

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SessionArgs identify a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// ChatResponse is the structured result of the chat tool.
type ChatResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"The session the message was appended to"`
	Answer    string `json:"answer" jsonschema_description:"The assistant reply"`
}

// HistoryResponse mirrors the HTTP chat-history payload.
type HistoryResponse struct {
	SessionID   string           `json:"session_id"`
	History     []domain.Message `json:"history" jsonschema_description:"Messages, oldest first"`
	Filename    string           `json:"filename" jsonschema_description:"Attached document names or General Chat"`
	HasDocument bool             `json:"has_vector_store"`
}

// ListResponse is the structured result of list_sessions.
type ListResponse struct {
	Sessions []string `json:"sessions"`
}

// Server exposes the chat backend as an MCP server.
type Server struct {
	sessions  *session.Manager
	chat      Chatter
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	version string
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithVersion sets the version reported during initialization.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = strings.TrimSpace(version)
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, chat Chatter, opts ...Option) *Server {
	o := options{logger: logging.NewNop(), version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		sessions: sessions,
		chat:     chat,
		logger:   o.logger,
		mcpServer: server.NewMCPServer("chatbot-mcp", o.version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: chat
	s.mcpServer.AddTool(mcp.NewTool("chat",
		mcp.WithDescription("Send a message in a session and get the assistant reply. Unknown sessions are created."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[ChatResponse](),
	), mcp.NewStructuredToolHandler(s.handleChat))

	// TOOL: get_history
	s.mcpServer.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the chat history and attached documents of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[HistoryResponse](),
	), mcp.NewStructuredToolHandler(s.handleHistory))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the identifiers of all stored sessions."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	// TOOL: delete_session
	s.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session and its document index."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithDestructiveHintAnnotation(true),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.sessions.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcp.NewToolResultText("Session deleted"), nil
	})
}

func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest, args ChatArgs) (ChatResponse, error) {
	if args.SessionID == "" {
		return ChatResponse{}, errors.New("session_id is required")
	}
	answer, err := s.chat.HandleMessage(ctx, args.SessionID, args.Message)
	if err != nil {
		s.logger.Error("MCP chat failed", "session_id", args.SessionID, "err", err)
		return ChatResponse{}, err
	}
	return ChatResponse{SessionID: args.SessionID, Answer: answer}, nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (HistoryResponse, error) {
	return s.history(ctx, args.SessionID)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args struct{}) (ListResponse, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return ListResponse{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ListResponse{Sessions: ids}, nil
}

func (s *Server) history(ctx context.Context, sessionID string) (HistoryResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{
		SessionID:   sess.SessionID,
		History:     sess.ChatHistory,
		Filename:    sess.Filename,
		HasDocument: sess.HasDocument(),
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: session://{session_id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(SessionURIPrefix+"{session_id}", "Session transcript",
		mcp.WithTemplateDescription("Chat history and attached documents of one session"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(request.Params.URI, SessionURIPrefix)
		resp, err := s.history(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read session %q: %w", id, err)
		}
		jsonBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
