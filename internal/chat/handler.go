package chat

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/session"
)

// Observer is notified about routing decisions and generation failures.
type Observer interface {
	ObserveRoute(route Route)
	ObserveGenerationFailure(err error)
}

// Handler answers chat messages on behalf of a session.
type Handler struct {
	sessions  *session.Manager
	generator ports.Generator
	logger    *slog.Logger
	observer  Observer
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(h *Handler) {
		h.observer = o
	}
}

// NewHandler creates a Handler.
func NewHandler(sessions *session.Manager, generator ports.Generator, opts ...Option) *Handler {
	h := &Handler{
		sessions:  sessions,
		generator: generator,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleMessage records message, answers it and records the answer.
// Blank or one-character input is answered without touching the session.
// Errors are storage failures only; a failing generator yields Apology.
func (h *Handler) HandleMessage(ctx context.Context, sessionID, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		h.observeRoute(RouteRejected)
		return msgEmpty, nil
	}
	if utf8.RuneCountInString(message) < 2 {
		h.observeRoute(RouteRejected)
		return msgTooShort, nil
	}

	if _, _, err := h.sessions.Ensure(ctx, sessionID); err != nil {
		return "", err
	}

	if err := h.sessions.AppendMessage(ctx, sessionID, domain.RoleUser, message); err != nil {
		return "", err
	}

	// Routed on the state after the user message was recorded.
	current, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	route := h.route(current, message)
	h.observeRoute(route)

	var answer string
	switch route {
	case RoutePersonal:
		answer = h.answerPersonal(ctx, current, message)
	case RouteDocument:
		answer = h.answerDocument(ctx, current, message)
	default:
		answer = h.generate(ctx, generalPrompt(message))
	}

	if err := h.sessions.AppendMessage(ctx, sessionID, domain.RoleAssistant, answer); err != nil {
		return "", err
	}
	h.logger.Debug("message handled", "session_id", sessionID, "route", route)
	return answer, nil
}

func (h *Handler) route(s *domain.Session, message string) Route {
	lower := strings.ToLower(message)
	if containsAny(lower, personalKeywords) {
		return RoutePersonal
	}
	if s.HasDocument() && s.DocumentIndex.Text != "" && containsAny(lower, documentKeywords) {
		return RouteDocument
	}
	return RouteGeneral
}

func (h *Handler) answerPersonal(ctx context.Context, s *domain.Session, message string) string {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "name") {
		if name, ok := recallName(s.ChatHistory); ok {
			return "Your name is " + name + "."
		}
		return msgUnknownName
	}

	if strings.Contains(lower, "age") {
		if age, ok := recallAge(s.ChatHistory); ok {
			return "You are " + age + " years old."
		}
		return msgUnknownAge
	}

	facts := recallFacts(s.ChatHistory)
	if len(facts) == 0 {
		return msgNoPersonal
	}
	return h.generate(ctx, personalPrompt(strings.Join(facts, "\n"), message))
}

func (h *Handler) answerDocument(ctx context.Context, s *domain.Session, message string) string {
	text := s.DocumentIndex.Text
	if utf8.RuneCountInString(text) > documentContextRunes {
		text = string([]rune(text)[:documentContextRunes])
	}
	return h.generate(ctx, documentPrompt(s.Filename, text, message))
}

func (h *Handler) generate(ctx context.Context, prompt string) string {
	answer, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		h.logger.Error("answer generation failed", "err", err)
		if h.observer != nil {
			h.observer.ObserveGenerationFailure(err)
		}
		return Apology
	}
	return answer
}

func (h *Handler) observeRoute(r Route) {
	if h.observer != nil {
		h.observer.ObserveRoute(r)
	}
}

// recallName finds the newest "my name is ..." statement and returns up to three words of it, lower-cased.
func recallName(history []domain.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != domain.RoleUser {
			continue
		}
		parts := strings.SplitN(strings.ToLower(msg.Content), "my name is", 3)
		if len(parts) < 2 {
			continue
		}
		words := strings.Fields(parts[1])
		if len(words) == 0 {
			continue
		}
		if len(words) > nameWords {
			words = words[:nameWords]
		}
		return strings.Join(words, " "), true
	}
	return "", false
}

func recallAge(history []domain.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != domain.RoleUser {
			continue
		}
		if m := agePattern.FindStringSubmatch(strings.ToLower(msg.Content)); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// recallFacts returns self-descriptive user messages from the recent window, newest first.
func recallFacts(history []domain.Message) []string {
	window := history
	if len(window) > personalWindow {
		window = window[len(window)-personalWindow:]
	}
	var facts []string
	for i := len(window) - 1; i >= 0 && len(facts) < personalFacts; i-- {
		msg := window[i]
		if msg.Role == domain.RoleUser && containsAny(strings.ToLower(msg.Content), selfDescriptions) {
			facts = append(facts, msg.Content)
		}
	}
	return facts
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
