package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// Transcript formats a session as markdown: a header with its metadata and one section per message.
func Transcript(s *domain.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session `%s`\n\n", s.SessionID)
	fmt.Fprintf(&b, "- **Documents:** %s\n", s.Filename)
	fmt.Fprintf(&b, "- **Created:** %s\n", s.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Last activity:** %s\n", s.LastActivity.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Messages:** %d\n", len(s.ChatHistory))
	if s.HasDocument() {
		fmt.Fprintf(&b, "- **Indexed text:** %d characters\n", len([]rune(s.DocumentIndex.Text)))
	}

	for _, m := range s.ChatHistory {
		who := "You"
		if m.Role == domain.RoleAssistant {
			who = "Assistant"
		}
		fmt.Fprintf(&b, "\n## %s · %s\n\n%s\n", who, m.Timestamp.Format("2006-01-02 15:04:05"), m.Content)
	}
	return b.String()
}
