// Package document turns uploaded PDF files into document indexes.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vijaya2621/Chatbot-using-API/internal/logging"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/ledongthuc/pdf"
)

// Processor implements ports.DocumentProcessor for PDF files.
type Processor struct {
	logger *slog.Logger
}

// Option configures the Processor.
type Option func(*Processor)

// WithLogger sets the logger used for cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a PDF processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process extracts the text of every page and records name as its source.
// The file at path is removed whether or not extraction succeeds.
func (p *Processor) Process(ctx context.Context, path, name string) (*domain.DocumentIndex, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to remove uploaded file", "path", path, "err", err)
		}
	}()

	text, err := extractText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProcessing, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no content found in PDF", domain.ErrProcessing)
	}

	return &domain.DocumentIndex{
		Text:    text,
		Sources: []string{filepath.Base(name)},
	}, nil
}

func extractText(ctx context.Context, path string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
