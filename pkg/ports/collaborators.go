package ports

import (
	"context"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
)

// Generator produces a natural-language answer for a prompt.
// Failures are wrapped in domain.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DocumentProcessor converts an uploaded document into an index.
// path is the staged file and name the file name the client uploaded.
// Returns domain.ErrProcessing when the document yields no content.
type DocumentProcessor interface {
	Process(ctx context.Context, path, name string) (*domain.DocumentIndex, error)
}
